// Package sitemap discovers a site's existing XML sitemaps and generates
// new ones from crawl results.
//
// Discovery reads the Sitemap lines of robots.txt, then probes the
// conventional sitemap locations, and flattens sitemap indexes recursively
// with a depth bound and a visited set, so self-referencing indexes
// terminate. Namespaced, plain and gzip-compressed documents are accepted.
package sitemap
