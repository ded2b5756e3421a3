// Package export pushes audited pages to Elasticsearch.
//
// Every page of a SiteReport becomes one document in the configured
// index, sent through the _bulk API in batches. Document IDs derive from
// the report ID and page URL, so exporting the same report twice
// overwrites instead of duplicating.
package export
