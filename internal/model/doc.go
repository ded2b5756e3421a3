// Package model defines the core data structures used throughout SEOScan.
//
// This package contains the following main types:
//   - PageResult: every signal extracted from one fetched page
//   - SiteReport: the site-wide aggregate of a crawl
//   - CompetitorComparison: the diff between a target and competitor pages
//   - Audit: the state passed between pipeline steps
//
// The models live in their own package because the crawler, analyzer,
// aggregator and report writers all share them. All types serialize to
// JSON for reports and database storage.
package model
