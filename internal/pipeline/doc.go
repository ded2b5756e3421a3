// Package pipeline runs the stages of a site audit in sequence.
//
// An audit collects pages (by crawling, from sitemaps or from an explicit
// URL list), aggregates them into a site report, optionally compares the
// target with competitors, produces recommendations, and finally persists
// and exports the report. Each stage is a Step operating on a shared
// *model.Audit.
//
// BatchProcessor audits several sites concurrently, each with a fresh
// pipeline, bounded by errgroup.
package pipeline
