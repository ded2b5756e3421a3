// Package crawler discovers and analyzes the pages of one site breadth-first.
//
// # Architecture
//
// A single control loop owns the crawl frontier (visited set, queue and
// queued set). Each iteration takes a batch of URLs at the same depth,
// marks them visited, and fans the fetch and analysis out to a bounded
// errgroup. Workers only return results; the control loop then enqueues
// the discovered links in batch order, so the frontier is never shared.
//
// # Bounds
//
// Traversal stops when the number of visited URLs reaches the page limit
// or the queue is empty. Links are only enqueued while depth+1 does not
// exceed the depth limit, so every returned page satisfies both bounds.
//
// # Politeness
//
//   - robots.txt rules are applied to every link before it is queued
//   - the fetcher's per-host limiter spaces requests to the same host
//   - assets, private application paths and tracking URLs are skipped
//
// # Usage
//
//	c := crawler.New(httpClient, analyzer.New(), crawler.WithMaxDepth(2))
//	pages, err := c.Crawl(ctx, "https://example.com/")
package crawler
