// Package main provides the entry point for the SEOScan CLI.
//
// SEOScan crawls a website, analyzes each page for on-page SEO signals
// and writes a scored site report with recommendations.
//
// Usage:
//
//	seoscan crawl https://example.com
//	seoscan analyze https://example.com/pricing https://example.com/blog
//	seoscan compare https://example.com https://competitor.example
//
// See --help for all available options.
package main

// main is the entry point for SEOScan.
func main() {
	Execute()
}
