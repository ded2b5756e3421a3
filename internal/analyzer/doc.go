// Package analyzer turns one HTML document into a model.PageResult.
//
// Analyze is pure over the HTML text: it extracts the head metadata,
// headings, links, images and structured data with goquery, computes text
// statistics (word count, Flesch reading ease, Flesch-Kincaid grade and a
// lexicon sentiment score), ranks keywords and phrases, and evaluates the
// page checklist into issues and a weighted score.
//
// AnalyzeResponse wraps Analyze for fetched pages. It records status, timing,
// size and caching headers, turns fetch failures into failed results, and
// runs the response-level rules.
//
// Language detection (lingua-go), technology fingerprinting (wappalyzergo)
// and spam-term scanning (Aho-Corasick) are pluggable detectors.
package analyzer
