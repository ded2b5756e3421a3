package analyzer

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/seoscan/internal/fetcher"
	"github.com/nao1215/seoscan/internal/model"
)

// Analyzer extracts SEO signals from HTML documents.
// An Analyzer holds no per-page state and is safe for concurrent use
// as long as its detectors are.
type Analyzer struct {
	weights      model.ScoreWeights
	keywordLimit int
	language     LanguageDetector
	tech         TechDetector
	spam         *SpamDetector
	logger       *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithWeights sets the score weights. Weights that add up to zero or less
// are ignored.
func WithWeights(weights model.ScoreWeights) Option {
	return func(a *Analyzer) {
		if weights.Total() > 0 {
			a.weights = weights
		}
	}
}

// WithKeywordLimit sets how many keywords are kept per page.
func WithKeywordLimit(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.keywordLimit = n
		}
	}
}

// WithLanguageDetector enables language detection.
func WithLanguageDetector(d LanguageDetector) Option {
	return func(a *Analyzer) {
		a.language = d
	}
}

// WithTechDetector enables technology fingerprinting.
func WithTechDetector(d TechDetector) Option {
	return func(a *Analyzer) {
		a.tech = d
	}
}

// WithSpamDetector replaces the default spam phrase detector.
func WithSpamDetector(d *SpamDetector) Option {
	return func(a *Analyzer) {
		a.spam = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// New creates an Analyzer with default weights and spam detection.
// Language and technology detection are off unless enabled with options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		weights:      model.DefaultScoreWeights(),
		keywordLimit: DefaultKeywordLimit,
		spam:         NewSpamDetector(nil, DefaultSpamThreshold),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze parses body as the HTML of pageURL and returns the page's
// signals, issues and score. It fails with *ParseError when body is empty,
// binary or contains no HTML elements.
func (a *Analyzer) Analyze(body []byte, pageURL string) (model.PageResult, error) {
	return a.analyze(body, pageURL, nil)
}

func (a *Analyzer) analyze(body []byte, pageURL string, header http.Header) (model.PageResult, error) {
	result := newPageResult(pageURL, 0)
	result.HTMLSize = len(body)

	if err := checkParsable(body); err != nil {
		err.URL = pageURL
		return result, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return result, &ParseError{URL: pageURL, Reason: "invalid page URL: " + err.Error()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return result, &ParseError{URL: pageURL, Reason: err.Error()}
	}

	extractHead(doc, &result)
	if result.RobotsMeta == "" && header != nil {
		result.RobotsMeta = strings.ToLower(header.Get("X-Robots-Tag"))
	}
	result.Headings = extractHeadings(doc)
	result.InternalLinks, result.ExternalLinks = extractLinks(doc, base)
	result.Images = extractImages(doc)
	result.StructuredData = extractStructuredData(doc, &result)

	text, paragraphs := visibleText(doc)
	tokens := tokenize(text)
	result.Content = computeContentMetrics(text, tokens, paragraphs)

	folded := foldTokens(tokens)
	result.Keywords = extractKeywords(folded, result.Content.WordCount, a.keywordLimit)
	sentences := splitSentences(text)
	sentenceTokens := make([][]string, 0, len(sentences))
	for _, s := range sentences {
		sentenceTokens = append(sentenceTokens, foldTokens(tokenize(s)))
	}
	result.Phrases = extractPhrases(sentenceTokens, result.Content.WordCount)

	if a.language != nil {
		if lang, ok := a.language.Detect(text); ok {
			result.Language = lang
		}
	}
	if a.tech != nil {
		result.Technologies = a.tech.Fingerprint(header, body)
	}

	threshold := 0
	if a.spam != nil {
		result.SpamTerms = a.spam.Match(text)
		threshold = a.spam.Threshold()
	}

	result.ComputeHash(body)
	result.Issues = evaluateContent(&result, threshold)
	result.Score = computeScore(&result, a.weights)
	return result, nil
}

// AnalyzeResponse builds the PageResult for a fetch of pageURL at the given
// crawl depth. fetchErr is the error returned by the fetcher; failures are
// recorded on the result instead of being returned.
func (a *Analyzer) AnalyzeResponse(pageURL string, depth int, resp *fetcher.Response, fetchErr error) model.PageResult {
	if resp == nil {
		msg := "no response"
		if fetchErr != nil {
			msg = fetchErr.Error()
		}
		return failedResult(pageURL, depth, model.PageErrorNetwork, msg, 0)
	}

	var httpErr *fetcher.HTTPError
	if errors.As(fetchErr, &httpErr) {
		result := failedResult(pageURL, depth, model.PageErrorHTTP, httpErr.Error(), httpErr.StatusCode)
		applyResponse(&result, resp)
		return result
	}
	if fetchErr != nil {
		return failedResult(pageURL, depth, model.PageErrorNetwork, fetchErr.Error(), 0)
	}

	if !resp.IsHTML() {
		result := failedResult(pageURL, depth, model.PageErrorParse, "unsupported content type "+resp.ContentType(), resp.StatusCode)
		applyResponse(&result, resp)
		return result
	}

	base := pageURL
	if resp.FinalURL != "" {
		base = resp.FinalURL
	}

	result, err := a.analyze(resp.Body, base, resp.Header)
	if err != nil {
		a.logger.Debug("parse failed", "url", pageURL, "error", err)
		result = failedResult(pageURL, depth, model.PageErrorParse, err.Error(), resp.StatusCode)
		applyResponse(&result, resp)
		return result
	}

	result.URL = pageURL
	result.Depth = depth
	applyResponse(&result, resp)
	result.Issues = append(result.Issues, evaluateResponse(&result)...)
	return result
}

// applyResponse copies response metadata onto result.
func applyResponse(result *model.PageResult, resp *fetcher.Response) {
	result.StatusCode = resp.StatusCode
	result.FetchTimeMS = resp.Elapsed.Milliseconds()
	result.HTMLSize = len(resp.Body)
	if resp.FinalURL != "" && resp.FinalURL != result.URL {
		result.FinalURL = resp.FinalURL
	}
	if resp.Header != nil {
		result.ContentType = resp.ContentType()
		result.LastModified = resp.Header.Get("Last-Modified")
		result.Server = resp.Header.Get("Server")
		result.CacheControl = resp.Header.Get("Cache-Control")
	}
	result.Compression = resp.Compression
}

// checkParsable rejects bodies that are not HTML documents.
func checkParsable(body []byte) *ParseError {
	if len(bytes.TrimSpace(body)) == 0 {
		return &ParseError{Reason: "empty document"}
	}
	if bytes.IndexByte(body, 0) >= 0 {
		return &ParseError{Reason: "binary content"}
	}
	if !hasElements(body) {
		return &ParseError{Reason: "document contains no HTML elements"}
	}
	return nil
}

func newPageResult(pageURL string, depth int) model.PageResult {
	return model.PageResult{
		URL:           pageURL,
		Depth:         depth,
		Headings:      make(map[string][]string),
		InternalLinks: make([]string, 0),
		ExternalLinks: make([]string, 0),
		Images:        model.ImageStats{AltCoverage: 100},
		Content:       model.ContentMetrics{Sentiment: model.Sentiment{Label: sentimentNeutral}},
		Issues:        make([]model.Issue, 0),
	}
}

// failedResult builds the result of a page that yielded no signals.
// It carries exactly one issue for the error and scores 0.
func failedResult(pageURL string, depth int, kind model.PageErrorKind, msg string, status int) model.PageResult {
	result := newPageResult(pageURL, depth)
	result.StatusCode = status
	result.Error = &model.PageError{Kind: kind, Message: msg, StatusCode: status}

	code := model.IssueNetworkError
	switch kind {
	case model.PageErrorHTTP:
		code = model.IssueHTTPError
	case model.PageErrorParse:
		code = model.IssueParseError
	}
	result.Issues = append(result.Issues, model.NewIssue(code, msg))
	return result
}
