package analyzer

import (
	"sort"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"github.com/pemistahl/lingua-go"
	wapp "github.com/projectdiscovery/wappalyzergo"

	"github.com/nao1215/seoscan/internal/model"
)

// LanguageDetector identifies the language of visible page text.
type LanguageDetector interface {
	Detect(text string) (*model.Language, bool)
}

// TechDetector fingerprints the technologies behind a response.
type TechDetector interface {
	Fingerprint(headers map[string][]string, body []byte) []string
}

// minLanguageTextLength is the shortest text worth running detection on.
const minLanguageTextLength = 20

// defaultLanguages are the languages the lingua detector distinguishes.
// Restricting the set keeps model loading fast and memory bounded.
var defaultLanguages = []lingua.Language{
	lingua.English, lingua.French, lingua.German, lingua.Spanish,
	lingua.Portuguese, lingua.Italian, lingua.Dutch, lingua.Swedish,
	lingua.Polish, lingua.Russian, lingua.Turkish, lingua.Arabic,
	lingua.Chinese, lingua.Japanese, lingua.Korean, lingua.Hindi,
}

// LinguaDetector detects languages with lingua-go. The underlying detector
// is built on first use.
type LinguaDetector struct {
	languages []lingua.Language
	once      sync.Once
	detector  lingua.LanguageDetector
}

// NewLinguaDetector creates a detector for the given languages, or for a
// default set of widely used languages when none are given.
func NewLinguaDetector(languages ...lingua.Language) *LinguaDetector {
	if len(languages) < 2 {
		languages = defaultLanguages
	}
	return &LinguaDetector{languages: languages}
}

// Detect returns the most likely language of text. It reports false for
// short text and when no language is reliable.
func (d *LinguaDetector) Detect(text string) (*model.Language, bool) {
	text = strings.TrimSpace(text)
	if len(text) < minLanguageTextLength {
		return nil, false
	}

	d.once.Do(func() {
		d.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(d.languages...).
			Build()
	})

	detected, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return nil, false
	}

	confidence := 0.0
	for _, value := range d.detector.ComputeLanguageConfidenceValues(text) {
		if value.Language() == detected {
			confidence = value.Value()
			break
		}
	}

	return &model.Language{
		Code:       strings.ToLower(detected.IsoCode639_1().String()),
		Name:       detected.String(),
		Confidence: round3(confidence),
	}, true
}

// WappalyzerDetector fingerprints technologies with wappalyzergo.
type WappalyzerDetector struct {
	engine *wapp.Wappalyze
}

// NewWappalyzerDetector loads the embedded fingerprint database.
func NewWappalyzerDetector() (*WappalyzerDetector, error) {
	engine, err := wapp.New()
	if err != nil {
		return nil, err
	}
	return &WappalyzerDetector{engine: engine}, nil
}

// Fingerprint returns the detected technology names, sorted.
func (d *WappalyzerDetector) Fingerprint(headers map[string][]string, body []byte) []string {
	found := d.engine.Fingerprint(headers, body)
	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultSpamThreshold is the number of distinct spam phrases that
// raises a spam_terms issue.
const DefaultSpamThreshold = 3

// defaultSpamPhrases are phrases typical for spam and doorway pages.
var defaultSpamPhrases = []string{
	"100% free", "act now", "as seen on", "best price", "buy now", "call now",
	"cheap meds", "click here", "click below", "casino bonus", "double your",
	"earn money fast", "extra income", "free access", "free gift", "free money",
	"guaranteed income", "get rich", "increase your sales", "limited time offer",
	"lowest price", "make money online", "miracle cure", "no credit check",
	"no hidden fees", "once in a lifetime", "order now", "risk free", "risk-free",
	"special promotion", "this won't last", "urgent response", "weight loss",
	"winner", "work from home", "you have been selected",
}

// SpamDetector finds spam phrases with an Aho-Corasick automaton.
// The matcher keeps per-call state, so matches are serialized.
type SpamDetector struct {
	mu        sync.Mutex
	matcher   *ahocorasick.Matcher
	phrases   []string
	threshold int
}

// NewSpamDetector builds a detector over phrases; nil uses the default list.
// A threshold below 1 uses DefaultSpamThreshold.
func NewSpamDetector(phrases []string, threshold int) *SpamDetector {
	if len(phrases) == 0 {
		phrases = defaultSpamPhrases
	}
	if threshold < 1 {
		threshold = DefaultSpamThreshold
	}

	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = strings.ToLower(p)
	}
	return &SpamDetector{
		matcher:   ahocorasick.NewStringMatcher(lowered),
		phrases:   lowered,
		threshold: threshold,
	}
}

// Match returns the distinct phrases found in text, sorted.
func (d *SpamDetector) Match(text string) []string {
	if text == "" {
		return nil
	}
	d.mu.Lock()
	hits := d.matcher.Match([]byte(strings.ToLower(text)))
	d.mu.Unlock()

	seen := make(map[string]struct{}, len(hits))
	terms := make([]string, 0, len(hits))
	for _, idx := range hits {
		phrase := d.phrases[idx]
		if _, dup := seen[phrase]; dup {
			continue
		}
		seen[phrase] = struct{}{}
		terms = append(terms, phrase)
	}
	sort.Strings(terms)
	return terms
}

// Threshold returns the hit count that marks a page as spammy.
func (d *SpamDetector) Threshold() int {
	return d.threshold
}
