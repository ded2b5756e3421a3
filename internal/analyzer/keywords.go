package analyzer

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/seoscan/internal/model"
)

const (
	// DefaultKeywordLimit is the number of keywords kept per page.
	DefaultKeywordLimit = 25

	// phraseLimit is the number of key phrases kept per page.
	phraseLimit = 10

	// minPhraseCount is how often an n-gram must repeat to be a key phrase.
	minPhraseCount = 2

	minKeywordRunes = 3
	minPhraseLen    = 2
	maxPhraseLen    = 4
)

// stopwords are common English function words excluded from keywords.
var stopwords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "against": {}, "all": {}, "also": {},
	"am": {}, "an": {}, "and": {}, "any": {}, "are": {}, "as": {}, "at": {}, "be": {}, "because": {},
	"been": {}, "before": {}, "being": {}, "below": {}, "between": {}, "both": {}, "but": {}, "by": {},
	"can": {}, "could": {}, "did": {}, "do": {}, "does": {}, "doing": {}, "down": {}, "during": {},
	"each": {}, "even": {}, "every": {}, "few": {}, "for": {}, "from": {}, "further": {}, "get": {},
	"had": {}, "has": {}, "have": {}, "having": {}, "he": {}, "her": {}, "here": {}, "hers": {},
	"him": {}, "his": {}, "how": {}, "however": {}, "i": {}, "if": {}, "in": {}, "into": {}, "is": {},
	"it": {}, "its": {}, "it's": {}, "just": {}, "like": {}, "made": {}, "make": {}, "many": {},
	"may": {}, "me": {}, "might": {}, "more": {}, "most": {}, "much": {}, "must": {}, "my": {},
	"new": {}, "no": {}, "nor": {}, "not": {}, "now": {}, "of": {}, "off": {}, "on": {}, "once": {},
	"one": {}, "only": {}, "or": {}, "other": {}, "our": {}, "ours": {}, "out": {}, "over": {},
	"own": {}, "same": {}, "see": {}, "she": {}, "should": {}, "so": {}, "some": {}, "such": {},
	"than": {}, "that": {}, "the": {}, "their": {}, "theirs": {}, "them": {}, "then": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "those": {}, "through": {}, "to": {},
	"too": {}, "two": {}, "under": {}, "until": {}, "up": {}, "us": {}, "use": {}, "used": {},
	"very": {}, "was": {}, "we": {}, "well": {}, "were": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "while": {}, "who": {}, "whom": {}, "why": {}, "will": {}, "with": {},
	"would": {}, "you": {}, "your": {}, "yours": {}, "you're": {}, "we're": {}, "don't": {},
}

func isStopword(term string) bool {
	_, ok := stopwords[term]
	return ok
}

func isNumeric(term string) bool {
	for _, r := range term {
		if !unicode.IsDigit(r) && r != '-' && r != '\'' {
			return false
		}
	}
	return true
}

// foldTokens returns case-folded, NFKC-normalized copies of tokens so that
// "Café", "CAFÉ" and "café" count as one term.
func foldTokens(tokens []string) []string {
	folder := cases.Fold()
	folded := make([]string, len(tokens))
	for i, t := range tokens {
		folded[i] = strings.ReplaceAll(folder.String(norm.NFKC.String(t)), "’", "'")
	}
	return folded
}

func isKeywordCandidate(term string) bool {
	return len([]rune(term)) >= minKeywordRunes && !isStopword(term) && !isNumeric(term)
}

// extractKeywords counts candidate terms and returns the limit most frequent,
// ordered by count descending and then alphabetically.
func extractKeywords(folded []string, wordCount, limit int) []model.Keyword {
	counts := make(map[string]int)
	for _, term := range folded {
		if isKeywordCandidate(term) {
			counts[term]++
		}
	}
	return rankTerms(counts, wordCount, 1, limit)
}

// extractPhrases counts 2 to 4 word n-grams that start and end with a
// keyword candidate and do not cross sentence boundaries.
func extractPhrases(sentences [][]string, wordCount int) []model.Keyword {
	counts := make(map[string]int)
	for _, words := range sentences {
		for n := minPhraseLen; n <= maxPhraseLen; n++ {
			for i := 0; i+n <= len(words); i++ {
				if !isKeywordCandidate(words[i]) || !isKeywordCandidate(words[i+n-1]) {
					continue
				}
				counts[strings.Join(words[i:i+n], " ")]++
			}
		}
	}
	return rankTerms(counts, wordCount, minPhraseCount, phraseLimit)
}

func rankTerms(counts map[string]int, wordCount, minCount, limit int) []model.Keyword {
	ranked := make([]model.Keyword, 0, len(counts))
	for term, count := range counts {
		if count < minCount {
			continue
		}
		density := 0.0
		if wordCount > 0 {
			density = round2(float64(count) / float64(wordCount) * 100)
		}
		ranked = append(ranked, model.Keyword{Term: term, Count: count, Density: density})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Term < ranked[j].Term
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// TFIDF weighs each page's keywords against the whole page set.
// The result has one map per page, keyed by term. Failed pages get an
// empty map. Term frequency is count/word_count and inverse document
// frequency is ln(N/df)+1.
func TFIDF(pages []model.PageResult) []map[string]float64 {
	docFreq := make(map[string]int)
	for _, page := range pages {
		for _, kw := range page.Keywords {
			docFreq[kw.Term]++
		}
	}

	n := float64(len(pages))
	weights := make([]map[string]float64, len(pages))
	for i, page := range pages {
		weights[i] = make(map[string]float64, len(page.Keywords))
		if page.Failed() || page.Content.WordCount == 0 {
			continue
		}
		words := float64(page.Content.WordCount)
		for _, kw := range page.Keywords {
			tf := float64(kw.Count) / words
			idf := math.Log(n/float64(docFreq[kw.Term])) + 1
			weights[i][kw.Term] = round3(tf * idf * 100)
		}
	}
	return weights
}
