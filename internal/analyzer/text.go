package analyzer

import (
	"math"
	"strings"
	"unicode"

	"github.com/nao1215/seoscan/internal/model"
)

// isWordRune reports whether r can appear inside a word token.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '’' || r == '-'
}

// tokenize splits text into word tokens. Apostrophes and hyphens are kept
// inside words ("don't", "state-of-the-art") and trimmed at the edges.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool { return !isWordRune(r) })
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'’-")
		if f == "" || !hasAlnum(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func hasAlnum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// splitSentences splits text on terminal punctuation and line breaks,
// which separate block elements. Fragments without any word are dropped.
func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if hasLetter(p) {
			sentences = append(sentences, strings.TrimSpace(p))
		}
	}
	return sentences
}

// countSyllables estimates English syllables by counting vowel groups.
// A trailing silent "e" is not counted and every word has at least one.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	if !hasLetter(word) {
		return 1
	}

	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}

	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

// computeContentMetrics derives the text statistics from visible text.
// paragraphs is the number of non-empty <p> elements.
func computeContentMetrics(text string, tokens []string, paragraphs int) model.ContentMetrics {
	metrics := model.ContentMetrics{
		WordCount:      len(tokens),
		ParagraphCount: paragraphs,
	}
	if metrics.WordCount == 0 {
		metrics.Sentiment = model.Sentiment{Label: sentimentNeutral}
		return metrics
	}

	metrics.SentenceCount = max(len(splitSentences(text)), 1)
	for _, token := range tokens {
		metrics.SyllableCount += countSyllables(token)
	}

	words := float64(metrics.WordCount)
	sentences := float64(metrics.SentenceCount)
	syllables := float64(metrics.SyllableCount)

	metrics.FleschReadingEase = round2(206.835 - 1.015*(words/sentences) - 84.6*(syllables/words))
	metrics.FleschKincaidGrade = round2(0.39*(words/sentences) + 11.8*(syllables/words) - 15.59)
	metrics.Sentiment = scoreSentiment(tokens)
	return metrics
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
