package analyzer

import (
	"math"
	"strings"

	"github.com/nao1215/seoscan/internal/model"
)

// Sentiment labels.
const (
	sentimentPositive = "positive"
	sentimentNegative = "negative"
	sentimentNeutral  = "neutral"
)

const (
	// sentimentAlpha normalizes the valence sum into -1..1.
	sentimentAlpha = 15.0
	// negationScalar flips and dampens a negated valence.
	negationScalar = -0.74
	// boosterIncrement is added per intensifier in front of a sentiment word.
	boosterIncrement = 0.293
	// labelThreshold separates neutral from polar compound scores.
	labelThreshold = 0.05
	// lookback is how many preceding tokens can negate or boost a word.
	lookback = 3
)

// valences is a compact sentiment lexicon on a -4..4 scale.
var valences = map[string]float64{
	"amazing": 3.1, "awesome": 3.1, "beautiful": 2.9, "best": 3.2, "better": 1.9,
	"brilliant": 2.8, "clean": 1.7, "clear": 1.6, "comfortable": 1.8, "easy": 1.9,
	"effective": 2.1, "efficient": 1.8, "enjoy": 2.2, "excellent": 3.2, "exceptional": 2.7,
	"fantastic": 2.6, "fast": 1.4, "favorite": 2.0, "fine": 0.8, "free": 1.2,
	"friendly": 2.2, "fun": 2.3, "glad": 2.0, "good": 1.9, "great": 3.1,
	"happy": 2.7, "helpful": 1.8, "ideal": 2.0, "impressive": 2.3, "improve": 1.9,
	"improved": 2.1, "incredible": 2.5, "innovative": 1.9, "love": 3.2, "lovely": 2.8,
	"nice": 1.8, "perfect": 2.7, "pleasant": 2.3, "popular": 1.8, "powerful": 1.8,
	"recommend": 1.5, "reliable": 1.9, "safe": 1.9, "satisfied": 1.8, "secure": 1.4,
	"simple": 1.0, "smart": 1.7, "success": 2.7, "successful": 2.8, "superb": 3.1,
	"support": 1.7, "thank": 1.5, "thanks": 1.9, "trust": 2.3, "trusted": 2.1,
	"useful": 1.9, "valuable": 2.1, "welcome": 2.0, "win": 2.8, "wonderful": 2.7,
	"abuse": -3.2, "angry": -2.3, "annoying": -2.2, "awful": -2.0, "bad": -2.5,
	"boring": -1.3, "broken": -2.1, "complicated": -1.1, "confusing": -1.3, "crash": -1.7,
	"damage": -2.2, "dangerous": -2.1, "difficult": -1.5, "disappointed": -1.9, "disappointing": -2.2,
	"error": -1.7, "expensive": -1.3, "fail": -2.5, "failed": -2.3, "failure": -2.3,
	"fake": -2.1, "fear": -2.2, "hard": -0.4, "hate": -2.7, "horrible": -2.5,
	"poor": -2.1, "problem": -1.7, "problems": -1.7, "risk": -1.1, "sad": -2.1,
	"scam": -2.6, "slow": -1.0, "spam": -1.5, "terrible": -2.1, "ugly": -2.3,
	"unfortunately": -1.6, "unreliable": -2.0, "unsafe": -2.4, "useless": -1.8, "worse": -2.1,
	"worst": -3.1, "wrong": -2.1,
}

// negations invert the valence of a following sentiment word.
var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "none": {}, "nobody": {}, "nothing": {},
	"neither": {}, "nor": {}, "without": {}, "cannot": {}, "can't": {}, "don't": {},
	"doesn't": {}, "didn't": {}, "isn't": {}, "aren't": {}, "wasn't": {}, "weren't": {},
	"won't": {}, "wouldn't": {}, "shouldn't": {}, "couldn't": {}, "hardly": {},
}

// boosters intensify (positive) or soften (negative) a following word.
var boosters = map[string]float64{
	"absolutely": 1, "completely": 1, "extremely": 1, "highly": 1, "incredibly": 1,
	"really": 1, "so": 1, "totally": 1, "truly": 1, "very": 1, "most": 1, "more": 1,
	"barely": -1, "slightly": -1, "somewhat": -1, "little": -1, "less": -1,
}

// scoreSentiment computes a VADER-style polarity for the token stream.
func scoreSentiment(tokens []string) model.Sentiment {
	lower := make([]string, len(tokens))
	for i, t := range tokens {
		lower[i] = strings.ReplaceAll(strings.ToLower(t), "’", "'")
	}

	var sum, posSum, negSum float64
	var neutral int
	for i, token := range lower {
		valence, ok := valences[token]
		if !ok {
			neutral++
			continue
		}

		for back := 1; back <= lookback && i-back >= 0; back++ {
			prev := lower[i-back]
			if dir, isBooster := boosters[prev]; isBooster {
				scale := boosterIncrement * dir * (1 - 0.05*float64(back-1))
				if valence < 0 {
					scale = -scale
				}
				valence += scale
			}
		}
		for back := 1; back <= lookback && i-back >= 0; back++ {
			if _, negated := negations[lower[i-back]]; negated {
				valence *= negationScalar
				break
			}
		}

		sum += valence
		switch {
		case valence > 0:
			posSum += valence + 1
		case valence < 0:
			negSum += valence - 1
		default:
			neutral++
		}
	}

	result := model.Sentiment{Label: sentimentNeutral}
	total := posSum + math.Abs(negSum) + float64(neutral)
	if total == 0 {
		return result
	}

	result.Compound = round3(sum / math.Sqrt(sum*sum+sentimentAlpha))
	result.Positive = round3(posSum / total)
	result.Negative = round3(math.Abs(negSum) / total)
	result.Neutral = round3(float64(neutral) / total)

	switch {
	case result.Compound >= labelThreshold:
		result.Label = sentimentPositive
	case result.Compound <= -labelThreshold:
		result.Label = sentimentNegative
	}
	return result
}
