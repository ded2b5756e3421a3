package model

// ScoreWeights are the points each passing check contributes to a page score.
// The defaults add up to 100; custom weights are clamped by the analyzer so
// the final score always stays within 0..100.
type ScoreWeights struct {
	Title           int `yaml:"title" json:"title"`
	MetaDescription int `yaml:"metaDescription" json:"meta_description"`
	H1              int `yaml:"h1" json:"h1"`
	ImageAlt        int `yaml:"imageAlt" json:"image_alt"`
	WordCount       int `yaml:"wordCount" json:"word_count"`
	Canonical       int `yaml:"canonical" json:"canonical"`
	HTTPS           int `yaml:"https" json:"https"`
}

// DefaultScoreWeights returns the standard weighting.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Title:           20,
		MetaDescription: 20,
		H1:              15,
		ImageAlt:        15,
		WordCount:       15,
		Canonical:       10,
		HTTPS:           5,
	}
}

// Total returns the sum of all weights.
func (w ScoreWeights) Total() int {
	return w.Title + w.MetaDescription + w.H1 + w.ImageAlt + w.WordCount + w.Canonical + w.HTTPS
}

// IsZero reports whether no weight is set.
func (w ScoreWeights) IsZero() bool {
	return w == ScoreWeights{}
}
