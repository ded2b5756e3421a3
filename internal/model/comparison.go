package model

// CompetitorComparison is the diff between a target page and competitor pages.
// It is built by the comparator and consumed only by report writers.
type CompetitorComparison struct {
	Target      PageResult   `json:"target"`
	Competitors []PageResult `json:"competitors"`

	// Keyword set differences, each sorted alphabetically.
	SharedKeywords         []string `json:"shared_keywords"`
	TargetOnlyKeywords     []string `json:"target_only_keywords"`
	CompetitorOnlyKeywords []string `json:"competitor_only_keywords"`

	// Deltas holds one entry per successfully fetched competitor.
	Deltas []CompetitorDelta `json:"deltas"`

	// Metrics compares the target with the competitor average per metric.
	Metrics []MetricComparison `json:"metrics"`

	// ContentGaps are competitor keywords missing from the target, most
	// frequent first.
	ContentGaps   []string `json:"content_gaps"`
	TechnicalGaps []string `json:"technical_gaps"`
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
}

// CompetitorDelta is target minus competitor for the headline numbers.
// A positive WordCountDelta means the target has more words; a positive
// ResponseTimeDeltaMS means the target is slower.
type CompetitorDelta struct {
	URL                 string `json:"url"`
	WordCountDelta      int    `json:"word_count_delta"`
	ResponseTimeDeltaMS int64  `json:"response_time_delta_ms"`
	ScoreDelta          int    `json:"score_delta"`
}

// Performance is the outcome of comparing the target with competitors on
// one metric.
type Performance string

// Performance outcomes.
const (
	PerformanceBetter Performance = "better"
	PerformanceWorse  Performance = "worse"
	PerformanceEqual  Performance = "equal"
)

// MetricComparison compares one numeric metric.
type MetricComparison struct {
	Name          string      `json:"name"`
	Target        float64     `json:"target"`
	CompetitorAvg float64     `json:"competitor_avg"`
	CompetitorMin float64     `json:"competitor_min"`
	CompetitorMax float64     `json:"competitor_max"`
	Performance   Performance `json:"performance"`
}
