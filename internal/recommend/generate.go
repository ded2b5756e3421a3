package recommend

import (
	"context"
	"log/slog"
)

// Sources recorded on a report.
const (
	SourceLLM   = "llm"
	SourceRules = "rules"
)

// Result is the outcome of Generate.
type Result struct {
	Text   string
	Source string

	// Err is the primary recommender's failure when the fallback was used.
	Err error
}

// Generate asks primary for recommendations and falls back to RuleBased
// when primary is nil or fails. It never fails itself.
func Generate(ctx context.Context, primary Recommender, s Summary, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.Default()
	}

	var primaryErr error
	if primary != nil {
		text, err := primary.Recommend(ctx, s)
		if err == nil {
			return Result{Text: text, Source: SourceLLM}
		}
		primaryErr = err
		logger.Warn("language model recommendations failed, using rule-based fallback", "error", err)
	}

	text, _ := RuleBased{}.Recommend(ctx, s)
	return Result{Text: text, Source: SourceRules, Err: primaryErr}
}
