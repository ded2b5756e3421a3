package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/seoscan/internal/model"
)

// DefaultBatchConcurrency is the number of sites audited in parallel.
const DefaultBatchConcurrency = 3

// BatchProcessor audits several sites concurrently.
type BatchProcessor struct {
	// pipelineFactory builds a fresh pipeline for each target, so per-site
	// settings and pipeline state never leak between audits.
	pipelineFactory func(target string) *Pipeline

	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent audits.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor.
func NewBatchProcessor(pipelineFactory func(target string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch audits targets and returns one Audit per target in input
// order. Failed audits carry their error; they never stop the others.
// Targets not started before ctx is done get an audit marked TimedOut.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.Audit, error) {
	return bp.run(ctx, targets, nil)
}

// ProcessBatchWithCallback is ProcessBatch with callback invoked from the
// worker goroutine as each audit finishes. callback must be safe for
// concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(audit *model.Audit, index int),
) error {
	_, err := bp.run(ctx, targets, callback)
	return err
}

func (bp *BatchProcessor) run(ctx context.Context, targets []string, callback func(*model.Audit, int)) ([]*model.Audit, error) {
	bp.logger.Info("starting batch",
		"targets", len(targets),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	// Each goroutine writes only its own slot.
	audits := make([]*model.Audit, len(targets))

	var g errgroup.Group
	g.SetLimit(bp.concurrency)
	for i, target := range targets {
		g.Go(func() error {
			audit := model.NewAudit(target)
			audits[i] = audit

			if err := ctx.Err(); err != nil {
				audit.TimedOut = true
				audit.Error = err
				audit.ErrorMessage = err.Error()
				audit.CompletedAt = audit.StartedAt
				return nil
			}

			bp.logger.Info("auditing site", "target", target, "index", i+1, "total", len(targets))
			if err := bp.pipelineFactory(target).Execute(ctx, audit); err != nil {
				bp.logger.Warn("audit failed", "target", target, "error", err)
			} else {
				bp.logger.Info("audit completed", "target", target, "duration", audit.Duration())
			}
			if callback != nil {
				callback(audit, i)
			}
			return nil
		})
	}
	_ = g.Wait()

	bp.logger.Info("batch complete",
		"targets", len(targets),
		"elapsed", time.Since(start),
	)
	return audits, ctx.Err()
}
