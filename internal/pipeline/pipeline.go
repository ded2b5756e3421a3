package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/seoscan/internal/metrics"
	"github.com/nao1215/seoscan/internal/model"
)

// Step is one stage of an audit.
type Step interface {
	// Do executes the step. Non-fatal problems are logged or recorded on
	// the audit and nil is returned.
	Do(ctx context.Context, audit *model.Audit) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// PartialSafe is implemented by steps that still run after the context was
// cancelled, so partial results are reported. Such steps must not block.
type PartialSafe interface {
	RunsOnPartial() bool
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	recorder        *metrics.Recorder
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithRecorder records the audit duration when the pipeline finishes.
func WithRecorder(r *metrics.Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithContinueOnError keeps executing steps after one fails. The first
// error is still recorded on the audit.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps against audit.
//
// Cancellation is checked before each step. Once the context is done the
// audit is marked TimedOut, remaining PartialSafe steps still run, and
// ctx.Err() is returned. A step error stops the pipeline unless
// WithContinueOnError was set.
func (p *Pipeline) Execute(ctx context.Context, audit *model.Audit) error {
	defer func() {
		audit.CompletedAt = time.Now().UTC()
		p.recorder.ObserveAudit(audit.Source, audit.Duration())
	}()

	var firstErr error
	for _, step := range p.steps {
		if ctx.Err() != nil {
			if !audit.TimedOut {
				p.logger.Warn("pipeline cancelled",
					"step", step.Name(),
					"target", audit.Target,
					"reason", ctx.Err(),
				)
				audit.TimedOut = true
			}
			if ps, ok := step.(PartialSafe); !ok || !ps.RunsOnPartial() {
				continue
			}
		}

		p.logger.Info("executing step", "step", step.Name(), "target", audit.Target)

		if err := step.Do(ctx, audit); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"target", audit.Target,
				"error", err,
			)
			if audit.Error == nil {
				audit.Error = err
				audit.ErrorMessage = err.Error()
			}
			if firstErr == nil {
				firstErr = err
			}
			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed", "step", step.Name(), "target", audit.Target)
		}

		audit.PerformedSteps = append(audit.PerformedSteps, step.Name())
	}

	if audit.TimedOut {
		return ctx.Err()
	}
	return firstErr
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
