package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Default loop parameters.
const (
	DefaultDuration    = 60 * time.Second
	DefaultSampleEvery = 1000
)

// Updater applies one targeted field update.
type Updater interface {
	Apply(ctx context.Context) error
}

// UpdaterFunc adapts a plain function to Updater.
type UpdaterFunc func(ctx context.Context) error

// Apply calls f(ctx).
func (f UpdaterFunc) Apply(ctx context.Context) error {
	return f(ctx)
}

// Sampler measures the current size of both benchmark tables.
type Sampler interface {
	Sizes(ctx context.Context) (TableSizes, error)
}

// RunConfig holds parameters for a single timed loop.
type RunConfig struct {
	Description string
	Duration    time.Duration
	SampleEvery int
}

// Runner drives timed update loops against a Sampler.
type Runner struct {
	Sampler Sampler

	// Logger receives progress records. Defaults to slog.Default.
	Logger *slog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewRunner creates a Runner that samples sizes through s.
func NewRunner(s Sampler, logger *slog.Logger) *Runner {
	return &Runner{
		Sampler: s,
		Logger:  logger,
		Now:     time.Now,
	}
}

// Run applies u repeatedly until cfg.Duration has elapsed, sampling
// table sizes before the first update, after every cfg.SampleEvery
// updates, and once more after the loop exits. The elapsed time is only
// checked between updates, so a slow update may overshoot the duration.
//
// Any error from u or the sampler aborts the loop and no partial result
// is returned.
func (r *Runner) Run(ctx context.Context, u Updater, cfg RunConfig) (*RunResult, error) {
	if cfg.SampleEvery <= 0 {
		return nil, fmt.Errorf("sample interval must be positive, got %d", cfg.SampleEvery)
	}

	now := r.Now
	if now == nil {
		now = time.Now
	}

	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("test", cfg.Description))
	logger.InfoContext(ctx, "starting test",
		slog.Duration("duration", cfg.Duration),
		slog.Int("sample_every", cfg.SampleEvery),
	)

	result := &RunResult{Description: cfg.Description}
	start := now()

	if err := r.sample(ctx, logger, result, 0, "initial sizes"); err != nil {
		return nil, err
	}

	count := 0
	for now().Sub(start) < cfg.Duration {
		if err := u.Apply(ctx); err != nil {
			return nil, fmt.Errorf("update %d: %w", count+1, err)
		}

		count++

		if count%cfg.SampleEvery == 0 {
			if err := r.sample(ctx, logger, result, count, "sizes"); err != nil {
				return nil, err
			}
		}
	}

	// Always recorded, even when count was just sampled above.
	if err := r.sample(ctx, logger, result, count, "final sizes"); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "test finished",
		slog.Int("updates", count),
		slog.Duration("elapsed", now().Sub(start)),
	)

	return result, nil
}

func (r *Runner) sample(
	ctx context.Context,
	logger *slog.Logger,
	result *RunResult,
	count int,
	msg string,
) error {
	sizes, err := r.Sampler.Sizes(ctx)
	if err != nil {
		return fmt.Errorf("sample sizes after %d updates: %w", count, err)
	}

	logger.InfoContext(ctx, msg,
		slog.Int("updates", count),
		slog.Int64("large_total", sizes.Large.TotalSize),
		slog.Int64("large_toast", sizes.Large.ToastSize),
		slog.Int64("small_total", sizes.Small.TotalSize),
		slog.Int64("small_toast", sizes.Small.ToastSize),
	)

	result.Sizes = append(result.Sizes, Sample{
		UpdateCount: count,
		TableSizes:  sizes,
	})

	return nil
}
