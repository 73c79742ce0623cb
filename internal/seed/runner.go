package seed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/huikao/internal/domain/model"
	"github.com/okian/huikao/internal/domain/stats"
	"github.com/okian/huikao/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Defaults applied to zero Config fields.
const (
	defaultWorkers = 8
	defaultTimeout = 30 * time.Second
	defaultPoll    = 2 * time.Second
)

// ErrNotSettled is returned when the submitted entries never all appear in
// the statistics within Config.Settle.
var ErrNotSettled = errors.New("entries did not settle")

// Run generates, submits and verifies cfg.NumEntries entries.
func Run(ctx context.Context, cfg Config) (Report, error) {
	log := logger.Get().Named("seed")
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Poll <= 0 {
		cfg.Poll = defaultPoll
	}
	start := time.Now()
	if cfg.Seed == 0 {
		cfg.Seed = uint64(start.UnixNano())
	}
	report := Report{StartTime: start}

	log.Info(ctx, "starting score board seeding",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("entries", cfg.NumEntries),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Duration("settle", cfg.Settle),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return report, fmt.Errorf("service health check failed: %w", err)
	}

	baseline, err := client.Stats(ctx)
	if err != nil {
		return report, fmt.Errorf("baseline statistics failed: %w", err)
	}
	report.Baseline = baseline.TotalEntries

	// Scaled ids stay clear of the millisecond ids live submissions get.
	entries := NewGenerator(cfg.Seed, start.UnixMilli()*1000, cfg.Schools).Generate(cfg.NumEntries)
	report.Generated = len(entries)
	if p, ok := stats.Popularity(entries); ok {
		report.Popular = p.School
	}

	submit(ctx, log, client, cfg, entries, &report)

	err = settle(ctx, log, client, cfg, &report)

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	log.Info(ctx, "seeding finished",
		logger.Int("generated", report.Generated),
		logger.Int("accepted", report.Accepted),
		logger.Int("duplicate", report.Duplicate),
		logger.Int("failed", report.Failed),
		logger.Int("baseline", report.Baseline),
		logger.Int("observed", report.Observed),
		logger.Bool("settled", report.Settled),
		logger.String("popularGenerated", report.Popular),
		logger.String("popularRemote", report.Remote),
		logger.Duration("duration", report.Duration),
	)
	return report, err
}

// submit posts every entry with at most cfg.Workers requests in flight.
// Individual failures are counted, not returned.
func submit(ctx context.Context, log logger.Logger, client *Client, cfg Config, entries []model.Entry, report *Report) {
	var accepted, duplicate, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, e := range entries {
		g.Go(func() error {
			outcome, err := client.Submit(gctx, e)
			switch outcome {
			case outcomeAccepted:
				accepted.Add(1)
			case outcomeDuplicate:
				duplicate.Add(1)
			default:
				failed.Add(1)
			}
			if err != nil {
				log.Warn(gctx, "submission failed", logger.Int64("id", e.ID), logger.Error(err))
			} else if cfg.Verbose {
				log.Debug(gctx, "submitted entry", logger.Int64("id", e.ID), logger.String("outcome", outcome))
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Accepted = int(accepted.Load())
	report.Duplicate = int(duplicate.Load())
	report.Failed = int(failed.Load())
}

// settle polls the statistics until the accepted entries are visible or
// cfg.Settle runs out. A zero Settle takes a single reading.
func settle(ctx context.Context, log logger.Logger, client *Client, cfg Config, report *Report) error {
	want := report.Baseline + report.Accepted
	deadline := time.Now().Add(cfg.Settle)
	for {
		view, err := client.Stats(ctx)
		if err != nil {
			return fmt.Errorf("statistics failed: %w", err)
		}
		report.Observed = view.TotalEntries
		if view.Popular != nil {
			report.Remote = view.Popular.School
		}
		if report.Observed >= want {
			report.Settled = true
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: observed %d of %d", ErrNotSettled, report.Observed, want)
		}
		log.Debug(ctx, "waiting for entries to settle", logger.Int("observed", report.Observed), logger.Int("want", want))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Poll):
		}
	}
}
