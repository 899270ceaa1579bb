package billing

import (
	"context"
	"log/slog"
	"time"
)

// SweepReport aggregates one maintenance pass for observability.
type SweepReport struct {
	Processed int
	Updated   int
	Errors    int
}

// Sweeper periodically reconciles cached entitlement against derived state
// across all subscribers, self-healing drift left by missed or out-of-order
// webhooks. Failures are isolated per record; a sweep never halts because
// one subscriber could not be repaired.
type Sweeper struct {
	store    SubscriberStore
	manager  *Manager
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a maintenance sweeper. A non-positive interval defaults
// to hourly.
func NewSweeper(store SubscriberStore, manager *Manager, interval time.Duration, logger *slog.Logger) *Sweeper {
	if store == nil {
		panic("billing: SubscriberStore is required")
	}
	if manager == nil {
		panic("billing: Manager is required")
	}
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		manager:  manager,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance sweeper shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *Sweeper) sweepAndLog(ctx context.Context) {
	report := s.SweepOnce(ctx)
	s.logger.InfoContext(ctx, "maintenance sweep finished",
		slog.Int("processed", report.Processed),
		slog.Int("updated", report.Updated),
		slog.Int("errors", report.Errors))
}

// SweepOnce runs one full maintenance pass: first the lapsed-pro pass that
// revokes overdue entitlement, then the drift pass over every subscriber
// with a billing relationship.
func (s *Sweeper) SweepOnce(ctx context.Context) SweepReport {
	var report SweepReport

	now := s.manager.now()
	lapsed, err := s.store.ListLapsedPro(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "lapsed-pro listing failed", slog.String("error", err.Error()))
		report.Errors++
	} else {
		s.syncBatch(ctx, lapsed, &report)
	}

	billed, err := s.store.ListBilled(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "billed-subscriber listing failed", slog.String("error", err.Error()))
		report.Errors++
		return report
	}
	s.syncBatch(ctx, billed, &report)

	return report
}

func (s *Sweeper) syncBatch(ctx context.Context, subscribers []*Subscriber, report *SweepReport) {
	for _, subscriber := range subscribers {
		report.Processed++
		changed, err := s.manager.Sync(ctx, subscriber)
		if err != nil {
			report.Errors++
			s.logger.ErrorContext(ctx, "subscriber sync failed",
				slog.String("subscriber_id", subscriber.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		if changed {
			report.Updated++
		}
	}
}
