// Package scheduler runs the periodic maintenance sweep and KPI refresh.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-compliance/internal/models"
	"github.com/ukydev/fleet-compliance/internal/reporting"
)

// Sweeper is the part of the orchestrator the scheduler drives.
type Sweeper interface {
	SweepMaintenance(ctx context.Context) ([]models.WorkOrder, error)
	ListWorkOrders(ctx context.Context, filter models.WorkOrderFilter) ([]models.WorkOrder, error)
}

// Publisher receives each refreshed KPI snapshot.
type Publisher interface {
	Publish(snap models.ReportingSnapshot)
}

// Options tune a Scheduler. Zero values pick the defaults.
type Options struct {
	// WindowDays limits the KPI refresh to orders created in the last N days. 0 means all.
	WindowDays int
	// RunTimeout bounds a single run.
	RunTimeout time.Duration
	Now        func() time.Time
}

// Scheduler runs a sweep on a cron schedule. Runs never overlap; a tick that
// fires while the previous run is still going is skipped.
type Scheduler struct {
	svc       Sweeper
	publisher Publisher
	log       logrus.FieldLogger
	opts      Options

	cron    *cron.Cron
	running int32

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a stopped scheduler.
func New(svc Sweeper, publisher Publisher, logger logrus.FieldLogger, opts Options) *Scheduler {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Scheduler{
		svc:       svc,
		publisher: publisher,
		log:       logger.WithField("component", "scheduler"),
		opts:      opts,
	}
}

// Start registers the sweep under spec and starts the cron runner. One run is
// kicked off immediately so the gauges are populated before the first tick.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("scheduler is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if err := c.AddFunc(spec, func() { s.RunOnce(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.log.WithField("schedule", spec).Info("Maintenance scheduler started")

	go s.RunOnce(runCtx)
	return nil
}

// Stop halts the cron runner and cancels any run in flight.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cancel()
	s.cron = nil
	s.log.Info("Maintenance scheduler stopped")
}

// RunOnce sweeps every template and republishes the KPI snapshot. It reports
// false when skipped because another run was in progress.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		s.log.Warn("Previous sweep still running, skipping tick")
		return false
	}
	defer atomic.StoreInt32(&s.running, 0)

	ctx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	start := time.Now()
	created, err := s.svc.SweepMaintenance(ctx)
	if err != nil {
		s.log.WithError(err).Error("Maintenance sweep finished with errors")
	}

	if s.publisher != nil {
		if err := s.refresh(ctx); err != nil {
			s.log.WithError(err).Error("Failed to refresh KPI snapshot")
		}
	}

	s.log.WithFields(logrus.Fields{
		"created":  len(created),
		"duration": time.Since(start).String(),
	}).Info("Maintenance sweep completed")
	return true
}

func (s *Scheduler) refresh(ctx context.Context) error {
	orders, err := s.svc.ListWorkOrders(ctx, models.WorkOrderFilter{})
	if err != nil {
		return err
	}
	asOf := s.opts.Now()
	if s.opts.WindowDays > 0 {
		orders = reporting.FilterCreatedWithin(orders, reporting.Window{From: asOf.AddDate(0, 0, -s.opts.WindowDays)})
	}
	s.publisher.Publish(reporting.Summarize(orders, asOf))
	return nil
}
