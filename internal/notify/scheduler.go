package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/bomsync/internal/bom"
	"github.com/zulandar/bomsync/internal/rack"
	"github.com/zulandar/bomsync/internal/reconcile"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the duration
// until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// Refresher abstracts the reconcile engine's Refresh call for testability.
type Refresher interface {
	Refresh(ctx context.Context, itemNumber string, opts reconcile.RefreshOpts) (*reconcile.Result, error)
}

// Scheduler refreshes every non-placeholder rack on a cron cadence. With
// auto-apply enabled fetched deltas merge without a prompt; otherwise they
// are declined and the racks flagged arena_modified for manual review.
type Scheduler struct {
	db        *gorm.DB
	engine    Refresher
	expr      string
	autoApply bool
}

// SchedulerOpts holds parameters for creating a Scheduler.
type SchedulerOpts struct {
	DB        *gorm.DB
	Engine    Refresher
	Cron      string // 5-field cron expression
	AutoApply bool   // apply fetched deltas without a prompt
}

// NewScheduler creates a Scheduler. The cron expression is validated here so
// a typo fails at startup, not at the first fire time.
func NewScheduler(opts SchedulerOpts) (*Scheduler, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("notify: scheduler: db is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("notify: scheduler: engine is required")
	}
	if _, err := cronParser.Parse(opts.Cron); err != nil {
		return nil, fmt.Errorf("notify: scheduler: parse cron %q: %w", opts.Cron, err)
	}
	return &Scheduler{
		db:        opts.DB,
		engine:    opts.Engine,
		expr:      opts.Cron,
		autoApply: opts.AutoApply,
	}, nil
}

// Sweep runs one refresh pass over every non-placeholder rack. Per-rack
// failures are logged and already recorded in the ledger by the engine; they
// never stop the sweep. Returns the number of racks refreshed.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	racks, err := rack.List(s.db, rack.ListFilters{})
	if err != nil {
		return 0, fmt.Errorf("notify: scheduler: list racks: %w", err)
	}

	opts := reconcile.RefreshOpts{}
	if s.autoApply {
		opts.Approve = func(context.Context, string, bom.Delta) bool { return true }
	}

	refreshed := 0
	for _, r := range racks {
		if r.Status == rack.StatusPlaceholder {
			continue
		}
		select {
		case <-ctx.Done():
			return refreshed, ctx.Err()
		default:
		}
		res, err := s.engine.Refresh(ctx, r.ItemNumber, opts)
		if err != nil {
			log.Printf("notify: scheduler: refresh %s: %v", r.ItemNumber, err)
			continue
		}
		refreshed++
		if !res.Success {
			log.Printf("notify: scheduler: refresh %s: %s", r.ItemNumber, res.Message)
		}
	}
	return refreshed, nil
}

// Run starts the scheduler loop. Each cycle sleeps until the next cron fire
// time, then sweeps. It returns when the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		d := nextCronDuration(s.expr)
		if d <= 0 {
			d = time.Minute
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
			n, err := s.Sweep(ctx)
			if err != nil {
				log.Printf("notify: scheduler: sweep: %v", err)
				continue
			}
			log.Printf("notify: scheduler: refreshed %d rack(s)", n)
		}
	}
}
