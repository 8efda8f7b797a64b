package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/zulandar/bomsync/internal/config"
	"github.com/zulandar/bomsync/internal/models"
	"gorm.io/gorm"
)

// Daemon is the watch process. It tails the history ledger, fans formatted
// events out to the configured adapters, and runs the scheduled refresh
// sweep when a cron expression is configured.
type Daemon struct {
	db       *gorm.DB
	cfg      *config.Config
	adapters []Adapter
	engine   Refresher
	out      io.Writer
}

// DaemonOpts holds parameters for creating a Daemon.
type DaemonOpts struct {
	DB       *gorm.DB
	Config   *config.Config
	Adapters []Adapter
	Engine   Refresher // optional; enables scheduled refreshes
	Out      io.Writer // defaults to os.Stdout
}

// NewDaemon creates a Daemon.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("notify: db is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("notify: config is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	d := &Daemon{
		db:       opts.DB,
		cfg:      opts.Config,
		adapters: opts.Adapters,
		engine:   opts.Engine,
		out:      out,
	}
	if len(d.adapters) == 0 && !d.scheduleEnabled() {
		return nil, fmt.Errorf("notify: nothing to run: no adapters and no refresh schedule configured")
	}
	return d, nil
}

// scheduleEnabled reports whether the scheduled refresh sweep can run.
func (d *Daemon) scheduleEnabled() bool {
	return d.cfg.Schedule.RefreshCron != "" && d.engine != nil
}

// Run starts the daemon and blocks until the context is cancelled. On
// shutdown every adapter is closed.
func (d *Daemon) Run(ctx context.Context) error {
	for _, a := range d.adapters {
		if err := a.Connect(ctx); err != nil {
			d.closeAdapters()
			return fmt.Errorf("notify: connect: %w", err)
		}
	}

	poll := time.Duration(d.cfg.Notify.PollSeconds) * time.Second
	watcher, err := NewWatcher(WatcherOpts{DB: d.db, PollInterval: poll})
	if err != nil {
		d.closeAdapters()
		return fmt.Errorf("notify: build watcher: %w", err)
	}
	events := watcher.Run(ctx)

	if d.scheduleEnabled() {
		sched, err := NewScheduler(SchedulerOpts{
			DB:        d.db,
			Engine:    d.engine,
			Cron:      d.cfg.Schedule.RefreshCron,
			AutoApply: d.cfg.Schedule.AutoApply,
		})
		if err != nil {
			d.closeAdapters()
			return fmt.Errorf("notify: build scheduler: %w", err)
		}
		go sched.Run(ctx)
		fmt.Fprintf(d.out, "Scheduled refresh %q (auto-apply: %v)\n",
			d.cfg.Schedule.RefreshCron, d.cfg.Schedule.AutoApply)
	}

	fmt.Fprintf(d.out, "Watch online (%d adapter(s))\n", len(d.adapters))
	d.send(ctx, Message{Text: "bomsync watch online"})

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "Watch shutting down...\n")
			d.send(context.Background(), Message{Text: "bomsync watch stopped"})
			d.closeAdapters()
			fmt.Fprintf(d.out, "Watch stopped\n")
			return nil
		case ev, ok := <-events:
			if !ok {
				d.closeAdapters()
				return nil
			}
			d.deliver(ctx, ev)
		}
	}
}

// deliver formats one ledger event and fans it out to every adapter.
func (d *Daemon) deliver(ctx context.Context, ev models.HistoryEvent) {
	d.send(ctx, Message{Events: []FormattedEvent{FormatEvent(ev)}})
}

// send posts a message to every adapter. Failures are logged, never fatal.
func (d *Daemon) send(ctx context.Context, msg Message) {
	for _, a := range d.adapters {
		if err := a.Send(ctx, msg); err != nil {
			log.Printf("notify: send: %v", err)
		}
	}
}

func (d *Daemon) closeAdapters() {
	for _, a := range d.adapters {
		if err := a.Close(); err != nil {
			log.Printf("notify: close adapter: %v", err)
		}
	}
}
