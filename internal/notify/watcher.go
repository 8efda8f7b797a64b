package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zulandar/bomsync/internal/ledger"
	"github.com/zulandar/bomsync/internal/models"
	"gorm.io/gorm"
)

// DefaultPollInterval is the ledger poll cadence when none is configured.
const DefaultPollInterval = 15 * time.Second

// Watcher tails the history ledger and emits events appended after the
// baseline was established. The cursor is the last-seen event ID, held in
// memory only: a restart starts over from the current ledger head.
type Watcher struct {
	db           *gorm.DB
	pollInterval time.Duration

	mu     sync.Mutex
	lastID uint
	seeded bool // true once the baseline cursor is established
}

// WatcherOpts holds parameters for creating a Watcher.
type WatcherOpts struct {
	DB           *gorm.DB
	PollInterval time.Duration // defaults to DefaultPollInterval
}

// NewWatcher creates a Watcher.
func NewWatcher(opts WatcherOpts) (*Watcher, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("notify: watcher: db is required")
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Watcher{db: opts.DB, pollInterval: poll}, nil
}

// Poll runs one tail cycle. The first successful call seeds the cursor at
// the current ledger head without emitting anything, so startup never
// replays history. Subsequent calls return events appended since the
// previous call, oldest first.
func (w *Watcher) Poll(ctx context.Context) ([]models.HistoryEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.seeded {
		id, err := ledger.LastID(w.db)
		if err != nil {
			return nil, fmt.Errorf("notify: watcher: seed cursor: %w", err)
		}
		w.lastID = id
		w.seeded = true
		return nil, nil
	}

	events, err := ledger.After(w.db, w.lastID)
	if err != nil {
		return nil, fmt.Errorf("notify: watcher: tail ledger: %w", err)
	}
	if len(events) > 0 {
		w.lastID = events[len(events)-1].ID
	}
	return events, nil
}

// Run starts the watcher loop. The baseline cursor is established before Run
// returns, so every event appended afterwards is emitted. The returned
// channel is closed when the context is cancelled.
func (w *Watcher) Run(ctx context.Context) <-chan models.HistoryEvent {
	if !w.Seeded() {
		if _, err := w.Poll(ctx); err != nil {
			log.Printf("notify: watcher: %v", err)
		}
	}

	ch := make(chan models.HistoryEvent, 64)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				events, err := w.Poll(ctx)
				if err != nil {
					log.Printf("notify: watcher: %v", err)
					continue
				}
				for _, e := range events {
					select {
					case ch <- e:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return ch
}

// LastSeenID returns the current tail cursor.
func (w *Watcher) LastSeenID() uint {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastID
}

// Seeded reports whether the baseline cursor has been established.
func (w *Watcher) Seeded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seeded
}
