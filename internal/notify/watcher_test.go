package notify

import (
	"context"
	"testing"
	"time"

	"github.com/zulandar/bomsync/internal/ledger"
	"github.com/zulandar/bomsync/internal/models"
	"github.com/zulandar/bomsync/internal/rack"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// One connection keeps concurrent goroutines on the same in-memory
	// database; every new :memory: connection is a fresh empty one.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Rack{}, &models.HistoryEvent{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func appendEvent(t *testing.T, db *gorm.DB, itemNumber, eventType, summary string) *models.HistoryEvent {
	t.Helper()
	ev, err := ledger.Append(db, ledger.AppendOpts{
		RackItemNumber: itemNumber,
		EventType:      eventType,
		StatusBefore:   rack.StatusSynced,
		StatusAfter:    rack.StatusSynced,
		Summary:        summary,
	})
	if err != nil {
		t.Fatalf("append event: %v", err)
	}
	return ev
}

// --- NewWatcher tests ---

func TestNewWatcher_NilDB(t *testing.T) {
	_, err := NewWatcher(WatcherOpts{})
	if err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestNewWatcher_Defaults(t *testing.T) {
	w, err := NewWatcher(WatcherOpts{DB: openTestDB(t)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.pollInterval != DefaultPollInterval {
		t.Errorf("poll interval = %v, want %v", w.pollInterval, DefaultPollInterval)
	}
}

// --- Poll tests ---

func TestPoll_SeedsWithoutEmitting(t *testing.T) {
	db := openTestDB(t)
	appendEvent(t, db, "RACK-0001", rack.EventPush, "pushed 4 line(s)")
	last := appendEvent(t, db, "RACK-0002", rack.EventRefreshNoChange, "no changes")

	w, _ := NewWatcher(WatcherOpts{DB: db})

	events, err := w.Poll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected 0 events on first poll, got %d", len(events))
	}
	if !w.Seeded() {
		t.Error("expected watcher to be seeded after first poll")
	}
	if w.LastSeenID() != last.ID {
		t.Errorf("cursor = %d, want %d", w.LastSeenID(), last.ID)
	}
}

func TestPoll_SeedsAtZeroOnEmptyLedger(t *testing.T) {
	w, _ := NewWatcher(WatcherOpts{DB: openTestDB(t)})
	events, err := w.Poll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected 0 events, got %d", len(events))
	}
	if w.LastSeenID() != 0 {
		t.Errorf("cursor = %d, want 0", w.LastSeenID())
	}
}

func TestPoll_TailsNewEvents(t *testing.T) {
	db := openTestDB(t)
	appendEvent(t, db, "RACK-0001", rack.EventPush, "old news")

	w, _ := NewWatcher(WatcherOpts{DB: db})
	if _, err := w.Poll(context.Background()); err != nil {
		t.Fatalf("seed poll: %v", err)
	}

	appendEvent(t, db, "RACK-0002", rack.EventPull, "pulled 3 line(s)")
	appendEvent(t, db, "RACK-0003", rack.EventError, "refresh failed")

	events, err := w.Poll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].RackItemNumber != "RACK-0002" || events[1].RackItemNumber != "RACK-0003" {
		t.Errorf("events out of order: %s, %s", events[0].RackItemNumber, events[1].RackItemNumber)
	}
	if w.LastSeenID() != events[1].ID {
		t.Errorf("cursor = %d, want %d", w.LastSeenID(), events[1].ID)
	}

	// Nothing new: next poll is empty.
	events, err = w.Poll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected 0 events after catch-up, got %d", len(events))
	}
}

// --- Run tests ---

func TestRun_EmitsAppendedEvents(t *testing.T) {
	db := openTestDB(t)
	appendEvent(t, db, "RACK-0001", rack.EventPush, "before startup")

	w, _ := NewWatcher(WatcherOpts{DB: db, PollInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := w.Run(ctx)
	if !w.Seeded() {
		t.Fatal("expected Run to establish the baseline before returning")
	}

	appendEvent(t, db, "RACK-0002", rack.EventRefreshAccepted, "applied 2 remote changes")

	select {
	case ev := <-ch:
		if ev.RackItemNumber != "RACK-0002" {
			t.Errorf("event rack = %q, want RACK-0002", ev.RackItemNumber)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
