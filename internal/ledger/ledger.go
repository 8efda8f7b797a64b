// Package ledger provides the append-only reconciliation audit trail.
// Events are only ever inserted; there are no update or delete operations.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/bomsync/internal/models"
	"gorm.io/gorm"
)

// AppendOpts holds the fields of a new history event.
type AppendOpts struct {
	RackItemNumber string
	EventType      string
	StatusBefore   string
	StatusAfter    string
	Summary        string
	Details        map[string]interface{}
}

// Append inserts one history event. Callers pairing it with a status
// transition run both inside the same transaction.
func Append(db *gorm.DB, opts AppendOpts) (*models.HistoryEvent, error) {
	if opts.RackItemNumber == "" {
		return nil, fmt.Errorf("ledger: rack item number is required")
	}
	if opts.EventType == "" {
		return nil, fmt.Errorf("ledger: event type is required")
	}

	details := ""
	if len(opts.Details) > 0 {
		b, err := json.Marshal(opts.Details)
		if err != nil {
			return nil, fmt.Errorf("ledger: marshal details: %w", err)
		}
		details = string(b)
	}

	ev := models.HistoryEvent{
		RackItemNumber: opts.RackItemNumber,
		EventType:      opts.EventType,
		StatusBefore:   opts.StatusBefore,
		StatusAfter:    opts.StatusAfter,
		Summary:        opts.Summary,
		Details:        details,
		CreatedAt:      time.Now(),
	}
	if err := db.Create(&ev).Error; err != nil {
		return nil, fmt.Errorf("ledger: append: %w", err)
	}
	return &ev, nil
}

// Filter holds optional criteria for listing history events.
type Filter struct {
	Rack      string
	EventType string
	Limit     int
}

// List returns history events newest first, optionally filtered by rack and
// event type. A zero limit returns everything.
func List(db *gorm.DB, f Filter) ([]models.HistoryEvent, error) {
	q := db.Model(&models.HistoryEvent{})
	if f.Rack != "" {
		q = q.Where("rack_item_number = ?", f.Rack)
	}
	if f.EventType != "" {
		q = q.Where("event_type = ?", f.EventType)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var events []models.HistoryEvent
	if err := q.Order("id DESC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	return events, nil
}

// After returns events with ID greater than lastID in insertion order, for
// tailing the trail.
func After(db *gorm.DB, lastID uint) ([]models.HistoryEvent, error) {
	var events []models.HistoryEvent
	if err := db.Where("id > ?", lastID).Order("id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("ledger: after %d: %w", lastID, err)
	}
	return events, nil
}

// LastID returns the highest event ID, or 0 when the trail is empty.
func LastID(db *gorm.DB) (uint, error) {
	var ev models.HistoryEvent
	err := db.Order("id DESC").First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: last id: %w", err)
	}
	return ev.ID, nil
}
