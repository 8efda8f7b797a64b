// Package rack tracks the synchronization lifecycle of rack worksheets.
package rack

import (
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/bomsync/internal/models"
	"gorm.io/gorm"
)

// Rack statuses.
const (
	StatusPlaceholder   = "placeholder"
	StatusSynced        = "synced"
	StatusLocalModified = "local_modified"
	StatusArenaModified = "arena_modified"
	StatusError         = "error"
)

// Reconciliation events. These double as the history event vocabulary.
const (
	EventPull            = "pull"
	EventRefreshNoChange = "refresh-no-change"
	EventRefreshAccepted = "refresh-accepted"
	EventRefreshDeclined = "refresh-declined"
	EventPush            = "push"
	EventLocalEdit       = "local-edit"
	EventError           = "error"
)

// ErrNotFound reports an item number with no tracking record. Callers check
// it with errors.Is; the wrapped message carries the item number.
var ErrNotFound = errors.New("rack: not found")

// AllStatuses lists every valid rack status.
var AllStatuses = []string{StatusPlaceholder, StatusSynced, StatusLocalModified, StatusArenaModified, StatusError}

// AllEvents lists every reconciliation event type.
var AllEvents = []string{EventPull, EventRefreshNoChange, EventRefreshAccepted, EventRefreshDeclined, EventPush, EventLocalEdit, EventError}

// Transitions maps status → event → next status. A (status, event) pair not
// listed here is a no-op, never an error: detectors may fire redundantly.
// The special case "any status + error event" is handled in Next.
var Transitions = map[string]map[string]string{
	StatusPlaceholder: {
		EventPull: StatusSynced,
	},
	StatusSynced: {
		EventRefreshNoChange: StatusSynced,
		EventRefreshAccepted: StatusSynced,
		EventRefreshDeclined: StatusArenaModified,
		EventPush:            StatusSynced,
		EventLocalEdit:       StatusLocalModified,
	},
	StatusLocalModified: {
		EventRefreshAccepted: StatusSynced,
		EventRefreshDeclined: StatusArenaModified,
		EventPush:            StatusSynced,
	},
	StatusArenaModified: {
		EventRefreshNoChange: StatusSynced,
		EventRefreshAccepted: StatusSynced,
		EventPush:            StatusSynced,
	},
	// Error is recoverable: the next successful operation restores the
	// truthful status. The remote reference survives the error episode.
	StatusError: {
		EventPull:            StatusSynced,
		EventRefreshNoChange: StatusSynced,
		EventRefreshAccepted: StatusSynced,
		EventRefreshDeclined: StatusArenaModified,
		EventPush:            StatusSynced,
	},
}

// Next returns the status after applying event to status, and whether the
// pair is listed in the transition table. Unlisted pairs return the current
// status with listed=false.
func Next(status, event string) (next string, listed bool) {
	if event == EventError {
		return StatusError, true
	}
	if to, ok := Transitions[status][event]; ok {
		return to, true
	}
	return status, false
}

// AlwaysLogged reports whether the event appends a history entry even when
// the status does not change. Refresh-no-change and push keep their audit
// cadence; error records must never be dropped.
func AlwaysLogged(event string) bool {
	return event == EventRefreshNoChange || event == EventPush || event == EventError
}

// Register creates a placeholder record for a discovered rack worksheet, or
// refreshes the stored name when the record already exists. Returns the
// record and whether it was newly created.
func Register(db *gorm.DB, itemNumber, name string) (*models.Rack, bool, error) {
	if itemNumber == "" {
		return nil, false, fmt.Errorf("rack: item number is required")
	}

	var existing models.Rack
	err := db.Where("item_number = ?", itemNumber).First(&existing).Error
	if err == nil {
		if name != "" && existing.Name != name {
			if err := db.Model(&models.Rack{}).Where("item_number = ?", itemNumber).
				Update("name", name).Error; err != nil {
				return nil, false, fmt.Errorf("rack: rename %s: %w", itemNumber, err)
			}
			existing.Name = name
		}
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("rack: check %s: %w", itemNumber, err)
	}

	r := models.Rack{
		ItemNumber: itemNumber,
		Name:       name,
		Status:     StatusPlaceholder,
	}
	if err := db.Create(&r).Error; err != nil {
		return nil, false, fmt.Errorf("rack: register %s: %w", itemNumber, err)
	}
	return &r, true, nil
}

// Get retrieves a rack record by item number.
func Get(db *gorm.DB, itemNumber string) (*models.Rack, error) {
	var r models.Rack
	if err := db.Where("item_number = ?", itemNumber).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, itemNumber)
		}
		return nil, fmt.Errorf("rack: get %s: %w", itemNumber, err)
	}
	return &r, nil
}

// ListFilters holds optional filters for listing rack records.
type ListFilters struct {
	Status string
}

// List returns rack records matching the filters, ordered by item number.
func List(db *gorm.DB, filters ListFilters) ([]models.Rack, error) {
	q := db.Model(&models.Rack{})
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}

	var racks []models.Rack
	if err := q.Order("item_number ASC").Find(&racks).Error; err != nil {
		return nil, fmt.Errorf("rack: list: %w", err)
	}
	return racks, nil
}

// Delete removes a rack record. History events are kept: the audit trail
// outlives the tracking record.
func Delete(db *gorm.DB, itemNumber string) error {
	result := db.Where("item_number = ?", itemNumber).Delete(&models.Rack{})
	if result.Error != nil {
		return fmt.Errorf("rack: delete %s: %w", itemNumber, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, itemNumber)
	}
	return nil
}

// TransitionOpts carries side effects applied together with a transition.
type TransitionOpts struct {
	RemoteID     *string // records the remote reference, e.g. after a pull
	TouchRefresh bool    // updates LastRefreshedAt
}

// TransitionResult describes the outcome of applying an event.
type TransitionResult struct {
	Rack    *models.Rack
	Before  string
	After   string
	Changed bool // status actually moved
	Listed  bool // the (status, event) pair was in the table
}

// Transition applies event to the stored rack status per the table, writing
// the row only when something changes. Callers wanting the matching history
// entry run this and the ledger append inside one transaction.
func Transition(db *gorm.DB, itemNumber, event string, opts TransitionOpts) (*TransitionResult, error) {
	r, err := Get(db, itemNumber)
	if err != nil {
		return nil, err
	}

	next, listed := Next(r.Status, event)
	res := &TransitionResult{
		Rack:    r,
		Before:  r.Status,
		After:   next,
		Changed: next != r.Status,
		Listed:  listed,
	}

	updates := map[string]interface{}{}
	if res.Changed {
		updates["status"] = next
	}
	if opts.RemoteID != nil {
		updates["remote_id"] = *opts.RemoteID
	}
	if opts.TouchRefresh {
		updates["last_refreshed_at"] = time.Now()
	}
	if len(updates) == 0 {
		return res, nil
	}

	if err := db.Model(&models.Rack{}).Where("item_number = ?", itemNumber).
		Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("rack: transition %s on %s: %w", event, itemNumber, err)
	}

	r.Status = next
	if opts.RemoteID != nil {
		r.RemoteID = opts.RemoteID
	}
	if opts.TouchRefresh {
		now := time.Now()
		r.LastRefreshedAt = &now
	}
	return res, nil
}
