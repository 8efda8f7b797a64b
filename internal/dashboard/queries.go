package dashboard

import (
	"fmt"
	"time"

	"github.com/zulandar/bomsync/internal/ledger"
	"github.com/zulandar/bomsync/internal/models"
	"github.com/zulandar/bomsync/internal/rack"
	"gorm.io/gorm"
)

// RackRow holds rack data for display on the status board.
type RackRow struct {
	ItemNumber    string
	Name          string
	Status        string
	RemoteID      string
	LastRefreshed string // relative age, "—" when never refreshed
	UpdatedAt     time.Time
}

// RackBoard returns all tracked racks ordered by item number.
func RackBoard(db *gorm.DB) ([]RackRow, error) {
	if db == nil {
		return []RackRow{}, nil
	}
	racks, err := rack.List(db, rack.ListFilters{})
	if err != nil {
		return nil, err
	}
	rows := make([]RackRow, len(racks))
	for i, r := range racks {
		rows[i] = rackRow(r)
	}
	return rows, nil
}

func rackRow(r models.Rack) RackRow {
	row := RackRow{
		ItemNumber:    r.ItemNumber,
		Name:          r.Name,
		Status:        r.Status,
		LastRefreshed: "—",
		UpdatedAt:     r.UpdatedAt,
	}
	if r.RemoteID != nil {
		row.RemoteID = *r.RemoteID
	}
	if r.LastRefreshedAt != nil {
		row.LastRefreshed = TimeAgo(*r.LastRefreshedAt)
	}
	return row
}

// BoardSummary holds rack counts by status for the board header.
type BoardSummary struct {
	Placeholder   int64
	Synced        int64
	LocalModified int64
	ArenaModified int64
	Error         int64
	Total         int64
}

// Summarize returns rack counts grouped by status.
func Summarize(db *gorm.DB) (BoardSummary, error) {
	var s BoardSummary
	if db == nil {
		return s, nil
	}

	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := db.Model(&models.Rack{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&rows).Error; err != nil {
		return s, err
	}

	for _, r := range rows {
		s.Total += r.Count
		switch r.Status {
		case rack.StatusPlaceholder:
			s.Placeholder += r.Count
		case rack.StatusSynced:
			s.Synced += r.Count
		case rack.StatusLocalModified:
			s.LocalModified += r.Count
		case rack.StatusArenaModified:
			s.ArenaModified += r.Count
		case rack.StatusError:
			s.Error += r.Count
		}
	}
	return s, nil
}

// ActivityRow holds one history event for display.
type ActivityRow struct {
	ID          uint
	Rack        string
	EventType   string
	StatusAfter string
	Summary     string
	When        string
	CreatedAt   time.Time
}

// RecentActivity returns the newest history events across all racks.
func RecentActivity(db *gorm.DB, limit int) ([]ActivityRow, error) {
	if db == nil {
		return []ActivityRow{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	events, err := ledger.List(db, ledger.Filter{Limit: limit})
	if err != nil {
		return nil, err
	}
	return activityRows(events), nil
}

// RackActivity returns the newest history events for one rack.
func RackActivity(db *gorm.DB, itemNumber string, limit int) ([]ActivityRow, error) {
	if db == nil {
		return []ActivityRow{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	events, err := ledger.List(db, ledger.Filter{Rack: itemNumber, Limit: limit})
	if err != nil {
		return nil, err
	}
	return activityRows(events), nil
}

func activityRows(events []models.HistoryEvent) []ActivityRow {
	rows := make([]ActivityRow, len(events))
	for i, ev := range events {
		rows[i] = ActivityRow{
			ID:          ev.ID,
			Rack:        ev.RackItemNumber,
			EventType:   ev.EventType,
			StatusAfter: ev.StatusAfter,
			Summary:     ev.Summary,
			When:        TimeAgo(ev.CreatedAt),
			CreatedAt:   ev.CreatedAt,
		}
	}
	return rows
}

// TimeAgo formats a timestamp as a relative age like "5m ago".
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	d := time.Since(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours())/24)
	}
}
