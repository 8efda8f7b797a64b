package models

import "time"

// HistoryEvent is one append-only entry in the reconciliation audit trail.
// Rows are only ever inserted; nothing in the codebase updates or deletes them.
type HistoryEvent struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	RackItemNumber string `gorm:"size:64;index"`
	EventType      string `gorm:"size:24;index"`
	StatusBefore   string `gorm:"size:16"`
	StatusAfter    string `gorm:"size:16"`
	Summary        string `gorm:"size:256"`
	Details        string `gorm:"type:json"`
	CreatedAt      time.Time
}
