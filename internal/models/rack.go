package models

import "time"

// Rack is the synchronization record for one rack worksheet.
type Rack struct {
	ItemNumber      string  `gorm:"primaryKey;size:64"`
	Name            string  `gorm:"size:128"`
	Status          string  `gorm:"size:16;default:placeholder;index"`
	RemoteID        *string `gorm:"size:64"`
	LastRefreshedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
