package model

import "time"

// AreaRefresh records the last fully successful ingestion pass for one area.
// It drives the database-level staleness gate independently of the cache
// file's mtime.
type AreaRefresh struct {
	AreaName  string    `gorm:"primaryKey;size:64"`
	UpdatedAt time.Time `gorm:"not null"`
}
