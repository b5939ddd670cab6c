package model

import "time"

// Permit is one issued field permit row as ingested from an area's CSV feed.
// ID is a deterministic hash of (area, group, raw start, raw end, field), so
// re-ingesting identical source rows produces identical primary keys.
type Permit struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	AreaName     string    `gorm:"index;size:64;not null" json:"areaName"`
	GroupName    string    `gorm:"index:idx_permits_group_start;size:64;not null" json:"groupName"`
	StartTime    time.Time `gorm:"index:idx_permits_group_start;not null" json:"startTime"`
	EndTime      time.Time `gorm:"not null" json:"endTime"`
	FieldName    string    `gorm:"index;size:128;not null" json:"fieldName"`
	PermitType   string    `gorm:"size:128" json:"permitType"`
	Title        string    `gorm:"size:256" json:"title"`
	Organization string    `gorm:"index;size:256" json:"organization"`
	Status       string    `gorm:"size:64" json:"status"`
}
