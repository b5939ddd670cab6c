package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Areas []SubscriptionArea `gorm:"foreignKey:Endpoint;references:Endpoint;constraint:OnDelete:CASCADE"`
}

// SubscriptionArea links a subscription to one catalog area. Area names are
// static catalog keys, not database rows, so this is a plain child table
// rather than a many2many against an entity.
type SubscriptionArea struct {
	Endpoint string `gorm:"primaryKey"`
	AreaName string `gorm:"primaryKey;index;size:64"`
}
