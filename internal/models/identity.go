// Package models contains data structures for the application's domain models.
package models

import "time"

// Identity is the authenticated principal behind a phone number.
type Identity struct {
	UID          string    `gorm:"primaryKey;type:varchar(36)" json:"uid"`
	Phone        string    `gorm:"uniqueIndex;not null" json:"phone"`
	CreatedAt    time.Time `json:"createdAt"`
	LastSignInAt time.Time `json:"lastSignInAt"`
}
