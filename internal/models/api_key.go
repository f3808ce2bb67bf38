package models

import (
	"time"

	"gorm.io/gorm"
)

// APIKey lets a partner integration act as its owner without a browser cookie.
// Only the SHA-256 of the key is stored.
type APIKey struct {
	gorm.Model
	UserID     uint       `json:"user_id" gorm:"index"`
	KeyHash    string     `json:"-" gorm:"uniqueIndex"`
	Last4      string     `json:"last4"`
	Name       string     `json:"name"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}
