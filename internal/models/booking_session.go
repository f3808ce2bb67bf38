package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DraftRecord mirrors the in-progress draft of one booking session.
type DraftRecord struct {
	gorm.Model
	Session string         `gorm:"uniqueIndex"`
	Payload datatypes.JSON `gorm:"not null"`
}

// ConfirmationRecord holds the latest confirmation summary of a session until
// the confirmation step consumes it.
type ConfirmationRecord struct {
	gorm.Model
	Session   string `gorm:"uniqueIndex"`
	Reference string
	Summary   datatypes.JSON
}
