package database

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/kdilshan5712/igolanka-booking/internal/booking"
	"github.com/kdilshan5712/igolanka-booking/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConfirmationSlot stores the latest confirmation summary of a session.
type ConfirmationSlot struct {
	db      *gorm.DB
	session string
}

func NewConfirmationSlot(db *gorm.DB, session string) *ConfirmationSlot {
	return &ConfirmationSlot{db: db, session: session}
}

func (s *ConfirmationSlot) Put(ctx context.Context, c booking.Confirmation) error {
	summary, err := json.Marshal(c)
	if err != nil {
		return err
	}
	record := models.ConfirmationRecord{Session: s.session, Reference: c.Reference, Summary: datatypes.JSON(summary)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session"}},
		DoUpdates: clause.AssignmentColumns([]string{"reference", "summary", "updated_at", "deleted_at"}),
	}).Create(&record).Error
}

func (s *ConfirmationSlot) Take(ctx context.Context) (booking.Confirmation, bool, error) {
	var c booking.Confirmation
	found := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.ConfirmationRecord
		if err := tx.Where("session = ?", s.session).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Unscoped().Delete(&record).Error; err != nil {
			return err
		}

		if err := json.Unmarshal(record.Summary, &c); err != nil {
			// an unreadable summary is dropped rather than served
			return nil
		}
		found = true
		return nil
	})
	if err != nil {
		return booking.Confirmation{}, false, err
	}
	return c, found, nil
}

func (s *ConfirmationSlot) Pending(ctx context.Context) bool {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ConfirmationRecord{}).Where("session = ?", s.session).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}
