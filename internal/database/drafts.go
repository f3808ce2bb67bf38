package database

import (
	"context"
	"log"
	"time"

	"github.com/kdilshan5712/igolanka-booking/internal/booking"
	"github.com/kdilshan5712/igolanka-booking/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DraftMirror persists the draft of a single booking session.
type DraftMirror struct {
	db      *gorm.DB
	session string
}

func NewDraftMirror(db *gorm.DB, session string) *DraftMirror {
	return &DraftMirror{db: db, session: session}
}

func (m *DraftMirror) Save(ctx context.Context, d booking.Draft) error {
	payload, err := booking.EncodeDraft(d)
	if err != nil {
		return err
	}

	record := models.DraftRecord{Session: m.session, Payload: datatypes.JSON(payload)}
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at", "deleted_at"}),
	}).Create(&record).Error
}

func (m *DraftMirror) Load(ctx context.Context) (booking.Draft, bool) {
	var record models.DraftRecord
	err := m.db.WithContext(ctx).Where("session = ?", m.session).First(&record).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Printf("Failed to load draft for session %s: %v", m.session, err)
		}
		return booking.Draft{}, false
	}
	return booking.DecodeDraft(record.Payload)
}

func (m *DraftMirror) Clear(ctx context.Context) error {
	return m.db.WithContext(ctx).Unscoped().Where("session = ?", m.session).Delete(&models.DraftRecord{}).Error
}

// PurgeDrafts hard-deletes mirrored drafts not touched since before.
func PurgeDrafts(ctx context.Context, db *gorm.DB, before time.Time) (int64, error) {
	res := db.WithContext(ctx).Unscoped().Where("updated_at < ?", before).Delete(&models.DraftRecord{})
	return res.RowsAffected, res.Error
}
