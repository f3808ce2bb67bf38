package database

import (
	"context"
	"fmt"
	"time"

	"github.com/kdilshan5712/igolanka-booking/internal/booking"
	"github.com/kdilshan5712/igolanka-booking/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HistoryRepository is the durable, append-only booking history.
type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Insert adds e unless its reference is already recorded.
func (r *HistoryRepository) Insert(ctx context.Context, e booking.HistoryEntry) (bool, error) {
	row := models.BookingHistoryEntry{
		Reference:       e.Reference,
		UserID:          e.OwnerID,
		PackageID:       e.PackageID,
		PackageName:     e.PackageName,
		PackageImage:    e.PackageImage,
		PackageDuration: e.PackageDuration,
		TravelerCount:   e.TravelerCount,
		TotalAmount:     e.TotalAmount,
		PaymentMethod:   e.PaymentMethod,
		Status:          e.Status,
	}
	if !e.CreatedAt.IsZero() {
		row.CreatedAt = e.CreatedAt
	}
	if e.TravelDate != "" {
		date, err := time.Parse(booking.TravelDateLayout, e.TravelDate)
		if err != nil {
			return false, fmt.Errorf("invalid travel date %q: %w", e.TravelDate, err)
		}
		row.TravelDate = datatypes.Date(date)
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reference"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListByUser returns the user's bookings, newest first.
func (r *HistoryRepository) ListByUser(ctx context.Context, userID uint) ([]models.BookingHistoryEntry, error) {
	var entries []models.BookingHistoryEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&entries).Error
	return entries, err
}

// FindByReference returns a single entry.
func (r *HistoryRepository) FindByReference(ctx context.Context, reference string) (*models.BookingHistoryEntry, error) {
	var entry models.BookingHistoryEntry
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
