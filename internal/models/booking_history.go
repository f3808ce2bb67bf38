package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BookingHistoryEntry is written once per confirmed booking. Status is later
// moved to cancelled/completed by the backend lifecycle.
type BookingHistoryEntry struct {
	gorm.Model
	Reference       string         `json:"reference" gorm:"uniqueIndex"`
	UserID          uint           `json:"user_id" gorm:"index"`
	PackageID       string         `json:"package_id"`
	PackageName     string         `json:"package_name"`
	PackageImage    string         `json:"package_image"`
	PackageDuration string         `json:"package_duration"`
	TravelDate      datatypes.Date `json:"travel_date"`
	TravelerCount   int            `json:"traveler_count"`
	TotalAmount     float64        `json:"total_amount"`
	PaymentMethod   string         `json:"payment_method"`
	Status          string         `json:"status" gorm:"default:confirmed"`
}
