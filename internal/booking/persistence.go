package booking

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kdilshan5712/igolanka-booking/internal/catalog"
)

// DraftPersistence mirrors one session's draft so it survives the in-memory
// flow being dropped. Load fails open: anything unreadable is reported as absent.
type DraftPersistence interface {
	Save(ctx context.Context, d Draft) error
	Load(ctx context.Context) (Draft, bool)
	Clear(ctx context.Context) error
}

// persistedDraft is the mirror's JSON shape. Payment fields have no place here.
type persistedDraft struct {
	PackageID        string           `json:"packageId"`
	Package          *catalog.Package `json:"package,omitempty"`
	TravelDate       string           `json:"travelDate,omitempty"`
	TravelerCount    int              `json:"travelerCount"`
	TotalPrice       float64          `json:"totalPrice"`
	TravelerInfo     TravelerInfo     `json:"travelerInfo"`
	Status           Status           `json:"status"`
	BookingReference string           `json:"bookingReference,omitempty"`
	OwnerID          uint             `json:"ownerId,omitempty"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// EncodeDraft serializes the durable part of d.
func EncodeDraft(d Draft) ([]byte, error) {
	return json.Marshal(persistedDraft{
		PackageID:        d.PackageID,
		Package:          d.Package,
		TravelDate:       d.TravelDate,
		TravelerCount:    d.TravelerCount,
		TotalPrice:       d.TotalAmount,
		TravelerInfo:     d.TravelerInfo,
		Status:           d.Status,
		BookingReference: d.BookingReference,
		OwnerID:          d.Owner,
		UpdatedAt:        d.UpdatedAt,
	})
}

// DecodeDraft parses a mirror value. ok is false for empty or corrupt input.
func DecodeDraft(data []byte) (Draft, bool) {
	if len(data) == 0 {
		return Draft{}, false
	}
	var p persistedDraft
	if err := json.Unmarshal(data, &p); err != nil {
		return Draft{}, false
	}
	switch p.Status {
	case "":
		p.Status = StatusDraft
	case StatusDraft, StatusPaymentFailed, StatusConfirmed:
	default:
		return Draft{}, false
	}
	if p.TravelerCount < 1 {
		p.TravelerCount = 1
	}
	d := Draft{
		PackageID:        p.PackageID,
		Package:          p.Package,
		TravelDate:       p.TravelDate,
		TravelerCount:    p.TravelerCount,
		TravelerInfo:     p.TravelerInfo,
		Status:           p.Status,
		BookingReference: p.BookingReference,
		Owner:            p.OwnerID,
		UpdatedAt:        p.UpdatedAt,
	}
	// the stored total is informational; the invariant is recomputed
	d.recomputeTotal()
	return d, true
}

// MemoryPersistence keeps the serialized mirror in memory.
type MemoryPersistence struct {
	mu   sync.Mutex
	data []byte
}

func (m *MemoryPersistence) Save(ctx context.Context, d Draft) error {
	data, err := EncodeDraft(d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	return nil
}

func (m *MemoryPersistence) Load(ctx context.Context) (Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return DecodeDraft(m.data)
}

func (m *MemoryPersistence) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}
