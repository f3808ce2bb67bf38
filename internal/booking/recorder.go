package booking

import (
	"context"
	"log"
	"sync"
	"time"
)

// HistoryEntry is the immutable record of a confirmed booking.
type HistoryEntry struct {
	Reference       string
	OwnerID         uint
	PackageID       string
	PackageName     string
	PackageImage    string
	PackageDuration string
	TravelDate      string
	TravelerCount   int
	TotalAmount     float64
	PaymentMethod   string
	Status          string
	CreatedAt       time.Time
}

// Confirmation is the summary shown once on the confirmation step.
type Confirmation struct {
	Reference     string  `json:"reference"`
	PackageName   string  `json:"packageName"`
	TravelDate    string  `json:"travelDate"`
	TravelerCount int     `json:"travelerCount"`
	TotalAmount   float64 `json:"totalAmount"`
	PaymentMethod string  `json:"paymentMethod"`
}

// History is the append-only booking history.
type History interface {
	// Insert stores e unless an entry with the same reference exists.
	Insert(ctx context.Context, e HistoryEntry) (bool, error)
}

// ConfirmationSlot holds at most one confirmation summary per session.
type ConfirmationSlot interface {
	Put(ctx context.Context, c Confirmation) error
	// Take returns the summary and removes it.
	Take(ctx context.Context) (Confirmation, bool, error)
	Pending(ctx context.Context) bool
}

// Recorder turns a confirmed draft into history and clears the active draft.
type Recorder struct {
	history History
	slot    ConfirmationSlot
	store   *Store
	clock   Clock
}

func NewRecorder(history History, slot ConfirmationSlot, store *Store, clock Clock) *Recorder {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Recorder{history: history, slot: slot, store: store, clock: clock}
}

// Record is a no-op for drafts that are not confirmed, so it is safe to retry.
// The active draft is only reset while it is still the generation that was paid for.
func (r *Recorder) Record(ctx context.Context, owner uint, d Draft, gen uint64) bool {
	if d.Status != StatusConfirmed || d.BookingReference == "" {
		return false
	}

	entry := HistoryEntry{
		Reference:     d.BookingReference,
		OwnerID:       owner,
		PackageID:     d.PackageID,
		TravelDate:    d.TravelDate,
		TravelerCount: d.TravelerCount,
		TotalAmount:   d.TotalAmount,
		PaymentMethod: d.PaymentMethod,
		Status:        string(StatusConfirmed),
		CreatedAt:     r.clock.Now(),
	}
	if d.Package != nil {
		entry.PackageName = d.Package.Name
		entry.PackageImage = d.Package.Image
		entry.PackageDuration = d.Package.Duration
	}

	inserted, err := r.history.Insert(ctx, entry)
	if err != nil {
		log.Printf("Failed to record booking %s: %v", d.BookingReference, err)
		return false
	}

	if inserted && r.slot != nil {
		c := Confirmation{
			Reference:     entry.Reference,
			PackageName:   entry.PackageName,
			TravelDate:    entry.TravelDate,
			TravelerCount: entry.TravelerCount,
			TotalAmount:   entry.TotalAmount,
			PaymentMethod: entry.PaymentMethod,
		}
		if err := r.slot.Put(ctx, c); err != nil {
			log.Printf("Failed to store confirmation %s: %v", c.Reference, err)
		}
	}

	r.store.resetIf(ctx, gen)
	return true
}

// MemoryHistory is an in-memory History.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

func (h *MemoryHistory) Insert(ctx context.Context, e HistoryEntry) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, existing := range h.entries {
		if existing.Reference == e.Reference {
			return false, nil
		}
	}
	h.entries = append(h.entries, e)
	return true, nil
}

func (h *MemoryHistory) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// MemorySlot is an in-memory ConfirmationSlot.
type MemorySlot struct {
	mu sync.Mutex
	c  *Confirmation
}

func (s *MemorySlot) Put(ctx context.Context, c Confirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = &c
	return nil
}

func (s *MemorySlot) Take(ctx context.Context) (Confirmation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return Confirmation{}, false, nil
	}
	c := *s.c
	s.c = nil
	return c, true, nil
}

func (s *MemorySlot) Pending(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c != nil
}
