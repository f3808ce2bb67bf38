package booking

import (
	"context"
	"log"
	"sync"
)

// Store holds the active draft of one booking session and mirrors every
// change to its DraftPersistence.
type Store struct {
	mu         sync.Mutex
	draft      Draft
	generation uint64
	mirror     DraftPersistence
	clock      Clock
}

func NewStore(mirror DraftPersistence, clock Clock) *Store {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Store{draft: NewDraft(), mirror: mirror, clock: clock}
}

// Restore replaces the in-memory draft with the mirrored one, if any.
// It reports whether a draft was found.
func (s *Store) Restore(ctx context.Context) bool {
	if s.mirror == nil {
		return false
	}
	d, ok := s.mirror.Load(ctx)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = d
	return true
}

// Get returns a copy of the current draft.
func (s *Store) Get() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.clone()
}

// Generation changes every time the draft is reset.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// snapshot returns the draft together with the generation it belongs to.
func (s *Store) snapshot() (Draft, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.clone(), s.generation
}

// Claim binds an unowned draft to owner. A draft owned by someone else, or
// an anonymous caller on an owned draft, gets ErrSessionOwner.
func (s *Store) Claim(ctx context.Context, owner uint) error {
	s.mu.Lock()
	switch {
	case s.draft.Owner == owner:
		s.mu.Unlock()
		return nil
	case s.draft.Owner != 0:
		s.mu.Unlock()
		return ErrSessionOwner
	case owner == 0:
		s.mu.Unlock()
		return nil
	}
	s.draft.Owner = owner
	d := s.draft.clone()
	s.mu.Unlock()

	s.save(ctx, d)
	return nil
}

// Update merges p into the draft and writes the mirror. A confirmed draft is
// left as it was paid for until it is recorded or reset.
func (s *Store) Update(ctx context.Context, p Patch) Draft {
	s.mu.Lock()
	if s.draft.Status == StatusConfirmed {
		d := s.draft.clone()
		s.mu.Unlock()
		return d
	}
	if p.apply(&s.draft) {
		s.draft.recomputeTotal()
	}
	if s.draft.Status == StatusPaymentFailed {
		s.draft.Status = StatusDraft
	}
	s.draft.UpdatedAt = s.clock.Now()
	d := s.draft.clone()
	s.mu.Unlock()

	s.save(ctx, d)
	return d
}

// Reset starts a fresh draft and clears the mirror.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	s.restart()
	s.mu.Unlock()

	s.clear(ctx)
}

// resetIf resets only when no other reset happened since gen was read.
func (s *Store) resetIf(ctx context.Context, gen uint64) bool {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false
	}
	s.restart()
	s.mu.Unlock()

	s.clear(ctx)
	return true
}

// restart swaps in a fresh draft for the same owner. Callers hold s.mu.
func (s *Store) restart() {
	owner := s.draft.Owner
	s.draft = NewDraft()
	s.draft.Owner = owner
	s.generation++
}

// setOutcome records a payment outcome without touching the other fields.
func (s *Store) setOutcome(ctx context.Context, gen uint64, status Status, reference string) (Draft, bool) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return Draft{}, false
	}
	s.draft.Status = status
	s.draft.BookingReference = reference
	s.draft.UpdatedAt = s.clock.Now()
	d := s.draft.clone()
	s.mu.Unlock()

	s.save(ctx, d)
	return d, true
}

// confirm replaces the draft with the paid-for snapshot d, unless the draft
// was reset since gen.
func (s *Store) confirm(ctx context.Context, gen uint64, d Draft) bool {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false
	}
	s.draft = d.clone()
	s.mu.Unlock()

	s.save(ctx, d)
	return true
}

func (s *Store) save(ctx context.Context, d Draft) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Save(ctx, d); err != nil {
		log.Printf("Failed to save draft mirror: %v", err)
	}
}

func (s *Store) clear(ctx context.Context) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Clear(ctx); err != nil {
		log.Printf("Failed to clear draft mirror: %v", err)
	}
}

func (d Draft) clone() Draft {
	if d.Package != nil {
		p := *d.Package
		d.Package = &p
	}
	return d
}
