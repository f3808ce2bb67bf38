// Package catalog describes tour packages as the booking flow sees them.
package catalog

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("package not found")

// Package is the display snapshot of a tour package taken at selection time.
type Package struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Duration string  `json:"duration"`
	Image    string  `json:"image"`
}

// Lookup resolves package ids against the catalog.
type Lookup interface {
	GetByID(ctx context.Context, id string) (*Package, error)
}

// Static is an in-process catalog used when no backend is configured.
type Static struct {
	mu       sync.RWMutex
	packages map[string]*Package
}

func NewStatic(packages ...Package) *Static {
	s := &Static{packages: make(map[string]*Package, len(packages))}
	for _, p := range packages {
		p := p
		s.packages[p.ID] = &p
	}
	return s
}

// NewSampleCatalog returns the demo packages served in offline mode.
func NewSampleCatalog() *Static {
	return NewStatic(
		Package{ID: "P1", Name: "Cultural Triangle Explorer", Price: 100, Duration: "5 days", Image: "/images/cultural-triangle.jpg"},
		Package{ID: "P2", Name: "Hill Country Rail Journey", Price: 240, Duration: "3 days", Image: "/images/hill-country.jpg"},
		Package{ID: "P3", Name: "Southern Coast Getaway", Price: 385.5, Duration: "7 days", Image: "/images/southern-coast.jpg"},
	)
}

func (s *Static) GetByID(ctx context.Context, id string) (*Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.packages[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}
