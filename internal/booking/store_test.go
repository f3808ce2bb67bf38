package booking

import (
	"context"
	"testing"
	"time"

	"github.com/kdilshan5712/igolanka-booking/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 10, 15, 30, 0, 0, time.UTC)

func p1() *catalog.Package {
	return &catalog.Package{ID: "P1", Name: "Cultural Triangle Explorer", Price: 100, Duration: "5 days", Image: "/img/p1.jpg"}
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func TestStore_TotalInvariant(t *testing.T) {
	ctx := context.Background()
	s := NewStore(&MemoryPersistence{}, FixedClock{At: testNow})

	d := s.Update(ctx, Patch{PackageID: strPtr("P1"), Package: p1(), TravelerCount: intPtr(3)})
	assert.Equal(t, 300.0, d.TotalAmount)

	for _, n := range []int{1, 7, 20} {
		d = s.Update(ctx, Patch{TravelerCount: intPtr(n)})
		assert.Equal(t, d.Package.Price*float64(n), d.TotalAmount, "travelers=%d", n)
	}

	pricier := &catalog.Package{ID: "P2", Name: "Hill Country", Price: 240}
	d = s.Update(ctx, Patch{PackageID: strPtr("P2"), Package: pricier})
	assert.Equal(t, 240.0*20, d.TotalAmount)
	assert.Equal(t, StatusDraft, d.Status)
}

func TestStore_ChangingPackageDropsStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, FixedClock{At: testNow})

	s.Update(ctx, Patch{PackageID: strPtr("P1"), Package: p1(), TravelerCount: intPtr(2)})
	d := s.Update(ctx, Patch{PackageID: strPtr("P9")})

	assert.Nil(t, d.Package)
	assert.Zero(t, d.TotalAmount)
	assert.False(t, d.HasPackage())
}

func TestStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, FixedClock{At: testNow})
	s.Update(ctx, Patch{PackageID: strPtr("P1"), Package: p1()})

	d := s.Get()
	d.Package.Price = 1

	assert.Equal(t, 100.0, s.Get().Package.Price)
}

func TestStore_ResetClearsMirror(t *testing.T) {
	ctx := context.Background()
	mirror := &MemoryPersistence{}
	s := NewStore(mirror, FixedClock{At: testNow})

	s.Update(ctx, Patch{PackageID: strPtr("P1"), Package: p1(), TravelDate: strPtr("2026-04-01")})
	_, ok := mirror.Load(ctx)
	require.True(t, ok)

	gen := s.Generation()
	s.Reset(ctx)

	_, ok = mirror.Load(ctx)
	assert.False(t, ok)
	assert.Equal(t, NewDraft(), s.Get())
	assert.Equal(t, gen+1, s.Generation())
}

func TestStore_RestoreAfterReload(t *testing.T) {
	ctx := context.Background()
	mirror := &MemoryPersistence{}

	first := NewStore(mirror, FixedClock{At: testNow})
	first.Update(ctx, Patch{PackageID: strPtr("P1"), Package: p1()})
	first.Update(ctx, Patch{TravelDate: strPtr("2026-03-20")})

	// a new store over the same mirror stands in for the reloaded page
	reloaded := NewStore(mirror, FixedClock{At: testNow})
	require.True(t, reloaded.Restore(ctx))

	d := reloaded.Get()
	assert.Equal(t, "P1", d.PackageID)
	assert.Equal(t, "2026-03-20", d.TravelDate)
	assert.Equal(t, 100.0, d.TotalAmount)
}

func TestStore_PaymentFailedReturnsToDraftOnEdit(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, FixedClock{At: testNow})
	s.Update(ctx, Patch{PackageID: strPtr("P1"), Package: p1()})

	_, ok := s.setOutcome(ctx, s.Generation(), StatusPaymentFailed, "")
	require.True(t, ok)
	assert.Equal(t, StatusPaymentFailed, s.Get().Status)

	d := s.Update(ctx, Patch{TravelerCount: intPtr(2)})
	assert.Equal(t, StatusDraft, d.Status)
}

func TestStore_OutcomeIgnoredAfterReset(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, FixedClock{At: testNow})
	gen := s.Generation()
	s.Reset(ctx)

	_, ok := s.setOutcome(ctx, gen, StatusConfirmed, "IGL-1-ABCDEFGHI")
	assert.False(t, ok)
	assert.Equal(t, StatusDraft, s.Get().Status)
	assert.Empty(t, s.Get().BookingReference)
}

func TestStore_ConfirmedDraftIsFrozen(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, FixedClock{At: testNow})
	s.Update(ctx, Patch{PackageID: strPtr("P1"), Package: p1(), TravelerCount: intPtr(3)})

	_, ok := s.setOutcome(ctx, s.Generation(), StatusConfirmed, "IGL-1-ABCDEFGHI")
	require.True(t, ok)

	d := s.Update(ctx, Patch{TravelerCount: intPtr(10)})
	assert.Equal(t, 3, d.TravelerCount)
	assert.Equal(t, 300.0, d.TotalAmount)
	assert.Equal(t, StatusConfirmed, d.Status)
}

func TestStore_ConfirmIgnoredAfterReset(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, FixedClock{At: testNow})
	s.Update(ctx, Patch{PackageID: strPtr("P1"), Package: p1()})
	paid, gen := s.snapshot()
	paid.Status = StatusConfirmed
	paid.BookingReference = "IGL-1-ABCDEFGHI"

	s.Reset(ctx)
	assert.False(t, s.confirm(ctx, gen, paid))
	assert.Equal(t, NewDraft(), s.Get())

	assert.True(t, s.confirm(ctx, s.Generation(), paid))
	assert.Equal(t, "IGL-1-ABCDEFGHI", s.Get().BookingReference)
}

func TestStore_Claim(t *testing.T) {
	ctx := context.Background()
	mirror := &MemoryPersistence{}
	s := NewStore(mirror, FixedClock{At: testNow})

	require.NoError(t, s.Claim(ctx, 0), "anonymous use leaves the draft unowned")
	assert.Zero(t, s.Get().Owner)

	require.NoError(t, s.Claim(ctx, 7))
	require.NoError(t, s.Claim(ctx, 7))
	assert.ErrorIs(t, s.Claim(ctx, 8), ErrSessionOwner)
	assert.ErrorIs(t, s.Claim(ctx, 0), ErrSessionOwner)

	restored, ok := mirror.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, uint(7), restored.Owner)

	s.Reset(ctx)
	assert.Equal(t, uint(7), s.Get().Owner, "a reset keeps the session's owner")
	assert.ErrorIs(t, s.Claim(ctx, 8), ErrSessionOwner)
}
