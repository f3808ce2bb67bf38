package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testNavigator() *Navigator {
	return NewNavigator(testValidator(), DefaultPaths())
}

func readyDraft() Draft {
	d := NewDraft()
	d.PackageID = "P1"
	d.Package = p1()
	d.TravelDate = "2026-03-20"
	d.TravelerCount = 2
	d.TravelerInfo = TravelerInfo{FullName: "Nimal Perera", Email: "nimal@example.com", Phone: "0771234567"}
	d.recomputeTotal()
	return d
}

func TestNavigator_TravelersNeedsPackage(t *testing.T) {
	nav := testNavigator()

	dec := nav.Enter(StepTravelers, NewDraft(), Access{Authenticated: true})
	assert.False(t, dec.Allowed)
	assert.Equal(t, "/packages", dec.Redirect)

	d := NewDraft()
	d.PackageID = "P1"
	dec = nav.Enter(StepTravelers, d, Access{Authenticated: true})
	assert.False(t, dec.Allowed)
	assert.Equal(t, "/packages/P1/book", dec.Redirect)
	assert.Equal(t, ReasonMissingPackage, dec.Reason)

	assert.True(t, nav.Enter(StepTravelers, readyDraft(), Access{}).Allowed)
}

func TestNavigator_PaymentGuardIsMonotonic(t *testing.T) {
	nav := testNavigator()
	d := readyDraft()
	d.TravelerInfo.Email = "not-an-email"

	for i := 0; i < 5; i++ {
		dec := nav.Enter(StepPayment, d, Access{Authenticated: true})
		assert.False(t, dec.Allowed)
		assert.Equal(t, "/booking/travelers", dec.Redirect)
		assert.Equal(t, ReasonIncompleteTraveler, dec.Reason)
	}

	assert.True(t, nav.Enter(StepPayment, readyDraft(), Access{Authenticated: true}).Allowed)
}

func TestNavigator_PaymentNeedsDetails(t *testing.T) {
	nav := testNavigator()
	d := readyDraft()
	d.TravelDate = "2026-03-01"

	dec := nav.Enter(StepPayment, d, Access{Authenticated: true})
	assert.Equal(t, "/booking/travelers", dec.Redirect)
	assert.Equal(t, ReasonIncompleteDetails, dec.Reason)
}

func TestNavigator_UnauthenticatedRedirectsToLogin(t *testing.T) {
	nav := testNavigator()

	dec := nav.Enter(StepPayment, readyDraft(), Access{})
	assert.False(t, dec.Allowed)
	assert.Equal(t, "/auth/discord/login?return_to=%2Fbooking%2Fpayment", dec.Redirect)
	assert.Equal(t, ReasonUnauthenticated, dec.Reason)

	dec = nav.Enter(StepDetails, readyDraft(), Access{})
	assert.Equal(t, "/auth/discord/login?return_to=%2Fpackages%2FP1%2Fbook", dec.Redirect)
}

func TestNavigator_Confirmation(t *testing.T) {
	nav := testNavigator()

	dec := nav.Enter(StepConfirmation, readyDraft(), Access{Authenticated: true})
	assert.False(t, dec.Allowed)
	assert.Equal(t, "/packages/P1/book", dec.Redirect)

	assert.True(t, nav.Enter(StepConfirmation, NewDraft(), Access{PendingConfirmation: true}).Allowed)

	confirmed := readyDraft()
	confirmed.Status = StatusConfirmed
	confirmed.BookingReference = "IGL-1-ABCDEFGHI"
	assert.True(t, nav.Enter(StepConfirmation, confirmed, Access{}).Allowed)
}

func TestStep_ParseAndNext(t *testing.T) {
	s, ok := ParseStep("travelers")
	assert.True(t, ok)
	next, ok := s.Next()
	assert.True(t, ok)
	assert.Equal(t, StepPayment, next)

	_, ok = StepConfirmation.Next()
	assert.False(t, ok)

	_, ok = ParseStep("checkout")
	assert.False(t, ok)
}

func TestNavigator_PaidDraftSkipsPayment(t *testing.T) {
	nav := testNavigator()
	d := readyDraft()
	d.Status = StatusConfirmed
	d.BookingReference = "IGL-1-ABCDEFGHI"

	dec := nav.Enter(StepPayment, d, Access{Authenticated: true})
	assert.False(t, dec.Allowed)
	assert.Equal(t, "/booking/confirmation", dec.Redirect)
	assert.Equal(t, ReasonAlreadyConfirmed, dec.Reason)
}
