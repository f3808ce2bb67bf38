package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/kdilshan5712/igolanka-booking/internal/auth"
	"github.com/kdilshan5712/igolanka-booking/internal/booking"
	"github.com/kdilshan5712/igolanka-booking/internal/catalog"
	"github.com/kdilshan5712/igolanka-booking/internal/database"
	"github.com/kdilshan5712/igolanka-booking/internal/models"
	"github.com/kdilshan5712/igolanka-booking/internal/notifier"
	"gorm.io/gorm"
)

const SessionHeader = "X-Booking-Session"

type BookingHandler struct {
	registry *booking.Registry
	catalog  catalog.Lookup
	history  *database.HistoryRepository
	db       *gorm.DB
	notifier notifier.Notifier
	paths    Paths
}

func NewBookingHandler(registry *booking.Registry, lookup catalog.Lookup, db *gorm.DB, notifier notifier.Notifier, paths Paths) *BookingHandler {
	return &BookingHandler{
		registry: registry,
		catalog:  lookup,
		history:  database.NewHistoryRepository(db),
		db:       db,
		notifier: notifier,
		paths:    paths,
	}
}

type SessionInput struct {
	Session string `header:"X-Booking-Session" required:"true" doc:"Booking session key returned by POST /booking/start"`
}

type DraftView struct {
	PackageID        string               `json:"packageId,omitempty"`
	Package          *catalog.Package     `json:"package,omitempty"`
	TravelDate       string               `json:"travelDate,omitempty"`
	TravelerCount    int                  `json:"travelerCount"`
	TravelerInfo     booking.TravelerInfo `json:"travelerInfo"`
	PaymentMethod    string               `json:"paymentMethod,omitempty"`
	TotalAmount      float64              `json:"totalAmount"`
	Status           string               `json:"status"`
	BookingReference string               `json:"bookingReference,omitempty"`
	UpdatedAt        time.Time            `json:"updatedAt"`
}

func newDraftView(d booking.Draft) DraftView {
	return DraftView{
		PackageID:        d.PackageID,
		Package:          d.Package,
		TravelDate:       d.TravelDate,
		TravelerCount:    d.TravelerCount,
		TravelerInfo:     d.TravelerInfo,
		PaymentMethod:    d.PaymentMethod,
		TotalAmount:      d.TotalAmount,
		Status:           string(d.Status),
		BookingReference: d.BookingReference,
		UpdatedAt:        d.UpdatedAt,
	}
}

type StepResponse struct {
	Body struct {
		Decision booking.Decision `json:"decision"`
		Location string           `json:"location"`
		Draft    DraftView        `json:"draft"`
	}
}

func newStepResponse(d booking.Decision, draft booking.Draft) *StepResponse {
	resp := &StepResponse{}
	resp.Body.Decision = d
	resp.Body.Location = booking.StepPath(d.Step, draft.PackageID)
	resp.Body.Draft = newDraftView(draft)
	return resp
}

type StartRequest struct {
	Session string `header:"X-Booking-Session" doc:"Existing booking session to reuse"`
	Body    struct {
		PackageID string `json:"packageId" minLength:"1" doc:"Tour package to book"`
	}
}

type StartResponse struct {
	Session string `header:"X-Booking-Session"`
	Body    struct {
		Session  string           `json:"session"`
		Decision booking.Decision `json:"decision"`
		Draft    DraftView        `json:"draft"`
	}
}

// HandleStart enters the Details step for a package, opening a session when
// the client does not have one yet.
func (h *BookingHandler) HandleStart(ctx context.Context, input *StartRequest) (*StartResponse, error) {
	if _, ok := auth.UserIDFromContext(ctx); !ok {
		return nil, loginRedirect(h.paths, booking.StepPath(booking.StepDetails, input.Body.PackageID))
	}

	pkg, err := h.catalog.GetByID(ctx, input.Body.PackageID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, catalogRedirect(h.paths, "This tour package could not be found")
		}
		log.Printf("Failed to look up package %s: %v", input.Body.PackageID, err)
		return nil, huma.Error502BadGateway("Failed to load the tour package")
	}

	session := input.Session
	if session == "" {
		session = uuid.NewString()
	}

	flow, release, err := h.openFlow(ctx, session, booking.StepPath(booking.StepDetails, pkg.ID))
	if err != nil {
		return nil, err
	}
	defer release()
	draft := flow.SelectPackage(ctx, pkg)

	resp := &StartResponse{Session: session}
	resp.Body.Session = session
	resp.Body.Decision = flow.Enter(ctx, booking.StepDetails, true)
	resp.Body.Draft = newDraftView(draft)
	return resp, nil
}

// openFlow acquires the session's flow for the caller. An anonymous caller on
// a claimed session is sent to sign in and come back to returnTo.
func (h *BookingHandler) openFlow(ctx context.Context, session, returnTo string) (*booking.Flow, func(), error) {
	userID, authenticated := auth.UserIDFromContext(ctx)
	flow, release, err := h.registry.Acquire(ctx, session, userID)
	if errors.Is(err, booking.ErrSessionOwner) {
		if !authenticated {
			return nil, nil, loginRedirect(h.paths, returnTo)
		}
		return nil, nil, sessionOwnerError(h.paths)
	}
	return flow, release, err
}

type DraftResponse struct {
	Body DraftView
}

func (h *BookingHandler) HandleGetDraft(ctx context.Context, input *SessionInput) (*DraftResponse, error) {
	flow, release, err := h.openFlow(ctx, input.Session, booking.StepPath(booking.StepDetails, ""))
	if err != nil {
		return nil, err
	}
	defer release()
	return &DraftResponse{Body: newDraftView(flow.Draft())}, nil
}

// TravelerCount accepts both 3 and "3"; plain HTML forms send the latter.
type TravelerCount struct {
	raw string
}

func travelerCount(raw string) *TravelerCount { return &TravelerCount{raw: raw} }

func (c *TravelerCount) UnmarshalJSON(b []byte) error {
	c.raw = strings.Trim(string(b), `"`)
	return nil
}

func (TravelerCount) Schema(r huma.Registry) *huma.Schema {
	return &huma.Schema{
		Description: "Number of travelers",
		OneOf:       []*huma.Schema{{Type: huma.TypeInteger}, {Type: huma.TypeString}},
	}
}

type PatchDraftRequest struct {
	SessionInput
	Body struct {
		TravelDate    *string               `json:"travelDate,omitempty" doc:"Travel date, YYYY-MM-DD"`
		TravelerCount *TravelerCount        `json:"travelerCount,omitempty"`
		TravelerInfo  *booking.TravelerInfo `json:"travelerInfo,omitempty"`
	}
}

// HandlePatchDraft autosaves form values. Nothing is validated here; the
// step guards do that when the traveler moves on.
func (h *BookingHandler) HandlePatchDraft(ctx context.Context, input *PatchDraftRequest) (*DraftResponse, error) {
	flow, release, err := h.openFlow(ctx, input.Session, booking.StepPath(booking.StepDetails, ""))
	if err != nil {
		return nil, err
	}
	defer release()
	patch := booking.DraftInput{
		TravelDate:   input.Body.TravelDate,
		TravelerInfo: input.Body.TravelerInfo,
	}
	if input.Body.TravelerCount != nil {
		patch.TravelerCountText = &input.Body.TravelerCount.raw
	}
	draft := flow.Patch(ctx, patch)
	return &DraftResponse{Body: newDraftView(draft)}, nil
}

func (h *BookingHandler) HandleResetDraft(ctx context.Context, input *SessionInput) (*struct{}, error) {
	flow, release, err := h.openFlow(ctx, input.Session, booking.StepPath(booking.StepDetails, ""))
	if err != nil {
		return nil, err
	}
	defer release()
	flow.Reset(ctx)
	return nil, nil
}

type StepRequest struct {
	SessionInput
	Step string `path:"step" enum:"details,travelers,payment,confirmation" doc:"Workflow step"`
}

// HandleEnterStep runs the step guard without changing anything.
func (h *BookingHandler) HandleEnterStep(ctx context.Context, input *StepRequest) (*StepResponse, error) {
	step, ok := booking.ParseStep(input.Step)
	if !ok {
		return nil, huma.Error404NotFound("Unknown booking step")
	}

	flow, release, err := h.openFlow(ctx, input.Session, booking.StepPath(step, ""))
	if err != nil {
		return nil, err
	}
	defer release()
	userID, authenticated := auth.UserIDFromContext(ctx)

	decision := flow.Enter(ctx, step, authenticated)
	if !decision.Allowed {
		return nil, decisionError(decision)
	}
	if step == booking.StepPayment {
		if err := h.requireVerified(ctx, userID, step); err != nil {
			return nil, err
		}
	}
	return newStepResponse(decision, flow.Draft()), nil
}

// HandleAdvanceStep validates the step's form and enters the next step.
func (h *BookingHandler) HandleAdvanceStep(ctx context.Context, input *StepRequest) (*StepResponse, error) {
	step, ok := booking.ParseStep(input.Step)
	if !ok {
		return nil, huma.Error404NotFound("Unknown booking step")
	}

	flow, release, err := h.openFlow(ctx, input.Session, booking.StepPath(step, ""))
	if err != nil {
		return nil, err
	}
	defer release()
	userID, authenticated := auth.UserIDFromContext(ctx)

	decision, fe := flow.Advance(ctx, step, authenticated)
	if len(fe) > 0 {
		return nil, fieldErrors(fe)
	}
	if !decision.Allowed {
		return nil, decisionError(decision)
	}
	if decision.Step == booking.StepPayment {
		if err := h.requireVerified(ctx, userID, decision.Step); err != nil {
			return nil, err
		}
	}
	return newStepResponse(decision, flow.Draft()), nil
}

type PaymentRequest struct {
	SessionInput
	Body struct {
		Method         string `json:"method,omitempty" doc:"Payment method, defaults to card"`
		CardNumber     string `json:"cardNumber"`
		CardholderName string `json:"cardholderName"`
		Expiry         string `json:"expiry" doc:"MM/YY"`
		CVV            string `json:"cvv"`
	}
}

type PaymentResponse struct {
	Body struct {
		BookingReference string    `json:"bookingReference"`
		CardLast4        string    `json:"cardLast4"`
		Location         string    `json:"location"`
		Draft            DraftView `json:"draft"`
	}
}

// HandlePayment settles the draft. Declines come back as 402 and leave the
// draft in place so the traveler can retry.
func (h *BookingHandler) HandlePayment(ctx context.Context, input *PaymentRequest) (*PaymentResponse, error) {
	flow, release, err := h.openFlow(ctx, input.Session, booking.StepPath(booking.StepPayment, ""))
	if err != nil {
		return nil, err
	}
	defer release()
	userID, authenticated := auth.UserIDFromContext(ctx)

	if authenticated {
		if err := h.requireVerified(ctx, userID, booking.StepPayment); err != nil {
			return nil, err
		}
	}

	details := booking.PaymentDetails{
		Method:         input.Body.Method,
		CardNumber:     input.Body.CardNumber,
		CardholderName: input.Body.CardholderName,
		Expiry:         input.Body.Expiry,
		CVV:            input.Body.CVV,
	}

	outcome, err := flow.SubmitPayment(ctx, booking.PaymentSubmission{
		Owner:         userID,
		Authenticated: authenticated,
		AuthToken:     auth.TokenFromContext(ctx),
		Details:       details,
	})
	switch {
	case errors.Is(err, booking.ErrPaymentInProgress):
		return nil, &StatusError{Status: http.StatusConflict, Detail: "Your payment is already being processed", Reason: "payment_in_progress"}
	case errors.Is(err, booking.ErrEmailNotVerified):
		return nil, verifyRedirect(h.paths, booking.StepPath(booking.StepPayment, ""))
	case err != nil:
		log.Printf("Payment failed for session %s: %v", input.Session, err)
		return nil, huma.Error500InternalServerError("Failed to process payment")
	}

	if !outcome.Decision.Allowed {
		return nil, decisionError(outcome.Decision)
	}
	if len(outcome.Errors) > 0 {
		return nil, fieldErrors(outcome.Errors)
	}
	if !outcome.Result.Success {
		return nil, &StatusError{
			Status:    http.StatusPaymentRequired,
			Detail:    outcome.Result.Message,
			Reason:    "payment_declined",
			Retryable: outcome.Result.Retryable,
		}
	}

	if !outcome.Resumed {
		h.notifyBooking(ctx, userID, outcome.Result.BookingReference)
	}

	resp := &PaymentResponse{}
	resp.Body.BookingReference = outcome.Result.BookingReference
	resp.Body.CardLast4 = details.Last4()
	resp.Body.Location = booking.StepPath(booking.StepConfirmation, "")
	resp.Body.Draft = newDraftView(outcome.Draft)
	return resp, nil
}

type ConfirmationResponse struct {
	Body booking.Confirmation
}

// HandleConfirmation hands out the confirmation summary once. A second
// request is redirected like any other unconfirmed entry.
func (h *BookingHandler) HandleConfirmation(ctx context.Context, input *SessionInput) (*ConfirmationResponse, error) {
	flow, release, err := h.openFlow(ctx, input.Session, booking.StepPath(booking.StepConfirmation, ""))
	if err != nil {
		return nil, err
	}
	defer release()
	_, authenticated := auth.UserIDFromContext(ctx)

	decision := flow.Enter(ctx, booking.StepConfirmation, authenticated)
	if !decision.Allowed {
		return nil, decisionError(decision)
	}

	summary, ok, err := flow.TakeConfirmation(ctx)
	if err != nil {
		log.Printf("Failed to read confirmation for session %s: %v", input.Session, err)
		return nil, huma.Error500InternalServerError("Failed to load confirmation")
	}
	if !ok {
		d := flow.Draft()
		summary = booking.Confirmation{
			Reference:     d.BookingReference,
			TravelDate:    d.TravelDate,
			TravelerCount: d.TravelerCount,
			TotalAmount:   d.TotalAmount,
			PaymentMethod: d.PaymentMethod,
		}
		if d.Package != nil {
			summary.PackageName = d.Package.Name
		}
	}
	return &ConfirmationResponse{Body: summary}, nil
}

type BookingSummary struct {
	Reference       string    `json:"reference"`
	PackageID       string    `json:"packageId"`
	PackageName     string    `json:"packageName"`
	PackageImage    string    `json:"packageImage,omitempty"`
	PackageDuration string    `json:"packageDuration,omitempty"`
	TravelDate      string    `json:"travelDate"`
	TravelerCount   int       `json:"travelerCount"`
	TotalAmount     float64   `json:"totalAmount"`
	PaymentMethod   string    `json:"paymentMethod"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

type BookingsInput struct{}

type BookingsResponse struct {
	Body struct {
		Bookings []BookingSummary `json:"bookings"`
	}
}

func (h *BookingHandler) HandleBookings(ctx context.Context, input *BookingsInput) (*BookingsResponse, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	entries, err := h.history.ListByUser(ctx, userID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to fetch bookings: " + err.Error())
	}

	resp := &BookingsResponse{}
	resp.Body.Bookings = make([]BookingSummary, 0, len(entries))
	for _, e := range entries {
		resp.Body.Bookings = append(resp.Body.Bookings, BookingSummary{
			Reference:       e.Reference,
			PackageID:       e.PackageID,
			PackageName:     e.PackageName,
			PackageImage:    e.PackageImage,
			PackageDuration: e.PackageDuration,
			TravelDate:      time.Time(e.TravelDate).Format(booking.TravelDateLayout),
			TravelerCount:   e.TravelerCount,
			TotalAmount:     e.TotalAmount,
			PaymentMethod:   e.PaymentMethod,
			Status:          e.Status,
			CreatedAt:       e.CreatedAt,
		})
	}
	return resp, nil
}

// requireVerified sends users without a verified email to the verification
// page before they can pay.
func (h *BookingHandler) requireVerified(ctx context.Context, userID uint, step booking.Step) error {
	var user models.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return loginRedirect(h.paths, booking.StepPath(step, ""))
	}
	if !user.EmailVerified {
		return verifyRedirect(h.paths, booking.StepPath(step, ""))
	}
	return nil
}

func (h *BookingHandler) notifyBooking(ctx context.Context, userID uint, reference string) {
	if h.notifier == nil {
		return
	}

	var user models.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		log.Printf("Failed to load user %d for booking notification: %v", userID, err)
		return
	}
	entry, err := h.history.FindByReference(ctx, reference)
	if err != nil {
		log.Printf("Failed to load booking %s for notification: %v", reference, err)
		return
	}

	if err := h.notifier.NotifyBooking(user, *entry); err != nil {
		log.Printf("Failed to send booking notification: %v", err)
	}
}
