package booking

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kdilshan5712/igolanka-booking/internal/catalog"
)

const DefaultPaymentMethod = "card"

// Flow is one session's booking workflow.
type Flow struct {
	store     *Store
	navigator *Navigator
	gateway   PaymentGateway
	recorder  *Recorder
	slot      ConfirmationSlot

	mu   sync.Mutex
	busy bool
}

func NewFlow(store *Store, nav *Navigator, gateway PaymentGateway, recorder *Recorder, slot ConfirmationSlot) *Flow {
	return &Flow{store: store, navigator: nav, gateway: gateway, recorder: recorder, slot: slot}
}

func (f *Flow) Draft() Draft { return f.store.Get() }

// DraftInput carries autosaved form values. Nil fields are left untouched.
type DraftInput struct {
	TravelDate    *string
	TravelerCount *int
	// TravelerCountText is the raw form value, used when TravelerCount is nil.
	TravelerCountText *string
	TravelerInfo      *TravelerInfo
}

// SelectPackage starts (or restarts) the details step for p.
func (f *Flow) SelectPackage(ctx context.Context, p *catalog.Package) Draft {
	id := p.ID
	return f.store.Update(ctx, Patch{PackageID: &id, Package: p})
}

// Patch autosaves form values without validating them. Traveler counts are
// clamped so an out-of-range count is never stored.
func (f *Flow) Patch(ctx context.Context, in DraftInput) Draft {
	v := f.navigator.Validator()
	p := Patch{TravelerInfo: in.TravelerInfo}
	switch {
	case in.TravelerCount != nil:
		n := v.ClampTravelers(*in.TravelerCount)
		p.TravelerCount = &n
	case in.TravelerCountText != nil:
		n := v.ParseTravelers(*in.TravelerCountText)
		p.TravelerCount = &n
	}
	if in.TravelDate != nil {
		date := strings.TrimSpace(*in.TravelDate)
		p.TravelDate = &date
	}
	return f.store.Update(ctx, p)
}

// Enter runs the guard for step against the current draft.
func (f *Flow) Enter(ctx context.Context, step Step, authenticated bool) Decision {
	access := Access{Authenticated: authenticated}
	if step == StepConfirmation && f.slot != nil {
		access.PendingConfirmation = f.slot.Pending(ctx)
	}
	return f.navigator.Enter(step, f.store.Get(), access)
}

// Advance validates what step collects and, when valid, enters the following step.
// Field errors keep the caller on step.
func (f *Flow) Advance(ctx context.Context, from Step, authenticated bool) (Decision, FieldErrors) {
	v := f.navigator.Validator()
	d := f.store.Get()

	var fe FieldErrors
	switch from {
	case StepDetails:
		fe = v.ValidateDetails(d)
	case StepTravelers:
		fe = v.ValidateTravelerInfo(d.TravelerInfo)
	}
	if len(fe) > 0 {
		return Decision{Step: from}, fe
	}

	next, ok := from.Next()
	if !ok {
		return f.Enter(ctx, from, authenticated), nil
	}
	return f.Enter(ctx, next, authenticated), nil
}

// PaymentOutcome is what the payment step shows after a submission.
// Exactly one of Decision (not allowed), Errors, or Result is meaningful.
type PaymentOutcome struct {
	Decision Decision
	Errors   FieldErrors
	Result   PaymentResult
	Draft    Draft
	// Resumed is set when an earlier successful payment was recorded again
	// instead of charging a second time.
	Resumed bool
}

// PaymentSubmission is the payment step's form.
type PaymentSubmission struct {
	Owner         uint
	Authenticated bool
	AuthToken     string
	Details       PaymentDetails
}

// SubmitPayment validates the card, settles the draft through the gateway and
// records a successful booking. The settlement outlives ctx's cancellation.
// The booking is recorded from the draft as it was charged, whatever is
// autosaved while the gateway runs.
func (f *Flow) SubmitPayment(ctx context.Context, sub PaymentSubmission) (PaymentOutcome, error) {
	if !f.acquire() {
		return PaymentOutcome{}, ErrPaymentInProgress
	}
	defer f.release()

	current, gen := f.store.snapshot()
	if sub.Authenticated && current.Status == StatusConfirmed && current.BookingReference != "" {
		return f.resumeSettlement(ctx, sub.Owner, current, gen), nil
	}

	decision := f.Enter(ctx, StepPayment, sub.Authenticated)
	if !decision.Allowed {
		return PaymentOutcome{Decision: decision, Draft: current}, nil
	}

	if fe := f.navigator.Validator().ValidatePayment(sub.Details); len(fe) > 0 {
		return PaymentOutcome{Decision: decision, Errors: fe, Draft: current}, nil
	}

	method := sub.Details.Method
	if method == "" {
		method = DefaultPaymentMethod
	}
	d := f.store.Update(ctx, Patch{PaymentMethod: &method})

	detached := context.WithoutCancel(ctx)
	result, err := f.gateway.Submit(detached, PaymentRequest{
		Details:   sub.Details,
		Amount:    d.TotalAmount,
		Draft:     d,
		AuthToken: sub.AuthToken,
	})
	if err != nil {
		return PaymentOutcome{Decision: decision, Draft: f.store.Get()}, err
	}

	if !result.Success {
		failed, ok := f.store.setOutcome(detached, gen, StatusPaymentFailed, "")
		if !ok {
			failed = f.store.Get()
		}
		return PaymentOutcome{Decision: decision, Result: result, Draft: failed}, nil
	}

	confirmed := d
	confirmed.Status = StatusConfirmed
	confirmed.BookingReference = result.BookingReference
	confirmed.UpdatedAt = f.store.clock.Now()
	// a reset mid-flight leaves the new draft alone; the snapshot is still recorded
	f.store.confirm(detached, gen, confirmed)
	f.recorder.Record(detached, sub.Owner, confirmed, gen)

	return PaymentOutcome{Decision: decision, Result: result, Draft: confirmed}, nil
}

// resumeSettlement records a draft that was paid for but never reached the
// history. The gateway is not called again.
func (f *Flow) resumeSettlement(ctx context.Context, owner uint, d Draft, gen uint64) PaymentOutcome {
	if d.PaymentMethod == "" {
		d.PaymentMethod = DefaultPaymentMethod
	}
	f.recorder.Record(context.WithoutCancel(ctx), owner, d, gen)
	return PaymentOutcome{
		Decision: Decision{Step: StepPayment, Allowed: true},
		Result:   PaymentResult{Success: true, BookingReference: d.BookingReference},
		Draft:    d,
		Resumed:  true,
	}
}

// TakeConfirmation hands out the latest confirmation summary exactly once.
func (f *Flow) TakeConfirmation(ctx context.Context) (Confirmation, bool, error) {
	if f.slot == nil {
		return Confirmation{}, false, nil
	}
	return f.slot.Take(ctx)
}

func (f *Flow) Reset(ctx context.Context) { f.store.Reset(ctx) }

func (f *Flow) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *Flow) acquire() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return false
	}
	f.busy = true
	return true
}

func (f *Flow) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
}

// Dependencies wires the per-session parts of a Flow.
type Dependencies struct {
	Navigator *Navigator
	Gateway   PaymentGateway
	History   History
	Mirror    func(session string) DraftPersistence
	Slot      func(session string) ConfirmationSlot
	Clock     Clock
}

// Registry owns the flows of all live sessions.
type Registry struct {
	deps Dependencies

	mu    sync.Mutex
	flows map[string]*registryEntry
}

type registryEntry struct {
	flow     *Flow
	refs     int
	lastSeen time.Time
}

func NewRegistry(deps Dependencies) *Registry {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	return &Registry{deps: deps, flows: make(map[string]*registryEntry)}
}

// Acquire returns the flow of session for owner (zero when anonymous),
// restoring its draft from the mirror when it is not held in memory. The flow
// stays in memory until release is called. A session claimed by another
// account is refused with ErrSessionOwner.
func (r *Registry) Acquire(ctx context.Context, session string, owner uint) (*Flow, func(), error) {
	e := r.entry(ctx, session)
	release := r.releaser(e)
	if err := e.flow.store.Claim(ctx, owner); err != nil {
		release()
		return nil, nil, err
	}
	return e.flow, release, nil
}

func (r *Registry) entry(ctx context.Context, session string) *registryEntry {
	r.mu.Lock()
	if e, ok := r.flows[session]; ok {
		e.refs++
		e.lastSeen = r.deps.Clock.Now()
		r.mu.Unlock()
		return e
	}
	r.mu.Unlock()

	// the mirror is read without holding the registry lock
	flow := r.newFlow(ctx, session)

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.flows[session]
	if !ok {
		e = &registryEntry{flow: flow}
		r.flows[session] = e
	}
	e.refs++
	e.lastSeen = r.deps.Clock.Now()
	return e
}

func (r *Registry) newFlow(ctx context.Context, session string) *Flow {
	var mirror DraftPersistence
	if r.deps.Mirror != nil {
		mirror = r.deps.Mirror(session)
	}
	var slot ConfirmationSlot
	if r.deps.Slot != nil {
		slot = r.deps.Slot(session)
	}

	store := NewStore(mirror, r.deps.Clock)
	store.Restore(ctx)
	recorder := NewRecorder(r.deps.History, slot, store, r.deps.Clock)
	return NewFlow(store, r.deps.Navigator, r.deps.Gateway, recorder, slot)
}

func (r *Registry) releaser(e *registryEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			e.refs--
			e.lastSeen = r.deps.Clock.Now()
		})
	}
}

// Sweep drops flows idle for longer than idle from memory. Their mirrors are
// kept, so a later Acquire restores them. Flows still held by a caller are kept.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.deps.Clock.Now().Add(-idle)
	removed := 0
	for key, e := range r.flows {
		if e.refs > 0 || e.flow.Busy() || !e.lastSeen.Before(cutoff) {
			continue
		}
		delete(r.flows, key)
		removed++
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}
