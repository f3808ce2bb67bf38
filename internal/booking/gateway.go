package booking

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand"
	"strings"
	"sync"
	"time"
)

var (
	ErrEmailNotVerified  = errors.New("email not verified")
	ErrPaymentInProgress = errors.New("payment already in progress")
	ErrSessionOwner      = errors.New("booking session belongs to another account")
)

const (
	DefaultReferencePrefix = "IGL"
	referenceSuffixLen     = 9
	referenceAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// PaymentRequest is everything a gateway needs to settle one draft.
type PaymentRequest struct {
	Details   PaymentDetails
	Amount    float64
	Draft     Draft
	AuthToken string
}

// PaymentResult is identical whichever gateway produced it.
type PaymentResult struct {
	Success          bool
	BookingReference string
	Message          string
	Retryable        bool
}

func declined(msg string, retryable bool) PaymentResult {
	return PaymentResult{Success: false, Message: msg, Retryable: retryable}
}

// PaymentGateway settles a payment. Declines are results, not errors; an error
// means the caller must leave the payment step (see ErrEmailNotVerified).
type PaymentGateway interface {
	Submit(ctx context.Context, req PaymentRequest) (PaymentResult, error)
}

// ReferenceGenerator mints human-shareable booking references of the form
// PREFIX-<unix millis>-<9 upper-case alphanumerics>.
type ReferenceGenerator struct {
	Prefix string
	Clock  Clock
}

func (g ReferenceGenerator) Next() string {
	prefix := g.Prefix
	if prefix == "" {
		prefix = DefaultReferencePrefix
	}
	clock := g.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return fmt.Sprintf("%s-%d-%s", prefix, clock.Now().UnixMilli(), randomSuffix(referenceSuffixLen))
}

func randomSuffix(n int) string {
	var sb strings.Builder
	size := big.NewInt(int64(len(referenceAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			sb.WriteByte(referenceAlphabet[mrand.Intn(len(referenceAlphabet))])
			continue
		}
		sb.WriteByte(referenceAlphabet[idx.Int64()])
	}
	return sb.String()
}

// SimulatedGateway approves a fixed share of payments after an artificial delay.
// It backs the demo/offline mode.
type SimulatedGateway struct {
	SuccessRate float64
	Delay       time.Duration
	Jitter      time.Duration
	References  ReferenceGenerator

	mu  sync.Mutex
	rnd *mrand.Rand
}

func NewSimulatedGateway(successRate float64, delay, jitter time.Duration, refs ReferenceGenerator) *SimulatedGateway {
	return &SimulatedGateway{
		SuccessRate: successRate,
		Delay:       delay,
		Jitter:      jitter,
		References:  refs,
		rnd:         mrand.New(mrand.NewSource(time.Now().UnixNano())),
	}
}

// WithSeed makes the outcome sequence reproducible.
func (g *SimulatedGateway) WithSeed(seed int64) *SimulatedGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rnd = mrand.New(mrand.NewSource(seed))
	return g
}

func (g *SimulatedGateway) Submit(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	roll, wait := g.draw()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return declined("payment was interrupted, please try again", true), nil
		case <-timer.C:
		}
	}

	if roll >= g.SuccessRate {
		return declined("Payment declined. Please try another card.", true), nil
	}
	return PaymentResult{Success: true, BookingReference: g.References.Next()}, nil
}

func (g *SimulatedGateway) draw() (float64, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rnd == nil {
		g.rnd = mrand.New(mrand.NewSource(time.Now().UnixNano()))
	}
	wait := g.Delay
	if g.Jitter > 0 {
		wait += time.Duration(g.rnd.Int63n(int64(g.Jitter) + 1))
	}
	return g.rnd.Float64(), wait
}

// BookingCreator is the remote backend's booking endpoint.
type BookingCreator interface {
	CreateBooking(ctx context.Context, req BackendBookingRequest, authToken string) (string, error)
}

type BackendBookingRequest struct {
	PackageID     string `json:"packageId"`
	TravelDate    string `json:"travelDate"`
	TravelerCount int    `json:"travelerCount"`
}

// userFacing is implemented by collaborator errors whose message may be shown verbatim.
type userFacing interface {
	UserMessage() string
}

// BackendGateway delegates settlement to the remote booking backend.
type BackendGateway struct {
	Creator BookingCreator
	Timeout time.Duration
}

func NewBackendGateway(creator BookingCreator, timeout time.Duration) *BackendGateway {
	return &BackendGateway{Creator: creator, Timeout: timeout}
}

func (g *BackendGateway) Submit(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	ref, err := g.Creator.CreateBooking(ctx, BackendBookingRequest{
		PackageID:     req.Draft.PackageID,
		TravelDate:    req.Draft.TravelDate,
		TravelerCount: req.Draft.TravelerCount,
	}, req.AuthToken)

	var uf userFacing
	switch {
	case err == nil && ref == "":
		return declined("the booking service returned an unexpected response, please try again", true), nil
	case err == nil:
		return PaymentResult{Success: true, BookingReference: ref}, nil
	case errors.Is(err, ErrEmailNotVerified):
		return PaymentResult{}, err
	case errors.Is(err, context.DeadlineExceeded):
		return declined("the payment is taking too long, please try again", true), nil
	case errors.As(err, &uf):
		return declined(uf.UserMessage(), false), nil
	default:
		return declined("something went wrong while processing your payment, please try again", true), nil
	}
}
