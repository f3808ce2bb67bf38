package booking

import (
	"time"

	"github.com/kdilshan5712/igolanka-booking/internal/catalog"
)

type Status string

const (
	StatusDraft         Status = "draft"
	StatusPaymentFailed Status = "paymentFailed"
	StatusConfirmed     Status = "confirmed"
)

// TravelDateLayout is the wire and storage format of Draft.TravelDate.
const TravelDateLayout = "2006-01-02"

type TravelerInfo struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	SpecialRequests string `json:"specialRequests,omitempty"`
}

// PaymentDetails are the card-like fields typed on the payment step.
// They live only for the duration of one submission and are never persisted.
type PaymentDetails struct {
	Method         string
	CardNumber     string
	CardholderName string
	Expiry         string
	CVV            string
}

// Last4 returns the last four card digits, used for display after submission.
func (p PaymentDetails) Last4() string {
	digits := stripSpaces(p.CardNumber)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// Draft is the in-progress booking of one session.
type Draft struct {
	PackageID        string
	Package          *catalog.Package
	TravelDate       string
	TravelerCount    int
	TravelerInfo     TravelerInfo
	PaymentMethod    string
	TotalAmount      float64
	Status           Status
	BookingReference string
	// Owner is the account the session was first used by; zero until claimed.
	Owner     uint
	UpdatedAt time.Time
}

// NewDraft returns an empty draft with a single traveler.
func NewDraft() Draft {
	return Draft{TravelerCount: 1, Status: StatusDraft}
}

// HasPackage reports whether a package has been selected and snapshotted.
func (d Draft) HasPackage() bool {
	return d.PackageID != "" && d.Package != nil
}

func (d *Draft) recomputeTotal() {
	if d.Package == nil {
		d.TotalAmount = 0
		return
	}
	d.TotalAmount = d.Package.Price * float64(d.TravelerCount)
}

// Patch is a partial update of a Draft. Nil fields are left untouched.
type Patch struct {
	PackageID     *string
	Package       *catalog.Package
	TravelDate    *string
	TravelerCount *int
	TravelerInfo  *TravelerInfo
	PaymentMethod *string
}

func (p Patch) apply(d *Draft) (priceChanged bool) {
	if p.PackageID != nil && *p.PackageID != d.PackageID {
		// a snapshot of another package is stale
		d.PackageID = *p.PackageID
		d.Package = nil
		priceChanged = true
	}
	if p.Package != nil {
		snap := *p.Package
		d.Package = &snap
		priceChanged = true
	}
	if p.TravelDate != nil {
		d.TravelDate = *p.TravelDate
	}
	if p.TravelerCount != nil {
		priceChanged = priceChanged || *p.TravelerCount != d.TravelerCount
		d.TravelerCount = *p.TravelerCount
	}
	if p.TravelerInfo != nil {
		d.TravelerInfo = *p.TravelerInfo
	}
	if p.PaymentMethod != nil {
		d.PaymentMethod = *p.PaymentMethod
	}
	return priceChanged
}
