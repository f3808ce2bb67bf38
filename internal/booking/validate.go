package booking

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	MinTravelers = 1
	MaxTravelers = 20
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9+\-\s()]+$`)
	digitsOnly   = regexp.MustCompile(`^[0-9]+$`)
	expiryFormat = regexp.MustCompile(`^([0-9]{2})/([0-9]{2})$`)
)

// FieldErrors maps a field name to a user-facing message. A nil or empty
// FieldErrors means the input is valid.
type FieldErrors map[string]string

func (fe FieldErrors) add(field, msg string) FieldErrors {
	if fe == nil {
		fe = FieldErrors{}
	}
	if _, exists := fe[field]; !exists {
		fe[field] = msg
	}
	return fe
}

func (fe FieldErrors) merge(other FieldErrors) FieldErrors {
	for f, m := range other {
		fe = fe.add(f, m)
	}
	return fe
}

// Fields returns the offending field names in a stable order.
func (fe FieldErrors) Fields() []string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Validator checks user input for each step against an injected clock.
type Validator struct {
	Clock        Clock
	MaxTravelers int
}

func NewValidator(clock Clock, maxTravelers int) Validator {
	if clock == nil {
		clock = SystemClock{}
	}
	if maxTravelers < MinTravelers {
		maxTravelers = MaxTravelers
	}
	return Validator{Clock: clock, MaxTravelers: maxTravelers}
}

// ValidateTravelDate accepts dates from today (midnight) onwards.
func (v Validator) ValidateTravelDate(value string) FieldErrors {
	if strings.TrimSpace(value) == "" {
		return FieldErrors{"travelDate": "travel date is required"}
	}
	now := v.Clock.Now()
	date, err := time.ParseInLocation(TravelDateLayout, value, now.Location())
	if err != nil {
		return FieldErrors{"travelDate": "travel date must be a valid date (YYYY-MM-DD)"}
	}
	if date.Before(startOfDay(now)) {
		return FieldErrors{"travelDate": "travel date cannot be in the past"}
	}
	return nil
}

// ClampTravelers keeps n within [1, MaxTravelers].
func (v Validator) ClampTravelers(n int) int {
	limit := v.maxTravelers()
	if n < MinTravelers {
		return MinTravelers
	}
	if n > limit {
		return limit
	}
	return n
}

func (v Validator) maxTravelers() int {
	if v.MaxTravelers < MinTravelers {
		return MaxTravelers
	}
	return v.MaxTravelers
}

// ParseTravelers clamps free-form input; anything that is not an integer becomes 1.
func (v Validator) ParseTravelers(input string) int {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return MinTravelers
	}
	return v.ClampTravelers(n)
}

// ValidateTravelerCount rejects counts the clamp would have changed.
func (v Validator) ValidateTravelerCount(n int) FieldErrors {
	if n != v.ClampTravelers(n) {
		return FieldErrors{"travelerCount": fmt.Sprintf("traveler count must be between %d and %d", MinTravelers, v.maxTravelers())}
	}
	return nil
}

// ValidateDetails checks what the details step collects.
func (v Validator) ValidateDetails(d Draft) FieldErrors {
	var fe FieldErrors
	if d.PackageID == "" {
		fe = fe.add("packageId", "please select a package")
	}
	fe = fe.merge(v.ValidateTravelDate(d.TravelDate))
	fe = fe.merge(v.ValidateTravelerCount(d.TravelerCount))
	return fe
}

// ValidateTravelerInfo checks the contact details of the lead traveler.
func (v Validator) ValidateTravelerInfo(info TravelerInfo) FieldErrors {
	var fe FieldErrors
	if strings.TrimSpace(info.FullName) == "" {
		fe = fe.add("fullName", "full name is required")
	}
	switch email := strings.TrimSpace(info.Email); {
	case email == "":
		fe = fe.add("email", "email is required")
	case !emailPattern.MatchString(email):
		fe = fe.add("email", "please enter a valid email address")
	}
	switch phone := strings.TrimSpace(info.Phone); {
	case phone == "":
		fe = fe.add("phone", "phone number is required")
	case !phonePattern.MatchString(phone):
		fe = fe.add("phone", "please enter a valid phone number")
	}
	return fe
}

// ValidatePayment checks card fields before anything is sent to a gateway.
func (v Validator) ValidatePayment(p PaymentDetails) FieldErrors {
	var fe FieldErrors

	number := stripSpaces(p.CardNumber)
	switch {
	case number == "":
		fe = fe.add("cardNumber", "card number is required")
	case !digitsOnly.MatchString(number) || len(number) < 15 || len(number) > 16:
		fe = fe.add("cardNumber", "card number must be 15 or 16 digits")
	}

	if strings.TrimSpace(p.CardholderName) == "" {
		fe = fe.add("cardholderName", "cardholder name is required")
	}

	if msg := v.expiryError(strings.TrimSpace(p.Expiry)); msg != "" {
		fe = fe.add("expiry", msg)
	}

	cvv := strings.TrimSpace(p.CVV)
	if !digitsOnly.MatchString(cvv) || len(cvv) < 3 || len(cvv) > 4 {
		fe = fe.add("cvv", "CVV must be 3 or 4 digits")
	}
	return fe
}

func (v Validator) expiryError(expiry string) string {
	m := expiryFormat.FindStringSubmatch(expiry)
	if m == nil {
		return "expiry must be in MM/YY format"
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return "invalid expiry month"
	}
	now := v.Clock.Now()
	curYear := now.Year() % 100
	curMonth := int(now.Month())
	if year < curYear || (year == curYear && month < curMonth) {
		return "card has expired"
	}
	return ""
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
