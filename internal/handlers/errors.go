package handlers

import (
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/kdilshan5712/igolanka-booking/internal/booking"
)

// StatusError is returned for flow outcomes the client acts on: redirects
// (Location set), declined payments and conflicting submissions.
type StatusError struct {
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Location  string `json:"location,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e *StatusError) Error() string  { return e.Detail }
func (e *StatusError) GetStatus() int { return e.Status }

// Paths are the client locations the API redirects to.
type Paths struct {
	Login       string
	VerifyEmail string
	Catalog     string
}

func loginRedirect(paths Paths, returnTo string) *StatusError {
	return &StatusError{
		Status:   http.StatusUnauthorized,
		Detail:   "Please sign in to continue your booking",
		Location: paths.Login + "?return_to=" + url.QueryEscape(returnTo),
		Reason:   string(booking.ReasonUnauthenticated),
	}
}

func verifyRedirect(paths Paths, returnTo string) *StatusError {
	return &StatusError{
		Status:   http.StatusForbidden,
		Detail:   "Please verify your email address before booking",
		Location: paths.VerifyEmail + "?return_to=" + url.QueryEscape(returnTo),
		Reason:   "email_not_verified",
	}
}

func catalogRedirect(paths Paths, detail string) *StatusError {
	return &StatusError{
		Status:   http.StatusNotFound,
		Detail:   detail,
		Location: paths.Catalog,
		Reason:   string(booking.ReasonMissingPackage),
	}
}

func sessionOwnerError(paths Paths) *StatusError {
	return &StatusError{
		Status:   http.StatusForbidden,
		Detail:   "This booking session belongs to another account",
		Location: paths.Catalog,
		Reason:   "session_owner_mismatch",
	}
}

// decisionError turns a refused step entry into the matching redirect.
func decisionError(d booking.Decision) *StatusError {
	status := http.StatusConflict
	detail := "This step is not available yet"
	switch d.Reason {
	case booking.ReasonUnauthenticated:
		status = http.StatusUnauthorized
		detail = "Please sign in to continue your booking"
	case booking.ReasonMissingPackage:
		detail = "Please choose a tour package first"
	case booking.ReasonIncompleteDetails:
		detail = "Please choose a travel date and number of travelers"
	case booking.ReasonIncompleteTraveler:
		detail = "Please complete the traveler details"
	case booking.ReasonNotConfirmed:
		detail = "There is no confirmed booking to show"
	case booking.ReasonAlreadyConfirmed:
		detail = "This booking has already been paid for"
	}
	return &StatusError{Status: status, Detail: detail, Location: d.Redirect, Reason: string(d.Reason)}
}

func fieldErrors(fe booking.FieldErrors) error {
	details := make([]error, 0, len(fe))
	for _, field := range fe.Fields() {
		details = append(details, &huma.ErrorDetail{
			Message:  fe[field],
			Location: "body." + field,
		})
	}
	return huma.Error422UnprocessableEntity("Please correct the highlighted fields", details...)
}
