package booking

import (
	"fmt"
	"net/url"
)

type Step string

const (
	StepDetails      Step = "details"
	StepTravelers    Step = "travelers"
	StepPayment      Step = "payment"
	StepConfirmation Step = "confirmation"
)

var stepOrder = []Step{StepDetails, StepTravelers, StepPayment, StepConfirmation}

// ParseStep resolves a path segment to a Step.
func ParseStep(s string) (Step, bool) {
	for _, st := range stepOrder {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Next returns the step following s, or false for the last one.
func (s Step) Next() (Step, bool) {
	for i, st := range stepOrder {
		if st == s && i+1 < len(stepOrder) {
			return stepOrder[i+1], true
		}
	}
	return "", false
}

// Reason tells the caller why a step could not be entered.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonUnauthenticated    Reason = "unauthenticated"
	ReasonMissingPackage     Reason = "missing_package"
	ReasonIncompleteDetails  Reason = "incomplete_details"
	ReasonIncompleteTraveler Reason = "incomplete_traveler_info"
	ReasonNotConfirmed       Reason = "not_confirmed"
	ReasonAlreadyConfirmed   Reason = "already_confirmed"
)

// Decision is the outcome of a step guard.
type Decision struct {
	Step     Step   `json:"step"`
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
	Reason   Reason `json:"reason,omitempty"`
}

// Access describes the caller's situation when entering a step.
type Access struct {
	Authenticated       bool
	PendingConfirmation bool
}

// Paths are the locations the navigator redirects to.
type Paths struct {
	Login   string
	Catalog string
}

func DefaultPaths() Paths {
	return Paths{Login: "/auth/discord/login", Catalog: "/packages"}
}

// StepPath is the client-facing location of a step.
func StepPath(s Step, packageID string) string {
	if s == StepDetails && packageID != "" {
		return fmt.Sprintf("/packages/%s/book", url.PathEscape(packageID))
	}
	return "/booking/" + string(s)
}

// Navigator guards entry into each step of the flow.
type Navigator struct {
	validator Validator
	paths     Paths
}

func NewNavigator(v Validator, paths Paths) *Navigator {
	return &Navigator{validator: v, paths: paths}
}

func (n *Navigator) Validator() Validator { return n.validator }

// Enter decides whether the draft may be shown at step. It never mutates the draft,
// so asking again with the same input always yields the same answer.
func (n *Navigator) Enter(step Step, d Draft, a Access) Decision {
	switch step {
	case StepDetails:
		if !a.Authenticated {
			return n.toLogin(step, StepPath(StepDetails, d.PackageID))
		}
	case StepTravelers:
		if !d.HasPackage() {
			return n.toDetails(step, d, ReasonMissingPackage)
		}
	case StepPayment:
		if !a.Authenticated {
			return n.toLogin(step, StepPath(StepPayment, ""))
		}
		if d.Status == StatusConfirmed {
			return redirect(step, StepPath(StepConfirmation, ""), ReasonAlreadyConfirmed)
		}
		if !d.HasPackage() {
			return n.toDetails(step, d, ReasonMissingPackage)
		}
		if len(n.validator.ValidateTravelDate(d.TravelDate)) > 0 || len(n.validator.ValidateTravelerCount(d.TravelerCount)) > 0 {
			return redirect(step, StepPath(StepTravelers, ""), ReasonIncompleteDetails)
		}
		if len(n.validator.ValidateTravelerInfo(d.TravelerInfo)) > 0 {
			return redirect(step, StepPath(StepTravelers, ""), ReasonIncompleteTraveler)
		}
	case StepConfirmation:
		if d.Status != StatusConfirmed && !a.PendingConfirmation {
			return n.toDetails(step, d, ReasonNotConfirmed)
		}
	}
	return Decision{Step: step, Allowed: true}
}

func (n *Navigator) toLogin(step Step, returnTo string) Decision {
	return redirect(step, n.paths.Login+"?return_to="+url.QueryEscape(returnTo), ReasonUnauthenticated)
}

func (n *Navigator) toDetails(step Step, d Draft, reason Reason) Decision {
	if d.PackageID == "" {
		return redirect(step, n.paths.Catalog, reason)
	}
	return redirect(step, StepPath(StepDetails, d.PackageID), reason)
}

func redirect(step Step, to string, reason Reason) Decision {
	return Decision{Step: step, Redirect: to, Reason: reason}
}
