/**
 * @description
 * This file defines the core domain models for the donation side of the
 * campaign service: the donor's validated intent, the checkout session
 * steps, and the donation facts read back from the backend ledger.
 */
package domain

import (
	"fmt"
	"time"
)

// DonationKind distinguishes one-time donations from monthly recurring ones.
type DonationKind string

const (
	KindOneTime   DonationKind = "one-time"
	KindRecurring DonationKind = "recurring"
)

// Plan is a recurring donation tier. Each tier carries a fixed monthly amount.
type Plan string

const (
	PlanSeedling Plan = "seedling"
	PlanGuardian Plan = "guardian"
	PlanRanger   Plan = "ranger"
)

// PlanAmount returns the fixed monthly amount in whole dollars for a plan.
// The bool is false for unknown plans.
func PlanAmount(p Plan) (int, bool) {
	switch p {
	case PlanSeedling:
		return 5, true
	case PlanGuardian:
		return 15, true
	case PlanRanger:
		return 30, true
	}
	return 0, false
}

// ValidPlan reports whether p is one of the three recurring tiers.
func ValidPlan(p Plan) bool {
	_, ok := PlanAmount(p)
	return ok
}

// DonationIntent is the donor's validated choice of amount/plan/email,
// captured before any payment action. Immutable once built.
type DonationIntent struct {
	Kind   DonationKind
	Amount int // whole dollars; for recurring, derived from the plan
	Plan   Plan
	Email  string
}

// CheckoutStep is the current state of a checkout session.
type CheckoutStep string

const (
	StepCollecting         CheckoutStep = "collecting"
	StepEmbeddedPayment    CheckoutStep = "embeddedPayment"
	StepHostedSubscription CheckoutStep = "hostedSubscription"
	StepHostedOneTime      CheckoutStep = "hostedOneTime"
)

// Donation is the backend's record of a completed donation. The service
// only ever reads these; the backend owns them.
type Donation struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Amount        float64   `json:"amount"`
	Plan          *string   `json:"plan"`
	Email         string    `json:"email,omitempty"`
	PaymentStatus string    `json:"payment_status,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// DonationFacts is what the confirmation page needs to know about a
// donation, resolved from either a processor session or a direct id.
type DonationFacts struct {
	ID        string       `json:"id"`
	Amount    float64      `json:"amount"`
	Type      DonationKind `json:"type"`
	Plan      *string      `json:"plan"`
	Email     string       `json:"email,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// TreeThreshold is the minimum one-time donation that plants a tree.
const TreeThreshold = 10

// Qualifies reports whether a donation earns a tree on the forest map:
// amount at or above the threshold, or any recurring donation.
func Qualifies(amount float64, kind DonationKind) bool {
	return kind == KindRecurring || amount >= TreeThreshold
}

// ValidationError describes a malformed intent field. It is local and
// recoverable: the donor fixes the field and retries.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
