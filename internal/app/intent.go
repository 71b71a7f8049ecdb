/**
 * @description
 * The donation intent builder. It turns the raw form state submitted by a
 * donor into an immutable, validated DonationIntent, or reports a
 * ValidationError for the field that blocks submission. Pure construction;
 * nothing here touches the network.
 */
package app

import (
	"strconv"
	"strings"

	"github.com/MagicForestApp/donate-hub/internal/domain"
)

// DefaultOneTimeAmount is used when a one-time donor submits without
// typing or selecting an amount.
const DefaultOneTimeAmount = 30

// AmountPresets are the quick-select amounts offered next to the free-form
// field. A selected preset overwrites whatever was typed.
var AmountPresets = []int{10, 25, 50, 100}

// FormState is the raw, untrusted state of the donation form.
type FormState struct {
	Kind   string `json:"kind"`
	Amount string `json:"amount"` // free-form text, one-time only
	Preset int    `json:"preset"` // 0 = no preset selected
	Plan   string `json:"plan"`   // recurring only
	Email  string `json:"email"`
}

// BuildIntent validates form state and produces a DonationIntent. The
// returned error, when non-nil, is always a *domain.ValidationError.
func BuildIntent(form FormState) (domain.DonationIntent, error) {
	var intent domain.DonationIntent

	email := strings.TrimSpace(form.Email)
	if email != "" && !strings.Contains(email, "@") {
		return intent, &domain.ValidationError{Field: "email", Message: "must be a valid email address"}
	}

	switch domain.DonationKind(form.Kind) {
	case domain.KindOneTime:
		amount, err := resolveOneTimeAmount(form)
		if err != nil {
			return intent, err
		}
		intent = domain.DonationIntent{
			Kind:   domain.KindOneTime,
			Amount: amount,
			Email:  email,
		}

	case domain.KindRecurring:
		plan := domain.Plan(form.Plan)
		amount, ok := domain.PlanAmount(plan)
		if !ok {
			return intent, &domain.ValidationError{Field: "plan", Message: "must be seedling, guardian or ranger"}
		}
		// Amount is always derived from the plan; a typed amount is ignored.
		intent = domain.DonationIntent{
			Kind:   domain.KindRecurring,
			Amount: amount,
			Plan:   plan,
			Email:  email,
		}

	default:
		return intent, &domain.ValidationError{Field: "kind", Message: "must be one-time or recurring"}
	}

	return intent, nil
}

func resolveOneTimeAmount(form FormState) (int, error) {
	if form.Preset != 0 {
		for _, p := range AmountPresets {
			if form.Preset == p {
				return p, nil
			}
		}
		return 0, &domain.ValidationError{Field: "preset", Message: "unknown preset amount"}
	}

	raw := strings.TrimSpace(form.Amount)
	if raw == "" {
		return DefaultOneTimeAmount, nil
	}

	amount, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Field: "amount", Message: "must be a whole number of dollars"}
	}
	if amount <= 0 {
		return 0, &domain.ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	return amount, nil
}
