/**
 * @description
 * This package wraps the payment provider's payment-confirmation primitive.
 * Given the short-lived client secret issued for an embedded payment, it
 * confirms the underlying PaymentIntent and reports the provider's status
 * and reference id back to the checkout orchestrator.
 *
 * @dependencies
 * - github.com/stripe/stripe-go/v79: The official Stripe Go SDK.
 */
package stripeclient

import (
	"context"
	"errors"
	"strings"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// ErrBadClientSecret is returned when the client secret does not carry a
// recognizable PaymentIntent id.
var ErrBadClientSecret = errors.New("client secret does not reference a payment intent")

// ConfirmResult is the provider's verdict on a confirmation attempt.
type ConfirmResult struct {
	ProviderRef string // the PaymentIntent id, usable as a fallback donation reference
	Status      string
	Message     string // provider-supplied failure message, verbatim
}

// Succeeded reports whether the provider considers the payment complete.
func (r *ConfirmResult) Succeeded() bool {
	return r.Status == string(stripe.PaymentIntentStatusSucceeded)
}

// Confirmer confirms embedded payments against the Stripe API.
type Confirmer struct {
	api *client.API
}

// NewConfirmer creates a Confirmer authenticated with the secret key.
func NewConfirmer(secretKey string) *Confirmer {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Confirmer{api: api}
}

// Confirm confirms the PaymentIntent referenced by clientSecret. returnURL
// is where the provider sends the browser after any off-site authentication
// step.
func (c *Confirmer) Confirm(ctx context.Context, clientSecret, returnURL string) (*ConfirmResult, error) {
	intentID, ok := intentIDFromSecret(clientSecret)
	if !ok {
		return nil, ErrBadClientSecret
	}

	params := &stripe.PaymentIntentConfirmParams{
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		// Stripe errors carry a user-presentable message; surface it.
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return &ConfirmResult{Status: "failed", Message: stripeErr.Msg}, nil
		}
		return nil, err
	}

	return &ConfirmResult{
		ProviderRef: pi.ID,
		Status:      string(pi.Status),
	}, nil
}

// intentIDFromSecret extracts the PaymentIntent id from a client secret of
// the form "pi_XXX_secret_YYY".
func intentIDFromSecret(secret string) (string, bool) {
	idx := strings.Index(secret, "_secret")
	if idx <= 0 {
		return "", false
	}
	return secret[:idx], true
}
