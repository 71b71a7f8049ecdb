/**
 * @description
 * This file contains the checkout orchestrator: a per-session state machine
 * that routes a validated donation intent through one of the payment paths
 * and ends in a handoff, either a full navigation to the provider's hosted
 * page or a confirmation reference for the confirmation page.
 *
 * Payment paths:
 *   - hosted one-time / hosted subscription: the backend creates a provider
 *     checkout session and the browser is handed the provider URL. After
 *     that navigation this process holds no further state for the attempt.
 *   - embedded: a provider client secret already exists (resumed session);
 *     the provider confirmation primitive settles the payment while the
 *     donor stays on our page.
 *
 * The provider is the source of truth for money movement. A donation-record
 * write that fails after a successful payment is absorbed, logged, and
 * published as an observability event, never surfaced to the donor.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MagicForestApp/donate-hub/internal/config"
	"github.com/MagicForestApp/donate-hub/internal/domain"
	"github.com/MagicForestApp/donate-hub/pkg/forestapi"
	"github.com/MagicForestApp/donate-hub/pkg/stripeclient"
)

// DemoFallbackDelay is how long the orchestrator waits before synthesizing
// a donation reference when hosted-session creation fails in demo mode.
const DemoFallbackDelay = 2 * time.Second

// DemoRefPrefix marks synthetic donation references produced by the demo
// fallback so they are never mistaken for a real payment outcome.
const DemoRefPrefix = "demo-"

var (
	// ErrSubmissionInFlight rejects a second payment submission while one
	// is still settling.
	ErrSubmissionInFlight = errors.New("a payment submission is already in progress")

	// ErrInvalidStep rejects an operation the current step does not allow.
	ErrInvalidStep = errors.New("operation not valid in the current checkout step")
)

// ProviderError is a payment-provider failure surfaced verbatim to the
// donor. Recoverable: the donor may retry or cancel.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// CheckoutBackend is the slice of the backend API the orchestrator needs.
type CheckoutBackend interface {
	CreateCheckoutSession(ctx context.Context, amount int, email string) (string, error)
	CreateSubscription(ctx context.Context, plan, email string) (string, error)
	CreateDonation(ctx context.Context, req forestapi.CreateDonationRequest) (string, error)
}

// PaymentConfirmer is the provider's payment-confirmation primitive.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, clientSecret, returnURL string) (*stripeclient.ConfirmResult, error)
}

// EventPublisher publishes observability events. A nil publisher is valid
// and drops events.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}

// Handoff is the terminal outcome of a checkout transition: either a URL
// the browser must navigate to, or a reference the confirmation page can
// resolve. Demo marks references synthesized by the demo fallback.
type Handoff struct {
	RedirectURL     string `json:"redirect_url,omitempty"`
	ConfirmationRef string `json:"confirmation_ref,omitempty"`
	Demo            bool   `json:"demo,omitempty"`
}

// Checkout is one donor's checkout session. It is owned by a single view;
// the mutex only serializes re-submissions, never shares state outward.
type Checkout struct {
	cfg       *config.Config
	backend   CheckoutBackend
	confirmer PaymentConfirmer
	events    EventPublisher
	logger    *slog.Logger

	demoDelay time.Duration
	now       func() time.Time

	mu           sync.Mutex
	step         domain.CheckoutStep
	intent       domain.DonationIntent
	clientSecret string
	errorMessage string
	processing   bool
}

// NewCheckout opens a checkout session in the collecting step.
func NewCheckout(cfg *config.Config, intent domain.DonationIntent, backend CheckoutBackend, confirmer PaymentConfirmer, events EventPublisher, logger *slog.Logger) *Checkout {
	return &Checkout{
		cfg:       cfg,
		backend:   backend,
		confirmer: confirmer,
		events:    events,
		logger:    logger,
		demoDelay: DemoFallbackDelay,
		now:       time.Now,
		step:      domain.StepCollecting,
		intent:    intent,
	}
}

// ResumeEmbedded opens a checkout session directly in the embeddedPayment
// step, bypassing collecting. Used when a provider client secret already
// exists for the intent.
func ResumeEmbedded(cfg *config.Config, intent domain.DonationIntent, clientSecret string, backend CheckoutBackend, confirmer PaymentConfirmer, events EventPublisher, logger *slog.Logger) *Checkout {
	c := NewCheckout(cfg, intent, backend, confirmer, events, logger)
	c.step = domain.StepEmbeddedPayment
	c.clientSecret = clientSecret
	return c
}

// Step returns the current checkout step.
func (c *Checkout) Step() domain.CheckoutStep {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Intent returns the immutable intent this session wraps.
func (c *Checkout) Intent() domain.DonationIntent {
	return c.intent
}

// ErrorMessage returns the last surfaced error, if any.
func (c *Checkout) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorMessage
}

// Proceed moves the session from collecting into the hosted path chosen by
// the intent kind, asks the backend for a provider checkout URL, and hands
// the browser off. When session creation fails and demo mode is active the
// orchestrator waits DemoFallbackDelay, then synthesizes a demo reference
// so the flow can still be exercised.
func (c *Checkout) Proceed(ctx context.Context) (Handoff, error) {
	c.mu.Lock()
	if c.processing {
		c.mu.Unlock()
		return Handoff{}, ErrSubmissionInFlight
	}
	// A hosted step is re-enterable: a failed session creation leaves the
	// donor on the hosted screen and they may retry.
	if c.step == domain.StepEmbeddedPayment {
		c.mu.Unlock()
		return Handoff{}, ErrInvalidStep
	}
	c.processing = true
	c.errorMessage = ""

	intent := c.intent
	if intent.Kind == domain.KindRecurring {
		c.step = domain.StepHostedSubscription
	} else {
		c.step = domain.StepHostedOneTime
	}
	c.mu.Unlock()

	var (
		url string
		err error
	)
	if intent.Kind == domain.KindRecurring {
		url, err = c.backend.CreateSubscription(ctx, string(intent.Plan), intent.Email)
	} else {
		url, err = c.backend.CreateCheckoutSession(ctx, intent.Amount, intent.Email)
	}

	c.mu.Lock()
	c.processing = false
	if err == nil {
		// Terminal from this process's point of view: the browser leaves
		// for the provider's domain.
		c.mu.Unlock()
		return Handoff{RedirectURL: url}, nil
	}
	c.errorMessage = hostedFailureMessage(err)
	message := c.errorMessage
	c.mu.Unlock()

	c.logger.Warn("hosted session creation failed", "kind", intent.Kind, "error", err)

	if !c.cfg.DemoMode() {
		return Handoff{}, &ProviderError{Message: message}
	}

	// Demo fallback: wait, then synthesize a local reference. Clearly
	// distinguished from a real payment outcome by prefix and flag.
	select {
	case <-time.After(c.demoDelay):
	case <-ctx.Done():
		return Handoff{}, ctx.Err()
	}
	ref := fmt.Sprintf("%s%d", DemoRefPrefix, c.now().UnixMilli())
	c.logger.Info("demo fallback engaged", "ref", ref)
	return Handoff{ConfirmationRef: ref, Demo: true}, nil
}

// ConfirmEmbedded settles an embedded payment through the provider
// confirmation primitive. On success it records the donation with the
// backend; if that write fails, payment success still wins and the
// provider's own reference becomes the confirmation ref.
func (c *Checkout) ConfirmEmbedded(ctx context.Context) (Handoff, error) {
	c.mu.Lock()
	if c.processing {
		c.mu.Unlock()
		return Handoff{}, ErrSubmissionInFlight
	}
	if c.step != domain.StepEmbeddedPayment || c.clientSecret == "" {
		c.mu.Unlock()
		return Handoff{}, ErrInvalidStep
	}
	c.processing = true
	c.errorMessage = ""
	secret := c.clientSecret
	intent := c.intent
	c.mu.Unlock()

	returnURL := c.cfg.AppBaseURL + "/confirmation"
	result, err := c.confirmer.Confirm(ctx, secret, returnURL)

	c.mu.Lock()
	c.processing = false
	if err != nil {
		c.errorMessage = "Something went wrong with your payment. Please try again."
		c.mu.Unlock()
		return Handoff{}, fmt.Errorf("payment confirmation failed: %w", err)
	}
	if !result.Succeeded() {
		message := result.Message
		if message == "" {
			message = "Something went wrong with your payment. Please try again."
		}
		c.errorMessage = message
		c.mu.Unlock()
		return Handoff{}, &ProviderError{Message: message}
	}
	c.mu.Unlock()

	ref := c.recordDonation(ctx, intent, result.ProviderRef)
	return Handoff{ConfirmationRef: ref}, nil
}

// recordDonation writes the donation to the backend ledger. The write is
// subordinate to the already-settled payment: on failure the provider
// reference stands in for the ledger id.
func (c *Checkout) recordDonation(ctx context.Context, intent domain.DonationIntent, providerRef string) string {
	var plan *string
	if intent.Kind == domain.KindRecurring {
		p := string(intent.Plan)
		plan = &p
	}

	id, err := c.backend.CreateDonation(ctx, forestapi.CreateDonationRequest{
		Type:          string(intent.Kind),
		Amount:        float64(intent.Amount),
		Plan:          plan,
		Email:         intent.Email,
		PaymentStatus: "succeeded",
		SessionID:     providerRef,
	})
	if err == nil {
		return id
	}

	c.logger.Warn("donation record write failed after successful payment",
		"provider_ref", providerRef, "error", err)
	if c.events != nil {
		event := map[string]interface{}{
			"provider_ref": providerRef,
			"amount":       intent.Amount,
			"type":         intent.Kind,
			"error":        err.Error(),
			"occurred_at":  c.now().UTC(),
		}
		if pubErr := c.events.Publish(ctx, "donation.record_failed", event); pubErr != nil {
			c.logger.Warn("failed to publish donation.record_failed event", "error", pubErr)
		}
	}
	return providerRef
}

// Cancel returns the session to the collecting step, discarding the client
// secret and any surfaced error.
func (c *Checkout) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = domain.StepCollecting
	c.clientSecret = ""
	c.errorMessage = ""
	c.processing = false
}

// hostedFailureMessage maps a session-creation failure to the message shown
// to the donor. Backend-provided detail is surfaced verbatim.
func hostedFailureMessage(err error) string {
	var statusErr *forestapi.StatusError
	if errors.As(err, &statusErr) && statusErr.Detail != "" {
		return statusErr.Detail
	}
	if errors.As(err, &statusErr) {
		return "Stripe payment processing unavailable in demo mode"
	}
	return "An error occurred. Please try again."
}
