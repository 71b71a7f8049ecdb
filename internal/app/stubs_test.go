package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/MagicForestApp/donate-hub/internal/config"
	"github.com/MagicForestApp/donate-hub/internal/domain"
	"github.com/MagicForestApp/donate-hub/pkg/forestapi"
	"github.com/MagicForestApp/donate-hub/pkg/stripeclient"
)

// stubBackend implements the backend interfaces with overridable funcs.
type stubBackend struct {
	createCheckoutSession func(ctx context.Context, amount int, email string) (string, error)
	createSubscription    func(ctx context.Context, plan, email string) (string, error)
	createDonation        func(ctx context.Context, req forestapi.CreateDonationRequest) (string, error)
	getCheckoutSession    func(ctx context.Context, sessionID string) (*forestapi.CheckoutSessionDetails, error)
	getDonation           func(ctx context.Context, id string) (*domain.Donation, error)
	createTree            func(ctx context.Context, req forestapi.CreateTreeRequest) (*domain.TreeMarker, error)
	totalDonations        func(ctx context.Context) (float64, error)
}

var errUnexpectedCall = errors.New("unexpected backend call")

func (s *stubBackend) CreateCheckoutSession(ctx context.Context, amount int, email string) (string, error) {
	if s.createCheckoutSession == nil {
		return "", errUnexpectedCall
	}
	return s.createCheckoutSession(ctx, amount, email)
}

func (s *stubBackend) CreateSubscription(ctx context.Context, plan, email string) (string, error) {
	if s.createSubscription == nil {
		return "", errUnexpectedCall
	}
	return s.createSubscription(ctx, plan, email)
}

func (s *stubBackend) CreateDonation(ctx context.Context, req forestapi.CreateDonationRequest) (string, error) {
	if s.createDonation == nil {
		return "", errUnexpectedCall
	}
	return s.createDonation(ctx, req)
}

func (s *stubBackend) GetCheckoutSession(ctx context.Context, sessionID string) (*forestapi.CheckoutSessionDetails, error) {
	if s.getCheckoutSession == nil {
		return nil, errUnexpectedCall
	}
	return s.getCheckoutSession(ctx, sessionID)
}

func (s *stubBackend) GetDonation(ctx context.Context, id string) (*domain.Donation, error) {
	if s.getDonation == nil {
		return nil, errUnexpectedCall
	}
	return s.getDonation(ctx, id)
}

func (s *stubBackend) CreateTree(ctx context.Context, req forestapi.CreateTreeRequest) (*domain.TreeMarker, error) {
	if s.createTree == nil {
		return nil, errUnexpectedCall
	}
	return s.createTree(ctx, req)
}

func (s *stubBackend) TotalDonations(ctx context.Context) (float64, error) {
	if s.totalDonations == nil {
		return 0, errUnexpectedCall
	}
	return s.totalDonations(ctx)
}

// stubConfirmer implements PaymentConfirmer.
type stubConfirmer struct {
	confirm func(ctx context.Context, clientSecret, returnURL string) (*stripeclient.ConfirmResult, error)
}

func (s *stubConfirmer) Confirm(ctx context.Context, clientSecret, returnURL string) (*stripeclient.ConfirmResult, error) {
	if s.confirm == nil {
		return nil, errUnexpectedCall
	}
	return s.confirm(ctx, clientSecret, returnURL)
}

// recordingPublisher captures published observability events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	routingKey string
	body       interface{}
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{routingKey: routingKey, body: body})
	return nil
}

func (p *recordingPublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedEvent, len(p.events))
	copy(out, p.events)
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(mode string) *config.Config {
	return &config.Config{
		AppBaseURL: "http://app.test",
		StripeMode: mode,
	}
}
