/**
 * @description
 * Post-payment confirmation and tree personalization. The resolver turns a
 * resume token (a provider session reference or a direct donation id,
 * carried back from the payment redirect) into canonical donation facts,
 * degrading to fixed demonstration defaults rather than ever failing the
 * page. Personalization is a best-effort write: the donor has already
 * paid, so a failed tree creation is logged and published, never blocking.
 */
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MagicForestApp/donate-hub/internal/domain"
	"github.com/MagicForestApp/donate-hub/pkg/forestapi"
)

// ConfirmationBackend is the slice of the backend API the resolver needs.
type ConfirmationBackend interface {
	GetCheckoutSession(ctx context.Context, sessionID string) (*forestapi.CheckoutSessionDetails, error)
	GetDonation(ctx context.Context, id string) (*domain.Donation, error)
	CreateTree(ctx context.Context, req forestapi.CreateTreeRequest) (*domain.TreeMarker, error)
}

// ResumeToken identifies the donation a returning donor should see. The
// session reference takes priority when both fields are set.
type ResumeToken struct {
	SessionID  string
	DonationID string
}

// PersonalizeRequest is the donor's tree customization.
type PersonalizeRequest struct {
	DonationID string `json:"donation_id"`
	Donor      string `json:"donor"`
	Message    string `json:"message"`
	Species    string `json:"type"`
}

// Resolver resolves donation facts and drives personalization.
type Resolver struct {
	backend ConfirmationBackend
	events  EventPublisher
	logger  *slog.Logger
	now     func() time.Time
}

// NewResolver creates a Resolver.
func NewResolver(backend ConfirmationBackend, events EventPublisher, logger *slog.Logger) *Resolver {
	return &Resolver{backend: backend, events: events, logger: logger, now: time.Now}
}

// Resolve maps a resume token to donation facts. It never returns an
// error: every failure path lands on a degraded-but-usable default.
func (r *Resolver) Resolve(ctx context.Context, token ResumeToken) domain.DonationFacts {
	if token.SessionID != "" {
		session, err := r.backend.GetCheckoutSession(ctx, token.SessionID)
		if err == nil {
			return domain.DonationFacts{
				ID:        session.DonationID,
				Amount:    session.Amount,
				Type:      domain.DonationKind(session.DonationType),
				Plan:      session.Plan,
				Email:     session.CustomerEmail,
				Timestamp: r.now(),
			}
		}
		// Not fatal: fall through to the direct-id lookup.
		r.logger.Warn("checkout session resolution failed", "session_id", token.SessionID, "error", err)
	}

	if token.DonationID != "" {
		donation, err := r.backend.GetDonation(ctx, token.DonationID)
		if err == nil {
			return domain.DonationFacts{
				ID:        donation.ID,
				Amount:    donation.Amount,
				Type:      domain.DonationKind(donation.Type),
				Plan:      donation.Plan,
				Email:     donation.Email,
				Timestamp: r.timestampOr(donation.Timestamp),
			}
		}
		r.logger.Warn("donation resolution failed", "donation_id", token.DonationID, "error", err)

		// The backend answered but had nothing: the demo default. A
		// transport failure keeps the requested id with the larger default.
		var statusErr *forestapi.StatusError
		if !errors.As(err, &statusErr) {
			return domain.DonationFacts{
				ID:        token.DonationID,
				Amount:    30,
				Type:      domain.KindOneTime,
				Timestamp: r.now(),
			}
		}
	}

	return domain.DonationFacts{
		ID:        "demo-donation",
		Amount:    15,
		Type:      domain.KindOneTime,
		Timestamp: r.now(),
	}
}

// Personalize issues the tree-creation request. The returned marker is nil
// when the write failed; callers advance the donor to the forest view
// either way.
func (r *Resolver) Personalize(ctx context.Context, req PersonalizeRequest) *domain.TreeMarker {
	marker, err := r.backend.CreateTree(ctx, forestapi.CreateTreeRequest{
		DonationID: req.DonationID,
		Donor:      req.Donor,
		Message:    req.Message,
		Type:       req.Species,
	})
	if err == nil {
		return marker
	}

	r.logger.Warn("tree creation failed", "donation_id", req.DonationID, "error", err)
	if r.events != nil {
		event := map[string]interface{}{
			"donation_id": req.DonationID,
			"species":     req.Species,
			"error":       err.Error(),
			"occurred_at": r.now().UTC(),
		}
		if pubErr := r.events.Publish(ctx, "tree.create_failed", event); pubErr != nil {
			r.logger.Warn("failed to publish tree.create_failed event", "error", pubErr)
		}
	}
	return nil
}

func (r *Resolver) timestampOr(ts time.Time) time.Time {
	if ts.IsZero() {
		return r.now()
	}
	return ts
}
