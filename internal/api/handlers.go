/**
 * @description
 * This file contains the HTTP handler functions for the campaign service.
 * Handlers parse incoming requests, call the orchestration logic in the
 * app layer, and write JSON responses. All state a handler touches is
 * either per-session (checkout registry) or owned by a single long-lived
 * component (forest synchronizer, progress cache).
 */
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MagicForestApp/donate-hub/internal/app"
	"github.com/MagicForestApp/donate-hub/internal/config"
	"github.com/MagicForestApp/donate-hub/internal/domain"
)

// Backend is the full backend API surface the handlers wire into the app
// layer.
type Backend interface {
	app.CheckoutBackend
	app.ConfirmationBackend
	app.ProgressBackend
}

// Handler holds the components the HTTP surface exposes.
type Handler struct {
	cfg       *config.Config
	backend   Backend
	confirmer app.PaymentConfirmer
	events    app.EventPublisher
	forest    *app.Forest
	progress  *app.Progress
	resolver  *app.Resolver
	sessions  *SessionRegistry
	logger    *slog.Logger
}

// NewHandler creates a Handler wired to the given collaborators.
func NewHandler(cfg *config.Config, backend Backend, confirmer app.PaymentConfirmer, events app.EventPublisher, forest *app.Forest, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		backend:   backend,
		confirmer: confirmer,
		events:    events,
		forest:    forest,
		progress:  app.NewProgress(backend, logger),
		resolver:  app.NewResolver(backend, events, logger),
		sessions:  NewSessionRegistry(),
		logger:    logger,
	}
}

// handleProgress returns the aggregate campaign total.
func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	total, fresh := h.progress.Total(r.Context())
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"total": total,
		"fresh": fresh,
	})
}

// openCheckoutRequest is the body for opening a checkout session. A
// client_secret routes the session straight into the embedded payment
// step.
type openCheckoutRequest struct {
	app.FormState
	ClientSecret string `json:"client_secret,omitempty"`
}

// handleOpenCheckout validates the donation form and opens a checkout
// session.
func (h *Handler) handleOpenCheckout(w http.ResponseWriter, r *http.Request) {
	var req openCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	intent, err := app.BuildIntent(req.FormState)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			respondWithJSON(w, http.StatusBadRequest, map[string]string{
				"error": vErr.Message,
				"field": vErr.Field,
			})
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var checkout *app.Checkout
	if req.ClientSecret != "" {
		checkout = app.ResumeEmbedded(h.cfg, intent, req.ClientSecret, h.backend, h.confirmer, h.events, h.logger)
	} else {
		checkout = app.NewCheckout(h.cfg, intent, h.backend, h.confirmer, h.events, h.logger)
	}
	id := h.sessions.Add(checkout)

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": id,
		"step":       checkout.Step(),
		"demo_mode":  h.cfg.DemoMode(),
		"intent": map[string]interface{}{
			"kind":   intent.Kind,
			"amount": intent.Amount,
			"plan":   intent.Plan,
		},
	})
}

// handleProceed advances a session from collecting into its hosted path.
func (h *Handler) handleProceed(w http.ResponseWriter, r *http.Request) {
	checkout, ok := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		http.Error(w, "Checkout session not found", http.StatusNotFound)
		return
	}

	handoff, err := checkout.Proceed(r.Context())
	if err != nil {
		h.respondCheckoutError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, handoff)
}

// handleConfirmEmbedded settles an embedded payment.
func (h *Handler) handleConfirmEmbedded(w http.ResponseWriter, r *http.Request) {
	checkout, ok := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		http.Error(w, "Checkout session not found", http.StatusNotFound)
		return
	}

	handoff, err := checkout.ConfirmEmbedded(r.Context())
	if err != nil {
		h.respondCheckoutError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, handoff)
}

// handleCancelCheckout returns a session to the collecting step.
func (h *Handler) handleCancelCheckout(w http.ResponseWriter, r *http.Request) {
	checkout, ok := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		http.Error(w, "Checkout session not found", http.StatusNotFound)
		return
	}

	checkout.Cancel()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"step": checkout.Step(),
	})
}

// handleCloseCheckout tears a session down (the donor navigated away).
func (h *Handler) handleCloseCheckout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Remove(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

// respondCheckoutError maps orchestrator errors onto HTTP statuses.
func (h *Handler) respondCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrSubmissionInFlight), errors.Is(err, app.ErrInvalidStep):
		respondWithJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		var pErr *app.ProviderError
		if errors.As(err, &pErr) {
			respondWithJSON(w, http.StatusBadGateway, map[string]string{"error": pErr.Message})
			return
		}
		h.logger.Error("checkout operation failed", "error", err)
		respondWithJSON(w, http.StatusBadGateway, map[string]string{
			"error": "Something went wrong with your payment. Please try again.",
		})
	}
}

// handleForest returns the rendered forest snapshot and current selection.
func (h *Handler) handleForest(w http.ResponseWriter, r *http.Request) {
	snapshot := h.forest.Snapshot()
	body := map[string]interface{}{
		"markers":     snapshot.Markers,
		"placeholder": snapshot.Placeholder,
	}
	if selected, ok := h.forest.Selected(); ok {
		body["selected"] = selected
	}
	respondWithJSON(w, http.StatusOK, body)
}

// handleSelectTree opens the detail panel for one marker.
func (h *Handler) handleSelectTree(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	marker, ok := h.forest.Select(req.ID)
	if !ok {
		http.Error(w, "Tree not found", http.StatusNotFound)
		return
	}
	respondWithJSON(w, http.StatusOK, marker)
}

// handleDeselectTree closes the detail panel.
func (h *Handler) handleDeselectTree(w http.ResponseWriter, r *http.Request) {
	h.forest.Deselect()
	w.WriteHeader(http.StatusNoContent)
}

// handleConfirmation resolves donation facts from the resume token in the
// query string (session_id takes priority over donationId).
func (h *Handler) handleConfirmation(w http.ResponseWriter, r *http.Request) {
	token := app.ResumeToken{
		SessionID:  r.URL.Query().Get("session_id"),
		DonationID: r.URL.Query().Get("donationId"),
	}

	facts := h.resolver.Resolve(r.Context(), token)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"donation":  facts,
		"qualifies": domain.Qualifies(facts.Amount, facts.Type),
		"demo_mode": h.cfg.DemoMode(),
	})
}

// handlePersonalize issues the best-effort tree creation and always points
// the donor at the forest view.
func (h *Handler) handlePersonalize(w http.ResponseWriter, r *http.Request) {
	var req app.PersonalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	marker := h.resolver.Personalize(r.Context(), req)
	body := map[string]interface{}{
		"redirect": "/forest",
		"planted":  marker != nil,
	}
	if marker != nil {
		body["tree"] = marker
	}
	respondWithJSON(w, http.StatusOK, body)
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
