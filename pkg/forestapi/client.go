/**
 * @description
 * This package provides a client for the campaign backend's REST API
 * (donation ledger, tree registry, hosted checkout session creation).
 * It encapsulates the logic for making HTTP requests against the backend,
 * constructing request bodies, and parsing responses.
 *
 * A non-2xx response is returned as *StatusError so callers can tell an
 * unhappy backend apart from a transport failure; several collaborators
 * degrade differently for the two cases.
 */
package forestapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/MagicForestApp/donate-hub/internal/domain"
)

// Client is a client for the campaign backend API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	now        func() time.Time
}

// NewClient creates a new backend API client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		now: time.Now,
	}
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend api error (status %d): %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("backend api error (status %d)", e.Code)
}

// errorBody is the backend's JSON error envelope.
type errorBody struct {
	Detail string `json:"detail"`
}

// TotalDonationsResponse is the aggregate campaign progress.
type TotalDonationsResponse struct {
	Total float64 `json:"total"`
}

// CreateDonationRequest records a donation completed via the embedded
// payment path. The provider's reference travels as session_id.
type CreateDonationRequest struct {
	Type          string  `json:"type"`
	Amount        float64 `json:"amount"`
	Plan          *string `json:"plan"`
	Email         string  `json:"email,omitempty"`
	PaymentStatus string  `json:"payment_status"`
	SessionID     string  `json:"session_id"`
}

// CreateDonationResponse carries the backend-assigned donation id.
type CreateDonationResponse struct {
	ID string `json:"id"`
}

// CreateTreeRequest personalizes a qualifying donation into a map tree.
type CreateTreeRequest struct {
	DonationID string `json:"donation_id"`
	Donor      string `json:"donor"`
	Message    string `json:"message"`
	Type       string `json:"type"`
}

// CheckoutSessionDetails is the backend's view of a completed hosted
// checkout session.
type CheckoutSessionDetails struct {
	Status        string  `json:"status"`
	PaymentStatus string  `json:"payment_status"`
	DonationID    string  `json:"donation_id"`
	CustomerEmail string  `json:"customer_email"`
	Amount        float64 `json:"amount"`
	DonationType  string  `json:"donation_type"`
	Plan          *string `json:"plan"`
}

// hostedSessionResponse is returned by both hosted-flow creation endpoints.
type hostedSessionResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// TotalDonations fetches the aggregate donation total.
func (c *Client) TotalDonations(ctx context.Context) (float64, error) {
	var out TotalDonationsResponse
	if err := c.doGet(ctx, "/api/total-donations", &out); err != nil {
		return 0, err
	}
	return out.Total, nil
}

// ListTrees fetches the full tree registry. Every call is a fresh round
// trip: a cache-busting query parameter plus no-cache headers keep any
// intermediate layer from serving stale data.
func (c *Client) ListTrees(ctx context.Context) ([]domain.TreeMarker, error) {
	path := "/api/trees?nocache=" + strconv.FormatInt(c.now().UnixMilli(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create trees request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Expires", "0")

	var trees []domain.TreeMarker
	if err := c.do(req, &trees); err != nil {
		return nil, err
	}
	return trees, nil
}

// CreateTree registers a new tree for a qualifying donation.
func (c *Client) CreateTree(ctx context.Context, reqBody CreateTreeRequest) (*domain.TreeMarker, error) {
	var marker domain.TreeMarker
	if err := c.doPost(ctx, "/api/trees", reqBody, &marker); err != nil {
		return nil, err
	}
	return &marker, nil
}

// GetDonation resolves a donation by its backend id.
func (c *Client) GetDonation(ctx context.Context, id string) (*domain.Donation, error) {
	var d domain.Donation
	if err := c.doGet(ctx, "/api/donations/"+url.PathEscape(id), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDonation records an embedded-payment donation in the ledger.
func (c *Client) CreateDonation(ctx context.Context, reqBody CreateDonationRequest) (string, error) {
	var out CreateDonationResponse
	if err := c.doPost(ctx, "/api/donations", reqBody, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// GetCheckoutSession resolves a hosted checkout session by its provider id.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSessionDetails, error) {
	var out CheckoutSessionDetails
	if err := c.doGet(ctx, "/api/checkout-session/"+url.PathEscape(sessionID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCheckoutSession starts a hosted one-time checkout and returns the
// provider URL the browser must navigate to.
func (c *Client) CreateCheckoutSession(ctx context.Context, amount int, email string) (string, error) {
	body := struct {
		Amount int    `json:"amount"`
		Email  string `json:"email,omitempty"`
	}{Amount: amount, Email: email}

	var out hostedSessionResponse
	if err := c.doPost(ctx, "/api/create-checkout-session", body, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// CreateSubscription starts a hosted recurring checkout for a plan and
// returns the provider URL.
func (c *Client) CreateSubscription(ctx context.Context, plan, email string) (string, error) {
	body := struct {
		Plan  string `json:"plan"`
		Email string `json:"email,omitempty"`
	}{Plan: plan, Email: email}

	var out hostedSessionResponse
	if err := c.doPost(ctx, "/api/create-subscription", body, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) doGet(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// do executes the request and decodes the response, converting non-2xx
// statuses into *StatusError.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Code: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(bodyBytes, &eb) == nil {
			statusErr.Detail = eb.Detail
		}
		return statusErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
