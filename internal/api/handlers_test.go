package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MagicForestApp/donate-hub/internal/app"
	"github.com/MagicForestApp/donate-hub/internal/config"
	"github.com/MagicForestApp/donate-hub/internal/domain"
	"github.com/MagicForestApp/donate-hub/pkg/forestapi"
)

// fakeBackend implements Backend with overridable funcs.
type fakeBackend struct {
	createCheckoutSession func(ctx context.Context, amount int, email string) (string, error)
	createSubscription    func(ctx context.Context, plan, email string) (string, error)
	createDonation        func(ctx context.Context, req forestapi.CreateDonationRequest) (string, error)
	getCheckoutSession    func(ctx context.Context, sessionID string) (*forestapi.CheckoutSessionDetails, error)
	getDonation           func(ctx context.Context, id string) (*domain.Donation, error)
	createTree            func(ctx context.Context, req forestapi.CreateTreeRequest) (*domain.TreeMarker, error)
	totalDonations        func(ctx context.Context) (float64, error)
	listTrees             func(ctx context.Context) ([]domain.TreeMarker, error)
}

func (f *fakeBackend) CreateCheckoutSession(ctx context.Context, amount int, email string) (string, error) {
	return f.createCheckoutSession(ctx, amount, email)
}

func (f *fakeBackend) CreateSubscription(ctx context.Context, plan, email string) (string, error) {
	return f.createSubscription(ctx, plan, email)
}

func (f *fakeBackend) CreateDonation(ctx context.Context, req forestapi.CreateDonationRequest) (string, error) {
	return f.createDonation(ctx, req)
}

func (f *fakeBackend) GetCheckoutSession(ctx context.Context, sessionID string) (*forestapi.CheckoutSessionDetails, error) {
	return f.getCheckoutSession(ctx, sessionID)
}

func (f *fakeBackend) GetDonation(ctx context.Context, id string) (*domain.Donation, error) {
	return f.getDonation(ctx, id)
}

func (f *fakeBackend) CreateTree(ctx context.Context, req forestapi.CreateTreeRequest) (*domain.TreeMarker, error) {
	return f.createTree(ctx, req)
}

func (f *fakeBackend) TotalDonations(ctx context.Context) (float64, error) {
	return f.totalDonations(ctx)
}

func (f *fakeBackend) ListTrees(ctx context.Context) ([]domain.TreeMarker, error) {
	return f.listTrees(ctx)
}

func newTestServer(t *testing.T, backend *fakeBackend) (*httptest.Server, *app.Forest) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{AppBaseURL: "http://app.test", StripeMode: "test"}

	forest := app.NewForest(backend, logger)
	handler := NewHandler(cfg, backend, nil, nil, forest, logger)
	server := httptest.NewServer(NewRouter(handler))
	t.Cleanup(server.Close)
	return server, forest
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestCheckoutFlow_OneTimeHostedRedirect(t *testing.T) {
	backend := &fakeBackend{
		createCheckoutSession: func(ctx context.Context, amount int, email string) (string, error) {
			if amount != 25 {
				t.Fatalf("expected amount 25, got %d", amount)
			}
			return "https://pay.example.com/cs_25", nil
		},
	}
	server, _ := newTestServer(t, backend)

	resp := postJSON(t, server.URL+"/api/checkout", map[string]interface{}{
		"kind": "one-time", "amount": "25",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var opened struct {
		SessionID string `json:"session_id"`
		Step      string `json:"step"`
		DemoMode  bool   `json:"demo_mode"`
	}
	decodeBody(t, resp, &opened)
	if opened.Step != string(domain.StepCollecting) {
		t.Fatalf("expected collecting step, got %q", opened.Step)
	}
	if !opened.DemoMode {
		t.Fatal("expected demo_mode flag in test mode")
	}

	resp = postJSON(t, server.URL+"/api/checkout/"+opened.SessionID+"/proceed", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var handoff app.Handoff
	decodeBody(t, resp, &handoff)
	if handoff.RedirectURL != "https://pay.example.com/cs_25" {
		t.Fatalf("expected provider redirect, got %+v", handoff)
	}
}

func TestCheckout_ValidationErrorBlocksSession(t *testing.T) {
	server, _ := newTestServer(t, &fakeBackend{})

	resp := postJSON(t, server.URL+"/api/checkout", map[string]interface{}{
		"kind": "one-time", "amount": "-5",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body struct {
		Field string `json:"field"`
	}
	decodeBody(t, resp, &body)
	if body.Field != "amount" {
		t.Fatalf("expected amount field error, got %q", body.Field)
	}
}

func TestCheckout_CancelReturnsToCollecting(t *testing.T) {
	server, _ := newTestServer(t, &fakeBackend{})

	resp := postJSON(t, server.URL+"/api/checkout", map[string]interface{}{
		"kind": "recurring", "plan": "guardian",
	})
	var opened struct {
		SessionID string `json:"session_id"`
	}
	decodeBody(t, resp, &opened)

	resp = postJSON(t, server.URL+"/api/checkout/"+opened.SessionID+"/cancel", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Step string `json:"step"`
	}
	decodeBody(t, resp, &body)
	if body.Step != string(domain.StepCollecting) {
		t.Fatalf("expected collecting after cancel, got %q", body.Step)
	}
}

func TestCheckout_UnknownSession(t *testing.T) {
	server, _ := newTestServer(t, &fakeBackend{})

	resp := postJSON(t, server.URL+"/api/checkout/nope/proceed", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestConfirmation_DemoDonationQualifies(t *testing.T) {
	backend := &fakeBackend{
		getDonation: func(ctx context.Context, id string) (*domain.Donation, error) {
			return nil, &forestapi.StatusError{Code: 404, Detail: "Donation not found"}
		},
	}
	server, _ := newTestServer(t, backend)

	resp, err := http.Get(server.URL + "/api/confirmation?donationId=demo-donation")
	if err != nil {
		t.Fatalf("GET confirmation: %v", err)
	}
	var body struct {
		Donation  domain.DonationFacts `json:"donation"`
		Qualifies bool                 `json:"qualifies"`
	}
	decodeBody(t, resp, &body)
	if body.Donation.Amount != 15 || body.Donation.Type != domain.KindOneTime {
		t.Fatalf("expected {15, one-time} default, got %+v", body.Donation)
	}
	if !body.Qualifies {
		t.Fatal("a $15 one-time donation must qualify for personalization")
	}
}

func TestForestEndpoints(t *testing.T) {
	backend := &fakeBackend{
		listTrees: func(ctx context.Context) ([]domain.TreeMarker, error) {
			return []domain.TreeMarker{
				{ID: "t1", X: 10, Y: 20, Species: domain.SpeciesOak, Donor: "Ada", Size: 1},
			}, nil
		},
	}
	server, forest := newTestServer(t, backend)
	forest.Reconcile(context.Background())

	resp, err := http.Get(server.URL + "/api/forest")
	if err != nil {
		t.Fatalf("GET forest: %v", err)
	}
	var snapshot struct {
		Markers     []domain.TreeMarker `json:"markers"`
		Placeholder bool                `json:"placeholder"`
	}
	decodeBody(t, resp, &snapshot)
	if snapshot.Placeholder || len(snapshot.Markers) != 1 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	resp = postJSON(t, server.URL+"/api/forest/select", map[string]string{"id": "t1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 selecting t1, got %d", resp.StatusCode)
	}
	var marker domain.TreeMarker
	decodeBody(t, resp, &marker)
	if marker.Donor != "Ada" {
		t.Fatalf("unexpected marker %+v", marker)
	}

	resp = postJSON(t, server.URL+"/api/forest/select", map[string]string{"id": "missing"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown tree, got %d", resp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/api/forest/deselect", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
}

func TestPersonalize_AlwaysAdvancesToForest(t *testing.T) {
	backend := &fakeBackend{
		createTree: func(ctx context.Context, req forestapi.CreateTreeRequest) (*domain.TreeMarker, error) {
			return nil, &forestapi.StatusError{Code: 500, Detail: "boom"}
		},
	}
	server, _ := newTestServer(t, backend)

	resp := postJSON(t, server.URL+"/api/personalize", map[string]string{
		"donation_id": "don_1", "donor": "Ada", "message": "grow", "type": "oak",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("a failed tree write must not block navigation, got %d", resp.StatusCode)
	}
	var body struct {
		Redirect string `json:"redirect"`
		Planted  bool   `json:"planted"`
	}
	decodeBody(t, resp, &body)
	if body.Redirect != "/forest" {
		t.Fatalf("expected forest redirect, got %q", body.Redirect)
	}
	if body.Planted {
		t.Fatal("planted must be false when the write failed")
	}
}

func TestProgressEndpoint(t *testing.T) {
	backend := &fakeBackend{
		totalDonations: func(ctx context.Context) (float64, error) { return 4321, nil },
	}
	server, _ := newTestServer(t, backend)

	resp, err := http.Get(server.URL + "/api/progress")
	if err != nil {
		t.Fatalf("GET progress: %v", err)
	}
	var body struct {
		Total float64 `json:"total"`
		Fresh bool    `json:"fresh"`
	}
	decodeBody(t, resp, &body)
	if body.Total != 4321 || !body.Fresh {
		t.Fatalf("unexpected progress %+v", body)
	}
}
