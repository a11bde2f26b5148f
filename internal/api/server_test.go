package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/triptab/triptab/internal/auth"
	"github.com/triptab/triptab/internal/blob"
	"github.com/triptab/triptab/internal/cache"
	"github.com/triptab/triptab/internal/notify"
	"github.com/triptab/triptab/internal/service"
	"github.com/triptab/triptab/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	blobs, err := blob.NewFileStore(t.TempDir(), "/media")
	if err != nil {
		t.Fatalf("failed to create blob store: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store)
	notifier := notify.NewFanout(notify.NewStoreNotifier(store, logger))
	debts := service.NewDebtService(store, cache.New(64), time.Minute, logger)
	settlements := service.NewSettlementService(store, blobs, nil, notifier, debts, logger)

	srv := NewServer(
		service.NewAuthService(authenticator, jwtManager, logger),
		debts,
		settlements,
		service.NewTripService(store, debts, logger),
		service.NewSocialService(store, notifier, logger),
		NewUserAPI(store, logger),
		jwtManager,
	)
	srv.SetMediaHandler(blobs.Handler())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body any) (*http.Response, map[string]any) {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		c.t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	json.Unmarshal(raw, &decoded)
	return resp, decoded
}

func registerUser(t *testing.T, base, email, name string) *client {
	t.Helper()
	c := &client{t: t, base: base}
	resp, body := c.do("POST", "/auth/register", map[string]any{
		"email": email, "name": name, "password": "hunter2secret",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s = %d: %v", email, resp.StatusCode, body)
	}
	c.token = body["token"].(string)
	return c
}

func TestAPISettlementFlow(t *testing.T) {
	ts := newTestServer(t)
	alice := registerUser(t, ts.URL, "alice@example.com", "Alice")
	bob := registerUser(t, ts.URL, "bob@example.com", "Bob")

	_, me := bob.do("GET", "/users/me", nil)
	bobID := me["id"].(string)

	resp, trip := alice.do("POST", "/trips/", map[string]any{
		"name": "Beach", "member_ids": []string{bobID},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create trip = %d: %v", resp.StatusCode, trip)
	}
	tripID := trip["id"].(string)

	resp, bill := alice.do("POST", fmt.Sprintf("/trips/%s/bills", tripID), map[string]any{
		"title": "Hotel", "total": 2000.0, "participant_ids": []string{bobID},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add bill = %d: %v", resp.StatusCode, bill)
	}

	var bobShareID string
	for _, raw := range bill["shares"].([]any) {
		sh := raw.(map[string]any)
		if sh["user_id"].(string) == bobID {
			bobShareID = sh["id"].(string)
		}
	}
	if bobShareID == "" {
		t.Fatal("no share for bob in bill response")
	}

	resp, outstanding := bob.do("GET", "/debts/outstanding", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("outstanding = %d", resp.StatusCode)
	}
	creditors := outstanding["creditors"].([]any)
	if len(creditors) != 1 {
		t.Fatalf("creditors = %d, want 1", len(creditors))
	}
	if total := creditors[0].(map[string]any)["total"].(float64); total != 1000 {
		t.Errorf("outstanding total = %v, want 1000", total)
	}

	resp, submitted := bob.do("POST", "/settlements/", map[string]any{
		"share_id": bobShareID, "amount": 1000.0, "method": "promptpay",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit = %d: %v", resp.StatusCode, submitted)
	}
	paymentID := submitted["payment_id"].(string)

	resp, _ = bob.do("POST", fmt.Sprintf("/settlements/%s/approve", paymentID), nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("approve by debtor = %d, want 403", resp.StatusCode)
	}

	resp, _ = alice.do("POST", fmt.Sprintf("/settlements/%s/approve", paymentID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve = %d", resp.StatusCode)
	}
	resp, _ = alice.do("POST", fmt.Sprintf("/settlements/%s/approve", paymentID), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second approve = %d, want 409", resp.StatusCode)
	}

	resp, outstanding = bob.do("GET", "/debts/outstanding", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("outstanding after approval = %d", resp.StatusCode)
	}
	if creditors := outstanding["creditors"].([]any); len(creditors) != 0 {
		t.Errorf("outstanding after approval = %v, want empty", creditors)
	}

	resp, paid := bob.do("GET", "/debts/paid", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("paid view = %d", resp.StatusCode)
	}
	confirmed := paid["confirmed"].(map[string]any)
	if len(confirmed) != 1 {
		t.Errorf("confirmed totals = %v, want one creditor", confirmed)
	}

	// Bob got the approval notification over the feed.
	resp, _ = bob.do("GET", "/notifications/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("notifications = %d", resp.StatusCode)
	}
}

func TestAPIAuthRequired(t *testing.T) {
	ts := newTestServer(t)
	anon := &client{t: t, base: ts.URL}

	for _, path := range []string{"/users/me", "/trips/", "/debts/outstanding", "/notifications/"} {
		resp, _ := anon.do("GET", path, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s without token = %d, want 401", path, resp.StatusCode)
		}
	}

	resp, _ := anon.do("GET", "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health = %d, want 200", resp.StatusCode)
	}
}

func TestAPIPromptPayQR(t *testing.T) {
	ts := newTestServer(t)
	alice := registerUser(t, ts.URL, "alice@example.com", "Alice")

	resp, _ := alice.do("GET", "/users/me/qr", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("qr without promptpay id = %d, want 404", resp.StatusCode)
	}

	resp, _ = alice.do("PUT", "/users/me/promptpay", map[string]any{"promptpay_id": "0812345678"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set promptpay = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest("GET", ts.URL+"/users/me/qr?amount=149.50", nil)
	req.Header.Set("Authorization", "Bearer "+alice.token)
	raw, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("qr request failed: %v", err)
	}
	defer raw.Body.Close()
	if raw.StatusCode != http.StatusOK {
		t.Fatalf("qr = %d, want 200", raw.StatusCode)
	}
	if ct := raw.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("qr content type = %q, want image/png", ct)
	}
	png, _ := io.ReadAll(raw.Body)
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Error("qr body is not a PNG")
	}
}

func TestAPIValidationErrors(t *testing.T) {
	ts := newTestServer(t)
	alice := registerUser(t, ts.URL, "alice@example.com", "Alice")

	resp, _ := alice.do("POST", "/trips/", map[string]any{"name": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty trip name = %d, want 400", resp.StatusCode)
	}

	resp, _ = alice.do("POST", "/settlements/", map[string]any{
		"share_id": "nope", "amount": -1.0,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative amount = %d, want 400", resp.StatusCode)
	}

	c := &client{t: t, base: ts.URL}
	resp, _ = c.do("POST", "/auth/register", map[string]any{
		"email": "x@example.com", "name": "X", "password": "short",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("weak password = %d, want 400", resp.StatusCode)
	}
	resp, _ = c.do("POST", "/auth/login", map[string]any{
		"email": "alice@example.com", "password": "wrong-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login = %d, want 401", resp.StatusCode)
	}
}

func TestAPIDebtAmountsRounded(t *testing.T) {
	ts := newTestServer(t)
	alice := registerUser(t, ts.URL, "alice@example.com", "Alice")
	bob := registerUser(t, ts.URL, "bob@example.com", "Bob")

	_, me := bob.do("GET", "/users/me", nil)
	bobID := me["id"].(string)
	_, me = alice.do("GET", "/users/me", nil)
	aliceID := me["id"].(string)

	_, trip := alice.do("POST", "/trips/", map[string]any{
		"name": "Snacks", "member_ids": []string{bobID},
	})
	tripID := trip["id"].(string)

	// Two half-split bills leave bob with shares of 0.10 and 0.20. Their
	// float sum is 0.30000000000000004; the DTOs must serve 0.3.
	var shareIDs []string
	for _, total := range []float64{0.2, 0.4} {
		resp, bill := alice.do("POST", fmt.Sprintf("/trips/%s/bills", tripID), map[string]any{
			"title": "Snack", "total": total, "participant_ids": []string{bobID},
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("add bill = %d: %v", resp.StatusCode, bill)
		}
		for _, raw := range bill["shares"].([]any) {
			share := raw.(map[string]any)
			if share["user_id"].(string) == bobID {
				shareIDs = append(shareIDs, share["id"].(string))
			}
		}
	}

	_, out := bob.do("GET", "/debts/outstanding", nil)
	creditors := out["creditors"].([]any)
	if len(creditors) != 1 {
		t.Fatalf("creditors = %d, want 1: %v", len(creditors), out)
	}
	if total := creditors[0].(map[string]any)["total"].(float64); total != 0.3 {
		t.Errorf("outstanding total = %v, want 0.3", total)
	}

	// The pending map in the history view rounds the same way.
	for i, shareID := range shareIDs {
		amount := []float64{0.1, 0.2}[i]
		resp, body := bob.do("POST", "/settlements/", map[string]any{
			"share_id": shareID, "amount": amount, "method": "cash",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("submit %v = %d: %v", amount, resp.StatusCode, body)
		}
	}
	_, paid := bob.do("GET", "/debts/paid", nil)
	pending := paid["pending"].(map[string]any)
	if got := pending[aliceID].(float64); got != 0.3 {
		t.Errorf("pending[creditor] = %v, want 0.3", got)
	}
}
