package slip

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecognizeLanguageFallback(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ocrRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		got = append(got, req.Language)

		// Thai fails, English returns blank, mixed succeeds.
		switch req.Language {
		case "tha":
			json.NewEncoder(w).Encode(ocrResponse{IsErrored: true, Message: "engine busy"})
		case "eng":
			json.NewEncoder(w).Encode(ocrResponse{Text: "   "})
		default:
			json.NewEncoder(w).Encode(ocrResponse{Text: "Amount: 100.00"})
		}
	}))
	defer server.Close()

	client := NewOCRClient(server.URL, "")
	text, err := client.Recognize(context.Background(), []byte("fake-image"))
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if text != "Amount: 100.00" {
		t.Errorf("text = %q, want recognized amount line", text)
	}

	want := []string{"tha", "eng", "tha+eng"}
	if len(got) != len(want) {
		t.Fatalf("tried %d language variants, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("attempt %d used language %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRecognizeAllVariantsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOCRClient(server.URL, "")
	_, err := client.Recognize(context.Background(), []byte("fake-image"))
	if !errors.Is(err, ErrNoText) {
		t.Errorf("expected ErrNoText, got %v", err)
	}
}

func TestRecognizeSendsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Authorization = %q, want bearer key", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(ocrResponse{Text: "ok"})
	}))
	defer server.Close()

	client := NewOCRClient(server.URL, "secret")
	if _, err := client.Recognize(context.Background(), []byte("img")); err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
}
