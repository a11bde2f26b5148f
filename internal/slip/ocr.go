package slip

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/triptab/triptab/internal/metrics"
)

// languages are the recognition hints tried in order until one returns
// processable text: Thai first (most slips), then English, then mixed.
var languages = []string{"tha", "eng", "tha+eng"}

// ErrNoText is returned when every language variant failed or returned
// nothing usable.
var ErrNoText = errors.New("ocr: no processable text recognized")

// OCRClient calls the external OCR HTTP endpoint.
type OCRClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewOCRClient creates a client for the given endpoint. apiKey may be empty.
func NewOCRClient(endpoint, apiKey string) *OCRClient {
	return &OCRClient{endpoint: endpoint, apiKey: apiKey, client: http.DefaultClient}
}

type ocrRequest struct {
	ImageBase64 string `json:"image_base64"`
	Language    string `json:"language"`
}

type ocrResponse struct {
	Text      string `json:"text"`
	IsErrored bool   `json:"is_errored"`
	Message   string `json:"message"`
}

// Recognize submits the image and returns recognized text. Each language
// variant is tried sequentially; the first one yielding non-blank text wins.
func (c *OCRClient) Recognize(ctx context.Context, image []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(image)

	var lastErr error
	for _, lang := range languages {
		text, err := c.recognizeOnce(ctx, encoded, lang)
		if err != nil {
			slog.Warn("ocr attempt failed", "language", lang, "error", err)
			metrics.OCRAttempts.WithLabelValues(lang, "error").Inc()
			lastErr = err
			continue
		}
		if strings.TrimSpace(text) != "" {
			metrics.OCRAttempts.WithLabelValues(lang, "ok").Inc()
			return text, nil
		}
		slog.Debug("ocr returned empty text", "language", lang)
		metrics.OCRAttempts.WithLabelValues(lang, "empty").Inc()
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrNoText, lastErr)
	}
	return "", ErrNoText
}

func (c *OCRClient) recognizeOnce(ctx context.Context, encoded, lang string) (string, error) {
	body, err := json.Marshal(ocrRequest{ImageBase64: encoded, Language: lang})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr endpoint returned status %d", resp.StatusCode)
	}

	var out ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.IsErrored {
		return "", fmt.Errorf("ocr endpoint error: %s", out.Message)
	}
	return out.Text, nil
}
