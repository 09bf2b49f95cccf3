package pixelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solsentinel/pixelterm/internal/config"
)

// ErrNotConfigured is returned when the service credential is missing. The
// credential value itself is never part of any error or response.
var ErrNotConfigured = errors.New("image API credential not configured")

// StatusError reports a non-2xx answer from the image API.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("image API returned status %d", e.StatusCode)
}

// Client talks to the external image-generation API. One fixed set of
// generation parameters; the only variable is the prompt.
type Client struct {
	apiKey     string
	endpoint   string
	model      string
	width      int
	height     int
	style      string
	httpClient *http.Client
	log        *slog.Logger
}

// Output is a successfully generated image plus the credit counter when the
// API reports one.
type Output struct {
	ImageURL         string
	RemainingCredits int
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:   cfg.ImageAPIKey,
		endpoint: cfg.ImageAPIURL,
		model:    cfg.ImageModel,
		width:    cfg.ImageWidth,
		height:   cfg.ImageHeight,
		style:    cfg.ImageStyle,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// Generate submits the sanitized prompt and returns the first image,
// normalized across the response shapes the API has used over time.
func (c *Client) Generate(ctx context.Context, prompt string) (*Output, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	payload := map[string]any{
		"model":      c.model,
		"prompt":     prompt,
		"width":      c.width,
		"height":     c.height,
		"num_images": 1,
		"style":      c.style,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	correlationID := uuid.NewString()
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("X-Correlation-ID", correlationID)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.log != nil {
		c.log.Info("calling image API", "model", c.model, "correlation_id", correlationID, "key_prefix", keyPrefix(c.apiKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post image API: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if c.log != nil {
			c.log.Error("image API error", "status", resp.StatusCode, "correlation_id", correlationID, "body", truncateBody(rawBody))
		}
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	out, err := normalize(rawBody)
	if err != nil {
		if c.log != nil {
			c.log.Error("image API response not recognized", "correlation_id", correlationID, "body", truncateBody(rawBody))
		}
		return nil, err
	}

	if c.log != nil {
		c.log.Info("image generated", "correlation_id", correlationID, "remaining_credits", out.RemainingCredits)
	}
	return out, nil
}

// keyPrefix exposes just enough of the credential to correlate log lines with
// the provider dashboard.
func keyPrefix(key string) string {
	if len(key) <= 6 {
		return "******"
	}
	return key[:6] + "…"
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
