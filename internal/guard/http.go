package guard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/solsentinel/pixelterm/internal/models"
)

// HTTPClient posts guarded requests to the gateway's /api/generate route.
// Gateway rejections (cooldown, dedup, rate limit) come back as failure
// results, not errors; errors are reserved for transport and decode trouble.
type HTTPClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

type HTTPOption func(*HTTPClient)

// WithAccessToken attaches the identity provider's session token to every
// request.
func WithAccessToken(token string) HTTPOption {
	return func(c *HTTPClient) { c.accessToken = token }
}

func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate implements Client.
func (c *HTTPClient) Generate(ctx context.Context, req models.GenerationRequest) (models.GenerationResult, error) {
	body, err := json.Marshal(map[string]string{"prompt": req.Prompt})
	if err != nil {
		return models.GenerationResult{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return models.GenerationResult{}, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", req.RequestID)
	if c.accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return models.GenerationResult{}, fmt.Errorf("post generate: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.GenerationResult{}, fmt.Errorf("read response: %w", err)
	}

	var result models.GenerationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return models.GenerationResult{}, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	return result, nil
}
