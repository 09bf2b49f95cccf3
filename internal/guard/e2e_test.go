package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/solsentinel/pixelterm/internal/config"
	"github.com/solsentinel/pixelterm/internal/gate"
	"github.com/solsentinel/pixelterm/internal/pixelapi"
	"github.com/solsentinel/pixelterm/internal/server"
	"github.com/solsentinel/pixelterm/internal/service"
	"github.com/solsentinel/pixelterm/pkg/logger"
)

// Full path: guard -> gateway -> image API, with the API stubbed out.
func TestGuardThroughGateway(t *testing.T) {
	var upstreamCalls int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&upstreamCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base64_images":["AAAA"],"remaining_credits":42}`))
	}))
	defer upstream.Close()

	cfg := config.Config{
		Env:               "development",
		ImageAPIKey:       "test-key-123456",
		ImageAPIURL:       upstream.URL,
		ImageModel:        "pixel-art-diffusion",
		ImageWidth:        512,
		ImageHeight:       512,
		ImageStyle:        "pixel-art",
		RequestTimeout:    5 * time.Second,
		AllowedOrigins:    []string{"http://localhost:3000"},
		RateLimitMax:      100,
		RateLimitWindow:   time.Minute,
		RateLimitCooldown: time.Minute,
		DedupWindow:       10 * time.Second,
	}

	log := logger.New(cfg.Env)
	client := pixelapi.NewClient(cfg, log)
	svc := service.NewGenerationService(log, client, nil, nil)
	srv := server.New(cfg, log, svc, nil,
		gate.NewMemoryDedupStore(cfg.DedupWindow),
		gate.NewMemoryLimiterStore(cfg.RateLimitMax, cfg.RateLimitWindow, cfg.RateLimitCooldown))

	gateway := httptest.NewServer(srv.Handler())
	defer gateway.Close()

	g := New(NewHTTPClient(gateway.URL), Options{Cooldown: 2 * time.Second, Quota: 50})

	first := g.RequestGeneration(context.Background(), "pixel cat")
	if !first.Success {
		t.Fatalf("expected success, got %+v", first)
	}
	if first.ImageURL != "data:image/png;base64,AAAA" {
		t.Fatalf("expected normalized data URL, got %q", first.ImageURL)
	}
	if first.RemainingCredits != 42 {
		t.Fatalf("expected 42 remaining credits, got %d", first.RemainingCredits)
	}

	// A different prompt inside the cooldown never leaves the guard.
	second := g.RequestGeneration(context.Background(), "pixel dog")
	if second.Success {
		t.Fatalf("expected cooldown rejection, got %+v", second)
	}
	if !strings.Contains(second.Message, "wait") {
		t.Fatalf("expected wait hint, got %q", second.Message)
	}

	// The first prompt comes straight from the cache.
	third := g.RequestGeneration(context.Background(), "Pixel Cat")
	if !third.Success || third.ImageURL != first.ImageURL {
		t.Fatalf("expected cached result, got %+v", third)
	}

	if calls := atomic.LoadInt64(&upstreamCalls); calls != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", calls)
	}
}
