package guard

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/solsentinel/pixelterm/internal/gate"
	"github.com/solsentinel/pixelterm/internal/models"
)

// Client posts a guarded request to the gateway. Satisfied by *HTTPClient.
type Client interface {
	Generate(ctx context.Context, req models.GenerationRequest) (models.GenerationResult, error)
}

// Options tune the guard. Zero values fall back to the defaults below.
type Options struct {
	Cooldown time.Duration // minimum interval between accepted requests
	Quota    int           // per-session request ceiling
	CacheTTL time.Duration
	CacheCap int
	State    StateStore // optional mirror so a UI reload keeps the cooldown
	Log      *slog.Logger
}

// Guard sits in front of the gateway on the caller's side and stops
// redundant or abusive requests before they reach the network: recent
// identical prompts come from a local cache, duplicate in-flight prompts are
// suppressed, and a cooldown plus session quota bound the request rate. All
// state is owned by the Guard instance; two guards share nothing.
type Guard struct {
	mu       sync.Mutex
	client   Client
	cache    *gate.ResultCache
	pending  *gate.PendingSet
	limiter  *rate.Limiter
	cooldown time.Duration
	quota    int
	used     int
	state    StateStore
	log      *slog.Logger
	now      func() time.Time
}

func New(client Client, opts Options) *Guard {
	if opts.Cooldown <= 0 {
		opts.Cooldown = 2 * time.Second
	}
	if opts.Quota <= 0 {
		opts.Quota = 50
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	g := &Guard{
		client:   client,
		cache:    gate.NewResultCache(opts.CacheTTL, opts.CacheCap),
		pending:  gate.NewPendingSet(),
		limiter:  rate.NewLimiter(rate.Every(opts.Cooldown), 1),
		cooldown: opts.Cooldown,
		quota:    opts.Quota,
		state:    opts.State,
		log:      opts.Log,
		now:      time.Now,
	}

	// Restore cooldown and quota bookkeeping from a previous session so a
	// reload does not reset the clock.
	if g.state != nil {
		if st, ok := g.state.Load(); ok {
			g.used = st.Used
			if !st.LastRequestAt.IsZero() && st.LastRequestAt.Before(g.now()) {
				g.limiter.AllowN(st.LastRequestAt, 1)
			}
		}
	}

	return g
}

// RequestGeneration runs the prompt through the local gate and, if it
// clears, forwards it to the gateway. Every path returns a result; nothing
// panics through to the caller.
func (g *Guard) RequestGeneration(ctx context.Context, prompt string) models.GenerationResult {
	if strings.TrimSpace(prompt) == "" {
		return models.Failure(prompt, "please enter a prompt")
	}

	key := gate.NormalizePrompt(prompt)

	if cached, ok := g.cache.Get(key); ok {
		return cached
	}

	g.mu.Lock()

	if !g.pending.Acquire(key) {
		g.mu.Unlock()
		return models.Failure(prompt, "a request for this prompt is already in progress, please wait")
	}

	now := g.now()
	res := g.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		g.pending.Release(key)
		g.mu.Unlock()
		wait := int(math.Ceil(delay.Seconds()))
		return models.Failure(prompt, fmt.Sprintf("please wait %d seconds before the next request", wait))
	}

	if g.used >= g.quota {
		g.pending.Release(key)
		g.mu.Unlock()
		return models.Failure(prompt, fmt.Sprintf("session limit of %d generations reached", g.quota))
	}

	g.used++
	if g.state != nil {
		g.state.Save(State{LastRequestAt: now, Used: g.used})
	}
	g.mu.Unlock()

	// Release must run on every exit path, including panics inside the
	// client, or the prompt would look in-progress forever.
	defer g.pending.Release(key)

	result, err := g.client.Generate(ctx, models.GenerationRequest{
		Prompt:           prompt,
		NormalizedPrompt: key,
		RequestID:        uuid.NewString(),
		SubmittedAt:      now,
	})
	if err != nil {
		g.log.Error("generation request failed", "err", err)
		return models.Failure(prompt, "something went wrong, please try again")
	}

	if result.ImageURL == "" {
		result.ImageURL = models.PlaceholderImage
	}
	if result.Success {
		g.cache.Set(key, result)
	}
	return result
}

// Remaining reports how many requests are left in the session quota.
func (g *Guard) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.used >= g.quota {
		return 0
	}
	return g.quota - g.used
}
