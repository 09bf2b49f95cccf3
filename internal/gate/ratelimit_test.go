package gate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterStore_AllowsUpToCeiling(t *testing.T) {
	s := NewMemoryLimiterStore(3, time.Minute, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		dec, err := s.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !dec.Allowed {
			t.Fatalf("expected request %d to be allowed", i+1)
		}
	}

	dec, _ := s.Allow(ctx, "1.2.3.4")
	if dec.Allowed {
		t.Fatalf("expected request beyond ceiling to be denied")
	}
	if dec.RetryAfter <= 0 {
		t.Fatalf("expected a retry hint, got %s", dec.RetryAfter)
	}
}

func TestMemoryLimiterStore_KeysAreIndependent(t *testing.T) {
	s := NewMemoryLimiterStore(1, time.Minute, time.Minute)
	ctx := context.Background()

	if dec, _ := s.Allow(ctx, "1.1.1.1"); !dec.Allowed {
		t.Fatalf("expected first key to pass")
	}
	if dec, _ := s.Allow(ctx, "2.2.2.2"); !dec.Allowed {
		t.Fatalf("expected second key to pass independently")
	}
}

func TestMemoryLimiterStore_WindowResets(t *testing.T) {
	s := NewMemoryLimiterStore(2, time.Minute, time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }
	ctx := context.Background()

	s.Allow(ctx, "k")
	s.Allow(ctx, "k")
	if dec, _ := s.Allow(ctx, "k"); dec.Allowed {
		t.Fatalf("expected denial inside the window")
	}

	// Past the block cooldown and the window: counting starts over.
	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	if dec, _ := s.Allow(ctx, "k"); !dec.Allowed {
		t.Fatalf("expected the counter to reset after the window elapsed")
	}
}

func TestMemoryLimiterStore_BlockedStateHoldsForCooldown(t *testing.T) {
	s := NewMemoryLimiterStore(1, time.Minute, time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }
	ctx := context.Background()

	s.Allow(ctx, "k")
	if dec, _ := s.Allow(ctx, "k"); dec.Allowed {
		t.Fatalf("expected denial beyond ceiling")
	}

	// Still inside the cooldown even though the window itself elapsed.
	s.now = func() time.Time { return base.Add(45 * time.Second) }
	dec, _ := s.Allow(ctx, "k")
	if dec.Allowed {
		t.Fatalf("expected blocked key to stay blocked through the cooldown")
	}
	if dec.RetryAfter <= 0 || dec.RetryAfter > 15*time.Second+time.Second {
		t.Fatalf("expected retry hint for the cooldown remainder, got %s", dec.RetryAfter)
	}
}

func TestMemoryLimiterStore_RepeatViolationsStretchCooldown(t *testing.T) {
	s := NewMemoryLimiterStore(1, time.Minute, time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }
	ctx := context.Background()

	s.Allow(ctx, "k")
	first, _ := s.Allow(ctx, "k")

	// Violate again after the first block expires.
	s.now = func() time.Time { return base.Add(61 * time.Second) }
	s.Allow(ctx, "k")
	s.now = func() time.Time { return base.Add(62 * time.Second) }
	second, _ := s.Allow(ctx, "k")

	if second.RetryAfter <= first.RetryAfter {
		t.Fatalf("expected escalating cooldown, first=%s second=%s", first.RetryAfter, second.RetryAfter)
	}
}

func TestMemoryLimiterStore_SweepDropsIdleRecords(t *testing.T) {
	s := NewMemoryLimiterStore(5, time.Minute, time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }
	ctx := context.Background()

	s.Allow(ctx, "idle")

	s.now = func() time.Time { return base.Add(time.Hour) }
	s.Allow(ctx, "active")
	s.Sweep(10 * time.Minute)

	s.mu.Lock()
	_, idleKept := s.records["idle"]
	_, activeKept := s.records["active"]
	s.mu.Unlock()

	if idleKept {
		t.Fatalf("expected idle record to be swept")
	}
	if !activeKept {
		t.Fatalf("expected active record to survive")
	}
}
