package gate

import (
	"fmt"
	"testing"
	"time"

	"github.com/solsentinel/pixelterm/internal/models"
)

func result(prompt string) models.GenerationResult {
	return models.GenerationResult{Success: true, ImageURL: "data:image/png;base64,AAAA", Prompt: prompt}
}

func TestResultCache_HitReturnsStoredResult(t *testing.T) {
	c := NewResultCache(time.Minute, 5)
	c.Set("pixel cat", result("pixel cat"))

	got, ok := c.Get("pixel cat")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got.Prompt != "pixel cat" || !got.Success {
		t.Fatalf("unexpected cached result: %+v", got)
	}
}

func TestResultCache_ExpiredEntryIsMiss(t *testing.T) {
	c := NewResultCache(time.Minute, 5)
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("k", result("k"))

	c.now = func() time.Time { return base.Add(61 * time.Second) }
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry to be dropped, len=%d", c.Len())
	}
}

func TestResultCache_EvictsGloballyOldest(t *testing.T) {
	c := NewResultCache(time.Hour, 3)
	base := time.Now()
	tick := 0
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	c.Set("a", result("a"))
	c.Set("b", result("b"))
	c.Set("c", result("c"))
	c.Set("d", result("d"))

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected oldest entry to be evicted")
	}
	for _, k := range []string{"b", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("expected %q to survive eviction", k)
		}
	}
	if c.Len() != 3 {
		t.Fatalf("expected len 3, got %d", c.Len())
	}
}

func TestResultCache_EvictionIsByAgeNotRecency(t *testing.T) {
	c := NewResultCache(time.Hour, 2)
	base := time.Now()
	tick := 0
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	c.Set("old", result("old"))
	c.Set("new", result("new"))
	// A hit does not refresh age.
	if _, ok := c.Get("old"); !ok {
		t.Fatalf("expected hit for old")
	}

	c.Set("third", result("third"))
	if _, ok := c.Get("old"); ok {
		t.Fatalf("expected oldest-by-store-time to be evicted despite recent hit")
	}
}

func TestResultCache_ManyInsertsStayBounded(t *testing.T) {
	c := NewResultCache(time.Hour, 20)
	for i := 0; i < 40; i++ {
		c.Set(fmt.Sprintf("p%d", i), result("p"))
	}
	if c.Len() != 20 {
		t.Fatalf("expected capacity bound of 20, got %d", c.Len())
	}
}
