package gate

import "testing"

func TestPendingSet_AcquireIsInsertIfAbsent(t *testing.T) {
	p := NewPendingSet()

	if !p.Acquire("pixel cat") {
		t.Fatalf("expected first acquire to succeed")
	}
	if p.Acquire("pixel cat") {
		t.Fatalf("expected second acquire of same key to fail")
	}
	if !p.Acquire("pixel dog") {
		t.Fatalf("expected acquire of different key to succeed")
	}
}

func TestPendingSet_ReleaseAllowsReacquire(t *testing.T) {
	p := NewPendingSet()

	p.Acquire("k")
	p.Release("k")
	if !p.Acquire("k") {
		t.Fatalf("expected acquire after release to succeed")
	}
}

func TestPendingSet_ReleaseUnknownKeyIsNoop(t *testing.T) {
	p := NewPendingSet()
	p.Release("never-acquired")
	if p.Contains("never-acquired") {
		t.Fatalf("expected key to stay absent")
	}
}
