package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	l := New(time.Minute)
	for i := 0; i < 5; i++ {
		if !l.Allow("client", 5) {
			t.Fatalf("request %d denied, want first 5 allowed", i+1)
		}
	}
	if l.Allow("client", 5) {
		t.Fatal("6th request allowed, want denied")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(time.Minute)
	for i := 0; i < 3; i++ {
		l.Allow("a", 3)
	}
	if l.Allow("a", 3) {
		t.Fatal("exhausted key still allowed")
	}
	if !l.Allow("b", 3) {
		t.Fatal("fresh key denied")
	}
}

func TestReset(t *testing.T) {
	l := New(time.Minute)
	for i := 0; i < 2; i++ {
		l.Allow("client", 2)
	}
	if l.Allow("client", 2) {
		t.Fatal("exhausted key still allowed")
	}
	l.Reset("client")
	if !l.Allow("client", 2) {
		t.Fatal("reset key denied")
	}
}

func TestTokensRefill(t *testing.T) {
	// 600 per minute refills ten tokens per second.
	l := New(time.Minute)
	for i := 0; i < 600; i++ {
		l.Allow("client", 600)
	}
	if l.Allow("client", 600) {
		t.Fatal("exhausted key still allowed")
	}
	time.Sleep(200 * time.Millisecond)
	if !l.Allow("client", 600) {
		t.Fatal("no refill after waiting")
	}
}
