package tool

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("call %d must be allowed", i+1)
		}
	}
	if rl.Allow() {
		t.Fatal("fourth call must be blocked")
	}
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow() // t=0
	now = now.Add(30 * time.Second)
	rl.Allow() // t=30s
	if rl.Allow() {
		t.Fatal("window is full at t=30s")
	}

	// First call ages out, the second does not.
	now = now.Add(31 * time.Second)
	if !rl.Allow() {
		t.Fatal("must allow after the first call expires")
	}
	if rl.Allow() {
		t.Fatal("two calls remain in the window")
	}
}

func TestRateLimiterZeroLimit(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	if rl.Allow() {
		t.Fatal("zero limit must block every call")
	}
}
