package ratelimit

import (
	"net/http"
	"sync"
	"testing"
	"time"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAllow_BurstThenBlock(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{PerMinute: 6, Burst: 3, Clock: clock})
	defer limiter.Close()

	for i := 0; i < 3; i++ {
		if res := limiter.Allow("user:1"); !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	res := limiter.Allow("user:1")
	if res.Allowed {
		t.Fatal("fourth request should be blocked")
	}
	if res.RetryAfter <= 0 || res.RetryAfter > 10*time.Second {
		t.Errorf("RetryAfter = %v, want within one refill interval", res.RetryAfter)
	}

	// One token refills every 10 seconds.
	clock.Advance(10 * time.Second)
	if res := limiter.Allow("user:1"); !res.Allowed {
		t.Fatal("request after refill should be allowed")
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{PerMinute: 1, Clock: clock})
	defer limiter.Close()

	if !limiter.Allow("user:1").Allowed {
		t.Fatal("first user should be allowed")
	}
	if limiter.Allow("user:1").Allowed {
		t.Fatal("first user should be blocked")
	}
	if !limiter.Allow("user:2").Allowed {
		t.Fatal("second user should not share the first user's bucket")
	}
}

func TestCleanupDropsIdleBuckets(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{PerMinute: 1, IdleTTL: time.Minute, Clock: clock})
	defer limiter.Close()

	limiter.Allow("user:1")
	clock.Advance(2 * time.Minute)
	limiter.cleanup()

	limiter.mu.Lock()
	n := len(limiter.buckets)
	limiter.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected idle bucket to be dropped, have %d", n)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		trustProxy bool
		want       string
	}{
		{"direct", "203.0.113.7:5555", "", false, "203.0.113.7"},
		{"untrusted xff ignored", "203.0.113.7:5555", "198.51.100.1", false, "203.0.113.7"},
		{"trusted xff rightmost public", "10.0.0.1:5555", "198.51.100.1, 203.0.113.9, 10.0.0.2", true, "203.0.113.9"},
		{"all private", "10.0.0.1:5555", "10.0.0.3, 192.168.1.1", true, "192.168.1.1"},
		{"no port", "203.0.113.7", "", false, "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{RemoteAddr: tt.remoteAddr, Header: http.Header{}}
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := GetClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
