package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBuckets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("alice")
	assert.True(t, ok)
	ok, _ = rl.Allow("alice")
	assert.True(t, ok)
	ok, wait := rl.Allow("alice")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	ok, _ = rl.Allow("bob")
	assert.True(t, ok, "buckets are per key")

	now = now.Add(time.Second)
	ok, _ = rl.Allow("alice")
	assert.True(t, ok, "one token refills per second")
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	rl.Allow("alice")
	now = now.Add(5 * time.Minute)
	rl.Allow("bob")

	now = now.Add(6 * time.Minute)
	assert.Equal(t, 1, rl.Cleanup())
	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "bob")
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.7:5123"
	assert.Equal(t, "10.0.0.7", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))
}
