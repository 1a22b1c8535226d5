package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowBucketStableInsideWindow(t *testing.T) {
	window := 15 * time.Minute
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	b1 := windowBucket(base, window)
	b2 := windowBucket(base.Add(5*time.Minute), window)
	assert.Equal(t, b1, b2, "timestamps in the same window share a bucket")

	b3 := windowBucket(base.Add(window), window)
	assert.Equal(t, b1+1, b3, "the next window gets the next bucket")
}

func TestWindowBucketZeroWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Unix(), windowBucket(now, 0))
}

func TestWindowKeySeparatesIdentities(t *testing.T) {
	l := New(nil, "login", 10, 15*time.Minute)
	now := time.Now()

	k1 := l.windowKey("alice@example.com|1.2.3.4", now)
	k2 := l.windowKey("bob@example.com|1.2.3.4", now)
	assert.NotEqual(t, k1, k2)
	assert.Contains(t, k1, "ratelimit:login:")
}
