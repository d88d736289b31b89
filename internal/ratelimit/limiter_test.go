package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_BurstPerHost(t *testing.T) {
	l := New(0.001, 2)

	assert.True(t, l.Allow("api.rugcheck.xyz"))
	assert.True(t, l.Allow("api.rugcheck.xyz"))
	assert.False(t, l.Allow("api.rugcheck.xyz"))

	// Separate bucket per host.
	assert.True(t, l.Allow("public-api.birdeye.so"))
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	l := New(0.001, 1)
	assert.True(t, l.Allow("host"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "host"))
}

func TestLimiter_Unlimited(t *testing.T) {
	l := New(0, 1)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("host"))
	}

	var nilLimiter *Limiter
	assert.NoError(t, nilLimiter.Wait(context.Background(), "host"))
}
