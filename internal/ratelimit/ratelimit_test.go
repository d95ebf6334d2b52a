package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderBudget(t *testing.T) {
	rl := NewAIRateLimiter(0)
	rl.Register("gemini", 2, 0)

	require.NoError(t, rl.Use("gemini"))
	require.NoError(t, rl.Use("gemini"))
	assert.False(t, rl.CanUse("gemini"))

	err := rl.Use("gemini")
	assert.ErrorIs(t, err, ErrBudgetExhausted)
}

func TestTotalBudgetSharedAcrossProviders(t *testing.T) {
	rl := NewAIRateLimiter(1)
	rl.Register("gemini", 0, 0)
	rl.Register("openai", 0, 0)

	require.NoError(t, rl.Use("gemini"))
	assert.ErrorIs(t, rl.Use("openai"), ErrBudgetExhausted)
}

func TestDailyReset(t *testing.T) {
	rl := NewAIRateLimiter(0)
	rl.Register("gemini", 1, 0)
	now := time.Now()
	rl.now = func() time.Time { return now }

	require.NoError(t, rl.Use("gemini"))
	assert.False(t, rl.CanUse("gemini"))

	now = now.Add(25 * time.Hour)
	assert.True(t, rl.CanUse("gemini"))
}

func TestUnknownProvider(t *testing.T) {
	rl := NewAIRateLimiter(0)
	assert.Error(t, rl.Use("nope"))
	assert.Error(t, rl.Wait(context.Background(), "nope"))
}

func TestWaitSpendsBudget(t *testing.T) {
	rl := NewAIRateLimiter(0)
	rl.Register("openai", 5, 100)
	require.NoError(t, rl.Wait(context.Background(), "openai"))
	stats := rl.GetStats()
	assert.Equal(t, 1, stats["openai_used"])
}
