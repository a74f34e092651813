package cache

import (
	"context"
	"testing"

	"nba_forecasting/pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCacheIsNoOp(t *testing.T) {
	var c *RedisCache

	lines, ok := c.GetBoxscore(context.Background(), "g1")
	assert.False(t, ok)
	assert.Nil(t, lines)

	// Must not panic
	c.SetBoxscore(context.Background(), "g1", []models.PlayerLine{{PlayerID: 1}})
	assert.NoError(t, c.Close())
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c, err := NewRedisCache(Config{Host: "localhost", Port: "6379"})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer c.Close()

	lines := []models.PlayerLine{
		{GameID: "cache-test-g1", PlayerID: 1, TeamID: 100, Minutes: "30:00", Points: 20},
		{GameID: "cache-test-g1", PlayerID: 2, TeamID: 200, Minutes: "25:30", Points: 12},
	}
	c.SetBoxscore(context.Background(), "cache-test-g1", lines)

	got, ok := c.GetBoxscore(context.Background(), "cache-test-g1")
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].PlayerID)
	assert.InDelta(t, 30.0, got[0].Minutes.Float(), 1e-9)
}

func TestCacheMissReturnsFalse(t *testing.T) {
	c, err := NewRedisCache(Config{Host: "localhost", Port: "6379"})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer c.Close()

	_, ok := c.GetBoxscore(context.Background(), "never-stored")
	assert.False(t, ok)
}
