package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Timeout:      5 * time.Second,
		MaxAttempts:  4,
		RetryBackoff: time.Millisecond,
		MaxBackoff:   5 * time.Millisecond,
		RequestDelay: time.Millisecond,
		UserAgent:    "test-agent",
		Referer:      "https://example.com/",
	}
}

func TestClient_ListGames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scoreboardv3", r.URL.Path)
		assert.Equal(t, "2024-01-15", r.URL.Query().Get("GameDate"))
		assert.Equal(t, "00", r.URL.Query().Get("LeagueID"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		w.Write([]byte(`{"scoreboard": {"gameDate": "2024-01-15", "games": [
			{"gameId": "0022300551", "season": "2023-24", "gameDateEst": "2024-01-15"},
			{"gameId": "0022300552", "season": "2023-24", "gameDateEst": "2024-01-15"}
		]}}`))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL))

	games, err := c.ListGames(context.Background(), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "0022300551", games[0].GameID)
	assert.Equal(t, "2023-24", games[0].Season)
}

func TestClient_GetBoxscore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/boxscoretraditionalv3", r.URL.Path)
		assert.Equal(t, "0022300551", r.URL.Query().Get("GameID"))

		w.Write([]byte(`{"boxscore": {"gameId": "0022300551", "players": [
			{"playerId": 201939, "teamId": 1610612744, "minutes": "32:45", "points": 30},
			{"playerId": 2544, "teamId": 1610612747, "minutes": 36.5, "points": 25}
		]}}`))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL))

	lines, err := c.GetBoxscore(context.Background(), "0022300551")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.InDelta(t, 32.75, lines[0].Minutes.Float(), 1e-9)
	assert.InDelta(t, 36.5, lines[1].Minutes.Float(), 1e-9)
}

func TestClient_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"scoreboard": {"games": []}}`))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL))

	games, err := c.ListGames(context.Background(), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, games)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ExhaustedRetriesSurfaceAsUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxAttempts = 3
	c := NewClient(cfg)

	_, err := c.GetBoxscore(context.Background(), "0022300551")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_PermanentErrorsDoNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL))

	_, err := c.GetBoxscore(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ThrottleSpacesCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"scoreboard": {"games": []}}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RequestDelay = 50 * time.Millisecond
	c := NewClient(cfg)

	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	start := time.Now()
	_, err := c.ListGames(context.Background(), date)
	require.NoError(t, err)
	_, err = c.ListGames(context.Background(), date)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond,
		"second call should wait out the inter-call delay")
}

func TestClient_ThrottleHonorsCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"scoreboard": {"games": []}}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RequestDelay = time.Minute
	c := NewClient(cfg)

	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	_, err := c.ListGames(context.Background(), date)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = c.ListGames(ctx, date)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
