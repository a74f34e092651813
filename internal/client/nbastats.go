package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"nba_forecasting/pipeline/internal/metrics"
	"nba_forecasting/pipeline/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// ErrProviderUnavailable marks a call that failed transiently and
// exhausted its retry budget. The connector treats it differently from
// permanent per-game failures: a game-list call aborts the date, a
// boxscore call skips the game.
var ErrProviderUnavailable = errors.New("provider unavailable")

// errRetryable tags transient failures inside the retry loop so the
// exhausted-budget case can be told apart from permanent errors after
// backoff.Retry unwraps its PermanentError marker.
var errRetryable = errors.New("retryable provider error")

// Config carries all external-call configuration for the stats provider.
// Headers and base URL live here, not in process-wide mutable state.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
	// RequestDelay is the minimum spacing between any two provider
	// calls. The provider rate-limits aggressively; this delay is part
	// of the ingestion contract.
	RequestDelay time.Duration
	UserAgent    string
	Referer      string
}

// Client is the NBA stats API client
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu       sync.Mutex
	lastCall time.Time
}

// NewClient creates a new stats API client
func NewClient(cfg Config) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// throttle blocks until the minimum inter-call delay since the previous
// request has elapsed.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	wait := c.cfg.RequestDelay - now.Sub(c.lastCall)
	if wait < 0 {
		wait = 0
	}
	// Reserve the slot before sleeping so concurrent callers space out
	c.lastCall = now.Add(wait)
	c.mu.Unlock()

	if wait == 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// getJSON performs a GET request with bounded retry and unmarshals the
// response. Network errors, 429 and 5xx responses retry with jittered
// exponential backoff; other failures are permanent. An exhausted retry
// budget surfaces as ErrProviderUnavailable.
func (c *Client) getJSON(ctx context.Context, path string, params map[string]string, result interface{}) error {
	url := fmt.Sprintf("%s/%s", c.cfg.BaseURL, path)

	attempt := 0
	operation := func() error {
		attempt++

		if err := c.throttle(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		// Browser-style headers; the provider blocks obvious bots
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		req.Header.Set("Referer", c.cfg.Referer)
		req.Header.Set("Accept", "application/json, text/plain, */*")
		req.Header.Set("x-nba-stats-origin", "stats")
		req.Header.Set("x-nba-stats-token", "true")

		if len(params) > 0 {
			q := req.URL.Query()
			for key, value := range params {
				q.Add(key, value)
			}
			req.URL.RawQuery = q.Encode()
		}

		log.Debug().
			Str("url", url).
			Int("attempt", attempt).
			Msg("Making provider request")

		callStart := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordProviderCall(path, "error", time.Since(callStart).Seconds())
			return fmt.Errorf("%w: request failed: %w", errRetryable, err)
		}
		defer resp.Body.Close()

		metrics.RecordProviderCall(path, strconv.Itoa(resp.StatusCode), time.Since(callStart).Seconds())

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: failed to read response body: %w", errRetryable, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(body, result); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
			return nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			log.Warn().
				Str("url", url).
				Int("status", resp.StatusCode).
				Int("attempt", attempt).
				Msg("Retryable provider error")
			return fmt.Errorf("%w: provider returned status %d", errRetryable, resp.StatusCode)

		default:
			return backoff.Permanent(fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body)))
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxAttempts-1)), ctx)

	err := backoff.Retry(operation, policy)
	if err == nil {
		return nil
	}

	// Transient failure that outlived the retry budget
	if errors.Is(err, errRetryable) {
		return fmt.Errorf("%w: %s after %d attempts: %s", ErrProviderUnavailable, path, attempt, err)
	}

	return err
}

type scoreboardResponse struct {
	Scoreboard struct {
		GameDate string                 `json:"gameDate"`
		Games    []models.ScheduledGame `json:"games"`
	} `json:"scoreboard"`
}

type boxscoreResponse struct {
	Boxscore struct {
		GameID  string              `json:"gameId"`
		Players []models.PlayerLine `json:"players"`
	} `json:"boxscore"`
}

// ListGames fetches the scoreboard for a calendar date.
func (c *Client) ListGames(ctx context.Context, date time.Time) ([]models.ScheduledGame, error) {
	params := map[string]string{
		"GameDate":  date.Format("2006-01-02"),
		"LeagueID":  "00",
		"DayOffset": "0",
	}

	var resp scoreboardResponse
	if err := c.getJSON(ctx, "scoreboardv3", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch scoreboard: %w", err)
	}

	log.Debug().
		Str("date", date.Format("2006-01-02")).
		Int("count", len(resp.Scoreboard.Games)).
		Msg("Scoreboard fetched")

	return resp.Scoreboard.Games, nil
}

// GetBoxscore fetches the per-player statistical lines for a game.
func (c *Client) GetBoxscore(ctx context.Context, gameID string) ([]models.PlayerLine, error) {
	params := map[string]string{
		"GameID": gameID,
	}

	var resp boxscoreResponse
	if err := c.getJSON(ctx, "boxscoretraditionalv3", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch boxscore for game %s: %w", gameID, err)
	}

	return resp.Boxscore.Players, nil
}
