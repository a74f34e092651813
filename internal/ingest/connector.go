package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nba_forecasting/pipeline/internal/cache"
	"nba_forecasting/pipeline/internal/client"
	"nba_forecasting/pipeline/internal/metrics"
	"nba_forecasting/pipeline/internal/models"

	"github.com/rs/zerolog/log"
)

// ErrMalformedBoxscore marks a boxscore whose player rows do not contain
// exactly two distinct teams. Permanent for that game: skip and continue.
var ErrMalformedBoxscore = errors.New("malformed boxscore")

// Provider is the external stats source. Both calls distinguish transient
// failures (client.ErrProviderUnavailable after retries) from permanent
// ones; the connector aborts the date on the former for the game list and
// skips the game otherwise.
type Provider interface {
	ListGames(ctx context.Context, date time.Time) ([]models.ScheduledGame, error)
	GetBoxscore(ctx context.Context, gameID string) ([]models.PlayerLine, error)
}

// Store is the write half of the normalized store the connector needs.
type Store interface {
	ReplaceForGame(ctx context.Context, game *models.Game, records []models.BoxscoreRecord) error
}

// Connector fetches a date's games and boxscores from the provider and
// writes them into the normalized store. Games are processed one at a
// time; the client enforces the inter-call delay, so serialization here
// is what keeps the pipeline inside the provider's rate limit.
type Connector struct {
	provider Provider
	store    Store
	cache    *cache.RedisCache
}

// NewConnector creates a new ingestion connector. cache may be nil.
func NewConnector(provider Provider, store Store, boxCache *cache.RedisCache) *Connector {
	return &Connector{
		provider: provider,
		store:    store,
		cache:    boxCache,
	}
}

// Ingest fetches and persists every game played on the given date.
// Re-running for the same date is safe: each game's record set is replaced
// atomically, never duplicated or merged. Per-game failures are isolated
// in the report; only an unreachable game list aborts the call.
func (c *Connector) Ingest(ctx context.Context, date time.Time) (*models.IngestReport, error) {
	start := time.Now()
	date = civilDate(date)

	log.Info().
		Str("date", date.Format("2006-01-02")).
		Msg("Starting ingestion")

	scheduled, err := c.provider.ListGames(ctx, date)
	if err != nil {
		metrics.RecordError("ingest", "game_list")
		return nil, fmt.Errorf("failed to list games for %s: %w", date.Format("2006-01-02"), err)
	}

	report := &models.IngestReport{Date: date, Requested: len(scheduled)}

	if len(scheduled) == 0 {
		log.Info().Str("date", date.Format("2006-01-02")).Msg("No games to ingest")
		return report, nil
	}

	for _, sg := range scheduled {
		if err := ctx.Err(); err != nil {
			// Cancelled mid-batch: already-ingested games stay valid,
			// re-invoking for the date resumes the rest.
			return report, err
		}

		if err := c.ingestGame(ctx, date, sg); err != nil {
			reason := skipReason(err)
			report.AddSkip(sg.GameID, err.Error())
			metrics.RecordGameSkipped(reason)
			log.Warn().
				Err(err).
				Str("game_id", sg.GameID).
				Str("reason", reason).
				Msg("Game skipped")
			continue
		}

		report.Ingested++
		metrics.RecordGameIngested()
	}

	metrics.IngestDuration.Observe(time.Since(start).Seconds())

	log.Info().
		Str("date", date.Format("2006-01-02")).
		Int("requested", report.Requested).
		Int("ingested", report.Ingested).
		Int("skipped", len(report.Skipped)).
		Dur("duration", time.Since(start)).
		Msg("Ingestion complete")

	return report, nil
}

// ingestGame fetches one boxscore and persists the game with its full
// record set. Nothing is written unless the whole set is ready.
func (c *Connector) ingestGame(ctx context.Context, date time.Time, sg models.ScheduledGame) error {
	lines, cached := c.cache.GetBoxscore(ctx, sg.GameID)
	if cached {
		metrics.RecordCacheHit()
	} else {
		metrics.RecordCacheMiss()

		var err error
		lines, err = c.provider.GetBoxscore(ctx, sg.GameID)
		if err != nil {
			return fmt.Errorf("boxscore fetch failed: %w", err)
		}
	}

	game, records, err := buildGame(date, sg, lines)
	if err != nil {
		return err
	}

	if err := c.store.ReplaceForGame(ctx, game, records); err != nil {
		return fmt.Errorf("store write failed: %w", err)
	}

	// Cache only after a successful persist so a poisoned payload is
	// never pinned.
	if !cached {
		c.cache.SetBoxscore(ctx, sg.GameID, lines)
	}

	log.Debug().
		Str("game_id", sg.GameID).
		Int("players", len(records)).
		Msg("Game ingested")

	return nil
}

// buildGame derives the Game row and record set from raw player lines.
// Home and away are taken from the two distinct teams in row order: the
// provider lists the home side's players first.
func buildGame(date time.Time, sg models.ScheduledGame, lines []models.PlayerLine) (*models.Game, []models.BoxscoreRecord, error) {
	teams := distinctTeams(lines)
	if len(teams) != 2 {
		return nil, nil, fmt.Errorf("%w: game %s has %d distinct teams in player rows, want 2",
			ErrMalformedBoxscore, sg.GameID, len(teams))
	}

	homeTeam, awayTeam := teams[0], teams[1]

	records := make([]models.BoxscoreRecord, 0, len(lines))
	for i := range lines {
		line := &lines[i]

		opponent := homeTeam
		if line.TeamID == homeTeam {
			opponent = awayTeam
		}

		records = append(records, *line.ToRecord(sg.GameID, opponent))
	}

	game := &models.Game{
		GameID:     sg.GameID,
		Season:     sg.Season,
		GameDate:   date,
		HomeTeamID: homeTeam,
		AwayTeamID: awayTeam,
	}

	return game, records, nil
}

// distinctTeams returns the distinct team identifiers in row order.
func distinctTeams(lines []models.PlayerLine) []int64 {
	seen := make(map[int64]struct{}, 2)
	var teams []int64
	for _, line := range lines {
		if _, ok := seen[line.TeamID]; ok {
			continue
		}
		seen[line.TeamID] = struct{}{}
		teams = append(teams, line.TeamID)
	}
	return teams
}

// skipReason maps an error to a coarse metric label.
func skipReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedBoxscore):
		return "malformed_boxscore"
	case errors.Is(err, client.ErrProviderUnavailable):
		return "provider_unavailable"
	default:
		return "other"
	}
}

// civilDate truncates a timestamp to its calendar date in UTC.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
