package features

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"nba_forecasting/pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReader struct {
	rows []models.BoxscoreWithGame
}

func (s *stubReader) ListJoined(ctx context.Context) ([]models.BoxscoreWithGame, error) {
	return s.rows, nil
}

var testLocations = Locations{
	100: {Lat: 42.3663, Lon: -71.0622},
	200: {Lat: 40.7505, Lon: -73.9934},
}

func row(gameID string, date time.Time, playerID, teamID, oppID, homeID int64, minutes float64, pts int) models.BoxscoreWithGame {
	awayID := homeID
	if teamID != homeID {
		awayID = teamID
	} else if oppID > 0 {
		awayID = oppID
	}
	return models.BoxscoreWithGame{
		BoxscoreRecord: models.BoxscoreRecord{
			GameID:         gameID,
			PlayerID:       playerID,
			TeamID:         teamID,
			OpponentTeamID: sql.NullInt64{Int64: oppID, Valid: oppID > 0},
			Minutes:        minutes,
			Points:         pts,
		},
		GameDate:   date,
		HomeTeamID: homeID,
		AwayTeamID: awayID,
	}
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T, rows []models.BoxscoreWithGame) *Engine {
	t.Helper()
	e, err := NewEngine(&stubReader{rows: rows}, testLocations, Config{Windows: []int{5}})
	require.NoError(t, err)
	return e
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(&stubReader{}, nil, Config{})
	assert.ErrorIs(t, err, ErrMissingLocations)

	_, err = NewEngine(&stubReader{}, testLocations, Config{RestSubject: "coach"})
	assert.Error(t, err)
}

func TestEngine_RollingUsesOnlyPriorRows(t *testing.T) {
	rows := []models.BoxscoreWithGame{
		row("g1", day(1), 7, 100, 200, 100, 30, 10),
		row("g2", day(3), 7, 100, 200, 100, 30, 20),
		row("g3", day(5), 7, 100, 200, 100, 30, 30),
	}

	out, err := newTestEngine(t, rows).BuildFeatures(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 3)

	_, ok := out[0].Feature("points_last_5")
	assert.False(t, ok, "first game has no history")

	v, ok := out[1].Feature("points_last_5")
	require.True(t, ok)
	assert.InDelta(t, 10, v, 1e-9, "second game sees exactly the first game")

	v, ok = out[2].Feature("points_last_5")
	require.True(t, ok)
	assert.InDelta(t, 15, v, 1e-9)

	// Fantasy points roll the same way (points-only lines score 1:1)
	v, ok = out[2].Feature("fantasy_points_last_5")
	require.True(t, ok)
	assert.InDelta(t, 15, v, 1e-9)
}

func TestEngine_WindowTruncates(t *testing.T) {
	rows := []models.BoxscoreWithGame{
		row("g1", day(1), 7, 100, 200, 100, 30, 10),
		row("g2", day(3), 7, 100, 200, 100, 30, 20),
		row("g3", day(5), 7, 100, 200, 100, 30, 30),
		row("g4", day(7), 7, 100, 200, 100, 30, 40),
	}

	e, err := NewEngine(&stubReader{rows: rows}, testLocations, Config{Windows: []int{2}})
	require.NoError(t, err)

	out, err := e.BuildFeatures(context.Background())
	require.NoError(t, err)

	v, ok := out[3].Feature("points_last_2")
	require.True(t, ok)
	assert.InDelta(t, 25, v, 1e-9, "window keeps only the two most recent prior games")
}

func TestEngine_Consistency(t *testing.T) {
	rows := []models.BoxscoreWithGame{
		row("g1", day(1), 7, 100, 200, 100, 30, 10),
		row("g2", day(3), 7, 100, 200, 100, 30, 10),
		row("g3", day(5), 7, 100, 200, 100, 30, 10),
	}

	out, err := newTestEngine(t, rows).BuildFeatures(context.Background())
	require.NoError(t, err)

	_, ok := out[0].Feature("consistency_5")
	assert.False(t, ok)

	// Identical history has zero spread, so consistency peaks at 1
	v, ok := out[2].Feature("consistency_5")
	require.True(t, ok)
	assert.InDelta(t, 1, v, 1e-9)
}

func TestEngine_UsageProxy(t *testing.T) {
	rows := []models.BoxscoreWithGame{
		row("g1", day(1), 7, 100, 200, 100, 30, 45),
		row("g2", day(3), 7, 100, 200, 100, 30, 45),
	}

	out, err := newTestEngine(t, rows).BuildFeatures(context.Background())
	require.NoError(t, err)

	_, ok := out[0].Feature("usage_proxy")
	assert.False(t, ok)

	v, ok := out[1].Feature("usage_proxy")
	require.True(t, ok)
	assert.InDelta(t, 1.5, v, 1e-9, "45 fantasy points over 30 minutes")
}

func TestEngine_RestDaysAndFlags(t *testing.T) {
	rows := []models.BoxscoreWithGame{
		row("g1", day(1), 7, 100, 200, 100, 30, 10),
		row("g2", day(2), 7, 100, 200, 100, 30, 10),
		row("g3", day(5), 7, 100, 200, 100, 30, 10),
	}

	out, err := newTestEngine(t, rows).BuildFeatures(context.Background())
	require.NoError(t, err)

	_, ok := out[0].Feature("days_rest")
	assert.False(t, ok, "first observed game has unknown rest")
	v, _ := out[0].Feature("back_to_back")
	assert.Zero(t, v)

	v, ok = out[1].Feature("days_rest")
	require.True(t, ok)
	assert.InDelta(t, 1, v, 1e-9)
	v, _ = out[1].Feature("back_to_back")
	assert.Equal(t, float64(1), v)
	v, _ = out[1].Feature("short_rest")
	assert.Equal(t, float64(1), v)

	v, ok = out[2].Feature("days_rest")
	require.True(t, ok)
	assert.InDelta(t, 3, v, 1e-9)
	v, _ = out[2].Feature("back_to_back")
	assert.Zero(t, v)
	v, _ = out[2].Feature("short_rest")
	assert.Zero(t, v)
}

func TestEngine_Travel(t *testing.T) {
	rows := []models.BoxscoreWithGame{
		// Home game in Boston, then a game hosted by team 200 in New York,
		// then a game hosted by a team with no known arena.
		row("g1", day(1), 7, 100, 200, 100, 30, 10),
		row("g2", day(3), 7, 100, 200, 200, 30, 10),
		row("g3", day(5), 7, 100, 999, 999, 30, 10),
	}

	out, err := newTestEngine(t, rows).BuildFeatures(context.Background())
	require.NoError(t, err)

	v, ok := out[0].Feature("travel_km")
	require.True(t, ok)
	assert.Zero(t, v, "no previous game means no travel")

	v, ok = out[1].Feature("travel_km")
	require.True(t, ok)
	assert.InDelta(t, 300, v, 15, "Boston to New York")

	_, ok = out[2].Feature("travel_km")
	assert.False(t, ok, "unknown arena coordinate is missing, not zero")
}

func TestEngine_OpponentAllowedUsesPriorDatesOnly(t *testing.T) {
	rows := []models.BoxscoreWithGame{
		// Jan 1: team 100 hosts team 200
		row("g1", day(1), 7, 100, 200, 100, 30, 30),
		row("g1", day(1), 8, 200, 100, 100, 30, 40),
		// Jan 3: rematch
		row("g2", day(3), 7, 100, 200, 100, 30, 10),
		row("g2", day(3), 8, 200, 100, 100, 30, 10),
	}

	out, err := newTestEngine(t, rows).BuildFeatures(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 4)

	_, ok := out[0].Feature("opp_points_allowed_last_5")
	assert.False(t, ok, "no prior dates for the opponent")

	// Player 7 faces team 200, which allowed 30 points on Jan 1
	v, ok := out[2].Feature("opp_points_allowed_last_5")
	require.True(t, ok)
	assert.InDelta(t, 30, v, 1e-9)

	// Player 8 faces team 100, which allowed 40 points on Jan 1
	v, ok = out[3].Feature("opp_points_allowed_last_5")
	require.True(t, ok)
	assert.InDelta(t, 40, v, 1e-9)
}

func TestEngine_TeamRestSubject(t *testing.T) {
	rows := []models.BoxscoreWithGame{
		// Two different players on team 100 in consecutive games; with the
		// team subject, the second player's first appearance still has rest.
		row("g1", day(1), 7, 100, 200, 100, 30, 10),
		row("g2", day(2), 9, 100, 200, 100, 30, 10),
	}

	e, err := NewEngine(&stubReader{rows: rows}, testLocations, Config{
		Windows:     []int{5},
		RestSubject: "team",
	})
	require.NoError(t, err)

	out, err := e.BuildFeatures(context.Background())
	require.NoError(t, err)

	v, ok := out[1].Feature("days_rest")
	require.True(t, ok)
	assert.InDelta(t, 1, v, 1e-9)
}

func TestFeatureColumns(t *testing.T) {
	cols := FeatureColumns([]int{5, 10})

	assert.Contains(t, cols, "points_last_5")
	assert.Contains(t, cols, "minutes_last_10")
	assert.Contains(t, cols, "fantasy_points_last_5")
	assert.Contains(t, cols, "consistency_10")
	assert.Contains(t, cols, "usage_proxy")
	assert.Contains(t, cols, "days_rest")
	assert.Contains(t, cols, "travel_km")
	assert.Contains(t, cols, "opp_points_allowed_last_5")

	// Deterministic ordering
	assert.Equal(t, cols, FeatureColumns([]int{5, 10}))
}
