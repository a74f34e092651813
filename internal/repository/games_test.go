package repository

import (
	"testing"
	"time"

	"nba_forecasting/pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameRepository_Upsert(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := &models.Game{
		GameID:     "0022300551",
		Season:     "2023-24",
		GameDate:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		HomeTeamID: 1610612744,
		AwayTeamID: 1610612747,
	}

	err := db.Games.Upsert(ctx, game)
	require.NoError(t, err, "Should insert game")

	retrieved, err := db.Games.GetByGameID(ctx, "0022300551")
	require.NoError(t, err, "Should retrieve game")
	assert.Equal(t, game.Season, retrieved.Season)
	assert.Equal(t, game.HomeTeamID, retrieved.HomeTeamID)
	assert.Equal(t, game.AwayTeamID, retrieved.AwayTeamID)

	// Re-upserting the same identifier replaces, never duplicates
	game.HomeTeamID = 1610612738
	err = db.Games.Upsert(ctx, game)
	require.NoError(t, err, "Should update game")

	updated, err := db.Games.GetByGameID(ctx, "0022300551")
	require.NoError(t, err)
	assert.Equal(t, int64(1610612738), updated.HomeTeamID)

	count, err := db.Games.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGameRepository_GetByGameIDNotFound(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	_, err := db.Games.GetByGameID(ctx, "nonexistent")
	assert.Error(t, err)
}

func TestGameRepository_ListByDate(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	day1 := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)

	games := []*models.Game{
		{GameID: "g1", Season: "2023-24", GameDate: day1, HomeTeamID: 1, AwayTeamID: 2},
		{GameID: "g2", Season: "2023-24", GameDate: day1, HomeTeamID: 3, AwayTeamID: 4},
		{GameID: "g3", Season: "2023-24", GameDate: day2, HomeTeamID: 5, AwayTeamID: 6},
	}
	for _, g := range games {
		require.NoError(t, db.Games.Upsert(ctx, g))
	}

	listed, err := db.Games.ListByDate(ctx, day1)
	require.NoError(t, err, "Should list games for the date")
	assert.Len(t, listed, 2)
	for _, g := range listed {
		assert.True(t, g.GameDate.Equal(day1))
	}
}
