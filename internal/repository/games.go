package repository

import (
	"context"
	"fmt"
	"time"

	"nba_forecasting/pipeline/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// GameRepository handles game database operations
type GameRepository struct {
	db *Database
}

// Upsert inserts or replaces a game by its provider game identifier.
// Latest write wins.
func (r *GameRepository) Upsert(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (game_id, season, game_date, home_team_id, away_team_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (game_id) DO UPDATE SET
			season = EXCLUDED.season,
			game_date = EXCLUDED.game_date,
			home_team_id = EXCLUDED.home_team_id,
			away_team_id = EXCLUDED.away_team_id,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		game.GameID, game.Season, game.GameDate, game.HomeTeamID, game.AwayTeamID,
	).Scan(&game.CreatedAt, &game.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert game: %w", err)
	}

	log.Debug().
		Str("game_id", game.GameID).
		Int64("home", game.HomeTeamID).
		Int64("away", game.AwayTeamID).
		Msg("Game upserted")

	return nil
}

// GetByGameID retrieves a game by its provider game identifier
func (r *GameRepository) GetByGameID(ctx context.Context, gameID string) (*models.Game, error) {
	query := `
		SELECT game_id, season, game_date, home_team_id, away_team_id, created_at, updated_at
		FROM games
		WHERE game_id = $1
	`

	var game models.Game
	err := r.db.Pool.QueryRow(ctx, query, gameID).Scan(
		&game.GameID, &game.Season, &game.GameDate,
		&game.HomeTeamID, &game.AwayTeamID,
		&game.CreatedAt, &game.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("game not found: game_id=%s", gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return &game, nil
}

// ListByDate retrieves all games played on a calendar date
func (r *GameRepository) ListByDate(ctx context.Context, date time.Time) ([]*models.Game, error) {
	query := `
		SELECT game_id, season, game_date, home_team_id, away_team_id, created_at, updated_at
		FROM games
		WHERE game_date = $1
		ORDER BY game_id
	`

	rows, err := r.db.Pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list games by date: %w", err)
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		var game models.Game
		err := rows.Scan(
			&game.GameID, &game.Season, &game.GameDate,
			&game.HomeTeamID, &game.AwayTeamID,
			&game.CreatedAt, &game.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, &game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return games, nil
}

// Count returns the total number of games
func (r *GameRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM games`

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}

	return count, nil
}
