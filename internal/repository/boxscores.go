package repository

import (
	"context"
	"fmt"

	"nba_forecasting/pipeline/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// BoxscoreRepository handles boxscore database operations
type BoxscoreRepository struct {
	db *Database
}

// ReplaceForGame writes a game and the full set of its boxscore records in
// a single transaction: the game row is upserted, any previously ingested
// records for the game are deleted, and the new set is inserted. A game is
// either fully ingested or not present at all, and re-ingestion replaces
// rather than duplicates.
func (r *BoxscoreRepository) ReplaceForGame(ctx context.Context, game *models.Game, records []models.BoxscoreRecord) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	gameQuery := `
		INSERT INTO games (game_id, season, game_date, home_team_id, away_team_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (game_id) DO UPDATE SET
			season = EXCLUDED.season,
			game_date = EXCLUDED.game_date,
			home_team_id = EXCLUDED.home_team_id,
			away_team_id = EXCLUDED.away_team_id,
			updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, gameQuery,
		game.GameID, game.Season, game.GameDate, game.HomeTeamID, game.AwayTeamID,
	); err != nil {
		return fmt.Errorf("failed to upsert game %s: %w", game.GameID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM boxscores WHERE game_id = $1`, game.GameID); err != nil {
		return fmt.Errorf("failed to clear boxscores for game %s: %w", game.GameID, err)
	}

	rows := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []interface{}{
			rec.GameID, rec.PlayerID, rec.TeamID, rec.OpponentTeamID,
			rec.Minutes, rec.Points, rec.Rebounds, rec.Assists,
			rec.Steals, rec.Blocks, rec.Turnovers,
		})
	}

	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"boxscores"},
		[]string{
			"game_id", "player_id", "team_id", "opponent_team_id",
			"minutes", "points", "rebounds", "assists",
			"steals", "blocks", "turnovers",
		},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("failed to insert boxscores for game %s: %w", game.GameID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit game %s: %w", game.GameID, err)
	}

	log.Debug().
		Str("game_id", game.GameID).
		Int("records", len(records)).
		Msg("Boxscores replaced")

	return nil
}

// ListForGame retrieves the boxscore records for a single game
func (r *BoxscoreRepository) ListForGame(ctx context.Context, gameID string) ([]models.BoxscoreRecord, error) {
	query := `
		SELECT game_id, player_id, team_id, opponent_team_id,
		       minutes, points, rebounds, assists, steals, blocks, turnovers
		FROM boxscores
		WHERE game_id = $1
		ORDER BY player_id
	`

	rows, err := r.db.Pool.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list boxscores: %w", err)
	}
	defer rows.Close()

	var records []models.BoxscoreRecord
	for rows.Next() {
		var rec models.BoxscoreRecord
		err := rows.Scan(
			&rec.GameID, &rec.PlayerID, &rec.TeamID, &rec.OpponentTeamID,
			&rec.Minutes, &rec.Points, &rec.Rebounds, &rec.Assists,
			&rec.Steals, &rec.Blocks, &rec.Turnovers,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan boxscore: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating boxscores: %w", err)
	}

	return records, nil
}

// ListJoined retrieves every boxscore record joined to its game, ordered
// chronologically. This is the feature engine's read path; the ordering
// guarantee matters, rolling windows assume it.
func (r *BoxscoreRepository) ListJoined(ctx context.Context) ([]models.BoxscoreWithGame, error) {
	query := `
		SELECT b.game_id, b.player_id, b.team_id, b.opponent_team_id,
		       b.minutes, b.points, b.rebounds, b.assists, b.steals, b.blocks, b.turnovers,
		       g.season, g.game_date, g.home_team_id, g.away_team_id
		FROM boxscores b
		JOIN games g ON g.game_id = b.game_id
		ORDER BY g.game_date, b.game_id, b.player_id
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list joined boxscores: %w", err)
	}
	defer rows.Close()

	var result []models.BoxscoreWithGame
	for rows.Next() {
		var row models.BoxscoreWithGame
		err := rows.Scan(
			&row.GameID, &row.PlayerID, &row.TeamID, &row.OpponentTeamID,
			&row.Minutes, &row.Points, &row.Rebounds, &row.Assists,
			&row.Steals, &row.Blocks, &row.Turnovers,
			&row.Season, &row.GameDate, &row.HomeTeamID, &row.AwayTeamID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan joined boxscore: %w", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating joined boxscores: %w", err)
	}

	log.Debug().Int("count", len(result)).Msg("Joined boxscores loaded")
	return result, nil
}

// CountForGame returns the number of boxscore records for a game
func (r *BoxscoreRepository) CountForGame(ctx context.Context, gameID string) (int, error) {
	query := `SELECT COUNT(*) FROM boxscores WHERE game_id = $1`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, gameID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count boxscores: %w", err)
	}

	return count, nil
}
