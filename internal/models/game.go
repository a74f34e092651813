package models

import (
	"time"
)

// Game represents a single NBA game in the normalized store.
// Games are keyed by the provider's game identifier and upserted
// (replace-by-identifier) whenever the provider reports the game
// for a requested date.
type Game struct {
	GameID     string    `db:"game_id"`
	Season     string    `db:"season"`
	GameDate   time.Time `db:"game_date"`
	HomeTeamID int64     `db:"home_team_id"`
	AwayTeamID int64     `db:"away_team_id"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ScheduledGame is a scoreboard entry returned by the provider for a
// requested date. Team assignments are not trusted from the scoreboard;
// the connector derives them from the boxscore rows.
type ScheduledGame struct {
	GameID   string `json:"gameId"`
	Season   string `json:"season"`
	GameDate string `json:"gameDateEst"`
}
