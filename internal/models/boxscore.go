package models

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
)

// BoxscoreRecord is one player's statistical line for one completed game.
// Identity is the (game_id, player_id) pair. Records are written as a full
// per-game set and replaced atomically on re-ingestion, never merged.
type BoxscoreRecord struct {
	GameID         string        `db:"game_id"`
	PlayerID       int64         `db:"player_id"`
	TeamID         int64         `db:"team_id"`
	OpponentTeamID sql.NullInt64 `db:"opponent_team_id"`

	Minutes   float64 `db:"minutes"`
	Points    int     `db:"points"`
	Rebounds  int     `db:"rebounds"`
	Assists   int     `db:"assists"`
	Steals    int     `db:"steals"`
	Blocks    int     `db:"blocks"`
	Turnovers int     `db:"turnovers"`
}

// PlayerLine is the raw per-player row returned by the provider's boxscore
// endpoint. Minutes arrive either as "MM:SS", a bare number, or null.
type PlayerLine struct {
	GameID   string       `json:"gameId"`
	PlayerID int64        `json:"playerId"`
	TeamID   int64        `json:"teamId"`
	Minutes  MinutesValue `json:"minutes"`

	Points    int `json:"points"`
	Rebounds  int `json:"rebounds"`
	Assists   int `json:"assists"`
	Steals    int `json:"steals"`
	Blocks    int `json:"blocks"`
	Turnovers int `json:"turnovers"`
}

// MinutesValue tolerates the provider's inconsistent minutes encoding:
// string ("32:45"), number (32.75), or null.
type MinutesValue string

// UnmarshalJSON accepts a JSON string, number, or null.
func (m *MinutesValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = MinutesValue(s)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*m = MinutesValue(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}

	// Unparseable minutes are treated as not played, not an error
	*m = ""
	return nil
}

// Float parses the value into fractional minutes.
func (m MinutesValue) Float() float64 {
	return ParseMinutes(string(m))
}

// ParseMinutes converts a minutes field into fractional minutes.
// "32:45" parses to 32.75, numeric strings pass through, and anything
// missing or malformed parses to zero. It never fails.
func ParseMinutes(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	if mm, ss, found := strings.Cut(raw, ":"); found {
		mins, err1 := strconv.Atoi(strings.TrimSpace(mm))
		secs, err2 := strconv.Atoi(strings.TrimSpace(ss))
		if err1 != nil || err2 != nil || mins < 0 || secs < 0 {
			return 0
		}
		return float64(mins) + float64(secs)/60
	}

	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || val < 0 {
		return 0
	}
	return val
}

// ToRecord converts a provider row into a store record. The opponent team
// is derived by the connector from the two distinct teams in the boxscore.
func (pl *PlayerLine) ToRecord(gameID string, opponentTeamID int64) *BoxscoreRecord {
	rec := &BoxscoreRecord{
		GameID:    gameID,
		PlayerID:  pl.PlayerID,
		TeamID:    pl.TeamID,
		Minutes:   pl.Minutes.Float(),
		Points:    pl.Points,
		Rebounds:  pl.Rebounds,
		Assists:   pl.Assists,
		Steals:    pl.Steals,
		Blocks:    pl.Blocks,
		Turnovers: pl.Turnovers,
	}
	if opponentTeamID > 0 {
		rec.OpponentTeamID = sql.NullInt64{Int64: opponentTeamID, Valid: true}
	}
	return rec
}
