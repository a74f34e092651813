package models

import (
	"time"
)

// BoxscoreWithGame is a boxscore record joined to its game, the unit the
// feature engine reads from the store in (game_date, game_id) order.
type BoxscoreWithGame struct {
	BoxscoreRecord

	Season     string
	GameDate   time.Time
	HomeTeamID int64
	AwayTeamID int64
}

// FeatureRow is one derived row of the feature table: the identity and raw
// stats of a BoxscoreRecord plus its derived feature columns. Derived
// values live in Features keyed by column name; an absent key means the
// value is missing (e.g. no prior games, unknown arena coordinate) and is
// written as an empty cell, never silently zeroed.
type FeatureRow struct {
	GameID         string
	PlayerID       int64
	TeamID         int64
	OpponentTeamID int64 // zero when not derivable
	GameDate       time.Time

	Minutes       float64
	Points        int
	Rebounds      int
	Assists       int
	Steals        int
	Blocks        int
	Turnovers     int
	FantasyPoints float64

	Features map[string]float64
}

// Feature returns a derived value and whether it is present.
func (fr *FeatureRow) Feature(name string) (float64, bool) {
	v, ok := fr.Features[name]
	return v, ok
}

// SetFeature records a derived value.
func (fr *FeatureRow) SetFeature(name string, v float64) {
	if fr.Features == nil {
		fr.Features = make(map[string]float64)
	}
	fr.Features[name] = v
}
