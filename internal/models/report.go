package models

import (
	"time"
)

// SkippedGame records a game the connector gave up on and why.
type SkippedGame struct {
	GameID string
	Reason string
}

// IngestReport summarizes one ingestion run for a date. Partial-batch
// success is the steady state: skipped games are reported, not fatal.
type IngestReport struct {
	Date      time.Time
	Requested int
	Ingested  int
	Skipped   []SkippedGame
}

// AddSkip records a skipped game.
func (r *IngestReport) AddSkip(gameID string, reason string) {
	r.Skipped = append(r.Skipped, SkippedGame{GameID: gameID, Reason: reason})
}
