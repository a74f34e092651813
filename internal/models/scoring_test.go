package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFantasyPoints(t *testing.T) {
	rec := &BoxscoreRecord{
		Points:    20,
		Rebounds:  10,
		Assists:   5,
		Steals:    2,
		Blocks:    1,
		Turnovers: 3,
	}

	// 20 + 10*1.2 + 5*1.5 + 2*3 + 1*3 - 3
	assert.InDelta(t, 45.5, rec.FantasyPoints(), 1e-9)
}

func TestFantasyPointsZeroLine(t *testing.T) {
	rec := &BoxscoreRecord{}
	assert.Zero(t, rec.FantasyPoints())
}

func TestFantasyPointsTurnoverHeavy(t *testing.T) {
	// Turnovers can drive the score negative
	rec := &BoxscoreRecord{Points: 2, Turnovers: 5}
	assert.InDelta(t, -3.0, rec.FantasyPoints(), 1e-9)
}

func TestScoringVersion(t *testing.T) {
	assert.Equal(t, "dk-v1", ScoringVersion)
}
