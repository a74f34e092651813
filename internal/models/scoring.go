package models

// ScoringVersion names the fantasy scoring coefficient set applied
// everywhere in this pipeline. Logged with every feature build so a
// dataset can be traced back to its formula.
const ScoringVersion = "dk-v1"

// Scoring coefficients for ScoringVersion. Turnovers count against.
const (
	scorePoints    = 1.0
	scoreRebounds  = 1.2
	scoreAssists   = 1.5
	scoreSteals    = 3.0
	scoreBlocks    = 3.0
	scoreTurnovers = -1.0
)

// FantasyPoints applies the dk-v1 scoring formula to a statistical line.
func (r *BoxscoreRecord) FantasyPoints() float64 {
	return scorePoints*float64(r.Points) +
		scoreRebounds*float64(r.Rebounds) +
		scoreAssists*float64(r.Assists) +
		scoreSteals*float64(r.Steals) +
		scoreBlocks*float64(r.Blocks) +
		scoreTurnovers*float64(r.Turnovers)
}
