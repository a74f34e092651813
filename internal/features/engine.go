package features

import (
	"context"
	"fmt"
	"sort"
	"time"

	"nba_forecasting/pipeline/internal/metrics"
	"nba_forecasting/pipeline/internal/models"

	"github.com/rs/zerolog/log"
)

// Stats that get trailing windows per player. fantasy_points is derived
// from the counting stats via the dk-v1 formula before windowing.
var rollingStats = []string{
	"minutes", "points", "rebounds", "assists",
	"steals", "blocks", "turnovers", "fantasy_points",
}

// Stats aggregated into opponent-allowed (DvP) windows.
var allowedStats = []string{
	"points", "rebounds", "assists",
	"steals", "blocks", "turnovers", "fantasy_points",
}

// Config controls feature derivation.
type Config struct {
	// Trailing window sizes, e.g. 5, 10, 20 prior games.
	Windows []int
	// RestSubject selects whose previous game anchors rest and travel:
	// "player" or "team".
	RestSubject string
}

// Reader is the read half of the normalized store the engine needs.
type Reader interface {
	ListJoined(ctx context.Context) ([]models.BoxscoreWithGame, error)
}

// Engine derives the feature table from ingested games and boxscores.
// It is pure computation over store contents: no network, deterministic,
// and it never writes back to the normalized store.
type Engine struct {
	store     Reader
	locations Locations
	cfg       Config
}

// NewEngine creates a feature engine. The team-location lookup is
// required; rest of the config falls back to defaults.
func NewEngine(store Reader, locations Locations, cfg Config) (*Engine, error) {
	if len(locations) == 0 {
		return nil, ErrMissingLocations
	}

	if len(cfg.Windows) == 0 {
		cfg.Windows = []int{5, 10, 20}
	}
	windows := append([]int(nil), cfg.Windows...)
	sort.Ints(windows)
	cfg.Windows = windows

	if cfg.RestSubject == "" {
		cfg.RestSubject = "player"
	}
	if cfg.RestSubject != "player" && cfg.RestSubject != "team" {
		return nil, fmt.Errorf("invalid rest subject %q", cfg.RestSubject)
	}

	return &Engine{store: store, locations: locations, cfg: cfg}, nil
}

// FeatureColumns returns the derived column names for a window set, in
// the order they appear in the feature table.
func FeatureColumns(windows []int) []string {
	var cols []string
	for _, stat := range rollingStats {
		for _, w := range windows {
			cols = append(cols, fmt.Sprintf("%s_last_%d", stat, w))
		}
	}
	for _, w := range windows {
		cols = append(cols, fmt.Sprintf("consistency_%d", w))
	}
	cols = append(cols, "usage_proxy", "days_rest", "back_to_back", "short_rest", "travel_km")
	for _, stat := range allowedStats {
		for _, w := range windows {
			cols = append(cols, fmt.Sprintf("opp_%s_allowed_last_%d", stat, w))
		}
	}
	return cols
}

// Columns returns the engine's derived column names.
func (e *Engine) Columns() []string {
	return FeatureColumns(e.cfg.Windows)
}

// BuildFeatures derives one FeatureRow per boxscore record. Every rolling
// and opponent aggregate at a row uses only that player's or team's
// strictly prior rows; nothing from the row's own game or later leaks in.
func (e *Engine) BuildFeatures(ctx context.Context) ([]models.FeatureRow, error) {
	start := time.Now()

	rows, err := e.store.ListJoined(ctx)
	if err != nil {
		metrics.RecordError("features", "store_read")
		return nil, fmt.Errorf("failed to load boxscores: %w", err)
	}

	// The store already orders by (date, game, player); re-sorting keeps
	// the invariant independent of the reader.
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].GameDate.Equal(rows[j].GameDate) {
			return rows[i].GameDate.Before(rows[j].GameDate)
		}
		if rows[i].GameID != rows[j].GameID {
			return rows[i].GameID < rows[j].GameID
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})

	allowed := e.buildOpponentAllowed(rows)

	histories := make(map[int64]map[string][]float64)
	travel := newTravelTracker(e.cfg.RestSubject, e.locations)
	maxWindow := e.cfg.Windows[len(e.cfg.Windows)-1]

	out := make([]models.FeatureRow, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		fp := r.FantasyPoints()

		fr := models.FeatureRow{
			GameID:        r.GameID,
			PlayerID:      r.PlayerID,
			TeamID:        r.TeamID,
			GameDate:      r.GameDate,
			Minutes:       r.Minutes,
			Points:        r.Points,
			Rebounds:      r.Rebounds,
			Assists:       r.Assists,
			Steals:        r.Steals,
			Blocks:        r.Blocks,
			Turnovers:     r.Turnovers,
			FantasyPoints: fp,
		}
		if r.OpponentTeamID.Valid {
			fr.OpponentTeamID = r.OpponentTeamID.Int64
		}

		hist := histories[r.PlayerID]
		if hist == nil {
			hist = make(map[string][]float64, len(rollingStats))
			histories[r.PlayerID] = hist
		}

		for _, stat := range rollingStats {
			for _, w := range e.cfg.Windows {
				if v, ok := rollingMean(hist[stat], w); ok {
					fr.SetFeature(fmt.Sprintf("%s_last_%d", stat, w), v)
				}
			}
		}

		for _, w := range e.cfg.Windows {
			if std, ok := rollingStd(hist["fantasy_points"], w); ok {
				fr.SetFeature(fmt.Sprintf("consistency_%d", w), 1/(1+std))
			}
		}

		if v, ok := rollingSumRatio(hist["fantasy_points"], hist["minutes"], maxWindow); ok {
			fr.SetFeature("usage_proxy", v)
		}

		travel.apply(r, &fr)

		if r.OpponentTeamID.Valid {
			for name, v := range allowed.lookup(r.OpponentTeamID.Int64, r.GameDate) {
				fr.SetFeature(name, v)
			}
		}

		// Current row joins the history only after its features are set
		for _, stat := range rollingStats {
			hist[stat] = append(hist[stat], statValue(r, stat, fp))
		}

		out = append(out, fr)
	}

	metrics.FeatureBuildDuration.Observe(time.Since(start).Seconds())
	metrics.FeatureRows.Set(float64(len(out)))

	log.Info().
		Int("rows", len(out)).
		Ints("windows", e.cfg.Windows).
		Str("scoring", models.ScoringVersion).
		Dur("duration", time.Since(start)).
		Msg("Feature table built")

	return out, nil
}

func statValue(r *models.BoxscoreWithGame, stat string, fp float64) float64 {
	switch stat {
	case "minutes":
		return r.Minutes
	case "points":
		return float64(r.Points)
	case "rebounds":
		return float64(r.Rebounds)
	case "assists":
		return float64(r.Assists)
	case "steals":
		return float64(r.Steals)
	case "blocks":
		return float64(r.Blocks)
	case "turnovers":
		return float64(r.Turnovers)
	case "fantasy_points":
		return fp
	default:
		return 0
	}
}

// travelTracker derives rest days, short-rest flags and travel distance
// from the subject's previous game. The subject is the player or the
// team, per config.
type travelTracker struct {
	subjectIsTeam bool
	locations     Locations
	states        map[int64]*subjectState
}

type subjectState struct {
	lastGameID string

	curDate    time.Time
	curVenue   Coord
	curVenueOK bool

	prevDate    time.Time
	prevVenue   Coord
	prevVenueOK bool
	hasPrev     bool

	started bool
}

func newTravelTracker(subject string, locations Locations) *travelTracker {
	return &travelTracker{
		subjectIsTeam: subject == "team",
		locations:     locations,
		states:        make(map[int64]*subjectState),
	}
}

func (t *travelTracker) apply(r *models.BoxscoreWithGame, fr *models.FeatureRow) {
	subject := r.PlayerID
	if t.subjectIsTeam {
		subject = r.TeamID
	}

	st := t.states[subject]
	if st == nil {
		st = &subjectState{}
		t.states[subject] = st
	}

	// Shift on each new game for the subject. With the team subject many
	// rows share one game; rest is still relative to the previous game.
	if st.lastGameID != r.GameID {
		if st.started {
			st.prevDate = st.curDate
			st.prevVenue = st.curVenue
			st.prevVenueOK = st.curVenueOK
			st.hasPrev = true
		}
		st.lastGameID = r.GameID
		st.curDate = r.GameDate
		st.curVenue, st.curVenueOK = t.locations[r.HomeTeamID]
		st.started = true
	}

	if !st.hasPrev {
		// First observed game: rest unknown, no travel yet
		fr.SetFeature("back_to_back", 0)
		fr.SetFeature("short_rest", 0)
		fr.SetFeature("travel_km", 0)
		return
	}

	days := st.curDate.Sub(st.prevDate).Hours() / 24
	fr.SetFeature("days_rest", days)
	fr.SetFeature("back_to_back", boolFeature(days == 1))
	fr.SetFeature("short_rest", boolFeature(days >= 1 && days <= 2))

	// A missing arena coordinate propagates as a missing value, never a
	// silent zero.
	if st.prevVenueOK && st.curVenueOK {
		fr.SetFeature("travel_km", Haversine(st.prevVenue, st.curVenue))
	}
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// opponentAllowed holds trailing means of stats conceded per team,
// keyed by (team, date).
type opponentAllowed struct {
	byKey map[string]map[string]float64
}

func allowedKey(teamID int64, date time.Time) string {
	return fmt.Sprintf("%d|%s", teamID, date.Format("2006-01-02"))
}

func (oa *opponentAllowed) lookup(teamID int64, date time.Time) map[string]float64 {
	return oa.byKey[allowedKey(teamID, date)]
}

// buildOpponentAllowed sums the stats each team conceded per game date,
// then computes trailing means per team over strictly earlier dates.
func (e *Engine) buildOpponentAllowed(rows []models.BoxscoreWithGame) *opponentAllowed {
	type dayTotals struct {
		date  time.Time
		stats map[string]float64
	}

	totalsByTeam := make(map[int64][]*dayTotals)
	index := make(map[string]*dayTotals)

	for i := range rows {
		r := &rows[i]
		if !r.OpponentTeamID.Valid {
			continue
		}
		team := r.OpponentTeamID.Int64

		key := allowedKey(team, r.GameDate)
		dt := index[key]
		if dt == nil {
			dt = &dayTotals{date: r.GameDate, stats: make(map[string]float64, len(allowedStats))}
			index[key] = dt
			totalsByTeam[team] = append(totalsByTeam[team], dt)
		}

		fp := r.FantasyPoints()
		for _, stat := range allowedStats {
			dt.stats[stat] += statValue(r, stat, fp)
		}
	}

	oa := &opponentAllowed{byKey: make(map[string]map[string]float64)}

	for team, days := range totalsByTeam {
		sort.Slice(days, func(i, j int) bool { return days[i].date.Before(days[j].date) })

		hist := make(map[string][]float64, len(allowedStats))
		for _, day := range days {
			feats := make(map[string]float64)
			for _, stat := range allowedStats {
				for _, w := range e.cfg.Windows {
					if v, ok := rollingMean(hist[stat], w); ok {
						feats[fmt.Sprintf("opp_%s_allowed_last_%d", stat, w)] = v
					}
				}
			}
			if len(feats) > 0 {
				oa.byKey[allowedKey(team, day.date)] = feats
			}

			for _, stat := range allowedStats {
				hist[stat] = append(hist[stat], day.stats[stat])
			}
		}
	}

	return oa
}
