package features

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"nba_forecasting/pipeline/internal/models"
)

// Fixed identity and raw-stat columns that precede the derived features
// in every CSV the pipeline emits.
var baseColumns = []string{
	"game_id", "player_id", "team_id", "opponent_team_id", "game_date",
	"minutes", "points", "rebounds", "assists", "steals", "blocks",
	"turnovers", "fantasy_points",
}

// WriteCSV writes the feature table with the given derived columns.
// Missing feature values are written as empty cells so downstream
// tooling can tell them apart from true zeros.
func WriteCSV(w io.Writer, featureColumns []string, rows []models.FeatureRow) error {
	cw := csv.NewWriter(w)

	header := append(append([]string(nil), baseColumns...), featureColumns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(header))
	for i := range rows {
		r := &rows[i]
		record[0] = r.GameID
		record[1] = strconv.FormatInt(r.PlayerID, 10)
		record[2] = strconv.FormatInt(r.TeamID, 10)
		record[3] = strconv.FormatInt(r.OpponentTeamID, 10)
		record[4] = r.GameDate.Format("2006-01-02")
		record[5] = formatFloat(r.Minutes)
		record[6] = strconv.Itoa(r.Points)
		record[7] = strconv.Itoa(r.Rebounds)
		record[8] = strconv.Itoa(r.Assists)
		record[9] = strconv.Itoa(r.Steals)
		record[10] = strconv.Itoa(r.Blocks)
		record[11] = strconv.Itoa(r.Turnovers)
		record[12] = formatFloat(r.FantasyPoints)

		for j, col := range featureColumns {
			if v, ok := r.Feature(col); ok {
				record[len(baseColumns)+j] = formatFloat(v)
			} else {
				record[len(baseColumns)+j] = ""
			}
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the table to path, creating parent directories as
// needed.
func WriteCSVFile(path string, featureColumns []string, rows []models.FeatureRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := WriteCSV(f, featureColumns, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
