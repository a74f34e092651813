// Package dataset cleans the feature table and splits it chronologically
// into train and test sets for model fitting.
package dataset

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"nba_forecasting/pipeline/internal/features"
	"nba_forecasting/pipeline/internal/metrics"
	"nba_forecasting/pipeline/internal/models"

	"github.com/rs/zerolog/log"
)

// Config controls cleaning and the chronological split.
type Config struct {
	// Rows with fewer minutes than this are dropped before splitting.
	MinMinutes float64
	// Fraction of rows that lands in the train set, by date cutoff.
	TrainSplitFrac float64
	// Directory where train.csv, test.csv and full.csv are written.
	OutputDir string
}

// Result reports what the partitioner produced.
type Result struct {
	TotalRows   int
	TrainRows   int
	TestRows    int
	DroppedRows int
	// Columns actually written, after all-missing columns are removed.
	Columns []string
	// Last game date included in the train set.
	Cutoff time.Time
}

// Partitioner turns a feature table into train/test/full CSV files.
type Partitioner struct {
	cfg Config
}

func NewPartitioner(cfg Config) *Partitioner {
	if cfg.TrainSplitFrac <= 0 || cfg.TrainSplitFrac >= 1 {
		cfg.TrainSplitFrac = 0.80
	}
	return &Partitioner{cfg: cfg}
}

// Partition cleans rows, splits them at the train-fraction date cutoff
// and writes the three CSV outputs. Rows sharing the cutoff date always
// land in train, so the split never separates a single game day.
func (p *Partitioner) Partition(rows []models.FeatureRow, featureColumns []string) (*Result, error) {
	cleaned, dropped := p.clean(rows)
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("no rows left after cleaning (%d dropped)", dropped)
	}

	cols := dropAllMissing(cleaned, featureColumns)

	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].GameDate.Before(cleaned[j].GameDate)
	})

	cutoffIdx := int(float64(len(cleaned)) * p.cfg.TrainSplitFrac)
	if cutoffIdx < 1 {
		cutoffIdx = 1
	}
	if cutoffIdx > len(cleaned) {
		cutoffIdx = len(cleaned)
	}
	cutoff := cleaned[cutoffIdx-1].GameDate

	var train, test []models.FeatureRow
	for i := range cleaned {
		if cleaned[i].GameDate.After(cutoff) {
			test = append(test, cleaned[i])
		} else {
			train = append(train, cleaned[i])
		}
	}

	outputs := map[string][]models.FeatureRow{
		"train.csv": train,
		"test.csv":  test,
		"full.csv":  cleaned,
	}
	for name, set := range outputs {
		path := filepath.Join(p.cfg.OutputDir, name)
		if err := features.WriteCSVFile(path, cols, set); err != nil {
			metrics.RecordError("dataset", "write_csv")
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	res := &Result{
		TotalRows:   len(cleaned),
		TrainRows:   len(train),
		TestRows:    len(test),
		DroppedRows: dropped,
		Columns:     cols,
		Cutoff:      cutoff,
	}

	metrics.RecordDatasetCounts(len(train), len(test), dropped)

	log.Info().
		Int("train_rows", res.TrainRows).
		Int("test_rows", res.TestRows).
		Int("dropped_rows", res.DroppedRows).
		Str("cutoff", cutoff.Format("2006-01-02")).
		Str("output_dir", p.cfg.OutputDir).
		Msg("Dataset partitioned")

	return res, nil
}

// clean drops low-minute rows and duplicate (game, player) pairs,
// keeping the first occurrence of a duplicate.
func (p *Partitioner) clean(rows []models.FeatureRow) ([]models.FeatureRow, int) {
	type rowKey struct {
		gameID   string
		playerID int64
	}

	seen := make(map[rowKey]struct{}, len(rows))
	out := make([]models.FeatureRow, 0, len(rows))
	dropped := 0

	for i := range rows {
		if rows[i].Minutes < p.cfg.MinMinutes {
			dropped++
			continue
		}
		key := rowKey{rows[i].GameID, rows[i].PlayerID}
		if _, dup := seen[key]; dup {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rows[i])
	}

	return out, dropped
}

// dropAllMissing removes feature columns with no present value in any
// row, preserving column order.
func dropAllMissing(rows []models.FeatureRow, columns []string) []string {
	kept := make([]string, 0, len(columns))
	for _, col := range columns {
		present := false
		for i := range rows {
			if _, ok := rows[i].Feature(col); ok {
				present = true
				break
			}
		}
		if present {
			kept = append(kept, col)
		}
	}
	return kept
}
