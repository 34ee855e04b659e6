package preprocess

import (
	"log/slog"

	"surveyprep/internal/dataset"
	"surveyprep/internal/registry"
)

// TargetDeriver computes the composite screening score and the binary
// clinical target from the multi-item instrument, then removes the raw
// item columns so they cannot leak into downstream models.
type TargetDeriver struct {
	reg    *registry.Registry
	params Params
	logger *slog.Logger
}

// NewTargetDeriver creates a target deriver.
func NewTargetDeriver(reg *registry.Registry, params Params, logger *slog.Logger) *TargetDeriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &TargetDeriver{reg: reg, params: params, logger: logger}
}

// Derive returns a copy of the table with the score and target columns
// appended and the raw instrument items removed.
//
// The score is a min-count sum: defined only when at least MinAnswered
// of the items are observed, and then equal to their exact sum. A
// skip-missing sum would bias partially answered instruments toward
// artificially low scores. A missing score propagates to a missing
// target; rows are never dropped here.
func (d *TargetDeriver) Derive(t *dataset.Table) (*dataset.Table, error) {
	out := t.Clone()
	rows := out.NumRows()

	var items []*dataset.Column
	var missing []string
	for _, name := range d.reg.InstrumentItems {
		if col := out.Column(name); col != nil {
			items = append(items, col)
		} else {
			missing = append(missing, name)
		}
	}

	score := make([]float64, rows)
	target := make([]float64, rows)

	if len(items) == 0 {
		// No instrument present at all: the target exists but is
		// missing everywhere. Local, non-fatal configuration problem.
		for i := range score {
			score[i] = dataset.Missing()
			target[i] = dataset.Missing()
		}
		d.logger.Warn("instrument columns unavailable, target left missing",
			slog.Any("missing_columns", missing))
	} else {
		if len(missing) > 0 {
			d.logger.Warn("instrument partially available",
				slog.Int("present", len(items)),
				slog.Any("missing_columns", missing))
		}
		for i := 0; i < rows; i++ {
			sum := 0.0
			answered := 0
			for _, item := range items {
				v := item.Values[i]
				if dataset.IsMissing(v) {
					continue
				}
				sum += v
				answered++
			}
			if answered >= d.params.MinAnswered {
				score[i] = sum
				if sum >= d.params.ScoreCutoff {
					target[i] = 1
				} else {
					target[i] = 0
				}
			} else {
				score[i] = dataset.Missing()
				target[i] = dataset.Missing()
			}
		}
	}

	if err := out.SetColumn(d.reg.ScoreColumn, dataset.KindNumeric, score); err != nil {
		return nil, err
	}
	if err := out.SetColumn(d.reg.TargetColumn, dataset.KindCategorical, target); err != nil {
		return nil, err
	}

	// Remove the raw items to prevent leakage into imputation and
	// modeling.
	dropped := 0
	for _, name := range d.reg.InstrumentItems {
		if out.DropColumn(name) {
			dropped++
		}
	}

	defined := 0
	for _, v := range score {
		if !dataset.IsMissing(v) {
			defined++
		}
	}
	d.logger.Info("target derived",
		slog.Int("rows", rows),
		slog.Int("scores_defined", defined),
		slog.Int("items_dropped", dropped),
	)
	return out, nil
}

// BlankItemSentinels replaces the instrument sentinel codes with the
// missing marker ahead of score computation. The cleaner normally does
// this via the registry's missing-code map; this entry point exists for
// callers deriving a target from an otherwise uncleaned table.
func (d *TargetDeriver) BlankItemSentinels(t *dataset.Table) {
	for _, name := range d.reg.InstrumentItems {
		col := t.Column(name)
		if col == nil {
			continue
		}
		for i, v := range col.Values {
			for _, code := range d.reg.MissingCodes[name] {
				if v == code {
					col.Values[i] = dataset.Missing()
					break
				}
			}
		}
	}
}
