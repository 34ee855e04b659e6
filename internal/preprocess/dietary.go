package preprocess

import (
	"log/slog"

	"surveyprep/internal/dataset"
	"surveyprep/internal/registry"
)

// DietaryAverager estimates usual nutrient intake by averaging the
// day-1 and day-2 recall columns. When one day is missing the other is
// used alone; when both are missing the estimate is missing. Nutrients
// without any recall column are skipped silently.
type DietaryAverager struct {
	reg    *registry.Registry
	logger *slog.Logger
}

// NewDietaryAverager creates a dietary averager.
func NewDietaryAverager(reg *registry.Registry, logger *slog.Logger) *DietaryAverager {
	if logger == nil {
		logger = slog.Default()
	}
	return &DietaryAverager{reg: reg, logger: logger}
}

// Average returns a copy of the table with one usual-intake column per
// nutrient that has at least one recall day present. The per-day
// source columns are retained.
func (da *DietaryAverager) Average(t *dataset.Table) (*dataset.Table, error) {
	out := t.Clone()
	rows := out.NumRows()

	derived := 0
	var skipped []string
	for _, nutrient := range da.reg.Nutrients {
		day1 := out.Column(nutrient + "_D1")
		day2 := out.Column(nutrient + "_D2")
		if day1 == nil && day2 == nil {
			skipped = append(skipped, nutrient)
			continue
		}
		values := make([]float64, rows)
		for i := 0; i < rows; i++ {
			sum := 0.0
			n := 0
			for _, day := range []*dataset.Column{day1, day2} {
				if day == nil {
					continue
				}
				v := day.Values[i]
				if dataset.IsMissing(v) {
					continue
				}
				sum += v
				n++
			}
			if n == 0 {
				values[i] = dataset.Missing()
				continue
			}
			values[i] = sum / float64(n)
		}
		if err := out.SetColumn(nutrient, dataset.KindNumeric, values); err != nil {
			return nil, err
		}
		derived++
	}

	if len(skipped) > 0 {
		da.logger.Debug("nutrients without recall columns skipped",
			slog.Any("skipped", skipped))
	}
	da.logger.Info("dietary averaging complete",
		slog.Int("nutrients", derived),
		slog.Int("skipped", len(skipped)),
	)
	return out, nil
}
