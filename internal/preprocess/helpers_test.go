package preprocess

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"surveyprep/internal/dataset"
	"surveyprep/internal/registry"
)

// quiet returns a logger that discards everything.
func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// nan is shorthand for the missing marker in test fixtures.
var nan = math.NaN()

// buildTable assembles a table from (name, kind, values) triples over
// sequential subject identifiers.
type testColumn struct {
	name   string
	kind   dataset.Kind
	values []float64
}

func buildTable(t *testing.T, rows int, columns ...testColumn) *dataset.Table {
	t.Helper()
	ids := make([]int64, rows)
	for i := range ids {
		ids[i] = int64(1000 + i)
	}
	tbl := dataset.New(ids)
	for _, c := range columns {
		require.NoError(t, tbl.AddColumn(c.name, c.kind, c.values))
	}
	return tbl
}

// testRegistry is a compact registry with a two-item instrument, used
// where the full default registry would only add noise.
func testRegistry() *registry.Registry {
	return &registry.Registry{
		Rename: map[string]string{
			"RIDAGEYR": "Age",
			"RIAGENDR": "Gender",
		},
		Encodings: map[string]map[int]float64{
			"Gender": {1: 0, 2: 1},
		},
		MissingCodes: map[string][]float64{
			"Q1": {7, 9},
			"Q2": {7, 9},
		},
		NumericColumns: map[string]bool{
			"Age": true, "MEC_Weight": true, "BMI": true, "Score": true,
			"Glucose_mgdL": true, "CRP_mgL": true,
		},
		InstrumentItems:        []string{"Q1", "Q2"},
		ImpossibleZero:         []string{"Glucose_mgdL", "BMI"},
		IDColumn:               "SEQN",
		WeightColumn:           "MEC_Weight",
		PSUColumn:              "PSU",
		StratumColumn:          "Strata",
		ScoreColumn:            "Score",
		TargetColumn:           "Target",
		FlagColumn:             "Flag",
		MissingIndicatorSource: "Poverty_Ratio",
		MissingIndicatorColumn: "Poverty_Missing",
	}
}
