package preprocess

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyprep/internal/dataset"
)

func TestLogTransforms(t *testing.T) {
	tbl := buildTable(t, 3,
		testColumn{"CRP_mgL", dataset.KindNumeric, []float64{0, 0.99, nan}},
	)

	out, skipped, err := NewFeatureEngineer(testRegistry(), DefaultParams(), quiet()).Engineer(tbl)
	require.NoError(t, err)
	assert.Contains(t, skipped, "Log_Lead")
	assert.Contains(t, skipped, "Log_Cadmium")
	assert.Contains(t, skipped, "Log_Mercury")

	got := out.Column("Log_CRP")
	require.NotNil(t, got)
	assert.InDelta(t, math.Log10(0.01), got.Values[0], 1e-12, "epsilon keeps zero finite")
	assert.InDelta(t, 0.0, got.Values[1], 1e-12)
	assert.True(t, dataset.IsMissing(got.Values[2]))
}

func TestInflammationFlag(t *testing.T) {
	tbl := buildTable(t, 4,
		testColumn{"CRP_mgL", dataset.KindNumeric, []float64{9.9, 10, 15, nan}},
	)

	out, _, err := NewFeatureEngineer(testRegistry(), DefaultParams(), quiet()).Engineer(tbl)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, 1, 0}, out.Column("is_acute_inflammation").Values,
		"missing CRP never raises the flag")
}

func TestBMICategories(t *testing.T) {
	tests := []struct {
		bmi  float64
		want float64
	}{
		{10, 0},
		{18.5, 0},
		{18.6, 1},
		{25, 1},
		{27, 2},
		{30, 2},
		{31, 3},
		{100, 3},
	}
	values := make([]float64, len(tests))
	for i, tt := range tests {
		values[i] = tt.bmi
	}
	values = append(values, nan, 0, 101)
	tbl := buildTable(t, len(values),
		testColumn{"BMI", dataset.KindNumeric, values},
	)

	out, _, err := NewFeatureEngineer(testRegistry(), DefaultParams(), quiet()).Engineer(tbl)
	require.NoError(t, err)

	got := out.Column("BMI_Category").Values
	for i, tt := range tests {
		assert.Equal(t, tt.want, got[i], "BMI %g", tt.bmi)
	}
	assert.True(t, dataset.IsMissing(got[len(tests)]), "missing BMI")
	assert.True(t, dataset.IsMissing(got[len(tests)+1]), "zero is outside the bins")
	assert.True(t, dataset.IsMissing(got[len(tests)+2]), "above the top cut")
}

func TestMetabolicIndices(t *testing.T) {
	tbl := buildTable(t, 2,
		testColumn{"BP_Systolic", dataset.KindNumeric, []float64{120, nan}},
		testColumn{"BP_Diastolic", dataset.KindNumeric, []float64{80, 70}},
		testColumn{"Triglycerides_mgdL", dataset.KindNumeric, []float64{150, 100}},
		testColumn{"Glucose_mgdL", dataset.KindNumeric, []float64{100, nan}},
	)

	out, skipped, err := NewFeatureEngineer(testRegistry(), DefaultParams(), quiet()).Engineer(tbl)
	require.NoError(t, err)

	mapCol := out.Column("MAP")
	require.NotNil(t, mapCol)
	assert.InDelta(t, 80+40.0/3.0, mapCol.Values[0], 1e-9)
	assert.True(t, dataset.IsMissing(mapCol.Values[1]))

	tyg := out.Column("TyG_Index")
	require.NotNil(t, tyg)
	assert.InDelta(t, math.Log(150*100/2.0), tyg.Values[0], 1e-9)
	assert.True(t, dataset.IsMissing(tyg.Values[1]))

	// Cholesterol and uric acid are absent, so the combined score is
	// skipped rather than built on a partial basis.
	assert.Contains(t, skipped, "Metabolic_Score")
}

func TestFiltrationRate(t *testing.T) {
	tbl := buildTable(t, 4,
		testColumn{"Age", dataset.KindNumeric, []float64{50, 50, 50, 50}},
		testColumn{"Gender", dataset.KindCategorical, []float64{0, 1, 0, 1}},
		testColumn{"Creatinine_mgdL", dataset.KindNumeric, []float64{0.9, 0.7, 0, nan}},
	)

	out, _, err := NewFeatureEngineer(testRegistry(), DefaultParams(), quiet()).Engineer(tbl)
	require.NoError(t, err)

	got := out.Column("eGFR").Values

	// Male at the k point: ratio 1, both power terms collapse to 1.
	wantMale := 142 * math.Pow(0.9938, 50)
	assert.InDelta(t, wantMale, got[0], 1e-9)

	// Female at the k point additionally carries the 1.012 factor.
	wantFemale := 142 * math.Pow(0.9938, 50) * 1.012
	assert.InDelta(t, wantFemale, got[1], 1e-9)

	assert.True(t, dataset.IsMissing(got[2]), "zero creatinine")
	assert.True(t, dataset.IsMissing(got[3]), "missing creatinine")
}

func TestCompositeZSum(t *testing.T) {
	tbl := buildTable(t, 3,
		testColumn{"A", dataset.KindNumeric, []float64{1, 2, 3}},
		testColumn{"B", dataset.KindNumeric, []float64{10, 20, nan}},
	)

	t.Run("skip missing", func(t *testing.T) {
		got := compositeZSum(tbl, []string{"A", "B"}, nil, true)
		// Row 2 keeps only its A term.
		assert.InDelta(t, 1.0, got[2], 1e-9)
		assert.InDelta(t, (-1.0)+(-math.Sqrt2/2), got[0], 1e-9)
	})

	t.Run("propagate missing", func(t *testing.T) {
		got := compositeZSum(tbl, []string{"A", "B"}, nil, false)
		assert.True(t, dataset.IsMissing(got[2]))
		assert.False(t, dataset.IsMissing(got[0]))
	})

	t.Run("signed terms", func(t *testing.T) {
		got := compositeZSum(tbl, []string{"A"}, []string{"A"}, false)
		for _, v := range got {
			assert.InDelta(t, 0.0, v, 1e-12, "plus and minus of the same column cancel")
		}
	})
}

func TestCompositeZSumZeroVariance(t *testing.T) {
	tbl := buildTable(t, 3,
		testColumn{"C", dataset.KindNumeric, []float64{5, 5, 5}},
	)
	got := compositeZSum(tbl, []string{"C"}, nil, false)
	assert.Equal(t, []float64{0, 0, 0}, got, "zero variance degrades to mean-centering")
}

func TestEngineerSkipsAbsentInputs(t *testing.T) {
	tbl := buildTable(t, 1,
		testColumn{"Age", dataset.KindNumeric, []float64{40}},
	)

	out, skipped, err := NewFeatureEngineer(testRegistry(), DefaultParams(), quiet()).Engineer(tbl)
	require.NoError(t, err)

	assert.Contains(t, skipped, "BMI_Category")
	assert.Contains(t, skipped, "CDAI")
	assert.Contains(t, skipped, "DII")
	assert.Contains(t, skipped, "MAP")
	assert.Contains(t, skipped, "eGFR")
	assert.Equal(t, 1, out.NumRows())
}
