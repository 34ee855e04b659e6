package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyprep/internal/dataset"
)

func TestDietaryAverage(t *testing.T) {
	r := testRegistry()
	r.Nutrients = []string{"Energy_kcal", "Fiber_g"}

	tbl := buildTable(t, 4,
		testColumn{"Energy_kcal_D1", dataset.KindNumeric, []float64{2000, 1800, nan, nan}},
		testColumn{"Energy_kcal_D2", dataset.KindNumeric, []float64{2200, nan, 1600, nan}},
	)

	out, err := NewDietaryAverager(r, quiet()).Average(tbl)
	require.NoError(t, err)

	got := out.Column("Energy_kcal")
	require.NotNil(t, got)
	assert.Equal(t, dataset.KindNumeric, got.Kind)

	assert.Equal(t, 2100.0, got.Values[0], "both days averaged")
	assert.Equal(t, 1800.0, got.Values[1], "day 2 missing, day 1 alone")
	assert.Equal(t, 1600.0, got.Values[2], "day 1 missing, day 2 alone")
	assert.True(t, dataset.IsMissing(got.Values[3]), "both days missing")

	t.Run("source days retained", func(t *testing.T) {
		assert.True(t, out.HasColumn("Energy_kcal_D1"))
		assert.True(t, out.HasColumn("Energy_kcal_D2"))
	})

	t.Run("nutrient without recall columns skipped", func(t *testing.T) {
		assert.False(t, out.HasColumn("Fiber_g"))
	})
}

func TestDietaryAverageSingleDayOnly(t *testing.T) {
	r := testRegistry()
	r.Nutrients = []string{"Protein_g"}

	tbl := buildTable(t, 2,
		testColumn{"Protein_g_D1", dataset.KindNumeric, []float64{80, nan}},
	)

	out, err := NewDietaryAverager(r, quiet()).Average(tbl)
	require.NoError(t, err)

	got := out.Column("Protein_g")
	require.NotNil(t, got)
	assert.Equal(t, 80.0, got.Values[0])
	assert.True(t, dataset.IsMissing(got.Values[1]))
}
