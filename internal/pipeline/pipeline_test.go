package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveyprep/internal/dataset"
	"surveyprep/internal/preprocess"
	"surveyprep/internal/registry"
)

var nan = math.NaN()

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rawFixture builds an eight-subject extract in raw source naming, with
// the spread of cases the full chain must handle: a clear case, a
// minor, a zero weight, two under-answered instruments (one via direct
// blanks, one via sentinel codes), a control at exactly seven answered
// items, a case at exactly the cutoff, and a missing weight.
func rawFixture(t *testing.T) *dataset.Table {
	t.Helper()
	tbl := dataset.New([]int64{1, 2, 3, 4, 5, 6, 7, 8})

	add := func(name string, kind dataset.Kind, values []float64) {
		require.NoError(t, tbl.AddColumn(name, kind, values))
	}

	add("RIDAGEYR", dataset.KindNumeric, []float64{30, 16, 40, 50, 25, 70, 45, 33})
	add("WTMEC2YR", dataset.KindNumeric, []float64{1000, 1000, 0, 1200, 800, 1500, 900, nan})
	add("RIAGENDR", dataset.KindCategorical, []float64{1, 2, 1, 2, 1, 2, 1, 2})
	add("BMXBMI", dataset.KindNumeric, []float64{22, 24, nan, 28, 21, 30, 26, 23})

	items := map[string][]float64{
		"DPQ010": {2, 0, 1, 1, 1, 2, 1, 1},
		"DPQ020": {2, 0, 1, 1, 1, 2, 1, 1},
		"DPQ030": {2, 0, 1, 1, 1, 2, 1, 1},
		"DPQ040": {2, 0, 1, 1, 0, 2, 1, 1},
		"DPQ050": {2, 0, 1, 1, 0, 2, 1, 1},
		"DPQ060": {2, 0, 1, 1, 0, 0, 1, 1},
		"DPQ070": {2, 0, 1, nan, 0, 0, 7, 1},
		"DPQ080": {2, 0, 1, nan, nan, 0, 9, 1},
		"DPQ090": {2, 0, 1, nan, nan, 0, 7, 1},
	}
	for _, name := range []string{
		"DPQ010", "DPQ020", "DPQ030", "DPQ040", "DPQ050",
		"DPQ060", "DPQ070", "DPQ080", "DPQ090",
	} {
		add(name, dataset.KindCategorical, items[name])
	}
	return tbl
}

func TestPipelineEndToEnd(t *testing.T) {
	reg := registry.Default()
	manager, err := NewManager(reg, preprocess.DefaultParams(), quiet())
	require.NoError(t, err)

	input := rawFixture(t)
	out, state, err := manager.Run(context.Background(), input)
	require.NoError(t, err)

	t.Run("all stages completed", func(t *testing.T) {
		for _, st := range state.Stages() {
			assert.Equal(t, StatusCompleted, st.Status, st.ID)
		}
	})

	t.Run("row count preserved", func(t *testing.T) {
		assert.Equal(t, 8, out.NumRows())
	})

	t.Run("input untouched", func(t *testing.T) {
		assert.True(t, input.HasColumn("RIDAGEYR"))
		assert.True(t, dataset.IsMissing(input.Column("BMXBMI").Values[2]))
	})

	t.Run("encoding", func(t *testing.T) {
		assert.Equal(t, []float64{0, 1, 0, 1, 0, 1, 0, 1}, out.Column("Gender").Values)
	})

	t.Run("score and target", func(t *testing.T) {
		score := out.Column("PHQ9_Score").Values
		target := out.Column("Depression").Values

		assert.Equal(t, 18.0, score[0])
		assert.Equal(t, 1.0, target[0])
		assert.Equal(t, 0.0, score[1])
		assert.Equal(t, 9.0, score[2])
		assert.True(t, dataset.IsMissing(score[3]), "six items answered")
		assert.Equal(t, 3.0, score[4])
		assert.Equal(t, 1.0, target[5], "sum ten is exactly the cutoff")
		assert.True(t, dataset.IsMissing(score[6]), "sentinel codes blank three items")
		assert.Equal(t, 9.0, score[7])

		for i := 1; i <= 9; i++ {
			name := fmt.Sprintf("DPQ0%d0", i)
			assert.False(t, out.HasColumn(name), name)
		}
	})

	t.Run("eligibility", func(t *testing.T) {
		want := []float64{1, 0, 0, 0, 1, 1, 0, 0}
		assert.Equal(t, want, out.Column("In_Analysis").Values)
	})

	t.Run("weighted population", func(t *testing.T) {
		flag := out.Column("In_Analysis").Values
		weight := out.Column("MEC_Weight").Values
		total := 0.0
		for i, f := range flag {
			if f == 1 {
				total += weight[i]
			}
		}
		assert.InDelta(t, 3300.0, total, 1e-9)
	})

	t.Run("imputation fills features, not design variables", func(t *testing.T) {
		assert.False(t, dataset.IsMissing(out.Column("BMI").Values[2]))
		assert.True(t, dataset.IsMissing(out.Column("MEC_Weight").Values[7]))
		assert.True(t, dataset.IsMissing(out.Column("PHQ9_Score").Values[3]))
	})

	t.Run("derived indices", func(t *testing.T) {
		require.True(t, out.HasColumn("BMI_Category"))
		assert.Equal(t, 1.0, out.Column("BMI_Category").Values[0], "BMI 22")
		assert.Equal(t, 2.0, out.Column("BMI_Category").Values[3], "BMI 28")
	})
}

func TestPipelineSyntheticCohort(t *testing.T) {
	reg := registry.Default()
	manager, err := NewManager(reg, preprocess.DefaultParams(), quiet())
	require.NoError(t, err)

	// 100 subjects, ages 10 to 90, a known missingness pattern on the
	// instrument, and a known weight distribution.
	const n = 100
	ids := make([]int64, n)
	age := make([]float64, n)
	weight := make([]float64, n)
	sex := make([]float64, n)
	items := make([][]float64, 9)
	for j := range items {
		items[j] = make([]float64, n)
	}

	answered := func(i int) int {
		if i%5 == 0 {
			return 6
		}
		return 9
	}
	for i := 0; i < n; i++ {
		ids[i] = int64(i + 1)
		age[i] = float64(10 + i%81)
		weight[i] = float64(100 + 10*i)
		if i%7 == 0 {
			weight[i] = 0
		}
		sex[i] = float64(1 + i%2)
		for j := range items {
			if j < answered(i) {
				items[j][i] = float64(i % 4)
			} else {
				items[j][i] = nan
			}
		}
	}

	tbl := dataset.New(ids)
	require.NoError(t, tbl.AddColumn("RIDAGEYR", dataset.KindNumeric, age))
	require.NoError(t, tbl.AddColumn("WTMEC2YR", dataset.KindNumeric, weight))
	require.NoError(t, tbl.AddColumn("RIAGENDR", dataset.KindCategorical, sex))
	for j := range items {
		require.NoError(t, tbl.AddColumn(fmt.Sprintf("DPQ0%d0", j+1), dataset.KindCategorical, items[j]))
	}

	out, _, err := manager.Run(context.Background(), tbl)
	require.NoError(t, err)
	require.Equal(t, n, out.NumRows())

	flag := out.Column("In_Analysis").Values
	wantTotal := 0.0
	for i := 0; i < n; i++ {
		eligible := age[i] >= 18 && answered(i) >= 7 && weight[i] > 0
		if eligible {
			assert.Equal(t, 1.0, flag[i], "subject %d", ids[i])
			wantTotal += weight[i]
		} else {
			assert.Equal(t, 0.0, flag[i], "subject %d", ids[i])
		}
	}

	gotTotal := 0.0
	for i, f := range flag {
		if f == 1 {
			gotTotal += out.Column("MEC_Weight").Values[i]
		}
	}
	assert.InDelta(t, wantTotal, gotTotal, 1e-6)
}

func TestDropMissingTarget(t *testing.T) {
	reg := registry.Default()
	manager, err := NewManager(reg, preprocess.DefaultParams(), quiet())
	require.NoError(t, err)

	out, _, err := manager.Run(context.Background(), rawFixture(t))
	require.NoError(t, err)

	filtered, dropped := DropMissingTarget(out, reg.ScoreColumn)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 6, filtered.NumRows())
	assert.Equal(t, []int64{1, 2, 3, 5, 6, 8}, filtered.SubjectIDs())

	t.Run("absent score column is a no-op", func(t *testing.T) {
		same, dropped := DropMissingTarget(out, "NoSuchColumn")
		assert.Equal(t, 0, dropped)
		assert.Equal(t, out.NumRows(), same.NumRows())
	})
}

// rowDropStage violates the row-count invariant on purpose.
type rowDropStage struct{}

func (s *rowDropStage) ID() string   { return "rowdrop" }
func (s *rowDropStage) Name() string { return "Row Drop" }
func (s *rowDropStage) Execute(ctx context.Context, state *State) error {
	state.SetTable(state.Table().FilterRows(func(row int) bool { return row > 0 }))
	return nil
}

func TestRunRejectsRowCountChange(t *testing.T) {
	manager := NewManagerWithStages([]Stage{&rowDropStage{}}, quiet())

	tbl := dataset.New([]int64{1, 2, 3})
	require.NoError(t, tbl.AddColumn("Age", dataset.KindNumeric, []float64{30, 40, 50}))

	_, state, err := manager.Run(context.Background(), tbl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "changed row count")
	assert.Equal(t, StatusFailed, state.Stage("rowdrop").Status)
}

// failingStage always errors.
type failingStage struct{}

func (s *failingStage) ID() string   { return "boom" }
func (s *failingStage) Name() string { return "Boom" }
func (s *failingStage) Execute(ctx context.Context, state *State) error {
	return fmt.Errorf("synthetic failure")
}

func TestRunStopsAtFailedStage(t *testing.T) {
	reg := registry.Default()
	clean := NewCleanStage(reg, preprocess.DefaultParams(), quiet())
	manager := NewManagerWithStages([]Stage{&failingStage{}, clean}, quiet())

	tbl := dataset.New([]int64{1})
	require.NoError(t, tbl.AddColumn("Age", dataset.KindNumeric, []float64{30}))

	_, state, err := manager.Run(context.Background(), tbl)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, state.Stage("boom").Status)
	assert.Equal(t, StatusPending, state.Stage(StageIDClean).Status,
		"downstream stages never start")
}

func TestRunCancelled(t *testing.T) {
	reg := registry.Default()
	manager, err := NewManager(reg, preprocess.DefaultParams(), quiet())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = manager.Run(ctx, rawFixture(t))
	assert.Error(t, err)
}

func TestNewManagerValidates(t *testing.T) {
	reg := registry.Default()

	t.Run("bad params", func(t *testing.T) {
		params := preprocess.DefaultParams()
		params.Neighbors = 0
		_, err := NewManager(reg, params, quiet())
		assert.Error(t, err)
	})

	t.Run("bad registry", func(t *testing.T) {
		broken := registry.Default()
		broken.IDColumn = ""
		_, err := NewManager(broken, preprocess.DefaultParams(), quiet())
		assert.Error(t, err)
	})
}
