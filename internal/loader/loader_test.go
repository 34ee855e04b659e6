package loader

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"surveyprep/internal/dataset"
	"surveyprep/internal/registry"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeFile(t, "demo.csv",
		"SEQN,RIDAGEYR,RIAGENDR\n"+
			"101,30,1\n"+
			"102,,2\n"+
			"103,45.5,NA\n")

	l := New(registry.Default(), quiet())
	tbl, err := l.ReadCSV(path)
	require.NoError(t, err)

	assert.Equal(t, []int64{101, 102, 103}, tbl.SubjectIDs())
	assert.Equal(t, 2, tbl.NumCols(), "identifier is not a feature column")

	age := tbl.Column("RIDAGEYR")
	require.NotNil(t, age)
	assert.Equal(t, 30.0, age.Values[0])
	assert.True(t, dataset.IsMissing(age.Values[1]), "empty cell")
	assert.Equal(t, 45.5, age.Values[2])

	sex := tbl.Column("RIAGENDR")
	assert.True(t, dataset.IsMissing(sex.Values[2]), "NA marker")
}

func TestReadCSVBOM(t *testing.T) {
	path := writeFile(t, "bom.csv", "\uFEFFSEQN,RIDAGEYR\n1,20\n")

	tbl, err := New(registry.Default(), quiet()).ReadCSV(path)
	require.NoError(t, err)
	assert.True(t, tbl.HasColumn("RIDAGEYR"))
	assert.Equal(t, []int64{1}, tbl.SubjectIDs())
}

func TestReadCSVColumnKinds(t *testing.T) {
	// Kinds follow the canonical classification even for raw names.
	path := writeFile(t, "kinds.csv", "SEQN,RIDAGEYR,RIAGENDR\n1,20,1\n")

	tbl, err := New(registry.Default(), quiet()).ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, dataset.KindNumeric, tbl.Column("RIDAGEYR").Kind)
	assert.Equal(t, dataset.KindCategorical, tbl.Column("RIAGENDR").Kind)
}

func TestReadCSVErrors(t *testing.T) {
	l := New(registry.Default(), quiet())

	t.Run("missing file", func(t *testing.T) {
		_, err := l.ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
		assert.Error(t, err)
	})

	t.Run("no identifier column", func(t *testing.T) {
		path := writeFile(t, "noid.csv", "RIDAGEYR\n30\n")
		_, err := l.ReadCSV(path)
		assert.Error(t, err)
	})

	t.Run("unparseable identifier", func(t *testing.T) {
		path := writeFile(t, "badid.csv", "SEQN,RIDAGEYR\nabc,30\n")
		_, err := l.ReadCSV(path)
		assert.Error(t, err)
	})
}

func TestMerge(t *testing.T) {
	l := New(registry.Default(), quiet())

	base := dataset.New([]int64{1, 2, 3})
	require.NoError(t, base.AddColumn("RIDAGEYR", dataset.KindNumeric, []float64{30, 40, 50}))

	// Auxiliary file covers a different, overlapping subject set.
	aux := dataset.New([]int64{3, 1, 9})
	require.NoError(t, aux.AddColumn("BMXBMI", dataset.KindNumeric, []float64{28, 22, 31}))
	require.NoError(t, aux.AddColumn("RIDAGEYR", dataset.KindNumeric, []float64{0, 0, 0}))

	out, err := l.Merge(base, aux)
	require.NoError(t, err)

	bmi := out.Column("BMXBMI")
	require.NotNil(t, bmi)
	assert.Equal(t, 22.0, bmi.Values[0], "joined by identifier, not position")
	assert.True(t, dataset.IsMissing(bmi.Values[1]), "subject absent from auxiliary file")
	assert.Equal(t, 28.0, bmi.Values[2])

	assert.Equal(t, []float64{30, 40, 50}, out.Column("RIDAGEYR").Values,
		"existing column is never overwritten")
	assert.Equal(t, []int64{1, 2, 3}, out.SubjectIDs(), "left join keeps the backbone")
	assert.Equal(t, 1, base.NumCols(), "base untouched")
}

func TestReadXLSX(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	require.NoError(t, book.SetSheetRow(sheet, "A1", &[]interface{}{"SEQN", "RIDAGEYR", "BMXBMI"}))
	require.NoError(t, book.SetSheetRow(sheet, "A2", &[]interface{}{1, 30, 22.5}))
	require.NoError(t, book.SetSheetRow(sheet, "A3", &[]interface{}{2, 41, nil}))

	path := filepath.Join(t.TempDir(), "demo.xlsx")
	require.NoError(t, book.SaveAs(path))
	require.NoError(t, book.Close())

	tbl, err := New(registry.Default(), quiet()).ReadXLSX(path)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, tbl.SubjectIDs())
	assert.Equal(t, 22.5, tbl.Column("BMXBMI").Values[0])
	assert.True(t, dataset.IsMissing(tbl.Column("BMXBMI").Values[1]),
		"trailing empty cell reads as missing")
}
