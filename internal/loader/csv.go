package loader

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"surveyprep/internal/dataset"
	"surveyprep/internal/registry"
)

// Loader reads raw extract files into tables using the registry to
// classify columns.
type Loader struct {
	reg    *registry.Registry
	logger *slog.Logger
}

// New creates a loader.
func New(reg *registry.Registry, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{reg: reg, logger: logger}
}

// ReadCSV reads a CSV file into a table. The first record is the
// header; a UTF-8 BOM on the first column is stripped. Empty cells and
// the markers NA, NaN, and "." are missing. The identifier column may
// appear under its raw or canonical name and must be present and fully
// observed.
func (l *Loader) ReadCSV(path string) (*dataset.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s: no header record", path)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = cleanHeader(h)
	}
	return l.assemble(path, header, records[1:])
}

// assemble builds a table from a header and string rows.
func (l *Loader) assemble(path string, header []string, rows [][]string) (*dataset.Table, error) {
	idCol := -1
	for i, h := range header {
		if l.isIdentifier(h) {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("%s: identifier column %s not found", path, l.reg.IDColumn)
	}

	ids := make([]int64, 0, len(rows))
	for r, row := range rows {
		if idCol >= len(row) {
			return nil, fmt.Errorf("%s: row %d has no identifier", path, r+1)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[idCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: bad identifier %q", path, r+1, row[idCol])
		}
		ids = append(ids, int64(v))
	}

	t := dataset.New(ids)
	for c, name := range header {
		if c == idCol {
			continue
		}
		values := make([]float64, len(rows))
		for r, row := range rows {
			if c >= len(row) {
				values[r] = dataset.Missing()
				continue
			}
			values[r] = parseCell(row[c])
		}
		if err := t.AddColumn(name, l.kindOf(name), values); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	l.logger.Info("extract file loaded",
		slog.String("path", path),
		slog.Int("rows", t.NumRows()),
		slog.Int("columns", t.NumCols()),
	)
	return t, nil
}

// Merge left-joins the auxiliary table's columns onto the base table by
// subject identifier. Subjects absent from the auxiliary file get
// missing values. Columns already present in the base are skipped with
// a diagnostic; an auxiliary file contributing nothing is a no-op.
func (l *Loader) Merge(base, aux *dataset.Table) (*dataset.Table, error) {
	out := base.Clone()

	auxRow := make(map[int64]int, aux.NumRows())
	for i, id := range aux.SubjectIDs() {
		auxRow[id] = i
	}

	merged := 0
	for _, name := range aux.ColumnNames() {
		if out.HasColumn(name) {
			l.logger.Warn("merge column skipped, already present", slog.String("column", name))
			continue
		}
		src := aux.Column(name)
		values := make([]float64, out.NumRows())
		for i, id := range out.SubjectIDs() {
			if j, ok := auxRow[id]; ok {
				values[i] = src.Values[j]
			} else {
				values[i] = dataset.Missing()
			}
		}
		if err := out.AddColumn(name, src.Kind, values); err != nil {
			return nil, err
		}
		merged++
	}

	l.logger.Info("auxiliary file merged",
		slog.Int("columns_added", merged),
		slog.Int("rows", out.NumRows()),
	)
	return out, nil
}

// isIdentifier reports whether the header names the subject identifier,
// directly or through the rename map.
func (l *Loader) isIdentifier(name string) bool {
	if name == l.reg.IDColumn {
		return true
	}
	return l.reg.Rename[name] == l.reg.IDColumn
}

// kindOf classifies a raw column through its canonical name.
func (l *Loader) kindOf(name string) dataset.Kind {
	if canonical, ok := l.reg.Rename[name]; ok {
		return l.reg.KindOf(canonical)
	}
	return l.reg.KindOf(name)
}

// cleanHeader strips the UTF-8 BOM and surrounding whitespace from a
// header cell.
func cleanHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimPrefix(h, "\uFEFF")
	return strings.TrimSpace(h)
}

// parseCell converts a CSV cell to a value, mapping the common missing
// markers to NaN.
func parseCell(cell string) float64 {
	s := strings.TrimSpace(cell)
	switch s {
	case "", ".", "NA", "NaN", "nan":
		return dataset.Missing()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return dataset.Missing()
	}
	return v
}
