package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"surveyprep/internal/dataset"
)

// CSVWriter writes prepared tables to CSV files.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteOptions configures table export.
type WriteOptions struct {
	BOMPrefix bool // add UTF-8 BOM for Excel compatibility
	IDHeader  string
}

// WriteTable writes the table to filePath, one row per subject. The
// identifier column comes first, then the table's columns in their
// insertion order. Missing values are written as empty cells.
func (w *CSVWriter) WriteTable(filePath string, t *dataset.Table, options WriteOptions) error {
	if options.IDHeader == "" {
		options.IDHeader = "SEQN"
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("create %s: %w", filePath, err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	names := t.ColumnNames()
	header := append([]string{options.IDHeader}, names...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	columns := make([]*dataset.Column, len(names))
	for i, name := range names {
		columns[i] = t.Column(name)
	}

	record := make([]string, len(header))
	for r, id := range t.SubjectIDs() {
		record[0] = strconv.FormatInt(id, 10)
		for c, col := range columns {
			record[c+1] = formatValue(col.Values[r])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", filePath, err)
	}

	w.logger.Info("table exported",
		slog.String("path", filePath),
		slog.Int("rows", t.NumRows()),
		slog.Int("columns", len(header)),
	)
	return nil
}

// formatValue renders a cell for CSV output. Whole numbers print
// without a fractional part so encoded categoricals stay readable.
func formatValue(v float64) string {
	if dataset.IsMissing(v) {
		return ""
	}
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
