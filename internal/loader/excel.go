package loader

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"surveyprep/internal/dataset"
)

// ReadXLSX reads the first sheet of a workbook into a table. The first
// row is the header; cell parsing follows the CSV rules. Rows shorter
// than the header are padded with missing values, which excelize
// produces for trailing empty cells.
func (l *Loader) ReadXLSX(path string) (*dataset.Table, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}

	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("%s: sheet %s has no header row", path, sheets[0])
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = cleanHeader(h)
	}
	return l.assemble(path, header, rows[1:])
}
