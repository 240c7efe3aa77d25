package core

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// parseXLSX reads the first worksheet of a workbook and routes it like CSV.
// Blank rows are skipped, matching encoding/csv's handling of blank lines.
func parseXLSX(path string) (*ParseResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return &ParseResult{}, nil
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	records := make([]sourceRow, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		records = append(records, sourceRow{Line: i + 1, Cells: row})
	}

	return routeRecords(records), nil
}
