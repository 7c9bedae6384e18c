package table

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm")
}

// Read loads the selected sheet. If SheetName is empty the 1-based
// SheetIndex picks the sheet, defaulting to the first one.
func (xlsxReader) Read(src io.Reader, name string, opt Options) (*Table, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), name, opt)
	if err != nil {
		return nil, err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}
	t := &Table{Header: trimHeader(rows[0])}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		t.Rows = append(t.Rows, padRow(row, len(t.Header)))
	}
	return t, nil
}

func pickSheet(sheets []string, name string, opt Options) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook '%s' has no sheets", filepath.Base(name))
	}
	if opt.SheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.SheetName) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
			opt.SheetName, filepath.Base(name), strings.Join(sheets, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range: workbook '%s' has %d sheet(s)", idx, filepath.Base(name), len(sheets))
	}
	return sheets[idx-1], nil
}

// blank reports whether every cell is empty; GetRows keeps rows that only
// carry formatting.
func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
