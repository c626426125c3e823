package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// maxXLSRows bounds reads of legacy workbooks.
const maxXLSRows = 100000

var ErrNoWorksheet = errors.New("no worksheet found")

type Sheet struct {
	Name string
	Rows [][]string
}

type Workbook struct {
	Sheets []Sheet
}

// Read parses an .xls or .xlsx/.xlsm workbook. Numeric cells keep their raw
// value so date serials survive.
func Read(data []byte, filename string) (*Workbook, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xls", ".xsl":
		return readXLS(data)
	default:
		return readXLSX(data)
	}
}

func readXLS(data []byte) (*Workbook, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}
	if workbook.NumSheets() == 0 {
		return nil, ErrNoWorksheet
	}

	wb := &Workbook{}
	for i := 0; i < workbook.NumSheets(); i++ {
		sheet := workbook.GetSheet(i)
		if sheet == nil {
			continue
		}

		var rows [][]string
		for r := 0; r <= int(sheet.MaxRow) && r < maxXLSRows; r++ {
			row := sheet.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, row.LastCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells[c] = row.Col(c)
			}
			rows = append(rows, cells)
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: sheet.Name, Rows: rows})
	}

	if len(wb.Sheets) == 0 {
		return nil, ErrNoWorksheet
	}
	return wb, nil
}

func readXLSX(data []byte) (*Workbook, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = file.Close() }()

	wb := &Workbook{}
	for _, name := range file.GetSheetList() {
		rows, err := file.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: name, Rows: rows})
	}

	if len(wb.Sheets) == 0 {
		return nil, ErrNoWorksheet
	}
	return wb, nil
}

// Find returns the first sheet whose upper-cased name contains one of the
// patterns, trying patterns in order, and falls back to the first sheet.
func (w *Workbook) Find(patterns ...string) *Sheet {
	if len(w.Sheets) == 0 {
		return nil
	}
	for _, p := range patterns {
		p = strings.ToUpper(p)
		for i := range w.Sheets {
			if strings.Contains(strings.ToUpper(w.Sheets[i].Name), p) {
				return &w.Sheets[i]
			}
		}
	}
	return &w.Sheets[0]
}

func normalizeHeader(header string) string {
	return strings.ToUpper(strings.TrimSpace(header))
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
