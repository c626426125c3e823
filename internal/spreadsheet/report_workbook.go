package spreadsheet

import (
	"fmt"
	"strings"

	"fieldops-server/internal/domain"

	"github.com/xuri/excelize/v2"
)

// Report sheet layout.
const (
	reportHeaderRow = 6
	reportFirstRow  = 7
	reportNoteStart = 36
	reportNoteRows  = 7
	reportLastCol   = "O"
)

var reportHeaders = []string{
	"Nominativo", "Matricola", "PDR", "Via", "Comune", "CAP", "Recapito",
	"Attività", "Accessibilità", "Fascia oraria", "Cambio", "Mini bag", "RG stop", "Assente",
}

var reportWidths = []float64{24, 14, 18, 36, 16, 8, 16, 11, 16, 14, 8, 8, 8, 8, 3}

type reportStyles struct {
	grid   int
	header int
	label  int
}

func newReportStyles(f *excelize.File) (*reportStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	grid, err := f.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{
		Border:    border,
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9D9D9"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, err
	}
	label, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	return &reportStyles{grid: grid, header: header, label: label}, nil
}

// WriteReportWorkbook renders one worksheet per report. date is the
// dd/mm/yyyy label printed in B2. In combined mode the operator cell stays
// empty.
func WriteReportWorkbook(date string, reports []domain.OperatorReport, combined bool) ([]byte, error) {
	return writeWorkbook(reports, combined, func(f *excelize.File, styles *reportStyles, report domain.OperatorReport, operator string) error {
		return writeReportSheet(f, styles, report, date, operator)
	})
}

type sheetWriter func(f *excelize.File, styles *reportStyles, report domain.OperatorReport, operator string) error

// writeWorkbook creates one sheet per report, named after it, and fills it
// with write.
func writeWorkbook(reports []domain.OperatorReport, combined bool, write sheetWriter) ([]byte, error) {
	if len(reports) == 0 {
		return nil, ErrNoRows
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	styles, err := newReportStyles(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create styles: %w", err)
	}

	keepDefault := false
	for _, report := range reports {
		if report.Name == "Sheet1" {
			keepDefault = true
		} else if _, err := f.NewSheet(report.Name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %q: %w", report.Name, err)
		}

		operator := report.Name
		if combined {
			operator = ""
		}
		if err := write(f, styles, report, operator); err != nil {
			return nil, fmt.Errorf("failed to write sheet %q: %w", report.Name, err)
		}
	}

	if !keepDefault {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeReportSheet(f *excelize.File, styles *reportStyles, report domain.OperatorReport, date, operator string) error {
	sheet := report.Name

	for i, w := range reportWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}

	cells := map[string]interface{}{
		"A2": "Data",
		"B2": date,
		"A4": "Operatore",
		"B4": operator,
	}
	for cell, v := range cells {
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, "A2", "A4", styles.label); err != nil {
		return err
	}

	header := make([]interface{}, len(reportHeaders))
	for i, h := range reportHeaders {
		header[i] = h
	}
	headerCell, _ := excelize.CoordinatesToCellName(1, reportHeaderRow)
	if err := f.SetSheetRow(sheet, headerCell, &header); err != nil {
		return err
	}

	row := reportFirstRow
	for _, r := range report.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []interface{}{
			r.Name, r.Serial, r.FormattedPDR(), r.Street, r.Town, r.PostalCode, r.Phone,
			r.ActivityCode(), r.Accessibility, r.TimeSlot,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		row++
	}

	// The note block sits below the body, pushed down when the body is long.
	noteStart := max(reportNoteStart, row+1)
	noteEnd := noteStart + reportNoteRows - 1
	bodyEnd := noteStart - 2

	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", reportHeaderRow), fmt.Sprintf("%s%d", reportLastCol, reportHeaderRow), styles.header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", reportFirstRow), fmt.Sprintf("%s%d", reportLastCol, bodyEnd), styles.grid); err != nil {
		return err
	}

	for i, n := range report.Notes {
		if i >= reportNoteRows {
			break
		}
		cell, _ := excelize.CoordinatesToCellName(1, noteStart+i)
		values := []interface{}{n.Name, n.Street, n.Note}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", noteStart), fmt.Sprintf("C%d", noteEnd), styles.grid); err != nil {
		return err
	}

	return setReportPrintLayout(f, sheet, noteEnd)
}

func setReportPrintLayout(f *excelize.File, sheet string, lastRow int) error {
	orientation := "landscape"
	fitWidth, fitHeight := 1, 0
	if err := f.SetPageLayout(sheet, &excelize.PageLayoutOptions{
		Orientation: &orientation,
		FitToWidth:  &fitWidth,
		FitToHeight: &fitHeight,
	}); err != nil {
		return err
	}

	fitToPage := true
	if err := f.SetSheetProps(sheet, &excelize.SheetPropsOptions{FitToPage: &fitToPage}); err != nil {
		return err
	}

	return f.SetDefinedName(&excelize.DefinedName{
		Name:     "_xlnm.Print_Area",
		RefersTo: fmt.Sprintf("'%s'!$A$1:$%s$%d", strings.ReplaceAll(sheet, "'", "''"), reportLastCol, lastRow),
		Scope:    sheet,
	})
}
