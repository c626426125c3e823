package spreadsheet

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"fieldops-server/internal/domain"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
)

// Zero-based column indices of the ATTGIORN export.
const (
	attDate          = 0  // A
	attOperator      = 1  // B
	attActivity      = 11 // L
	attCode          = 12 // M
	attPDR           = 13 // N
	attName          = 14 // O
	attSerial        = 15 // P
	attTown          = 16 // Q
	attPostalCode    = 17 // R
	attStreet        = 19 // T
	attTime          = 20 // U
	attPhone         = 58 // BG
	attAccessibility = 60 // BI
)

const (
	// Rows with this activity are handled by another team.
	skippedActivity = "UT I51 CAMBIO DA DIAGNOSTICA"
	// Appointments with this code are listed once per PDR.
	singlePerPDRCode = "S-AI-051"

	clientelaLastCol   = "O"
	clientelaMinWidth  = 8
	clientelaMaxWidth  = 60
	clientelaPDFMargin = 32.0
	clientelaPDFRows   = 33
)

var clientelaHeaders = []string{
	"NOMINATIVO", "MATRICOLA", "PDR", "VIA", "COMUNE", "CAP",
	"RECAPITO", "ATTIVITA'", "ACCESSIBILITA'", "FASCIA ORARIA",
	"ATT/CESS", "CAMBIO", "MINI BAG", "RG STOP", "ASSENTE",
}

// Reference column widths A..O, scaled to the page.
var clientelaPDFWidths = []float64{110, 72, 120, 160, 78, 48, 96, 70, 78, 78, 70, 70, 70, 62, 60}

var (
	clockPattern    = regexp.MustCompile(`^(\d{1,2})(:?)(\d{0,2})$`)
	dottedPattern   = regexp.MustCompile(`^(\d{1,2})[.:](\d{2})$`)
	pdfNameReplacer = regexp.MustCompile(`[\\/:*?"<>|]`)
)

// ClientelaSheet picks the sheet holding the ATTGIORN appointments.
func ClientelaSheet(wb *Workbook) *Sheet {
	return wb.Find("DETTAGLIO RISORSE INTERNE", "ATTGIORN")
}

// ClientelaOperators lists the distinct resources of column B in Italian
// alphabetical order.
func ClientelaOperators(sheet *Sheet) []string {
	return operatorsIn(sheet, attOperator)
}

// ClientelaRows returns the appointments dated date. Rows of the skipped
// activity are dropped and S-AI-051 appointments keep only the first row
// of each PDR.
func ClientelaRows(sheet *Sheet, date time.Time) []domain.MassivaRow {
	if sheet == nil || len(sheet.Rows) == 0 {
		return nil
	}

	seenPDR := make(map[string]bool)
	var out []domain.MassivaRow
	for _, r := range sheet.Rows[min(dataStartRow(sheet.Rows, attOperator), len(sheet.Rows)):] {
		if !sameDate(cellValue(r, attDate), date) {
			continue
		}
		if cellValue(r, attActivity) == skippedActivity {
			continue
		}

		code := cellValue(r, attCode)
		pdr := cellValue(r, attPDR)
		if code == singlePerPDRCode {
			if seenPDR[pdr] {
				continue
			}
			if pdr != "" {
				seenPDR[pdr] = true
			}
		}

		out = append(out, domain.MassivaRow{
			Operator:      cellValue(r, attOperator),
			Name:          cellValue(r, attName),
			Serial:        cellValue(r, attSerial),
			PDR:           pdr,
			Street:        cellValue(r, attStreet),
			Town:          cellValue(r, attTown),
			PostalCode:    cellValue(r, attPostalCode),
			Phone:         cellValue(r, attPhone),
			Accessibility: cellValue(r, attAccessibility),
			TimeSlot:      ClockTime(cellValue(r, attTime)),
			Activity:      code,
		})
	}
	return out
}

// ClockTime renders an appointment time as HH:MM. It accepts "9", "9:30",
// "9.30" and Excel day fractions such as "0.375"; anything else is returned
// unchanged.
func ClockTime(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	if m := clockPattern.FindStringSubmatch(s); m != nil {
		return pad2(m[1]) + ":" + pad2(m[3])
	}
	if m := dottedPattern.FindStringSubmatch(s); m != nil {
		return pad2(m[1]) + ":" + m[2]
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f < 1 {
		minutes := int(math.Round(f * 24 * 60))
		return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
	}
	return s
}

func pad2(s string) string {
	if len(s) < 2 {
		return strings.Repeat("0", 2-len(s)) + s
	}
	return s
}

// GroupClientela builds one report per requested operator, or a single
// combined report. Rows keep the order of the source sheet.
func GroupClientela(rows []domain.MassivaRow, operators []string, combined bool) []domain.OperatorReport {
	return groupReports(rows, operators, combined, func(name string, selected []domain.MassivaRow) domain.OperatorReport {
		return domain.OperatorReport{Name: name, Rows: selected}
	})
}

func clientelaCells(r domain.MassivaRow) []string {
	return []string{
		r.Name, r.Serial, r.FormattedPDR(), r.Street, r.Town, r.PostalCode,
		r.Phone, r.Activity, r.Accessibility, r.TimeSlot,
		"", "", "", "", "",
	}
}

// WriteClientelaWorkbook renders one worksheet per report: date in B2, the
// operator in B4 (empty when combined), headers on row 6 and one row per
// appointment from row 7. Columns are sized to their content.
func WriteClientelaWorkbook(date string, reports []domain.OperatorReport, combined bool) ([]byte, error) {
	return writeWorkbook(reports, combined, func(f *excelize.File, styles *reportStyles, report domain.OperatorReport, operator string) error {
		return writeClientelaSheet(f, styles, report, date, operator)
	})
}

func writeClientelaSheet(f *excelize.File, styles *reportStyles, report domain.OperatorReport, date, operator string) error {
	sheet := report.Name

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

	header := make([]interface{}, len(clientelaHeaders))
	for i, h := range clientelaHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", reportHeaderRow), &header); err != nil {
		return err
	}

	widths := make([]int, len(clientelaHeaders))
	for i := range widths {
		widths[i] = clientelaMinWidth
	}

	row := reportFirstRow
	for _, r := range report.Rows {
		values := clientelaCells(r)
		line := make([]interface{}, len(values))
		for i, v := range values {
			line[i] = v
			widths[i] = max(widths[i], utf8.RuneCountInString(v)+2)
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &line); err != nil {
			return err
		}
		row++
	}
	lastRow := max(row-1, reportHeaderRow)

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, float64(min(w, clientelaMaxWidth))); err != nil {
			return err
		}
	}

	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", reportHeaderRow), fmt.Sprintf("%s%d", clientelaLastCol, reportHeaderRow), styles.header); err != nil {
		return err
	}
	if lastRow >= reportFirstRow {
		if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", reportFirstRow), fmt.Sprintf("%s%d", clientelaLastCol, lastRow), styles.grid); err != nil {
			return err
		}
	}

	return setReportPrintLayout(f, sheet, lastRow)
}

// RenderClientelaPDF lays one report out on a landscape A4 page: the crew
// header, up to 33 appointments and the notes heading below the grid.
func RenderClientelaPDF(report domain.OperatorReport, date string) ([]byte, error) {
	pdf := fpdf.New("L", "pt", "A4", "")
	pdf.SetMargins(clientelaPDFMargin, 20, clientelaPDFMargin)
	pdf.SetAutoPageBreak(false, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	x := clientelaPDFMargin
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.Text(x, 20, pdfBrand)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.Text(x, 40, "PREPOSTO:")
	pdf.Text(250, 40, tr(fmt.Sprintf("DATA: %s    ANTINCENDIO:", date)))
	pdf.Text(x, 56, "SQUADRA PRIMO SOCCORSO:")
	pdf.Text(x, 72, tr(fmt.Sprintf("RISORSA %s    CAPO SQUADRA: AMMINISTRATORE", report.Name)))

	pageW, _ := pdf.GetPageSize()
	tableW := pageW - 2*clientelaPDFMargin
	var total float64
	for _, w := range clientelaPDFWidths {
		total += w
	}
	widths := make([]float64, len(clientelaPDFWidths))
	var used float64
	for i, w := range clientelaPDFWidths {
		widths[i] = math.Floor(w * tableW / total)
		used += widths[i]
	}
	widths[len(widths)-1] += tableW - used

	const rowH = 11.0
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetLineWidth(0.3)
	pdf.SetXY(x, 90)

	pdf.SetFillColor(213, 157, 203)
	writeGridRow(pdf, tr, widths, clientelaHeaders, rowH, true)
	for i, r := range report.Rows {
		if i >= clientelaPDFRows {
			break
		}
		writeGridRow(pdf, tr, widths, clientelaCells(r), rowH, false)
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(x, pdf.GetY()+20, "INTERVENTI CON NOTE")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// ClientelaPDFName is the archive entry name of a CLIENTELA report PDF.
func ClientelaPDFName(name string) string {
	return pdfNameReplacer.ReplaceAllString(name, " ") + ".pdf"
}

// BundleClientelaPDFs renders every report and zips the PDFs.
func BundleClientelaPDFs(reports []domain.OperatorReport, date string) ([]byte, error) {
	return bundlePDFs(reports,
		func(report domain.OperatorReport) ([]byte, error) { return RenderClientelaPDF(report, date) },
		func(report domain.OperatorReport) string { return ClientelaPDFName(report.Name) },
	)
}
