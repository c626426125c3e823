package spreadsheet

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"fieldops-server/internal/domain"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Zero-based column indices of the MASSIVA export.
const (
	colDate          = 92 // CO
	colOperator      = 95 // CR
	colName          = 52 // BA
	colSerial        = 10 // K
	colPDR           = 12 // M
	colStreet        = 54 // BC
	colTown          = 72 // BU
	colPostalCode    = 62 // BK
	colPhone         = 74 // BW
	colAccessibility = 78 // CA
	colTimeSlot      = 93 // CP
	colNote          = 97 // CT
)

const (
	maxScanColumns = 200
	dateScanRows   = 500
	maxSheetName   = 31
)

var (
	ErrNoRows = errors.New("no rows for the requested date")

	dateHeaders = map[string]bool{
		"DATA":              true,
		"DATA APPUNTAMENTO": true,
		"DATA LAVORO":       true,
		"DATA INTERVENTO":   true,
	}

	sheetNameReplacer = regexp.MustCompile(`[:\\/?*\[\]]`)
	whitespace        = regexp.MustCompile(`\s+`)
)

// MassivaSheet picks the sheet holding the daily appointments.
func MassivaSheet(wb *Workbook) *Sheet {
	return wb.Find("SHEET1", "DETTAGLIO RISORSE INTERNE", "ATTGIORN")
}

// dataStartRow returns the row after the "RISORSA" header when it appears
// in the operator column of the first ten rows, 1 otherwise.
func dataStartRow(rows [][]string, operatorCol int) int {
	for i := 0; i < len(rows) && i < 10; i++ {
		if strings.EqualFold(cellValue(rows[i], operatorCol), "RISORSA") {
			return i + 1
		}
	}
	return 1
}

func italianCollator() *collate.Collator {
	return collate.New(language.Italian, collate.Loose)
}

// Operators lists the distinct operator names of a MASSIVA sheet in Italian
// alphabetical order.
func Operators(sheet *Sheet) []string {
	return operatorsIn(sheet, colOperator)
}

func operatorsIn(sheet *Sheet, col int) []string {
	if sheet == nil {
		return nil
	}
	seen := make(map[string]bool)
	var ops []string
	for _, row := range sheet.Rows[min(dataStartRow(sheet.Rows, col), len(sheet.Rows)):] {
		op := cellValue(row, col)
		if op == "" || seen[op] {
			continue
		}
		seen[op] = true
		ops = append(ops, op)
	}

	c := italianCollator()
	sort.SliceStable(ops, func(i, j int) bool {
		return c.CompareString(ops[i], ops[j]) < 0
	})
	return ops
}

func scanWidth(rows [][]string) int {
	width := 0
	for i := 0; i < len(rows) && i < 10; i++ {
		width = max(width, len(rows[i]))
	}
	return min(width, maxScanColumns)
}

func sameDate(cell string, want time.Time) bool {
	d, ok := ParseDate(cell)
	return ok && d.Equal(want)
}

func countDateMatches(rows [][]string, col int, want time.Time, limit int) int {
	n := 0
	for r := 1; r < len(rows) && r < limit; r++ {
		if sameDate(cellValue(rows[r], col), want) {
			n++
		}
	}
	return n
}

func headerDateColumn(rows [][]string) int {
	if len(rows) == 0 {
		return -1
	}
	for c, h := range rows[0] {
		if c >= maxScanColumns {
			break
		}
		if dateHeaders[normalizeHeader(h)] {
			return c
		}
	}
	return -1
}

func bestDateColumn(rows [][]string, want time.Time, limit int) int {
	best, bestCol := 0, -1
	for c := 0; c < scanWidth(rows); c++ {
		if n := countDateMatches(rows, c, want, limit); n > best {
			best, bestCol = n, c
		}
	}
	return bestCol
}

// pickDateColumn prefers the CO column, then a known date header, then the
// column with the most matches for want.
func pickDateColumn(rows [][]string, want time.Time) int {
	if colDate < scanWidth(rows) && countDateMatches(rows, colDate, want, dateScanRows) > 0 {
		return colDate
	}
	if c := headerDateColumn(rows); c >= 0 && countDateMatches(rows, c, want, dateScanRows) > 0 {
		return c
	}
	if c := bestDateColumn(rows, want, dateScanRows); c >= 0 {
		return c
	}
	if colDate < scanWidth(rows) {
		return colDate
	}
	return 0
}

func rowHasDate(row []string, want time.Time) bool {
	for c := 0; c < len(row) && c < maxScanColumns; c++ {
		if sameDate(row[c], want) {
			return true
		}
	}
	return false
}

func filterRows(rows [][]string, start int, keep func([]string) bool) [][]string {
	var out [][]string
	for i := start; i < len(rows); i++ {
		if keep(rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}

// DayRows returns the appointments of the sheet that fall on date. When the
// chosen date column yields nothing, the column with the most matches over
// the whole sheet is tried, and finally any column of the row.
func DayRows(sheet *Sheet, date time.Time) []domain.MassivaRow {
	if sheet == nil || len(sheet.Rows) == 0 {
		return nil
	}
	rows := sheet.Rows
	start := dataStartRow(rows, colOperator)

	byColumn := func(col int) func([]string) bool {
		return func(row []string) bool { return sameDate(cellValue(row, col), date) }
	}

	col := pickDateColumn(rows, date)
	matched := filterRows(rows, start, byColumn(col))
	if len(matched) == 0 {
		if best := bestDateColumn(rows, date, len(rows)); best >= 0 && best != col {
			matched = filterRows(rows, start, byColumn(best))
		}
	}
	if len(matched) == 0 {
		matched = filterRows(rows, start, func(row []string) bool { return rowHasDate(row, date) })
	}

	out := make([]domain.MassivaRow, 0, len(matched))
	for _, r := range matched {
		out = append(out, domain.MassivaRow{
			Operator:      cellValue(r, colOperator),
			Name:          cellValue(r, colName),
			Serial:        cellValue(r, colSerial),
			PDR:           cellValue(r, colPDR),
			Street:        cellValue(r, colStreet),
			Town:          cellValue(r, colTown),
			PostalCode:    cellValue(r, colPostalCode),
			Phone:         cellValue(r, colPhone),
			Accessibility: cellValue(r, colAccessibility),
			TimeSlot:      cellValue(r, colTimeSlot),
			Note:          cellValue(r, colNote),
		})
	}
	return out
}

// SheetName makes s usable as a worksheet name.
func SheetName(s string) string {
	s = sheetNameReplacer.ReplaceAllString(s, " ")
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	if r := []rune(s); len(r) > maxSheetName {
		s = string(r[:maxSheetName])
	}
	return s
}

// GroupByOperator builds one report per requested operator, or a single
// combined report with every row. Rows are sorted by time slot and operators
// without rows are dropped.
func GroupByOperator(rows []domain.MassivaRow, operators []string, combined bool) []domain.OperatorReport {
	c := italianCollator()
	return groupReports(rows, operators, combined, func(name string, selected []domain.MassivaRow) domain.OperatorReport {
		sorted := append([]domain.MassivaRow(nil), selected...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return c.CompareString(sorted[i].TimeSlot, sorted[j].TimeSlot) < 0
		})

		report := domain.OperatorReport{Name: name, Rows: sorted}
		for _, r := range sorted {
			if r.Note != "" {
				report.Notes = append(report.Notes, domain.ReportNote{Name: r.Name, Street: r.Street, Note: r.Note})
			}
		}
		return report
	})
}

// groupReports selects the rows of each operator and hands them to build
// under a usable sheet name. Duplicate sheet names keep the first operator.
func groupReports(rows []domain.MassivaRow, operators []string, combined bool, build func(string, []domain.MassivaRow) domain.OperatorReport) []domain.OperatorReport {
	if combined {
		if len(rows) == 0 {
			return nil
		}
		return []domain.OperatorReport{build(domain.CombinedReportName, rows)}
	}

	used := make(map[string]bool)
	var reports []domain.OperatorReport
	for _, op := range operators {
		var selected []domain.MassivaRow
		for _, r := range rows {
			if r.Operator == op {
				selected = append(selected, r)
			}
		}
		if len(selected) == 0 {
			continue
		}

		name := SheetName(op)
		if name == "" || used[strings.ToUpper(name)] {
			continue
		}
		used[strings.ToUpper(name)] = true
		reports = append(reports, build(name, selected))
	}
	return reports
}
