package spreadsheet

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"fieldops-server/internal/calendar"
	"fieldops-server/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	// MasterSheetHint selects the equipment sheet of the master workbook.
	MasterSheetHint = "ATTREZZATURA"
	// ExpirySheetName is the only sheet of the alert attachment.
	ExpirySheetName = "Scadenze"
)

type periodicity struct {
	kind string
	keys []string
}

// Order matters: a header matching several entries takes the last one, so
// "BISETTIMANALE" wins over "SETTIMANALE" and "BIANNUALE" over "ANNUALE".
var periodicities = []periodicity{
	{"SETTIMANALE", []string{"SETTIMANALE", "SCADENZA MANUTENZIONE SETTIMANALE"}},
	{"BISETTIMANALE", []string{"BISETTIMANALE", "QUINDICINALE", "SCADENZA MANUTENZIONE BISETTIMANALE"}},
	{"MENSILE", []string{"MESE", "MENSILE", "SCADENZA MANUTENZIONE MENSILE"}},
	{"TRIMESTRALE", []string{"TRIMESTRALE", "TRIMESTRALI", "SCADENZA MANUTENZIONE TRIMESTRALE"}},
	{"SEMESTRALE", []string{"SEMESTRALE", "SEMESTRALI", "SCADENZA MANUTENZIONE SEMESTRALE"}},
	{"ANNUALE", []string{"ANNUALE", "SCADENZA MANUTENZIONE ANNUALE"}},
	{"BIENNALE", []string{"BIENNALE", "BIANNUALE", "SCADENZA MANUTENZIONE BIANNUALE"}},
	{"COLLAUDO", []string{"COLLAUDO", "SCADENZA COLLAUDO"}},
}

// PeriodicityOf maps a column header to its maintenance type, or "".
func PeriodicityOf(header string) string {
	h := normalizeHeader(header)
	kind := ""
	for _, p := range periodicities {
		for _, k := range p.keys {
			if strings.Contains(h, k) {
				kind = p.kind
				break
			}
		}
	}
	return kind
}

type masterColumns struct {
	category    int
	description int
	model       int
	serial      int
	code        int
	assignee    int
	dated       map[int]string
}

func indexMasterColumns(header []string) masterColumns {
	cols := masterColumns{
		category: -1, description: -1, model: -1, serial: -1, code: -1, assignee: -1,
		dated: make(map[int]string),
	}
	for i, raw := range header {
		switch normalizeHeader(raw) {
		case "CATEGORIA":
			cols.category = i
		case "DESCRIZIONE":
			cols.description = i
		case "MODELLO":
			cols.model = i
		case "MATRICOLA":
			if cols.serial < 0 {
				cols.serial = i
			}
		case "CODICE":
			cols.code = i
		case "ASSEGNATO":
			cols.assignee = i
		}
		if kind := PeriodicityOf(raw); kind != "" {
			cols.dated[i] = kind
		}
	}
	return cols
}

// ExpiryHits scans the equipment master and returns every dated
// maintenance cell due within horizon days of today, overdue cells included.
// today must be a civil date as returned by calendar.Civil.
func ExpiryHits(sheet *Sheet, today time.Time, horizon int) []domain.ExpiryHit {
	if sheet == nil || len(sheet.Rows) == 0 {
		return nil
	}

	header := sheet.Rows[0]
	cols := indexMasterColumns(header)

	dated := make([]int, 0, len(cols.dated))
	for i := range cols.dated {
		dated = append(dated, i)
	}
	sort.Ints(dated)

	var hits []domain.ExpiryHit
	for _, row := range sheet.Rows[1:] {
		for _, idx := range dated {
			date, ok := ParseDate(cellValue(row, idx))
			if !ok {
				continue
			}
			offset := calendar.DaysBetween(today, date)
			if offset > horizon {
				continue
			}
			hits = append(hits, domain.ExpiryHit{
				Date:        date,
				Offset:      offset,
				Type:        cols.dated[idx],
				Column:      header[idx],
				Category:    cellValue(row, cols.category),
				Description: cellValue(row, cols.description),
				Model:       cellValue(row, cols.model),
				Serial:      cellValue(row, cols.serial),
				Code:        cellValue(row, cols.code),
				Assignee:    cellValue(row, cols.assignee),
			})
		}
	}
	return hits
}

// Classify splits hits into the overdue list, sorted by date, and the
// 0..horizon day buckets, sorted by type, category, description and code.
func Classify(today time.Time, hits []domain.ExpiryHit) *domain.ExpiryReport {
	report := &domain.ExpiryReport{Today: today}
	for _, h := range hits {
		switch {
		case h.Offset < 0:
			report.Overdue = append(report.Overdue, h)
		case h.Offset < len(report.Buckets):
			report.Buckets[h.Offset] = append(report.Buckets[h.Offset], h)
		}
	}

	sort.SliceStable(report.Overdue, func(i, j int) bool {
		return report.Overdue[i].Date.Before(report.Overdue[j].Date)
	})
	for _, b := range report.Buckets {
		sort.SliceStable(b, func(i, j int) bool {
			x, y := b[i], b[j]
			if x.Type != y.Type {
				return x.Type < y.Type
			}
			if x.Category != y.Category {
				return x.Category < y.Category
			}
			if x.Description != y.Description {
				return x.Description < y.Description
			}
			return x.Code < y.Code
		})
	}
	return report
}

var expiryColumns = []struct {
	title string
	width float64
}{
	{"Gruppo", 10}, {"Data", 12}, {"Offset", 7}, {"Reminder", 9},
	{"Periodicità", 12}, {"Colonna", 20}, {"Codice", 12}, {"Categoria", 18},
	{"Descrizione", 28}, {"Modello", 16}, {"Matricola", 14}, {"Assegnato", 16},
}

// WriteExpiryWorkbook renders the report as a single "Scadenze" sheet, one
// row per hit in report order.
func WriteExpiryWorkbook(report *domain.ExpiryReport) ([]byte, int, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ExpirySheetName); err != nil {
		return nil, 0, err
	}

	header := make([]interface{}, len(expiryColumns))
	for i, c := range expiryColumns {
		header[i] = c.title
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(ExpirySheetName, col, col, c.width); err != nil {
			return nil, 0, err
		}
	}
	if err := f.SetSheetRow(ExpirySheetName, "A1", &header); err != nil {
		return nil, 0, err
	}

	rows := report.Ordered()
	for i, h := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{
			h.Group(), FormatDMY(h.Date), h.Offset, h.Reminder(), h.Type, h.Column,
			h.Code, h.Category, h.Description, h.Model, h.Serial, h.Assignee,
		}
		if err := f.SetSheetRow(ExpirySheetName, cell, &values); err != nil {
			return nil, 0, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), len(rows), nil
}
