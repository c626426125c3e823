package spreadsheet

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"fieldops-server/internal/domain"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMaxBodyRows = 31
	pdfMaxNotes    = 5
	pdfBrand       = "Generato automaticamente da SmartRapportini"
)

// Relative column widths A..O, matching the worksheet proportions.
var pdfWeights = []float64{12, 10, 12, 22, 10, 6, 11, 7, 10, 10, 5, 5, 5, 5, 2}

// ReportTitle is the heading printed on a report PDF.
func ReportTitle(name, date string) string {
	if name == domain.CombinedReportName {
		return "Rapportino - " + date
	}
	return fmt.Sprintf("Rapportino %s - %s", name, date)
}

// RenderReportPDF lays one report out on a landscape A4 page: brand line,
// title, the body grid and up to five notes.
func RenderReportPDF(report domain.OperatorReport, date string) ([]byte, error) {
	pdf := fpdf.New("L", "pt", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(false, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(40, 30, pdfBrand)
	pdf.SetFont("Helvetica", "", 14)
	pdf.Text(40, 55, tr(ReportTitle(report.Name, date)))

	pageW, _ := pdf.GetPageSize()
	tableW := pageW - 40
	var sum float64
	for _, w := range pdfWeights {
		sum += w
	}
	widths := make([]float64, len(pdfWeights))
	for i, w := range pdfWeights {
		widths[i] = tableW * w / sum
	}

	const rowH = 11.0
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(20, 70)

	header := append(append([]string(nil), reportHeaders...), "")
	writeGridRow(pdf, tr, widths, header, rowH, false)

	for i, r := range report.Rows {
		if i >= pdfMaxBodyRows {
			break
		}
		writeGridRow(pdf, tr, widths, []string{
			r.Name, r.Serial, r.FormattedPDR(), r.Street, r.Town, r.PostalCode, r.Phone,
			r.ActivityCode(), r.Accessibility, r.TimeSlot, "", "", "", "", "",
		}, rowH, false)
	}

	if len(report.Notes) > 0 {
		pdf.SetY(pdf.GetY() + 18)
		pdf.SetFont("Helvetica", "", 9)
		noteW := pageW - 80
		noteWidths := []float64{noteW * 0.25, noteW * 0.30, noteW * 0.45}

		pdf.SetX(40)
		writeGridRow(pdf, tr, noteWidths, []string{"Nominativo", "Via", "Note"}, 16, false)
		for i, n := range report.Notes {
			if i >= pdfMaxNotes {
				break
			}
			pdf.SetX(40)
			writeGridRow(pdf, tr, noteWidths, []string{n.Name, n.Street, n.Note}, 16, false)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// writeGridRow prints one bordered row. Cell text is kept on a single line
// and clipped to the column width. Filled rows use the current fill color.
func writeGridRow(pdf *fpdf.Fpdf, tr func(string) string, widths []float64, cells []string, h float64, fill bool) {
	x := pdf.GetX()
	align := "L"
	if fill {
		align = "C"
	}
	for i, w := range widths {
		text := ""
		if i < len(cells) {
			text = clip(pdf, tr(strings.Join(strings.Fields(cells[i]), " ")), w-4)
		}
		pdf.CellFormat(w, h, text, "1", 0, align, fill, 0, "")
	}
	pdf.Ln(h)
	pdf.SetX(x)
}

func clip(pdf *fpdf.Fpdf, s string, w float64) string {
	for len(s) > 0 && pdf.GetStringWidth(s) > w {
		s = s[:len(s)-1]
	}
	return s
}

// ReportPDFName is the archive entry name of a report PDF. dateSlug is the
// dd-mm-yyyy form of the report date.
func ReportPDFName(name, dateSlug string) string {
	if name == "" {
		name = domain.CombinedReportName
	}
	return fmt.Sprintf("%s_%s.pdf", name, dateSlug)
}

// BundleReportPDFs renders every report and zips the PDFs.
func BundleReportPDFs(reports []domain.OperatorReport, date, dateSlug string) ([]byte, error) {
	return bundlePDFs(reports,
		func(report domain.OperatorReport) ([]byte, error) { return RenderReportPDF(report, date) },
		func(report domain.OperatorReport) string { return ReportPDFName(report.Name, dateSlug) },
	)
}

func bundlePDFs(reports []domain.OperatorReport, render func(domain.OperatorReport) ([]byte, error), name func(domain.OperatorReport) string) ([]byte, error) {
	if len(reports) == 0 {
		return nil, ErrNoRows
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, report := range reports {
		data, err := render(report)
		if err != nil {
			return nil, err
		}
		w, err := zw.Create(name(report))
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
