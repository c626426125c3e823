package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"fieldops-server/internal/domain"
	"fieldops-server/internal/repository"
	"fieldops-server/internal/spreadsheet"

	"github.com/sirupsen/logrus"
)

const zipContentType = "application/zip"

// GeneratedReport is the in-memory result of Generate for the download target.
type GeneratedReport struct {
	Kind      string
	Date      string
	Workbook  []byte
	PDFBundle []byte
	Sheets    []string
}

func (r *GeneratedReport) namePrefix() string {
	if r.Kind == domain.ReportKindClientela {
		return "RAPPORTINI_CLIENTELA"
	}
	return "RAPPORTINI"
}

// WorkbookName is the download name of the xlsx.
func (r *GeneratedReport) WorkbookName() string {
	return fmt.Sprintf("%s_%s.xlsx", r.namePrefix(), dateSlug(r.Date))
}

// BundleName is the download name of the PDF zip.
func (r *GeneratedReport) BundleName() string {
	return fmt.Sprintf("%s_%s_PDF.zip", r.namePrefix(), dateSlug(r.Date))
}

func dateSlug(date string) string {
	return strings.ReplaceAll(date, "/", "-")
}

// reportLayout holds the per-kind steps of report generation.
type reportLayout struct {
	sheet     func(*spreadsheet.Workbook) *spreadsheet.Sheet
	operators func(*spreadsheet.Sheet) []string
	rows      func(*spreadsheet.Sheet, time.Time) []domain.MassivaRow
	group     func([]domain.MassivaRow, []string, bool) []domain.OperatorReport
	workbook  func(string, []domain.OperatorReport, bool) ([]byte, error)
	bundle    func([]domain.OperatorReport, string) ([]byte, error)
}

var reportLayouts = map[string]reportLayout{
	domain.ReportKindMassiva: {
		sheet:     spreadsheet.MassivaSheet,
		operators: spreadsheet.Operators,
		rows:      spreadsheet.DayRows,
		group:     spreadsheet.GroupByOperator,
		workbook:  spreadsheet.WriteReportWorkbook,
		bundle: func(reports []domain.OperatorReport, date string) ([]byte, error) {
			return spreadsheet.BundleReportPDFs(reports, date, dateSlug(date))
		},
	},
	domain.ReportKindClientela: {
		sheet:     spreadsheet.ClientelaSheet,
		operators: spreadsheet.ClientelaOperators,
		rows:      spreadsheet.ClientelaRows,
		group:     spreadsheet.GroupClientela,
		workbook:  spreadsheet.WriteClientelaWorkbook,
		bundle:    spreadsheet.BundleClientelaPDFs,
	},
}

// layoutOf resolves a report kind; empty means MASSIVA.
func layoutOf(kind string) (string, reportLayout, error) {
	if kind == "" {
		kind = domain.ReportKindMassiva
	}
	layout, ok := reportLayouts[kind]
	if !ok {
		return "", reportLayout{}, invalid("Tipo di rapportino non valido: %s", kind)
	}
	return kind, layout, nil
}

type ReportService struct {
	store  repository.ObjectStore
	bucket string
	logger *logrus.Logger
}

func NewReportService(store repository.ObjectStore, bucket string, logger *logrus.Logger) *ReportService {
	return &ReportService{store: store, bucket: bucket, logger: logger}
}

func openSheet(data []byte, filename string, layout reportLayout) (*spreadsheet.Sheet, error) {
	if len(data) == 0 {
		return nil, invalid("File mancante")
	}
	wb, err := spreadsheet.Read(data, filename)
	if err != nil {
		return nil, invalid("File non leggibile: %s", err.Error())
	}
	return layout.sheet(wb), nil
}

// Operators lists the distinct operators of a source workbook of the given
// kind.
func (s *ReportService) Operators(kind string, data []byte, filename string) (*domain.OperatorsResponse, error) {
	_, layout, err := layoutOf(kind)
	if err != nil {
		return nil, err
	}
	sheet, err := openSheet(data, filename, layout)
	if err != nil {
		return nil, err
	}
	return &domain.OperatorsResponse{Sheet: sheet.Name, Operators: layout.operators(sheet)}, nil
}

// Generate builds the daily report workbook and its PDF bundle.
func (s *ReportService) Generate(ctx context.Context, data []byte, filename string, req *domain.GenerateReportRequest) (*GeneratedReport, error) {
	kind, layout, err := layoutOf(req.Kind)
	if err != nil {
		return nil, err
	}
	date, err := time.Parse("02/01/2006", strings.TrimSpace(req.Date))
	if err != nil {
		return nil, invalid("Data non valida (DD/MM/YYYY)")
	}
	if !req.Combined && len(req.Operators) == 0 {
		return nil, invalid("Nessun operatore selezionato")
	}

	sheet, err := openSheet(data, filename, layout)
	if err != nil {
		return nil, err
	}

	rows := layout.rows(sheet, date)
	if len(rows) == 0 {
		return nil, invalid("Nessuna riga per la data %s", req.Date)
	}

	reports := layout.group(rows, req.Operators, req.Combined)
	if len(reports) == 0 {
		return nil, invalid("Nessuna riga per gli operatori selezionati")
	}

	dateText := spreadsheet.FormatDMY(date)
	workbook, err := layout.workbook(dateText, reports, req.Combined)
	if err != nil {
		return nil, fmt.Errorf("failed to write report workbook: %w", err)
	}
	bundle, err := layout.bundle(reports, dateText)
	if err != nil {
		return nil, fmt.Errorf("failed to render report PDFs: %w", err)
	}

	sheets := make([]string, 0, len(reports))
	for _, r := range reports {
		sheets = append(sheets, spreadsheet.SheetName(r.Name))
	}

	s.logger.WithFields(logrus.Fields{
		"kind":     kind,
		"date":     dateText,
		"rows":     len(rows),
		"sheets":   len(sheets),
		"combined": req.Combined,
	}).Info("Daily reports generated")

	return &GeneratedReport{Kind: kind, Date: dateText, Workbook: workbook, PDFBundle: bundle, Sheets: sheets}, nil
}

// Store uploads a generated report to the reports bucket under an optional
// path prefix.
func (s *ReportService) Store(ctx context.Context, report *GeneratedReport, prefix string) (*domain.StoredReportResponse, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if strings.Contains(prefix, "..") {
		return nil, invalid("Percorso non valido")
	}

	xlsxKey := report.WorkbookName()
	zipKey := report.BundleName()
	if prefix != "" {
		xlsxKey = path.Join(prefix, xlsxKey)
		zipKey = path.Join(prefix, zipKey)
	}

	if err := s.store.EnsureBucket(ctx, s.bucket); err != nil {
		return nil, &StageError{Stage: StageBucket, Err: err}
	}
	if err := s.store.Put(ctx, s.bucket, xlsxKey, xlsxContentType, report.Workbook); err != nil {
		return nil, &StageError{Stage: StageUpload, Err: err}
	}
	if err := s.store.Put(ctx, s.bucket, zipKey, zipContentType, report.PDFBundle); err != nil {
		return nil, &StageError{Stage: StageUpload, Err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"path":   xlsxKey,
	}).Info("Daily reports stored")

	return &domain.StoredReportResponse{
		OK:      true,
		Bucket:  s.bucket,
		Path:    xlsxKey,
		PDFPath: zipKey,
		Sheets:  report.Sheets,
	}, nil
}

var errNoStore = errors.New("object store not configured")

// GenerateAndStore is Generate followed by Store.
func (s *ReportService) GenerateAndStore(ctx context.Context, data []byte, filename string, req *domain.GenerateReportRequest) (*domain.StoredReportResponse, error) {
	if s.store == nil {
		return nil, storeError("store report", errNoStore)
	}
	report, err := s.Generate(ctx, data, filename, req)
	if err != nil {
		return nil, err
	}
	return s.Store(ctx, report, req.Path)
}
