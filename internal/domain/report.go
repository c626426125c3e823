package domain

// Report targets for generated daily reports.
const (
	ReportTargetDownload = "download"
	ReportTargetStorage  = "storage"
)

// Report kinds. MASSIVA is the bulk meter campaign export, CLIENTELA the
// ATTGIORN customer appointments export.
const (
	ReportKindMassiva   = "massiva"
	ReportKindClientela = "clientela"
)

// CombinedReportName is the sheet name used when all operators share one report.
const CombinedReportName = "RAPPORTINO"

// ReportActivityCode is written in the activity column of MASSIVA report rows.
const ReportActivityCode = "S-AI-049"

// MassivaRow is one field appointment extracted from a MASSIVA or ATTGIORN
// workbook.
type MassivaRow struct {
	Operator      string `json:"operator"`
	Name          string `json:"name"`
	Serial        string `json:"serial"`
	PDR           string `json:"pdr"`
	Street        string `json:"street"`
	Town          string `json:"town"`
	PostalCode    string `json:"postal_code"`
	Phone         string `json:"phone"`
	Accessibility string `json:"accessibility"`
	TimeSlot      string `json:"time_slot"`
	Note          string `json:"note"`
	Activity      string `json:"activity,omitempty"`
}

// ActivityCode is the activity printed on the report row.
func (r MassivaRow) ActivityCode() string {
	if r.Activity == "" {
		return ReportActivityCode
	}
	return r.Activity
}

// FormattedPDR returns the PDR with the "00" prefix used in reports.
func (r MassivaRow) FormattedPDR() string {
	if r.PDR == "" {
		return ""
	}
	return "00" + r.PDR
}

type ReportNote struct {
	Name   string `json:"name"`
	Street string `json:"street"`
	Note   string `json:"note"`
}

// OperatorReport is the content of one report sheet.
type OperatorReport struct {
	Name  string       `json:"name"`
	Rows  []MassivaRow `json:"rows"`
	Notes []ReportNote `json:"notes"`
}

type GenerateReportRequest struct {
	Kind      string   `validate:"omitempty,oneof=massiva clientela"`
	Date      string   `validate:"required,datetime=02/01/2006"`
	Operators []string `validate:"required_without=Combined"`
	Combined  bool
	Target    string `validate:"omitempty,oneof=download storage"`
	Path      string
}

type OperatorsResponse struct {
	Sheet     string   `json:"sheet"`
	Operators []string `json:"operators"`
}

type StoredReportResponse struct {
	OK      bool     `json:"ok"`
	Bucket  string   `json:"bucket"`
	Path    string   `json:"path"`
	PDFPath string   `json:"pdf_path"`
	Sheets  []string `json:"sheets"`
}
