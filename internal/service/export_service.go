package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"fieldops-server/internal/repository"
)

var exportDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

const exportHeader = "Data,Operatore,Attività,Territorio,Reperibile,Note"

type ExportService struct {
	repo repository.ExportRepository
}

func NewExportService(repo repository.ExportRepository) *ExportService {
	return &ExportService{repo: repo}
}

// ExportFilename is the download name of an assignments export.
func ExportFilename(from, to string) string {
	return fmt.Sprintf("assignments_%s_to_%s.csv", from, to)
}

// AssignmentsCSV renders every assignment of the days in [from, to]. Each
// line, the header included, ends with "\n"; an empty range yields only the
// header.
func (s *ExportService) AssignmentsCSV(ctx context.Context, from, to string) ([]byte, error) {
	if !exportDatePattern.MatchString(from) || !exportDatePattern.MatchString(to) {
		return nil, invalid("Parametri from/to non validi (YYYY-MM-DD)")
	}

	rows, err := s.repo.AssignmentRows(ctx, from, to)
	if err != nil {
		return nil, storeError("export", err)
	}

	var b strings.Builder
	b.WriteString(exportHeader)
	b.WriteByte('\n')
	for _, r := range rows {
		reperibile := "NO"
		if r.Reperibile {
			reperibile = "SI"
		}
		fields := []string{r.Day, r.Staff.String, r.Activity.String, r.Territory.String, reperibile, r.Notes.String}
		for i, f := range fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(csvEscape(f))
		}
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

// csvEscape quotes a field only when it contains a comma, a double quote or
// a newline, doubling inner quotes.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
