package spreadsheet

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"fieldops-server/internal/calendar"

	"github.com/xuri/excelize/v2"
)

// Plausible Excel serials for field dates (1927..2447). Smaller or larger
// numbers are codes, not dates.
const (
	minDateSerial = 10000
	maxDateSerial = 200000
)

var (
	dayFirstPattern  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2}|\d{4})$`)
	yearFirstPattern = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`)
)

// ParseDate reads a cell as a civil date. It accepts Excel serials,
// day-first dates with "/", "-" or "." separators and a two or four digit
// year (two digit years are 20xx), and year-first dates. A trailing time
// is ignored. The result is midnight UTC of the civil date.
func ParseDate(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < minDateSerial || serial > maxDateSerial {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return calendar.Date(t.Year(), t.Month(), t.Day()), true
	}

	s = strings.Fields(s)[0]
	s = strings.NewReplacer("-", "/", ".", "/").Replace(s)

	var y, m, d int
	if match := yearFirstPattern.FindStringSubmatch(s); match != nil {
		y, _ = strconv.Atoi(match[1])
		m, _ = strconv.Atoi(match[2])
		d, _ = strconv.Atoi(match[3])
	} else if match := dayFirstPattern.FindStringSubmatch(s); match != nil {
		d, _ = strconv.Atoi(match[1])
		m, _ = strconv.Atoi(match[2])
		y, _ = strconv.Atoi(match[3])
		if len(match[3]) == 2 {
			y += 2000
		}
	} else {
		return time.Time{}, false
	}

	t := calendar.Date(y, time.Month(m), d)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		// 31/02 and friends
		return time.Time{}, false
	}
	return t, true
}

// FormatDMY renders a date as dd/mm/yyyy.
func FormatDMY(t time.Time) string {
	return t.Format("02/01/2006")
}
