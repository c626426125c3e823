package domain

import (
	"strconv"
	"time"
)

// ExpiryHorizonDays is how far ahead the expiry scan looks.
const ExpiryHorizonDays = 7

// ExpiryHit is one dated maintenance column of one equipment row that is
// overdue or falls within the horizon.
type ExpiryHit struct {
	Date        time.Time
	Offset      int
	Type        string
	Column      string
	Category    string
	Description string
	Model       string
	Serial      string
	Code        string
	Assignee    string
}

// Overdue reports whether the hit date lies before today.
func (h ExpiryHit) Overdue() bool {
	return h.Offset < 0
}

// Group is the label of the bucket the hit belongs to: SCADUTO, OGGI or +N.
func (h ExpiryHit) Group() string {
	switch {
	case h.Offset < 0:
		return "SCADUTO"
	case h.Offset == 0:
		return "OGGI"
	default:
		return "+" + strconv.Itoa(h.Offset)
	}
}

// Reminder returns "+1", "+3" or "+7" for reminder buckets and "" otherwise.
func (h ExpiryHit) Reminder() string {
	if IsReminderOffset(h.Offset) {
		return "+" + strconv.Itoa(h.Offset)
	}
	return ""
}

func IsReminderOffset(offset int) bool {
	return offset == 1 || offset == 3 || offset == 7
}

// ExpiryReport is the classified outcome of one scan.
type ExpiryReport struct {
	Today   time.Time
	Overdue []ExpiryHit
	// Buckets[d] holds the hits due exactly d days from today.
	Buckets [ExpiryHorizonDays + 1][]ExpiryHit
}

func (r *ExpiryReport) Total() int {
	n := len(r.Overdue)
	for _, b := range r.Buckets {
		n += len(b)
	}
	return n
}

// Ordered returns overdue hits followed by buckets 0..7.
func (r *ExpiryReport) Ordered() []ExpiryHit {
	out := make([]ExpiryHit, 0, r.Total())
	out = append(out, r.Overdue...)
	for _, b := range r.Buckets {
		out = append(out, b...)
	}
	return out
}

type ExpiryScanResult struct {
	OK       bool   `json:"ok"`
	Skipped  string `json:"skipped,omitempty"`
	Sent     bool   `json:"sent,omitempty"`
	Total    int    `json:"total"`
	Overdue  int    `json:"scadute"`
	Exported int    `json:"exported"`
}

type UploadResult struct {
	OK     bool   `json:"ok"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}
