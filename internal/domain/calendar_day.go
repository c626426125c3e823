package domain

import "time"

// InitialDayVersion is the version a calendar day carries right after insert.
const InitialDayVersion int64 = 1

// DayLayout is the wire and storage format of CalendarDay.Day.
const DayLayout = "2006-01-02"

type CalendarDay struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Day       string    `gorm:"type:text;uniqueIndex;not null" json:"day"`
	Note      *string   `json:"note"`
	UserID    *string   `gorm:"type:text" json:"user_id"`
	Version   int64     `gorm:"not null" json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CalendarDay) TableName() string {
	return "calendar_days"
}

type UpsertDayRequest struct {
	ID      *string `json:"id"`
	Day     string  `json:"day" validate:"required,datetime=2006-01-02"`
	Note    *string `json:"note"`
	UserID  *string `json:"user_id"`
	Version *int64  `json:"version"`
}

// HasVersion reports whether the caller supplied both id and version, which
// is what makes the conditional update path applicable.
func (r *UpsertDayRequest) HasVersion() bool {
	return r.ID != nil && *r.ID != "" && r.Version != nil
}

type UpsertDayResponse struct {
	OK  bool         `json:"ok"`
	Row *CalendarDay `json:"row"`
}

type DayConflictResponse struct {
	OK       bool         `json:"ok"`
	Conflict bool         `json:"conflict"`
	Current  *CalendarDay `json:"current"`
}

// DayView is one cell of the scheduling grid.
type DayView struct {
	Date        string        `json:"date"`
	Weekend     bool          `json:"weekend"`
	Holiday     bool          `json:"holiday"`
	Day         *CalendarDay  `json:"day,omitempty"`
	Assignments []*Assignment `json:"assignments"`
}

type RangeResponse struct {
	From string     `json:"from"`
	To   string     `json:"to"`
	Days []*DayView `json:"days"`
}
