package domain

import (
	"encoding/json"
	"time"
)

type HistoryAction string

const (
	HistoryInsert  HistoryAction = "insert"
	HistoryUpdate  HistoryAction = "update"
	HistoryRestore HistoryAction = "restore"
	HistoryDelete  HistoryAction = "delete"
)

// Tables whose rows keep a history and can be restored.
const (
	HistoryTableDays        = "calendar_days"
	HistoryTableAssignments = "assignments"
)

// DayHistory is an append-only snapshot written with every calendar day change.
type DayHistory struct {
	ID            string          `gorm:"primaryKey;type:text" json:"id"`
	CalendarDayID string          `gorm:"type:text;index;not null" json:"calendar_day_id"`
	Action        HistoryAction   `gorm:"type:text;not null" json:"action"`
	Version       int64           `gorm:"not null" json:"version"`
	ChangedBy     *string         `gorm:"type:text" json:"changed_by"`
	PrevRecord    json.RawMessage `json:"prev_record"`
	NewRecord     json.RawMessage `json:"new_record"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}

func (DayHistory) TableName() string {
	return "calendar_days_history"
}

// AssignmentHistory is written with every assignment insert, update, delete
// and restore. NewRecord is empty for deletes.
type AssignmentHistory struct {
	ID           string          `gorm:"primaryKey;type:text" json:"id"`
	AssignmentID string          `gorm:"type:text;index;not null" json:"assignment_id"`
	Action       HistoryAction   `gorm:"type:text;not null" json:"action"`
	ChangedBy    *string         `gorm:"type:text" json:"changed_by"`
	PrevRecord   json.RawMessage `json:"prev_record"`
	NewRecord    json.RawMessage `json:"new_record"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

func (AssignmentHistory) TableName() string {
	return "assignments_history"
}

// Snapshot is the row image a restore writes back: the state after the
// change, or before it when the change removed the row.
func (h *AssignmentHistory) Snapshot() json.RawMessage {
	return snapshotOf(h.NewRecord, h.PrevRecord)
}

func (h *DayHistory) Snapshot() json.RawMessage {
	return snapshotOf(h.NewRecord, h.PrevRecord)
}

func snapshotOf(next, prev json.RawMessage) json.RawMessage {
	if len(next) > 0 && string(next) != "null" {
		return next
	}
	if len(prev) > 0 && string(prev) != "null" {
		return prev
	}
	return nil
}

type RestoreDayRequest struct {
	HistoryID string `json:"history_id" validate:"required"`
}

// RestoreRequest restores a row of Table from its latest snapshot, or from
// the snapshot VersionID when given.
type RestoreRequest struct {
	Table     string `json:"table" validate:"required"`
	ID        string `json:"id" validate:"required"`
	VersionID string `json:"version_id"`
}

type RestoreResponse struct {
	OK           bool         `json:"ok"`
	RestoredFrom string       `json:"restored_from"`
	Day          *CalendarDay `json:"day,omitempty"`
	Assignment   *Assignment  `json:"assignment,omitempty"`
}

type HistoryListResponse struct {
	Rows []*DayHistory `json:"rows"`
}

type AssignmentHistoryListResponse struct {
	Rows []*AssignmentHistory `json:"rows"`
}

type AuditEntry struct {
	ID        string          `gorm:"primaryKey;type:text" json:"id"`
	Actor     *string         `gorm:"type:text" json:"actor"`
	Action    string          `gorm:"not null" json:"action"`
	Entity    string          `gorm:"not null" json:"entity"`
	EntityID  string          `gorm:"type:text" json:"entity_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func (AuditEntry) TableName() string {
	return "audit_log"
}
