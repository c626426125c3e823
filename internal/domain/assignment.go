package domain

import "time"

type CostCenter string

const (
	CostCenterAlessandrini  CostCenter = "ALESSANDRINI"
	CostCenterPastorelli    CostCenter = "PASTORELLI"
	CostCenterPassacantilli CostCenter = "PASSACANTILLI"
	CostCenterPlenzich      CostCenter = "PLENZICH"
)

var CostCenters = []CostCenter{
	CostCenterAlessandrini,
	CostCenterPastorelli,
	CostCenterPassacantilli,
	CostCenterPlenzich,
}

func (c CostCenter) Valid() bool {
	for _, cc := range CostCenters {
		if c == cc {
			return true
		}
	}
	return false
}

type Assignment struct {
	ID          string      `gorm:"primaryKey;type:text" json:"id"`
	DayID       string      `gorm:"type:text;index;not null" json:"day_id"`
	StaffID     *string     `gorm:"type:text;index" json:"staff_id"`
	ActivityID  *string     `gorm:"type:text" json:"activity_id"`
	TerritoryID *string     `gorm:"type:text" json:"territory_id"`
	CostCenter  *CostCenter `gorm:"type:text" json:"cost_center"`
	Reperibile  bool        `gorm:"not null" json:"reperibile"`
	Notes       *string     `json:"notes"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	Staff     *Staff     `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
	Activity  *Activity  `gorm:"foreignKey:ActivityID" json:"activity,omitempty"`
	Territory *Territory `gorm:"foreignKey:TerritoryID" json:"territory,omitempty"`
}

func (Assignment) TableName() string {
	return "assignments"
}

type CreateAssignmentRequest struct {
	DayID       string      `json:"day_id" validate:"required"`
	StaffID     *string     `json:"staff_id"`
	ActivityID  *string     `json:"activity_id"`
	TerritoryID *string     `json:"territory_id"`
	CostCenter  *CostCenter `json:"cost_center" validate:"omitempty,oneof=ALESSANDRINI PASTORELLI PASSACANTILLI PLENZICH"`
	Reperibile  bool        `json:"reperibile"`
	Notes       *string     `json:"notes"`
}

// AssignmentPatch is a partial update keyed by column name. A key mapped to
// nil clears the column.
type AssignmentPatch map[string]any

type UpdateAssignmentRequest struct {
	ID    string          `json:"id" validate:"required"`
	Patch AssignmentPatch `json:"patch" validate:"required"`
}

type DeleteAssignmentRequest struct {
	ID string `json:"id" validate:"required"`
}

// AssignOnDateRequest creates the day row when missing and the assignment
// in a single transaction.
type AssignOnDateRequest struct {
	Day         string      `json:"day" validate:"required,datetime=2006-01-02"`
	StaffID     *string     `json:"staff_id"`
	ActivityID  *string     `json:"activity_id"`
	TerritoryID *string     `json:"territory_id"`
	CostCenter  *CostCenter `json:"cost_center" validate:"omitempty,oneof=ALESSANDRINI PASTORELLI PASSACANTILLI PLENZICH"`
	Reperibile  bool        `json:"reperibile"`
	Notes       *string     `json:"notes"`
}

type AssignOnDateResponse struct {
	OK         bool         `json:"ok"`
	Day        *CalendarDay `json:"day"`
	Assignment *Assignment  `json:"assignment"`
}

type OnCallRangeRequest struct {
	StaffID     string  `json:"staff_id" validate:"required"`
	TerritoryID *string `json:"territory_id"`
	From        string  `json:"from" validate:"required,datetime=2006-01-02"`
	To          string  `json:"to" validate:"required,datetime=2006-01-02"`
	Notes       *string `json:"notes"`
}

type OnCallRangeResult struct {
	OK      bool `json:"ok"`
	Days    int  `json:"days"`
	Created int  `json:"created"`
	Updated int  `json:"updated"`
}

type AssignmentResponse struct {
	OK         bool        `json:"ok"`
	Assignment *Assignment `json:"assignment"`
}
