package domain

type CatalogKind string

const (
	CatalogStaff       CatalogKind = "staff"
	CatalogActivities  CatalogKind = "activities"
	CatalogTerritories CatalogKind = "territories"
)

type Staff struct {
	ID          string `gorm:"primaryKey;type:text" json:"id"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Active      bool   `gorm:"not null" json:"active"`
}

func (Staff) TableName() string {
	return "staff"
}

type Activity struct {
	ID     string `gorm:"primaryKey;type:text" json:"id"`
	Name   string `gorm:"not null" json:"name"`
	Active bool   `gorm:"not null" json:"active"`
}

func (Activity) TableName() string {
	return "activities"
}

type Territory struct {
	ID     string `gorm:"primaryKey;type:text" json:"id"`
	Name   string `gorm:"not null" json:"name"`
	Active bool   `gorm:"not null" json:"active"`
}

func (Territory) TableName() string {
	return "territories"
}

type CreateCatalogEntryRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// CatalogEntry is the kind-agnostic shape returned by catalog listings.
type CatalogEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}
