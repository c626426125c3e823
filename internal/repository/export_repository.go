package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ExportRow is one assignment joined with its day and catalog names.
type ExportRow struct {
	Day        string         `db:"day"`
	Staff      sql.NullString `db:"staff"`
	Activity   sql.NullString `db:"activity"`
	Territory  sql.NullString `db:"territory"`
	Reperibile bool           `db:"reperibile"`
	Notes      sql.NullString `db:"notes"`
}

type ExportRepository interface {
	AssignmentRows(ctx context.Context, from, to string) ([]ExportRow, error)
}

type SQLXExportRepository struct {
	db *sqlx.DB
}

// NewSQLXExportRepository wraps the handle gorm already opened; driverName
// selects the bind variable style.
func NewSQLXExportRepository(db *sql.DB, driverName string) *SQLXExportRepository {
	return &SQLXExportRepository{db: sqlx.NewDb(db, driverName)}
}

const assignmentExportQuery = `
SELECT d.day          AS day,
       s.display_name AS staff,
       ac.name        AS activity,
       t.name         AS territory,
       a.reperibile   AS reperibile,
       a.notes        AS notes
  FROM assignments a
  JOIN calendar_days d ON d.id = a.day_id
  LEFT JOIN staff s        ON s.id = a.staff_id
  LEFT JOIN activities ac  ON ac.id = a.activity_id
  LEFT JOIN territories t  ON t.id = a.territory_id
 WHERE d.day >= ? AND d.day <= ?
 ORDER BY d.day ASC, a.created_at ASC`

func (r *SQLXExportRepository) AssignmentRows(ctx context.Context, from, to string) ([]ExportRow, error) {
	rows := []ExportRow{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(assignmentExportQuery), from, to); err != nil {
		return nil, fmt.Errorf("failed to query export rows: %w", err)
	}
	return rows, nil
}
