package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fieldops-server/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AssignmentRepository interface {
	Create(ctx context.Context, a *domain.Assignment, actor *string) error
	FindByID(ctx context.Context, id string) (*domain.Assignment, error)
	Update(ctx context.Context, id string, fields map[string]interface{}, actor *string) (*domain.Assignment, error)
	Delete(ctx context.Context, id string, actor *string) error
	Restore(ctx context.Context, snapshot *domain.Assignment, actor *string) (*domain.Assignment, error)
	ListByDayIDs(ctx context.Context, dayIDs []string) ([]*domain.Assignment, error)
	CreateWithDay(ctx context.Context, day string, actor *string, a *domain.Assignment) (*domain.CalendarDay, error)
	UpsertOnCall(ctx context.Context, days []string, staffID string, territoryID, notes, actor *string) (created, updated int, err error)
}

type GormAssignmentRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormAssignmentRepository(db *gorm.DB, logger *logrus.Logger) (*GormAssignmentRepository, error) {
	if err := db.AutoMigrate(&domain.Assignment{}, &domain.AssignmentHistory{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate assignments table")
		return nil, err
	}

	return &GormAssignmentRepository{db: db, logger: logger}, nil
}

func (r *GormAssignmentRepository) Create(ctx context.Context, a *domain.Assignment, actor *string) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertAssignment(tx, a, actor)
	})
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (r *GormAssignmentRepository) FindByID(ctx context.Context, id string) (*domain.Assignment, error) {
	var a domain.Assignment
	err := r.db.WithContext(ctx).
		Preload("Staff").
		Preload("Activity").
		Preload("Territory").
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// Update applies fields as-is. There is no version check: the last writer wins.
func (r *GormAssignmentRepository) Update(ctx context.Context, id string, fields map[string]interface{}, actor *string) (*domain.Assignment, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev domain.Assignment
		if err := tx.First(&prev, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&domain.Assignment{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return err
		}
		var next domain.Assignment
		if err := tx.First(&next, "id = ?", id).Error; err != nil {
			return err
		}
		return appendAssignmentHistory(tx, domain.HistoryUpdate, &prev, &next, actor)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}
	return r.FindByID(ctx, id)
}

// Delete is idempotent: removing an id that is already gone succeeds and
// leaves no history entry.
func (r *GormAssignmentRepository) Delete(ctx context.Context, id string, actor *string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev domain.Assignment
		if err := tx.First(&prev, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Delete(&domain.Assignment{}, "id = ?", id).Error; err != nil {
			return err
		}
		return appendAssignmentHistory(tx, domain.HistoryDelete, &prev, nil, actor)
	})
	if errors.Is(err, ErrNotFound) {
		r.logger.WithField("id", id).Debug("Delete matched no assignment")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}

// Restore writes snapshot back under its id, re-creating the row when it
// was deleted. ErrNotFound is returned when the snapshot's day is gone.
func (r *GormAssignmentRepository) Restore(ctx context.Context, snapshot *domain.Assignment, actor *string) (*domain.Assignment, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findDayByID(tx, snapshot.DayID); err != nil {
			return err
		}

		var prev domain.Assignment
		err := tx.First(&prev, "id = ?", snapshot.ID).Error
		switch {
		case err == nil:
			fields := map[string]interface{}{
				"day_id":       snapshot.DayID,
				"staff_id":     snapshot.StaffID,
				"activity_id":  snapshot.ActivityID,
				"territory_id": snapshot.TerritoryID,
				"cost_center":  snapshot.CostCenter,
				"reperibile":   snapshot.Reperibile,
				"notes":        snapshot.Notes,
				"updated_at":   tx.NowFunc(),
			}
			if err := tx.Model(&domain.Assignment{}).Where("id = ?", snapshot.ID).Updates(fields).Error; err != nil {
				return err
			}
			var next domain.Assignment
			if err := tx.First(&next, "id = ?", snapshot.ID).Error; err != nil {
				return err
			}
			return appendAssignmentHistory(tx, domain.HistoryRestore, &prev, &next, actor)

		case errors.Is(err, gorm.ErrRecordNotFound):
			row := &domain.Assignment{
				ID:          snapshot.ID,
				DayID:       snapshot.DayID,
				StaffID:     snapshot.StaffID,
				ActivityID:  snapshot.ActivityID,
				TerritoryID: snapshot.TerritoryID,
				CostCenter:  snapshot.CostCenter,
				Reperibile:  snapshot.Reperibile,
				Notes:       snapshot.Notes,
				CreatedAt:   snapshot.CreatedAt,
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
			return appendAssignmentHistory(tx, domain.HistoryRestore, nil, row, actor)

		default:
			return err
		}
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to restore assignment: %w", err)
	}
	return r.FindByID(ctx, snapshot.ID)
}

func (r *GormAssignmentRepository) ListByDayIDs(ctx context.Context, dayIDs []string) ([]*domain.Assignment, error) {
	var out []*domain.Assignment
	if len(dayIDs) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Staff").
		Preload("Activity").
		Preload("Territory").
		Where("day_id IN ?", dayIDs).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return out, nil
}

// CreateWithDay makes sure the day row exists and inserts the assignment in
// the same transaction. Either both rows are written or neither is.
func (r *GormAssignmentRepository) CreateWithDay(ctx context.Context, day string, actor *string, a *domain.Assignment) (*domain.CalendarDay, error) {
	var dayRow *domain.CalendarDay

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, created, err := findOrInsertDay(tx, day, actor)
		if err != nil {
			return err
		}

		a.DayID = row.ID
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if err := insertAssignment(tx, a, actor); err != nil {
			return fmt.Errorf("failed to create assignment: %w", err)
		}

		r.logger.WithFields(logrus.Fields{
			"day":         day,
			"day_created": created,
			"assignment":  a.ID,
		}).Debug("Assignment created with day")

		dayRow = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	return dayRow, nil
}

// UpsertOnCall marks staffID as on call on every date in days, creating the
// day rows that do not exist yet. An existing assignment of the same staff
// member on a date is flagged instead of duplicated.
func (r *GormAssignmentRepository) UpsertOnCall(ctx context.Context, days []string, staffID string, territoryID, notes, actor *string) (int, int, error) {
	var created, updated int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range days {
			row, _, err := findOrInsertDay(tx, d, actor)
			if err != nil {
				return err
			}

			var existing domain.Assignment
			err = tx.Where("day_id = ? AND staff_id = ?", row.ID, staffID).First(&existing).Error
			switch {
			case err == nil:
				prev := existing
				fields := map[string]interface{}{"reperibile": true}
				if territoryID != nil {
					fields["territory_id"] = territoryID
				}
				if notes != nil {
					fields["notes"] = notes
				}
				if err := tx.Model(&domain.Assignment{}).Where("id = ?", existing.ID).Updates(fields).Error; err != nil {
					return err
				}
				var next domain.Assignment
				if err := tx.First(&next, "id = ?", existing.ID).Error; err != nil {
					return err
				}
				if err := appendAssignmentHistory(tx, domain.HistoryUpdate, &prev, &next, actor); err != nil {
					return err
				}
				updated++
			case errors.Is(err, gorm.ErrRecordNotFound):
				sid := staffID
				a := &domain.Assignment{
					ID:          uuid.New().String(),
					DayID:       row.ID,
					StaffID:     &sid,
					TerritoryID: territoryID,
					Reperibile:  true,
					Notes:       notes,
				}
				if err := insertAssignment(tx, a, actor); err != nil {
					return err
				}
				created++
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to insert on-call range: %w", err)
	}

	return created, updated, nil
}

func insertAssignment(tx *gorm.DB, a *domain.Assignment, actor *string) error {
	if err := tx.Create(a).Error; err != nil {
		return err
	}
	return appendAssignmentHistory(tx, domain.HistoryInsert, nil, a, actor)
}

func appendAssignmentHistory(tx *gorm.DB, action domain.HistoryAction, prev, next *domain.Assignment, actor *string) error {
	entry := &domain.AssignmentHistory{
		ID:        uuid.New().String(),
		Action:    action,
		ChangedBy: actor,
		CreatedAt: time.Now().UTC(),
	}

	for _, img := range []struct {
		row *domain.Assignment
		dst *json.RawMessage
	}{{prev, &entry.PrevRecord}, {next, &entry.NewRecord}} {
		if img.row == nil {
			continue
		}
		entry.AssignmentID = img.row.ID
		b, err := json.Marshal(img.row)
		if err != nil {
			return err
		}
		*img.dst = b
	}

	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write assignment history: %w", err)
	}
	return nil
}
