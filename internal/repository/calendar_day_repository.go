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

type CalendarDayRepository interface {
	FindByID(ctx context.Context, id string) (*domain.CalendarDay, error)
	FindByDay(ctx context.Context, day string) (*domain.CalendarDay, error)
	ListRange(ctx context.Context, from, to string) ([]*domain.CalendarDay, error)
	Insert(ctx context.Context, day *domain.CalendarDay) error
	UpdateIfVersion(ctx context.Context, id string, version int64, note, userID *string) (*domain.CalendarDay, error)
	Restore(ctx context.Context, id string, note, userID *string, actor *string) (*domain.CalendarDay, error)
}

type GormCalendarDayRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormCalendarDayRepository(db *gorm.DB, logger *logrus.Logger) (*GormCalendarDayRepository, error) {
	if err := db.AutoMigrate(&domain.CalendarDay{}, &domain.DayHistory{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate calendar_days table")
		return nil, err
	}

	return &GormCalendarDayRepository{db: db, logger: logger}, nil
}

func (r *GormCalendarDayRepository) FindByID(ctx context.Context, id string) (*domain.CalendarDay, error) {
	return findDayByID(r.db.WithContext(ctx), id)
}

// FindByDay looks the row up by date only. A day is shared by every user.
func (r *GormCalendarDayRepository) FindByDay(ctx context.Context, day string) (*domain.CalendarDay, error) {
	return findDay(r.db.WithContext(ctx), day)
}

func (r *GormCalendarDayRepository) ListRange(ctx context.Context, from, to string) ([]*domain.CalendarDay, error) {
	var days []*domain.CalendarDay
	err := r.db.WithContext(ctx).
		Where("day >= ? AND day <= ?", from, to).
		Order("day ASC").
		Find(&days).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar days: %w", err)
	}
	return days, nil
}

// Insert creates the row with InitialDayVersion. ErrDuplicateDay is returned
// when a row for the same date already exists.
func (r *GormCalendarDayRepository) Insert(ctx context.Context, day *domain.CalendarDay) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertDay(tx, day)
	})
}

// UpdateIfVersion is a single compare-and-set on (id, version). It returns
// ErrVersionMismatch when no row matched; any other error comes from the
// store and must not be read as a conflict.
func (r *GormCalendarDayRepository) UpdateIfVersion(ctx context.Context, id string, version int64, note, userID *string) (*domain.CalendarDay, error) {
	var updated *domain.CalendarDay

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev domain.CalendarDay
		if err := tx.First(&prev, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVersionMismatch
			}
			return err
		}

		res := tx.Model(&domain.CalendarDay{}).
			Where("id = ? AND version = ?", id, version).
			Updates(map[string]interface{}{
				"note":       note,
				"user_id":    userID,
				"updated_at": tx.NowFunc(),
				"version":    gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionMismatch
		}

		var next domain.CalendarDay
		if err := tx.First(&next, "id = ?", id).Error; err != nil {
			return err
		}
		if err := appendHistory(tx, domain.HistoryUpdate, &prev, &next, userID); err != nil {
			return err
		}

		updated = &next
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrVersionMismatch) {
			r.logger.WithFields(logrus.Fields{
				"id":      id,
				"version": version,
			}).WithError(err).Error("Conditional day update failed")
		}
		return nil, err
	}

	return updated, nil
}

// Restore overwrites the day fields and bumps the version past the current
// one, regardless of what the caller last saw.
func (r *GormCalendarDayRepository) Restore(ctx context.Context, id string, note, userID *string, actor *string) (*domain.CalendarDay, error) {
	var restored *domain.CalendarDay

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev domain.CalendarDay
		if err := tx.First(&prev, "id = ?", id).Error; err != nil {
			return notFound(err)
		}

		res := tx.Model(&domain.CalendarDay{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"note":       note,
				"user_id":    userID,
				"updated_at": tx.NowFunc(),
				"version":    gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}

		var next domain.CalendarDay
		if err := tx.First(&next, "id = ?", id).Error; err != nil {
			return err
		}
		if err := appendHistory(tx, domain.HistoryRestore, &prev, &next, actor); err != nil {
			return err
		}

		restored = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	return restored, nil
}

func findDayByID(db *gorm.DB, id string) (*domain.CalendarDay, error) {
	var row domain.CalendarDay
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func findDay(db *gorm.DB, day string) (*domain.CalendarDay, error) {
	var row domain.CalendarDay
	if err := db.First(&row, "day = ?", day).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func insertDay(tx *gorm.DB, day *domain.CalendarDay) error {
	if day.ID == "" {
		day.ID = uuid.New().String()
	}
	day.Version = domain.InitialDayVersion
	day.UpdatedAt = tx.NowFunc()

	if err := tx.Create(day).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateDay
		}
		return err
	}

	return appendHistory(tx, domain.HistoryInsert, nil, day, day.UserID)
}

// findOrInsertDay returns the row for day, creating it when missing.
func findOrInsertDay(tx *gorm.DB, day string, actor *string) (*domain.CalendarDay, bool, error) {
	existing, err := findDay(tx, day)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	row := &domain.CalendarDay{Day: day, UserID: actor}
	if err := insertDay(tx, row); err != nil {
		if errors.Is(err, ErrDuplicateDay) {
			// lost the race against another writer
			existing, ferr := findDay(tx, day)
			return existing, false, ferr
		}
		return nil, false, err
	}
	return row, true, nil
}

func appendHistory(tx *gorm.DB, action domain.HistoryAction, prev, next *domain.CalendarDay, actor *string) error {
	entry := &domain.DayHistory{
		ID:            uuid.New().String(),
		CalendarDayID: next.ID,
		Action:        action,
		Version:       next.Version,
		ChangedBy:     actor,
		CreatedAt:     time.Now().UTC(),
	}

	if prev != nil {
		b, err := json.Marshal(prev)
		if err != nil {
			return err
		}
		entry.PrevRecord = b
	}
	b, err := json.Marshal(next)
	if err != nil {
		return err
	}
	entry.NewRecord = b

	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write day history: %w", err)
	}
	return nil
}
