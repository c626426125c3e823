package repository

import (
	"context"
	"fmt"

	"fieldops-server/internal/domain"

	"gorm.io/gorm"
)

type HistoryRepository interface {
	ListByDay(ctx context.Context, dayID string) ([]*domain.DayHistory, error)
	FindByID(ctx context.Context, id string) (*domain.DayHistory, error)
	LatestForDay(ctx context.Context, dayID string) (*domain.DayHistory, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]*domain.AssignmentHistory, error)
	FindAssignmentEntry(ctx context.Context, id string) (*domain.AssignmentHistory, error)
	LatestForAssignment(ctx context.Context, assignmentID string) (*domain.AssignmentHistory, error)
}

type GormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository reads the tables the calendar day and assignment
// repositories migrate and write.
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{db: db}
}

func (r *GormHistoryRepository) ListByDay(ctx context.Context, dayID string) ([]*domain.DayHistory, error) {
	var rows []*domain.DayHistory
	err := r.db.WithContext(ctx).
		Where("calendar_day_id = ?", dayID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list day history: %w", err)
	}
	return rows, nil
}

func (r *GormHistoryRepository) FindByID(ctx context.Context, id string) (*domain.DayHistory, error) {
	var row domain.DayHistory
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (r *GormHistoryRepository) LatestForDay(ctx context.Context, dayID string) (*domain.DayHistory, error) {
	var row domain.DayHistory
	err := r.db.WithContext(ctx).
		Where("calendar_day_id = ?", dayID).
		Order("created_at DESC").
		Order("version DESC").
		First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (r *GormHistoryRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]*domain.AssignmentHistory, error) {
	var rows []*domain.AssignmentHistory
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignment history: %w", err)
	}
	return rows, nil
}

func (r *GormHistoryRepository) FindAssignmentEntry(ctx context.Context, id string) (*domain.AssignmentHistory, error) {
	var row domain.AssignmentHistory
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (r *GormHistoryRepository) LatestForAssignment(ctx context.Context, assignmentID string) (*domain.AssignmentHistory, error) {
	var row domain.AssignmentHistory
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}
