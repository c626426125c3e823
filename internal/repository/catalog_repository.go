package repository

import (
	"context"
	"fmt"

	"fieldops-server/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type CatalogRepository interface {
	List(ctx context.Context, kind domain.CatalogKind, activeOnly bool) ([]domain.CatalogEntry, error)
	Create(ctx context.Context, kind domain.CatalogKind, name string) (*domain.CatalogEntry, error)
}

type GormCatalogRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormCatalogRepository(db *gorm.DB, logger *logrus.Logger) (*GormCatalogRepository, error) {
	if err := db.AutoMigrate(&domain.Staff{}, &domain.Activity{}, &domain.Territory{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate catalog tables")
		return nil, err
	}

	return &GormCatalogRepository{db: db, logger: logger}, nil
}

func (r *GormCatalogRepository) List(ctx context.Context, kind domain.CatalogKind, activeOnly bool) ([]domain.CatalogEntry, error) {
	q := r.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	var out []domain.CatalogEntry
	switch kind {
	case domain.CatalogStaff:
		var rows []domain.Staff
		if err := q.Order("display_name ASC").Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to list staff: %w", err)
		}
		for _, s := range rows {
			out = append(out, domain.CatalogEntry{ID: s.ID, Name: s.DisplayName, Active: s.Active})
		}
	case domain.CatalogActivities:
		var rows []domain.Activity
		if err := q.Order("name ASC").Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to list activities: %w", err)
		}
		for _, a := range rows {
			out = append(out, domain.CatalogEntry{ID: a.ID, Name: a.Name, Active: a.Active})
		}
	case domain.CatalogTerritories:
		var rows []domain.Territory
		if err := q.Order("name ASC").Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to list territories: %w", err)
		}
		for _, t := range rows {
			out = append(out, domain.CatalogEntry{ID: t.ID, Name: t.Name, Active: t.Active})
		}
	default:
		return nil, fmt.Errorf("unknown catalog %q", kind)
	}

	return out, nil
}

func (r *GormCatalogRepository) Create(ctx context.Context, kind domain.CatalogKind, name string) (*domain.CatalogEntry, error) {
	id := uuid.New().String()

	var model interface{}
	switch kind {
	case domain.CatalogStaff:
		model = &domain.Staff{ID: id, DisplayName: name, Active: true}
	case domain.CatalogActivities:
		model = &domain.Activity{ID: id, Name: name, Active: true}
	case domain.CatalogTerritories:
		model = &domain.Territory{ID: id, Name: name, Active: true}
	default:
		return nil, fmt.Errorf("unknown catalog %q", kind)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, fmt.Errorf("failed to create %s entry: %w", kind, err)
	}

	r.logger.WithFields(logrus.Fields{"kind": kind, "id": id}).Info("Catalog entry created")
	return &domain.CatalogEntry{ID: id, Name: name, Active: true}, nil
}
