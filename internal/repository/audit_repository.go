package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fieldops-server/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Record(ctx context.Context, actor *string, action, entity, entityID string, payload interface{}) error
}

type GormAuditRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewGormAuditRepository(db *gorm.DB, logger *logrus.Logger) (*GormAuditRepository, error) {
	if err := db.AutoMigrate(&domain.AuditEntry{}); err != nil {
		logger.WithError(err).Error("Failed to auto-migrate audit_log table")
		return nil, err
	}

	return &GormAuditRepository{db: db, logger: logger}, nil
}

func (r *GormAuditRepository) Record(ctx context.Context, actor *string, action, entity, entityID string, payload interface{}) error {
	entry := &domain.AuditEntry{
		ID:        uuid.New().String(),
		Actor:     actor,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		CreatedAt: time.Now().UTC(),
	}

	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode audit payload: %w", err)
		}
		entry.Payload = b
	}

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"action":    action,
		"entity":    entity,
		"entity_id": entityID,
	}).Info("Audit entry recorded")
	return nil
}
