package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/persistence/models"
)

// defaultSyncLogLimit bounds ListByIntegration when the caller passes no
// usable limit
const defaultSyncLogLimit = 20

// GormSyncLogRepository implements integration.SyncLogRepository using GORM.
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GORM-based sync log repository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Save persists one sync-run audit record
func (r *GormSyncLogRepository) Save(ctx context.Context, log *integration.SyncLog) error {
	model := models.SyncLogModelFromDomain(log)
	return r.db.WithContext(ctx).Save(model).Error
}

// ListByIntegration returns the most recent runs of one integration
func (r *GormSyncLogRepository) ListByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]integration.SyncLog, error) {
	if limit < 1 {
		limit = defaultSyncLogLimit
	}

	var logModels []models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ?", integrationID).
		Order("started_at DESC").
		Limit(limit).
		Find(&logModels).Error; err != nil {
		return nil, err
	}

	logs := make([]integration.SyncLog, len(logModels))
	for i, model := range logModels {
		logs[i] = *model.ToDomain()
	}
	return logs, nil
}
