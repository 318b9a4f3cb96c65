package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/inbox"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/persistence/models"
)

// GormInboxRepository implements inbox.Repository using GORM.
type GormInboxRepository struct {
	db *gorm.DB
}

// NewGormInboxRepository creates a new GORM-based inbox repository
func NewGormInboxRepository(db *gorm.DB) *GormInboxRepository {
	return &GormInboxRepository{db: db}
}

// Save persists an inbox item, creating or updating by ID
func (r *GormInboxRepository) Save(ctx context.Context, item *inbox.Item) error {
	model := models.InboxItemModelFromDomain(item)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds an inbox item by its ID
func (r *GormInboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*inbox.Item, error) {
	var model models.InboxItemModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inbox.ErrItemNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListPending returns PENDING items of one integration FIFO by receipt time
func (r *GormInboxRepository) ListPending(ctx context.Context, integrationID uuid.UUID, limit int) ([]inbox.Item, error) {
	query := r.db.WithContext(ctx).
		Where("integration_id = ? AND status = ?", integrationID, inbox.StatusPending).
		Order("received_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var itemModels []models.InboxItemModel
	if err := query.Find(&itemModels).Error; err != nil {
		return nil, err
	}
	return toDomainItems(itemModels), nil
}

// List returns a filtered, paginated page of inbox items plus the unpaged
// total, newest first
func (r *GormInboxRepository) List(ctx context.Context, filter inbox.Filter) ([]inbox.Item, int64, error) {
	filter.Normalize()

	query := r.db.WithContext(ctx).Model(&models.InboxItemModel{})
	if filter.IntegrationID != nil {
		query = query.Where("integration_id = ?", *filter.IntegrationID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.StartDate != nil {
		query = query.Where("received_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("received_at <= ?", *filter.EndDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PageSize

	var itemModels []models.InboxItemModel
	if err := query.
		Order("received_at DESC").
		Offset(offset).
		Limit(filter.PageSize).
		Find(&itemModels).Error; err != nil {
		return nil, 0, err
	}

	return toDomainItems(itemModels), total, nil
}

func toDomainItems(itemModels []models.InboxItemModel) []inbox.Item {
	items := make([]inbox.Item, len(itemModels))
	for i := range itemModels {
		items[i] = *itemModels[i].ToDomain()
	}
	return items
}
