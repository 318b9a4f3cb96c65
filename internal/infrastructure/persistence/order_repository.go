package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/order"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/shared"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/persistence/models"
)

// orderStateColumns are the mutable columns every upsert overwrites: each
// platform payload carries the full current order state, so last write wins.
var orderStateColumns = []string{
	"status",
	"customer",
	"address",
	"items",
	"subtotal",
	"delivery_fee",
	"discount",
	"total",
	"payment_method",
	"payment_status",
	"placed_at",
	"ready_at",
	"picked_up_at",
	"delivered_at",
	"updated_at",
}

// GormOrderRepository implements order.Repository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GORM-based order repository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// UpsertByExternalKey converges on (cost center, platform, external id).
// The code column is also refreshed so marketplace rows keep their display
// code current.
func (r *GormOrderRepository) UpsertByExternalKey(ctx context.Context, o *order.Order) error {
	if o.CostCenterID == uuid.Nil || !o.HasExternalKey() {
		return order.ErrMissingKey
	}

	model := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cost_center_id"}, {Name: "platform"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns(append([]string{"code"}, orderStateColumns...)),
		}).
		Create(model).Error
}

// UpsertByCode converges on (cost center, code) for POS orders. The
// marketplace key columns are left untouched so a code collision never
// erases them.
func (r *GormOrderRepository) UpsertByCode(ctx context.Context, o *order.Order) error {
	if o.CostCenterID == uuid.Nil || o.Code == "" {
		return order.ErrMissingKey
	}

	model := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cost_center_id"}, {Name: "code"}},
			DoUpdates: clause.AssignmentColumns(orderStateColumns),
		}).
		Create(model).Error
}

// FindByExternalKey finds one order by its marketplace key
func (r *GormOrderRepository) FindByExternalKey(ctx context.Context, costCenterID uuid.UUID, externalID string, platform integration.Provider) (*order.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("cost_center_id = ? AND external_id = ? AND platform = ?", costCenterID, externalID, platform).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByCostCenter returns a filtered, paginated page of orders plus the
// unpaged total
func (r *GormOrderRepository) ListByCostCenter(ctx context.Context, costCenterID uuid.UUID, filter shared.Filter) ([]order.Order, int64, error) {
	filter.Normalize()

	query := r.applyFilters(
		r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("cost_center_id = ?", costCenterID),
		filter,
	)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, OrderSortFields, "placed_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	offset := (filter.Page - 1) * filter.PageSize

	var orderModels []models.OrderModel
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset(offset).
		Limit(filter.PageSize).
		Find(&orderModels).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]order.Order, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders, total, nil
}

func (r *GormOrderRepository) applyFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "platform":
			query = query.Where("platform = ?", value)
		case "placed_after":
			query = query.Where("placed_at >= ?", value)
		case "placed_before":
			query = query.Where("placed_at <= ?", value)
		}
	}
	return query
}
