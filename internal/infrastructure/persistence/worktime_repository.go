package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/worktime"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/persistence/models"
)

// workTimeDirectColumns are always overwritten on conflict.
var workTimeDirectColumns = []string{
	"order_date",
	"arrived_at",
	"shift",
	"workday",
	"invalidated",
	"raw_payload",
	"updated_at",
}

// workTimeDerivedColumns follow the refinement rule: coalesced on normal
// upserts so a non-null milestone never reverts to null, overwritten with
// null when the record is invalidated.
var workTimeDerivedColumns = []string{
	"ready_at",
	"picked_up_at",
	"delivered_at",
	"prep_minutes",
	"pickup_minutes",
	"delivery_minutes",
	"total_minutes",
}

// GormWorkTimeRepository implements worktime.Repository using GORM.
type GormWorkTimeRepository struct {
	db *gorm.DB
}

// NewGormWorkTimeRepository creates a new GORM-based work-time repository
func NewGormWorkTimeRepository(db *gorm.DB) *GormWorkTimeRepository {
	return &GormWorkTimeRepository{db: db}
}

// Upsert converges on (restaurant, provider, provider order id). Repeated
// application of the same record leaves the row unchanged.
func (r *GormWorkTimeRepository) Upsert(ctx context.Context, record *worktime.Record) error {
	if record.RestaurantID == uuid.Nil || record.Provider == "" || record.ProviderOrderID == "" {
		return worktime.ErrRecordMissingKey
	}

	model := models.WorkTimeRecordModelFromDomain(record)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "restaurant_id"}, {Name: "provider"}, {Name: "provider_order_id"}},
			DoUpdates: upsertAssignments(record),
		}).
		Create(model).Error
}

// upsertAssignments picks between the two refinement modes: an invalidated
// record overwrites the derived columns with its nulls, everything else
// coalesces against the stored row.
func upsertAssignments(record *worktime.Record) clause.Set {
	if record.Invalidated {
		return clause.AssignmentColumns(append(append([]string{}, workTimeDirectColumns...), workTimeDerivedColumns...))
	}

	set := clause.AssignmentColumns(workTimeDirectColumns)
	for _, column := range workTimeDerivedColumns {
		set = append(set, clause.Assignment{
			Column: clause.Column{Name: column},
			Value:  gorm.Expr(fmt.Sprintf("COALESCE(excluded.%s, work_time_records.%s)", column, column)),
		})
	}
	return set
}

// FindByKey finds one record by its upsert key
func (r *GormWorkTimeRepository) FindByKey(ctx context.Context, restaurantID uuid.UUID, provider, providerOrderID string) (*worktime.Record, error) {
	var model models.WorkTimeRecordModel
	if err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND provider = ? AND provider_order_id = ?", restaurantID, provider, providerOrderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, worktime.ErrRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByWorkday returns records whose workday falls inside [from, to], plus
// the unpaged total
func (r *GormWorkTimeRepository) ListByWorkday(ctx context.Context, restaurantID uuid.UUID, from, to time.Time, page, pageSize int) ([]worktime.Record, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	query := r.db.WithContext(ctx).
		Model(&models.WorkTimeRecordModel{}).
		Where("restaurant_id = ? AND workday >= ? AND workday <= ?", restaurantID, from, to)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recordModels []models.WorkTimeRecordModel
	if err := query.
		Order("workday ASC, arrived_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&recordModels).Error; err != nil {
		return nil, 0, err
	}

	records := make([]worktime.Record, len(recordModels))
	for i := range recordModels {
		records[i] = *recordModels[i].ToDomain()
	}
	return records, total, nil
}
