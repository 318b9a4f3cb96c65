package inbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows inbox listings for the operability surface
type Filter struct {
	IntegrationID *uuid.UUID
	Status        *Status
	StartDate     *time.Time
	EndDate       *time.Time
	Page          int
	PageSize      int
}

// Normalize clamps pagination into its valid range
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
}

// Repository persists inbox items. Writes are append-plus-update only; no
// item is ever deleted on failure.
type Repository interface {
	Save(ctx context.Context, item *Item) error
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)
	// ListPending returns PENDING items FIFO by receipt time
	ListPending(ctx context.Context, integrationID uuid.UUID, limit int) ([]Item, error)
	List(ctx context.Context, filter Filter) ([]Item, int64, error)
}
