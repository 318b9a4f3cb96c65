package worktime

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRecordNotFound       = errors.New("worktime: record not found")
	ErrRecordMissingKey     = errors.New("worktime: record key fields are required")
	ErrRecordMissingArrival = errors.New("worktime: record has no arrival timestamp")
)

// Shift splits the business day into its two operating windows
type Shift string

const (
	ShiftDay   Shift = "DAY"
	ShiftNight Shift = "NIGHT"
)

// Record is one row of operational timing per physical order, keyed by
// (restaurant, provider, provider order id) and refined monotonically as
// later events for the same order arrive.
type Record struct {
	ID uuid.UUID

	RestaurantID    uuid.UUID
	Provider        string
	ProviderOrderID string

	OrderDate   time.Time
	ArrivedAt   time.Time
	ReadyAt     *time.Time
	PickedUpAt  *time.Time
	DeliveredAt *time.Time

	PrepMinutes     *int
	PickupMinutes   *int
	DeliveryMinutes *int
	TotalMinutes    *int

	Shift   Shift
	Workday time.Time

	// Invalidated mirrors Timing.Invalidated for the upsert: an invalidated
	// record overwrites derived fields with null instead of coalescing.
	Invalidated bool

	RawPayload []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord builds a record from a reconciled timing
func NewRecord(restaurantID uuid.UUID, provider, providerOrderID string, timing Timing, rawPayload []byte) (*Record, error) {
	if restaurantID == uuid.Nil || provider == "" || providerOrderID == "" {
		return nil, ErrRecordMissingKey
	}
	if timing.ArrivedAt.IsZero() {
		return nil, ErrRecordMissingArrival
	}

	now := time.Now()
	return &Record{
		ID:              uuid.New(),
		RestaurantID:    restaurantID,
		Provider:        provider,
		ProviderOrderID: providerOrderID,
		OrderDate:       timing.ArrivedAt,
		ArrivedAt:       timing.ArrivedAt,
		ReadyAt:         timing.ReadyAt,
		PickedUpAt:      timing.PickedUpAt,
		DeliveredAt:     timing.DeliveredAt,
		PrepMinutes:     timing.PrepMinutes,
		PickupMinutes:   timing.PickupMinutes,
		DeliveryMinutes: timing.DeliveryMinutes,
		TotalMinutes:    timing.TotalMinutes,
		Shift:           timing.Shift,
		Workday:         timing.Workday,
		Invalidated:     timing.Invalidated,
		RawPayload:      rawPayload,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Repository persists work-time records. Upsert is keyed on (restaurant,
// provider, provider order id); repeated application of the same record
// converges to the same row.
type Repository interface {
	Upsert(ctx context.Context, record *Record) error
	FindByKey(ctx context.Context, restaurantID uuid.UUID, provider, providerOrderID string) (*Record, error)
	ListByWorkday(ctx context.Context, restaurantID uuid.UUID, from, to time.Time, page, pageSize int) ([]Record, int64, error)
}
