package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Integration status
// ---------------------------------------------------------------------------

// Status is the lifecycle state of one configured integration
type Status string

const (
	// StatusConfigured: credentials stored, never authenticated yet
	StatusConfigured Status = "CONFIGURED"
	// StatusConnected: authenticated at least once, eligible for loading
	StatusConnected Status = "CONNECTED"
	// StatusIngesting: loaded with an active poll task
	StatusIngesting Status = "INGESTING"
	// StatusStopped: soft-disabled by an operator; never polled
	StatusStopped Status = "STOPPED"
	// StatusDegraded: authentication or polling failed; waiting for operator
	// attention, not retried automatically
	StatusDegraded Status = "DEGRADED"
)

// IsValid checks whether the status is part of the lifecycle
func (s Status) IsValid() bool {
	switch s {
	case StatusConfigured, StatusConnected, StatusIngesting, StatusStopped, StatusDegraded:
		return true
	}
	return false
}

// IsLoadable reports whether the manager should pick this integration up at
// startup
func (s Status) IsLoadable() bool {
	return s == StatusConnected || s == StatusIngesting
}

// ---------------------------------------------------------------------------
// Integration entity
// ---------------------------------------------------------------------------

// DefaultSyncIntervalMinutes is applied when a connect request omits the
// polling interval
const DefaultSyncIntervalMinutes = 5

// Integration is one configured connection between a cost center and an
// external platform. Soft-disabled rather than deleted while inbox history
// references it.
type Integration struct {
	ID       uuid.UUID
	Provider Provider
	Type     IntegrationType
	Name     string

	// Credentials is the opaque per-platform blob. Sealed by the credential
	// sealer before persistence; in memory it is plaintext.
	Credentials Credentials
	Sandbox     bool

	Status              Status
	SyncIntervalMinutes int
	LastSyncAt          *time.Time

	CostCenterID   uuid.UUID
	OrganizationID uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewIntegration creates a CONFIGURED integration, applying the default sync
// interval when none is given
func NewIntegration(provider Provider, typ IntegrationType, name string, creds Credentials, costCenterID, organizationID uuid.UUID) (*Integration, error) {
	if !provider.IsValid() {
		return nil, NewConfigError(provider, "provider", "is not a known platform")
	}
	if !typ.IsValid() {
		return nil, NewConfigError(provider, "type", "must be sales or logistics")
	}
	if len(creds) == 0 {
		return nil, NewConfigError(provider, "credentials", "must not be empty")
	}
	if costCenterID == uuid.Nil {
		return nil, NewConfigError(provider, "cost_center_id", "is required")
	}
	if name == "" {
		name = provider.DisplayName()
	}

	now := time.Now()
	return &Integration{
		ID:                  uuid.New(),
		Provider:            provider,
		Type:                typ,
		Name:                name,
		Credentials:         creds,
		Status:              StatusConfigured,
		SyncIntervalMinutes: DefaultSyncIntervalMinutes,
		CostCenterID:        costCenterID,
		OrganizationID:      organizationID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// SyncInterval returns the polling interval as a duration, never below one
// minute
func (i *Integration) SyncInterval() time.Duration {
	minutes := i.SyncIntervalMinutes
	if minutes < 1 {
		minutes = DefaultSyncIntervalMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// MarkConnected records a successful authentication
func (i *Integration) MarkConnected() {
	i.Status = StatusConnected
	i.UpdatedAt = time.Now()
}

// MarkIngesting records that a poll task is active
func (i *Integration) MarkIngesting() {
	i.Status = StatusIngesting
	i.UpdatedAt = time.Now()
}

// MarkDegraded records an authentication or polling failure that needs
// operator attention
func (i *Integration) MarkDegraded() {
	i.Status = StatusDegraded
	i.UpdatedAt = time.Now()
}

// MarkStopped soft-disables the integration
func (i *Integration) MarkStopped() {
	i.Status = StatusStopped
	i.UpdatedAt = time.Now()
}

// AdvanceSyncCursor moves the last-sync watermark forward. Called only after
// a successful sync; failures leave the cursor untouched so the window is
// retried on the next cycle.
func (i *Integration) AdvanceSyncCursor(to time.Time) {
	i.LastSyncAt = &to
	i.UpdatedAt = time.Now()
}

// SyncWindowStart computes where the next fetch window opens: the later of
// the last successful sync and the backfill horizon (now - 24h)
func (i *Integration) SyncWindowStart(now time.Time) time.Time {
	horizon := now.Add(-24 * time.Hour)
	if i.LastSyncAt != nil && i.LastSyncAt.After(horizon) {
		return *i.LastSyncAt
	}
	return horizon
}

// ---------------------------------------------------------------------------
// Repository ports
// ---------------------------------------------------------------------------

// Repository persists integrations
type Repository interface {
	Save(ctx context.Context, integ *Integration) error
	FindByID(ctx context.Context, id uuid.UUID) (*Integration, error)
	FindAll(ctx context.Context) ([]Integration, error)
	FindLoadable(ctx context.Context) ([]Integration, error)
	FindByCostCenter(ctx context.Context, costCenterID uuid.UUID) ([]Integration, error)
	// FindByProvider lists configured integrations for one platform, used to
	// route inbound webhooks that carry no integration id
	FindByProvider(ctx context.Context, provider Provider) ([]Integration, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdateLastSyncAt(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ---------------------------------------------------------------------------
// Sync log
// ---------------------------------------------------------------------------

// SyncTrigger records what started a sync run
type SyncTrigger string

const (
	SyncTriggerSystem SyncTrigger = "system"
	SyncTriggerManual SyncTrigger = "manual"
	SyncTriggerRetry  SyncTrigger = "retry"
)

// SyncOutcome is the terminal state of a sync run
type SyncOutcome string

const (
	SyncOutcomeSuccess SyncOutcome = "success"
	SyncOutcomeFailed  SyncOutcome = "failed"
	// SyncOutcomePartial: some items landed, some failed; failures stay in
	// the inbox for reprocessing
	SyncOutcomePartial SyncOutcome = "partial"
)

// SyncLog is the audit record of one sync run
type SyncLog struct {
	ID            uuid.UUID
	IntegrationID uuid.UUID
	Trigger       SyncTrigger
	Outcome       SyncOutcome
	ItemCount     int
	FailedCount   int
	WindowStart   time.Time
	WindowEnd     time.Time
	Error         string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// NewSyncLog opens a sync-log record for a run that starts now
func NewSyncLog(integrationID uuid.UUID, trigger SyncTrigger, windowStart, windowEnd time.Time) *SyncLog {
	return &SyncLog{
		ID:            uuid.New(),
		IntegrationID: integrationID,
		Trigger:       trigger,
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
		StartedAt:     time.Now(),
	}
}

// Finish closes the record with its outcome
func (l *SyncLog) Finish(outcome SyncOutcome, itemCount, failedCount int, err error) {
	l.Outcome = outcome
	l.ItemCount = itemCount
	l.FailedCount = failedCount
	if err != nil {
		l.Error = err.Error()
	}
	l.FinishedAt = time.Now()
}

// SyncLogRepository persists sync-run audit records
type SyncLogRepository interface {
	Save(ctx context.Context, log *SyncLog) error
	ListByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]SyncLog, error)
}
