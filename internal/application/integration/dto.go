package integration

import (
	"time"

	"github.com/google/uuid"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

// Inbox item source channels
const (
	sourcePoll    = "poll"
	sourceWebhook = "webhook"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// ConnectIntegrationRequest carries everything needed to connect one platform
type ConnectIntegrationRequest struct {
	Provider            integration.Provider        `json:"provider"`
	Type                integration.IntegrationType `json:"type"`
	Name                string                      `json:"name,omitempty"`
	Credentials         map[string]string           `json:"credentials"`
	Sandbox             bool                        `json:"sandbox,omitempty"`
	SyncIntervalMinutes int                         `json:"sync_interval_minutes,omitempty"`
	CostCenterID        uuid.UUID                   `json:"cost_center_id"`
	OrganizationID      uuid.UUID                   `json:"organization_id,omitempty"`
}

// UpdateIntegrationRequest patches mutable integration settings. Nil fields
// are left untouched; a non-empty credentials map replaces the stored blob.
type UpdateIntegrationRequest struct {
	Name                *string           `json:"name,omitempty"`
	SyncIntervalMinutes *int              `json:"sync_interval_minutes,omitempty"`
	Sandbox             *bool             `json:"sandbox,omitempty"`
	Credentials         map[string]string `json:"credentials,omitempty"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// IntegrationResponse is the API view of an integration. Credentials never
// leave the service; only the key names are exposed for diagnostics.
type IntegrationResponse struct {
	ID                  uuid.UUID                   `json:"id"`
	Provider            integration.Provider        `json:"provider"`
	ProviderDisplayName string                      `json:"provider_display_name"`
	Type                integration.IntegrationType `json:"type"`
	Name                string                      `json:"name"`
	Status              integration.Status          `json:"status"`
	Sandbox             bool                        `json:"sandbox"`
	SyncIntervalMinutes int                         `json:"sync_interval_minutes"`
	LastSyncAt          *time.Time                  `json:"last_sync_at,omitempty"`
	CredentialKeys      []string                    `json:"credential_keys"`
	CostCenterID        uuid.UUID                   `json:"cost_center_id"`
	OrganizationID      uuid.UUID                   `json:"organization_id,omitempty"`
	CreatedAt           time.Time                   `json:"created_at"`
	UpdatedAt           time.Time                   `json:"updated_at"`
}

// IntegrationResponseFrom builds the API view of one integration
func IntegrationResponseFrom(integ *integration.Integration) IntegrationResponse {
	keys := make([]string, 0, len(integ.Credentials))
	for key := range integ.Credentials {
		keys = append(keys, key)
	}

	return IntegrationResponse{
		ID:                  integ.ID,
		Provider:            integ.Provider,
		ProviderDisplayName: integ.Provider.DisplayName(),
		Type:                integ.Type,
		Name:                integ.Name,
		Status:              integ.Status,
		Sandbox:             integ.Sandbox,
		SyncIntervalMinutes: integ.SyncIntervalMinutes,
		LastSyncAt:          integ.LastSyncAt,
		CredentialKeys:      keys,
		CostCenterID:        integ.CostCenterID,
		OrganizationID:      integ.OrganizationID,
		CreatedAt:           integ.CreatedAt,
		UpdatedAt:           integ.UpdatedAt,
	}
}

// SyncReport summarizes one sync run for the caller that triggered it
type SyncReport struct {
	IntegrationID uuid.UUID               `json:"integration_id"`
	Trigger       integration.SyncTrigger `json:"trigger"`
	Outcome       integration.SyncOutcome `json:"outcome"`
	ItemCount     int                     `json:"item_count"`
	FailedCount   int                     `json:"failed_count"`
	WindowStart   time.Time               `json:"window_start"`
	WindowEnd     time.Time               `json:"window_end"`
	StartedAt     time.Time               `json:"started_at"`
	FinishedAt    time.Time               `json:"finished_at"`
}

func reportFromSyncLog(syncLog *integration.SyncLog) *SyncReport {
	return &SyncReport{
		IntegrationID: syncLog.IntegrationID,
		Trigger:       syncLog.Trigger,
		Outcome:       syncLog.Outcome,
		ItemCount:     syncLog.ItemCount,
		FailedCount:   syncLog.FailedCount,
		WindowStart:   syncLog.WindowStart,
		WindowEnd:     syncLog.WindowEnd,
		StartedAt:     syncLog.StartedAt,
		FinishedAt:    syncLog.FinishedAt,
	}
}

// SyncLogResponse is the API view of one sync-run audit record
type SyncLogResponse struct {
	ID            uuid.UUID               `json:"id"`
	IntegrationID uuid.UUID               `json:"integration_id"`
	Trigger       integration.SyncTrigger `json:"trigger"`
	Outcome       integration.SyncOutcome `json:"outcome"`
	ItemCount     int                     `json:"item_count"`
	FailedCount   int                     `json:"failed_count"`
	WindowStart   time.Time               `json:"window_start"`
	WindowEnd     time.Time               `json:"window_end"`
	Error         string                  `json:"error,omitempty"`
	StartedAt     time.Time               `json:"started_at"`
	FinishedAt    time.Time               `json:"finished_at"`
}

// SyncLogResponseFrom builds the API view of one sync log row
func SyncLogResponseFrom(syncLog *integration.SyncLog) SyncLogResponse {
	return SyncLogResponse{
		ID:            syncLog.ID,
		IntegrationID: syncLog.IntegrationID,
		Trigger:       syncLog.Trigger,
		Outcome:       syncLog.Outcome,
		ItemCount:     syncLog.ItemCount,
		FailedCount:   syncLog.FailedCount,
		WindowStart:   syncLog.WindowStart,
		WindowEnd:     syncLog.WindowEnd,
		Error:         syncLog.Error,
		StartedAt:     syncLog.StartedAt,
		FinishedAt:    syncLog.FinishedAt,
	}
}
