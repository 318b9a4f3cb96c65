package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

// IntegrationModel is the persistence model for the Integration domain
// entity. Credentials hold the sealed blob produced by the credential
// sealer; the repository seals on save and unseals on load so plaintext
// never reaches storage.
type IntegrationModel struct {
	ID                  uuid.UUID                   `gorm:"type:uuid;primary_key"`
	Provider            integration.Provider        `gorm:"type:varchar(20);not null;index:idx_integrations_provider"`
	Type                integration.IntegrationType `gorm:"type:varchar(20);not null"`
	Name                string                      `gorm:"type:varchar(255);not null"`
	Credentials         string                      `gorm:"type:text;not null"`
	Sandbox             bool                        `gorm:"not null;default:false"`
	Status              integration.Status          `gorm:"type:varchar(20);not null;index:idx_integrations_status"`
	SyncIntervalMinutes int                         `gorm:"not null;default:5"`
	LastSyncAt          *time.Time                  `gorm:"index"`
	CostCenterID        uuid.UUID                   `gorm:"type:uuid;not null;index:idx_integrations_cost_center"`
	OrganizationID      uuid.UUID                   `gorm:"type:uuid"`
	CreatedAt           time.Time                   `gorm:"not null"`
	UpdatedAt           time.Time                   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IntegrationModel) TableName() string {
	return "integrations"
}

// ToDomain converts the persistence model to a domain Integration entity.
// Credentials are left empty; the repository attaches them after unsealing.
func (m *IntegrationModel) ToDomain() *integration.Integration {
	return &integration.Integration{
		ID:                  m.ID,
		Provider:            m.Provider,
		Type:                m.Type,
		Name:                m.Name,
		Sandbox:             m.Sandbox,
		Status:              m.Status,
		SyncIntervalMinutes: m.SyncIntervalMinutes,
		LastSyncAt:          m.LastSyncAt,
		CostCenterID:        m.CostCenterID,
		OrganizationID:      m.OrganizationID,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Integration
// entity. The sealed credentials column is set by the repository.
func (m *IntegrationModel) FromDomain(integ *integration.Integration) {
	m.ID = integ.ID
	m.Provider = integ.Provider
	m.Type = integ.Type
	m.Name = integ.Name
	m.Sandbox = integ.Sandbox
	m.Status = integ.Status
	m.SyncIntervalMinutes = integ.SyncIntervalMinutes
	m.LastSyncAt = integ.LastSyncAt
	m.CostCenterID = integ.CostCenterID
	m.OrganizationID = integ.OrganizationID
	m.CreatedAt = integ.CreatedAt
	m.UpdatedAt = integ.UpdatedAt
}

// IntegrationModelFromDomain creates a new persistence model from a domain
// Integration entity.
func IntegrationModelFromDomain(integ *integration.Integration) *IntegrationModel {
	m := &IntegrationModel{}
	m.FromDomain(integ)
	return m
}

// SyncLogModel is the persistence model for sync-run audit records.
type SyncLogModel struct {
	ID            uuid.UUID               `gorm:"type:uuid;primary_key"`
	IntegrationID uuid.UUID               `gorm:"type:uuid;not null;index:idx_sync_logs_integration,priority:1"`
	Trigger       integration.SyncTrigger `gorm:"type:varchar(10);not null"`
	Outcome       integration.SyncOutcome `gorm:"type:varchar(10);not null"`
	ItemCount     int                     `gorm:"not null;default:0"`
	FailedCount   int                     `gorm:"not null;default:0"`
	WindowStart   time.Time               `gorm:"not null"`
	WindowEnd     time.Time               `gorm:"not null"`
	Error         string                  `gorm:"type:text"`
	StartedAt     time.Time               `gorm:"not null;index:idx_sync_logs_integration,priority:2"`
	FinishedAt    time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "integration_sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLog.
func (m *SyncLogModel) ToDomain() *integration.SyncLog {
	return &integration.SyncLog{
		ID:            m.ID,
		IntegrationID: m.IntegrationID,
		Trigger:       m.Trigger,
		Outcome:       m.Outcome,
		ItemCount:     m.ItemCount,
		FailedCount:   m.FailedCount,
		WindowStart:   m.WindowStart,
		WindowEnd:     m.WindowEnd,
		Error:         m.Error,
		StartedAt:     m.StartedAt,
		FinishedAt:    m.FinishedAt,
	}
}

// SyncLogModelFromDomain creates a new persistence model from a domain
// SyncLog.
func SyncLogModelFromDomain(log *integration.SyncLog) *SyncLogModel {
	return &SyncLogModel{
		ID:            log.ID,
		IntegrationID: log.IntegrationID,
		Trigger:       log.Trigger,
		Outcome:       log.Outcome,
		ItemCount:     log.ItemCount,
		FailedCount:   log.FailedCount,
		WindowStart:   log.WindowStart,
		WindowEnd:     log.WindowEnd,
		Error:         log.Error,
		StartedAt:     log.StartedAt,
		FinishedAt:    log.FinishedAt,
	}
}
