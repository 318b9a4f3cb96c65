// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInboxBacklogProvider implements InboxBacklogProvider using GORM.
// It queries the inbox_items table directly for aggregated backlog counts.
type GormInboxBacklogProvider struct {
	db *gorm.DB
}

// NewGormInboxBacklogProvider creates a new GormInboxBacklogProvider.
func NewGormInboxBacklogProvider(db *gorm.DB) *GormInboxBacklogProvider {
	return &GormInboxBacklogProvider{db: db}
}

// GetPendingBacklog returns the count of pending inbox items per integration.
// Integrations with no pending items produce no row; the gauge keeps its
// last recorded value until the next scrape observes a new one.
func (p *GormInboxBacklogProvider) GetPendingBacklog(ctx context.Context) ([]InboxBacklog, error) {
	type result struct {
		IntegrationID uuid.UUID `gorm:"column:integration_id"`
		Provider      string    `gorm:"column:provider"`
		Pending       int64     `gorm:"column:pending"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("inbox_items").
		Select("inbox_items.integration_id, integrations.provider, COUNT(*) as pending").
		Joins("JOIN integrations ON integrations.id = inbox_items.integration_id").
		Where("inbox_items.status = ?", "PENDING").
		Group("inbox_items.integration_id, integrations.provider").
		Find(&results).Error

	if err != nil {
		return nil, err
	}

	rows := make([]InboxBacklog, 0, len(results))
	for _, r := range results {
		rows = append(rows, InboxBacklog{
			IntegrationID: r.IntegrationID,
			Provider:      r.Provider,
			Pending:       r.Pending,
		})
	}

	return rows, nil
}
