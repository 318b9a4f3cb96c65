package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
)

// Service is the administrative surface over integrations: connect,
// disconnect, settings, manual sync and connection tests. Runtime concerns
// (adapters, poll tasks) stay inside the Manager; the Service owns the
// persisted lifecycle around it.
type Service struct {
	manager  *Manager
	integs   integration.Repository
	syncLogs integration.SyncLogRepository
	logger   *zap.Logger
}

// NewService creates a new integration admin service
func NewService(manager *Manager, integs integration.Repository, syncLogs integration.SyncLogRepository, logger *zap.Logger) *Service {
	return &Service{
		manager:  manager,
		integs:   integs,
		syncLogs: syncLogs,
		logger:   logger,
	}
}

// Connect stores a new integration and tries to bring it online. An
// authentication failure does not fail the request: the integration is
// persisted DEGRADED and the response carries that status for the operator.
func (s *Service) Connect(ctx context.Context, req ConnectIntegrationRequest) (*integration.Integration, error) {
	integ, err := integration.NewIntegration(req.Provider, req.Type, req.Name, integration.Credentials(req.Credentials), req.CostCenterID, req.OrganizationID)
	if err != nil {
		return nil, err
	}
	integ.Sandbox = req.Sandbox
	if req.SyncIntervalMinutes > 0 {
		integ.SyncIntervalMinutes = req.SyncIntervalMinutes
	}

	if err := s.integs.Save(ctx, integ); err != nil {
		return nil, err
	}

	s.manager.activate(ctx, integ)

	s.logger.Info("integration connected",
		zap.String("integration_id", integ.ID.String()),
		zap.String("provider", integ.Provider.String()),
		zap.String("status", string(integ.Status)),
	)
	return integ, nil
}

// Disconnect soft-disables an integration: its poll task stops and the
// record is kept STOPPED while inbox history still references it.
func (s *Service) Disconnect(ctx context.Context, id uuid.UUID) error {
	integ, err := s.integs.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.manager.RemoveIntegration(ctx, id); err != nil {
		return err
	}

	integ.MarkStopped()
	if err := s.integs.UpdateStatus(ctx, id, integ.Status); err != nil {
		return err
	}

	s.logger.Info("integration disconnected", zap.String("integration_id", id.String()))
	return nil
}

// Update patches mutable settings. A loaded integration is reloaded so the
// poll task picks up the new interval and credentials immediately.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateIntegrationRequest) (*integration.Integration, error) {
	integ, err := s.integs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != "" {
		integ.Name = *req.Name
	}
	if req.SyncIntervalMinutes != nil {
		if *req.SyncIntervalMinutes < 1 {
			return nil, integration.NewConfigError(integ.Provider, "sync_interval_minutes", "must be at least 1")
		}
		integ.SyncIntervalMinutes = *req.SyncIntervalMinutes
	}
	if req.Sandbox != nil {
		integ.Sandbox = *req.Sandbox
	}
	if len(req.Credentials) > 0 {
		integ.Credentials = integration.Credentials(req.Credentials)
	}
	integ.UpdatedAt = time.Now()

	if err := s.integs.Save(ctx, integ); err != nil {
		return nil, err
	}

	if _, loaded := s.manager.LoadedAdapter(id); loaded {
		if err := s.manager.RemoveIntegration(ctx, id); err != nil {
			return nil, err
		}
		s.manager.activate(ctx, integ)
	}

	return integ, nil
}

// Get loads one integration by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	return s.integs.FindByID(ctx, id)
}

// List returns integrations, optionally narrowed to one cost center
func (s *Service) List(ctx context.Context, costCenterID *uuid.UUID) ([]integration.Integration, error) {
	if costCenterID != nil && *costCenterID != uuid.Nil {
		return s.integs.FindByCostCenter(ctx, *costCenterID)
	}
	return s.integs.FindAll(ctx)
}

// ManualSync triggers one out-of-schedule sync run
func (s *Service) ManualSync(ctx context.Context, id uuid.UUID) (*SyncReport, error) {
	if _, err := s.integs.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.manager.ManualSync(ctx, id)
}

// TestConnection probes platform reachability for one integration
func (s *Service) TestConnection(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := s.integs.FindByID(ctx, id); err != nil {
		return false, err
	}
	return s.manager.TestConnection(ctx, id)
}

// SyncLogs returns the most recent sync-run audit records
func (s *Service) SyncLogs(ctx context.Context, id uuid.UUID, limit int) ([]integration.SyncLog, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.syncLogs.ListByIntegration(ctx, id, limit)
}
