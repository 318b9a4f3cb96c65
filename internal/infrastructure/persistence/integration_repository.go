package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/persistence/models"
)

// CredentialSealer seals the credentials blob before it reaches storage and
// unseals it on load.
type CredentialSealer interface {
	Seal(plaintext []byte) (string, error)
	Unseal(sealed string) ([]byte, error)
}

// GormIntegrationRepository implements integration.Repository using GORM.
// Credentials pass through the sealer at this boundary in both directions.
type GormIntegrationRepository struct {
	db     *gorm.DB
	sealer CredentialSealer
}

// NewGormIntegrationRepository creates a new GORM-based integration repository
func NewGormIntegrationRepository(db *gorm.DB, sealer CredentialSealer) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db, sealer: sealer}
}

// Save persists an integration, sealing its credentials first
func (r *GormIntegrationRepository) Save(ctx context.Context, integ *integration.Integration) error {
	model := models.IntegrationModelFromDomain(integ)

	sealed, err := r.sealCredentials(integ.Credentials)
	if err != nil {
		return fmt.Errorf("failed to seal credentials: %w", err)
	}
	model.Credentials = sealed

	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds an integration by its ID
func (r *GormIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrIntegrationNotFound
		}
		return nil, err
	}
	return r.toDomain(&model)
}

// FindAll returns every configured integration
func (r *GormIntegrationRepository) FindAll(ctx context.Context) ([]integration.Integration, error) {
	var integrationModels []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&integrationModels).Error; err != nil {
		return nil, err
	}
	return r.toDomainSlice(integrationModels)
}

// FindLoadable returns the integrations the manager picks up at startup
func (r *GormIntegrationRepository) FindLoadable(ctx context.Context) ([]integration.Integration, error) {
	var integrationModels []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []integration.Status{integration.StatusConnected, integration.StatusIngesting}).
		Order("created_at ASC").
		Find(&integrationModels).Error; err != nil {
		return nil, err
	}
	return r.toDomainSlice(integrationModels)
}

// FindByCostCenter returns the integrations of one cost center
func (r *GormIntegrationRepository) FindByCostCenter(ctx context.Context, costCenterID uuid.UUID) ([]integration.Integration, error) {
	var integrationModels []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("cost_center_id = ?", costCenterID).
		Order("created_at ASC").
		Find(&integrationModels).Error; err != nil {
		return nil, err
	}
	return r.toDomainSlice(integrationModels)
}

// FindByProvider returns the integrations configured for one platform
func (r *GormIntegrationRepository) FindByProvider(ctx context.Context, provider integration.Provider) ([]integration.Integration, error) {
	var integrationModels []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("provider = ?", provider).
		Order("created_at ASC").
		Find(&integrationModels).Error; err != nil {
		return nil, err
	}
	return r.toDomainSlice(integrationModels)
}

// UpdateStatus moves an integration through its lifecycle without touching
// credentials
func (r *GormIntegrationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status integration.Status) error {
	result := r.db.WithContext(ctx).
		Model(&models.IntegrationModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrIntegrationNotFound
	}
	return nil
}

// UpdateLastSyncAt advances the sync watermark
func (r *GormIntegrationRepository) UpdateLastSyncAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.IntegrationModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_sync_at": at,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrIntegrationNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Credential sealing
// ---------------------------------------------------------------------------

func (r *GormIntegrationRepository) toDomain(model *models.IntegrationModel) (*integration.Integration, error) {
	integ := model.ToDomain()
	creds, err := r.unsealCredentials(model.Credentials)
	if err != nil {
		return nil, fmt.Errorf("integration %s: failed to unseal credentials: %w", model.ID, err)
	}
	integ.Credentials = creds
	return integ, nil
}

func (r *GormIntegrationRepository) toDomainSlice(integrationModels []models.IntegrationModel) ([]integration.Integration, error) {
	integrations := make([]integration.Integration, len(integrationModels))
	for i := range integrationModels {
		integ, err := r.toDomain(&integrationModels[i])
		if err != nil {
			return nil, err
		}
		integrations[i] = *integ
	}
	return integrations, nil
}

func (r *GormIntegrationRepository) sealCredentials(creds integration.Credentials) (string, error) {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return "", err
	}
	return r.sealer.Seal(plaintext)
}

func (r *GormIntegrationRepository) unsealCredentials(sealed string) (integration.Credentials, error) {
	if sealed == "" {
		return nil, nil
	}
	plaintext, err := r.sealer.Unseal(sealed)
	if err != nil {
		return nil, err
	}
	var creds integration.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, err
	}
	return creds, nil
}
