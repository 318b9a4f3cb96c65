package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/integration"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/crypto"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/persistence/models"
)

func setupIntegrationTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.IntegrationModel{})
	require.NoError(t, err)

	return db
}

func newTestIntegrationRepo(t *testing.T) (*GormIntegrationRepository, *gorm.DB) {
	db := setupIntegrationTestDB(t)
	sealer, err := crypto.NewSealer("integration-repo-test-secret")
	require.NoError(t, err)
	return NewGormIntegrationRepository(db, sealer), db
}

func newTestIntegration(t *testing.T, provider integration.Provider) *integration.Integration {
	integ, err := integration.NewIntegration(
		provider,
		integration.IntegrationTypeSales,
		"",
		integration.Credentials{"api_token": "tok-abc-123"},
		uuid.New(),
		uuid.New(),
	)
	require.NoError(t, err)
	return integ
}

func TestGormIntegrationRepository_Save(t *testing.T) {
	repo, db := newTestIntegrationRepo(t)
	ctx := context.Background()

	t.Run("saves and round-trips credentials", func(t *testing.T) {
		integ := newTestIntegration(t, integration.ProviderFoody)

		err := repo.Save(ctx, integ)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, integ.ID)
		require.NoError(t, err)
		assert.Equal(t, integ.ID, found.ID)
		assert.Equal(t, integration.ProviderFoody, found.Provider)
		assert.Equal(t, integration.StatusConfigured, found.Status)
		assert.Equal(t, "tok-abc-123", found.Credentials.Get("api_token"))
	})

	t.Run("stores credentials sealed", func(t *testing.T) {
		integ := newTestIntegration(t, integration.ProviderIfood)
		integ.Credentials = integration.Credentials{"client_secret": "super-secret-value"}

		err := repo.Save(ctx, integ)
		require.NoError(t, err)

		var model models.IntegrationModel
		err = db.First(&model, "id = ?", integ.ID).Error
		require.NoError(t, err)
		assert.NotEmpty(t, model.Credentials)
		assert.NotContains(t, model.Credentials, "super-secret-value")
		assert.NotContains(t, model.Credentials, "client_secret")
	})

	t.Run("updates an existing integration", func(t *testing.T) {
		integ := newTestIntegration(t, integration.ProviderRappi)
		require.NoError(t, repo.Save(ctx, integ))

		integ.MarkConnected()
		integ.SyncIntervalMinutes = 10
		require.NoError(t, repo.Save(ctx, integ))

		found, err := repo.FindByID(ctx, integ.ID)
		require.NoError(t, err)
		assert.Equal(t, integration.StatusConnected, found.Status)
		assert.Equal(t, 10, found.SyncIntervalMinutes)

		var count int64
		require.NoError(t, db.Model(&models.IntegrationModel{}).Where("id = ?", integ.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestGormIntegrationRepository_FindByID_NotFound(t *testing.T) {
	repo, _ := newTestIntegrationRepo(t)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, integration.ErrIntegrationNotFound)
}

func TestGormIntegrationRepository_FindLoadable(t *testing.T) {
	repo, _ := newTestIntegrationRepo(t)
	ctx := context.Background()

	statuses := []integration.Status{
		integration.StatusConfigured,
		integration.StatusConnected,
		integration.StatusIngesting,
		integration.StatusStopped,
		integration.StatusDegraded,
	}
	for _, status := range statuses {
		integ := newTestIntegration(t, integration.ProviderFoody)
		integ.Status = status
		require.NoError(t, repo.Save(ctx, integ))
	}

	loadable, err := repo.FindLoadable(ctx)
	require.NoError(t, err)
	require.Len(t, loadable, 2)
	for _, integ := range loadable {
		assert.True(t, integ.Status.IsLoadable())
	}
}

func TestGormIntegrationRepository_FindByCostCenter(t *testing.T) {
	repo, _ := newTestIntegrationRepo(t)
	ctx := context.Background()

	costCenterID := uuid.New()
	for i := 0; i < 2; i++ {
		integ := newTestIntegration(t, integration.ProviderFoody)
		integ.CostCenterID = costCenterID
		require.NoError(t, repo.Save(ctx, integ))
	}
	other := newTestIntegration(t, integration.ProviderIfood)
	require.NoError(t, repo.Save(ctx, other))

	found, err := repo.FindByCostCenter(ctx, costCenterID)
	require.NoError(t, err)
	assert.Len(t, found, 2)
	for _, integ := range found {
		assert.Equal(t, costCenterID, integ.CostCenterID)
	}
}

func TestGormIntegrationRepository_FindByProvider(t *testing.T) {
	repo, _ := newTestIntegrationRepo(t)
	ctx := context.Background()

	foody := newTestIntegration(t, integration.ProviderFoody)
	require.NoError(t, repo.Save(ctx, foody))
	require.NoError(t, repo.Save(ctx, newTestIntegration(t, integration.ProviderIfood)))

	found, err := repo.FindByProvider(ctx, integration.ProviderFoody)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, foody.ID, found[0].ID)

	none, err := repo.FindByProvider(ctx, integration.ProviderLalamove)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormIntegrationRepository_FindAll(t *testing.T) {
	repo, _ := newTestIntegrationRepo(t)
	ctx := context.Background()

	for _, provider := range []integration.Provider{integration.ProviderFoody, integration.ProviderIfood, integration.ProviderRappi} {
		require.NoError(t, repo.Save(ctx, newTestIntegration(t, provider)))
	}

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGormIntegrationRepository_UpdateStatus(t *testing.T) {
	repo, _ := newTestIntegrationRepo(t)
	ctx := context.Background()

	t.Run("updates the status", func(t *testing.T) {
		integ := newTestIntegration(t, integration.ProviderFoody)
		require.NoError(t, repo.Save(ctx, integ))

		err := repo.UpdateStatus(ctx, integ.ID, integration.StatusDegraded)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, integ.ID)
		require.NoError(t, err)
		assert.Equal(t, integration.StatusDegraded, found.Status)
	})

	t.Run("returns not found for unknown id", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, uuid.New(), integration.StatusStopped)
		assert.ErrorIs(t, err, integration.ErrIntegrationNotFound)
	})
}

func TestGormIntegrationRepository_UpdateLastSyncAt(t *testing.T) {
	repo, _ := newTestIntegrationRepo(t)
	ctx := context.Background()

	integ := newTestIntegration(t, integration.ProviderFoody)
	require.NoError(t, repo.Save(ctx, integ))

	watermark := time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC)
	err := repo.UpdateLastSyncAt(ctx, integ.ID, watermark)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, integ.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastSyncAt)
	assert.WithinDuration(t, watermark, *found.LastSyncAt, time.Second)

	err = repo.UpdateLastSyncAt(ctx, uuid.New(), watermark)
	assert.ErrorIs(t, err, integration.ErrIntegrationNotFound)
}
