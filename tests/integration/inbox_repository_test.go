package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/domain/inbox"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/persistence"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/tests/testutil"
)

// TestInboxRepository_Integration tests the InboxRepository against a real PostgreSQL database
func TestInboxRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormInboxRepository(testDB.DB)
	ctx := context.Background()

	integrationID := testutil.TestIntegrationID()
	testDB.CreateTestIntegration(integrationID, uuid.New(), "foody", "CONNECTED")

	t.Run("Save and FindByID", func(t *testing.T) {
		item, err := inbox.NewItem(integrationID, "webhook", json.RawMessage(`{"order":"A-1"}`), "order.created", "A-1", "corr-1")
		require.NoError(t, err)

		require.NoError(t, repo.Save(ctx, item))

		found, err := repo.FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, integrationID, found.IntegrationID)
		assert.Equal(t, inbox.StatusPending, found.Status)
		assert.Equal(t, "order.created", found.Event)
		assert.Equal(t, "A-1", found.ExternalID)
		assert.Equal(t, "corr-1", found.CorrelationID)
		assert.JSONEq(t, `{"order":"A-1"}`, string(found.Payload))
	})

	t.Run("FindByID returns domain error when missing", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, inbox.ErrItemNotFound)
	})

	t.Run("state transitions survive a save round-trip", func(t *testing.T) {
		item, err := inbox.NewItem(integrationID, "polling", json.RawMessage(`{"order":"B-2"}`), "order.updated", "B-2", "")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, item))

		require.NoError(t, item.MarkFailed("normalization failed: missing placed_at"))
		require.NoError(t, repo.Save(ctx, item))

		found, err := repo.FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, inbox.StatusFailed, found.Status)
		assert.Equal(t, 1, found.RetryCount)
		assert.Contains(t, found.ErrorMessage, "missing placed_at")
		require.NotNil(t, found.ProcessedAt)

		require.NoError(t, found.Reopen())
		require.NoError(t, repo.Save(ctx, found))

		reopened, err := repo.FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, inbox.StatusPending, reopened.Status)
		assert.Equal(t, 1, reopened.RetryCount)
		assert.Empty(t, reopened.ErrorMessage)
		assert.Nil(t, reopened.ProcessedAt)
	})

	t.Run("ListPending returns FIFO by receipt time and honors limit", func(t *testing.T) {
		testDB.CleanTables()
		testDB.CreateTestIntegration(integrationID, uuid.New(), "foody", "CONNECTED")

		base := time.Now().Add(-time.Hour)
		for i := 0; i < 3; i++ {
			item, err := inbox.NewItem(integrationID, "polling", json.RawMessage(`{}`), "order.created", fmt.Sprintf("FIFO-%d", i), "")
			require.NoError(t, err)
			item.ReceivedAt = base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, repo.Save(ctx, item))
		}

		// A processed item must not show up in the pending drain
		done, err := inbox.NewItem(integrationID, "polling", json.RawMessage(`{}`), "order.created", "DONE", "")
		require.NoError(t, err)
		require.NoError(t, done.MarkProcessed(nil))
		require.NoError(t, repo.Save(ctx, done))

		pending, err := repo.ListPending(ctx, integrationID, 2)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "FIFO-0", pending[0].ExternalID)
		assert.Equal(t, "FIFO-1", pending[1].ExternalID)

		all, err := repo.ListPending(ctx, integrationID, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("List filters by status and date window with pagination", func(t *testing.T) {
		testDB.CleanTables()
		testDB.CreateTestIntegration(integrationID, uuid.New(), "rappi", "CONNECTED")

		base := time.Now().Add(-2 * time.Hour)
		for i := 0; i < 5; i++ {
			item, err := inbox.NewItem(integrationID, "webhook", json.RawMessage(`{}`), "order.created", fmt.Sprintf("LIST-%d", i), "")
			require.NoError(t, err)
			item.ReceivedAt = base.Add(time.Duration(i) * 10 * time.Minute)
			if i%2 == 1 {
				require.NoError(t, item.MarkFailed("boom"))
			}
			require.NoError(t, repo.Save(ctx, item))
		}

		failed := inbox.StatusFailed
		items, total, err := repo.List(ctx, inbox.Filter{
			IntegrationID: &integrationID,
			Status:        &failed,
			Page:          1,
			PageSize:      10,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, items, 2)

		// Date window narrows to the middle items, newest first
		from := base.Add(5 * time.Minute)
		to := base.Add(25 * time.Minute)
		items, total, err = repo.List(ctx, inbox.Filter{
			IntegrationID: &integrationID,
			StartDate:     &from,
			EndDate:       &to,
			Page:          1,
			PageSize:      10,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		require.Len(t, items, 2)
		assert.Equal(t, "LIST-2", items[0].ExternalID)
		assert.Equal(t, "LIST-1", items[1].ExternalID)

		// Pagination slices the unfiltered set
		items, total, err = repo.List(ctx, inbox.Filter{
			IntegrationID: &integrationID,
			Page:          2,
			PageSize:      3,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 5, total)
		assert.Len(t, items, 2)
	})
}
