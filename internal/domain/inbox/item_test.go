package inbox

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingItem(t *testing.T) *Item {
	t.Helper()
	item, err := NewItem(uuid.New(), "foody", []byte(`{"id":"X1"}`), "order.updated", "X1", "")
	require.NoError(t, err)
	return item
}

func TestNewItem(t *testing.T) {
	t.Run("stages payload as pending", func(t *testing.T) {
		item := newPendingItem(t)

		assert.Equal(t, StatusPending, item.Status)
		assert.Equal(t, "foody", item.Source)
		assert.Equal(t, "X1", item.ExternalID)
		assert.Zero(t, item.RetryCount)
		assert.Nil(t, item.ProcessedAt)
		assert.False(t, item.ReceivedAt.IsZero())
	})

	t.Run("generates correlation id when absent", func(t *testing.T) {
		item := newPendingItem(t)
		assert.NotEmpty(t, item.CorrelationID)

		_, err := uuid.Parse(item.CorrelationID)
		assert.NoError(t, err)
	})

	t.Run("keeps supplied correlation id", func(t *testing.T) {
		item, err := NewItem(uuid.New(), "foody", []byte(`{}`), "", "", "corr-42")
		require.NoError(t, err)
		assert.Equal(t, "corr-42", item.CorrelationID)
	})

	t.Run("rejects missing integration id", func(t *testing.T) {
		_, err := NewItem(uuid.Nil, "foody", []byte(`{}`), "", "", "")
		assert.ErrorIs(t, err, ErrMissingIntegrationID)
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		_, err := NewItem(uuid.New(), "foody", nil, "", "", "")
		assert.ErrorIs(t, err, ErrMissingPayload)
	})
}

func TestItem_MarkProcessed(t *testing.T) {
	t.Run("finishes pending item", func(t *testing.T) {
		item := newPendingItem(t)

		err := item.MarkProcessed([]byte(`{"status":"delivered"}`))
		require.NoError(t, err)

		assert.Equal(t, StatusProcessed, item.Status)
		assert.NotNil(t, item.ProcessedAt)
		assert.NotEmpty(t, item.ParsedPayload)
		assert.Zero(t, item.RetryCount, "processing must not touch the retry count")
	})

	t.Run("rejects terminal item", func(t *testing.T) {
		item := newPendingItem(t)
		require.NoError(t, item.MarkProcessed(nil))

		err := item.MarkProcessed(nil)
		assert.ErrorIs(t, err, ErrNotPending)
	})
}

func TestItem_MarkFailed(t *testing.T) {
	t.Run("increments retry count", func(t *testing.T) {
		item := newPendingItem(t)

		require.NoError(t, item.MarkFailed("platform returned 502"))
		assert.Equal(t, StatusFailed, item.Status)
		assert.Equal(t, 1, item.RetryCount)
		assert.Equal(t, "platform returned 502", item.ErrorMessage)

		require.NoError(t, item.Reopen())
		require.NoError(t, item.MarkFailed("platform returned 502 again"))
		assert.Equal(t, 2, item.RetryCount)
	})

	t.Run("truncates oversized messages", func(t *testing.T) {
		item := newPendingItem(t)
		long := strings.Repeat("x", MaxErrorMessageLength*3)

		require.NoError(t, item.MarkFailed(long))
		assert.Len(t, item.ErrorMessage, MaxErrorMessageLength)
	})

	t.Run("truncation never splits a multi-byte rune", func(t *testing.T) {
		item := newPendingItem(t)
		// "ã" is two bytes, so the cut lands mid-rune unless the
		// truncation backs up to a rune boundary.
		long := strings.Repeat("x", MaxErrorMessageLength-1) + strings.Repeat("ã", 10)

		require.NoError(t, item.MarkFailed(long))
		assert.True(t, utf8.ValidString(item.ErrorMessage))
		assert.LessOrEqual(t, len(item.ErrorMessage), MaxErrorMessageLength)
		assert.Equal(t, MaxErrorMessageLength-1, len(item.ErrorMessage))
	})

	t.Run("rejects empty message", func(t *testing.T) {
		item := newPendingItem(t)
		err := item.MarkFailed("")
		assert.ErrorIs(t, err, ErrEmptyFailureMessage)
	})

	t.Run("rejects non-pending item", func(t *testing.T) {
		item := newPendingItem(t)
		require.NoError(t, item.MarkIgnored("heartbeat"))

		err := item.MarkFailed("late failure")
		assert.ErrorIs(t, err, ErrNotPending)
	})
}

func TestItem_MarkIgnored(t *testing.T) {
	item := newPendingItem(t)

	require.NoError(t, item.MarkIgnored("heartbeat event"))
	assert.Equal(t, StatusIgnored, item.Status)
	assert.Equal(t, "heartbeat event", item.ErrorMessage)
	assert.NotNil(t, item.ProcessedAt)
	assert.Zero(t, item.RetryCount)
}

func TestItem_CanReprocess(t *testing.T) {
	t.Run("pending item is refused", func(t *testing.T) {
		item := newPendingItem(t)
		assert.False(t, item.CanReprocess())
	})

	t.Run("every terminal state is eligible", func(t *testing.T) {
		failed := newPendingItem(t)
		require.NoError(t, failed.MarkFailed("boom"))
		assert.True(t, failed.CanReprocess())

		ignored := newPendingItem(t)
		require.NoError(t, ignored.MarkIgnored("heartbeat"))
		assert.True(t, ignored.CanReprocess())

		processed := newPendingItem(t)
		require.NoError(t, processed.MarkProcessed(nil))
		assert.True(t, processed.CanReprocess(), "re-running a processed item converges through the idempotent upsert")
	})
}

func TestItem_Reopen(t *testing.T) {
	t.Run("returns failed item to pending", func(t *testing.T) {
		item := newPendingItem(t)
		require.NoError(t, item.MarkFailed("boom"))

		require.NoError(t, item.Reopen())
		assert.Equal(t, StatusPending, item.Status)
		assert.Nil(t, item.ProcessedAt)
		assert.Empty(t, item.ErrorMessage)
		assert.Equal(t, 1, item.RetryCount, "reopen must keep the retry history")
	})

	t.Run("returns processed item to pending for explicit reprocess", func(t *testing.T) {
		item := newPendingItem(t)
		require.NoError(t, item.MarkProcessed(nil))

		require.NoError(t, item.Reopen())
		assert.Equal(t, StatusPending, item.Status)
	})

	t.Run("pending item is a no-op", func(t *testing.T) {
		item := newPendingItem(t)
		require.NoError(t, item.Reopen())
		assert.Equal(t, StatusPending, item.Status)
	})
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusPending.IsValid())
	assert.True(t, StatusProcessed.IsValid())
	assert.False(t, Status("UNKNOWN").IsValid())

	assert.True(t, StatusProcessed.IsTerminal())
	assert.True(t, StatusIgnored.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusFailed.IsTerminal(), "failed items stay reprocessable")
}
