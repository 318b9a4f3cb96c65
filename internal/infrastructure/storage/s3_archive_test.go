package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/infrastructure/config"
)

// ============================================================================
// Unit Tests (no external dependencies)
// ============================================================================

func TestNewS3PayloadArchive_Validation(t *testing.T) {
	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := config.ArchiveConfig{
			AccessKey: "test-key",
			SecretKey: "test-secret",
		}
		_, err := NewS3PayloadArchive(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		cfg := config.ArchiveConfig{
			Bucket:    "test-bucket",
			SecretKey: "test-secret",
		}
		_, err := NewS3PayloadArchive(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		cfg := config.ArchiveConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
		}
		_, err := NewS3PayloadArchive(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("valid config creates archive", func(t *testing.T) {
		cfg := config.ArchiveConfig{
			Bucket:       "test-bucket",
			AccessKey:    "test-key",
			SecretKey:    "test-secret",
			Region:       "us-east-1",
			Endpoint:     "http://localhost:9000",
			UsePathStyle: true,
		}
		archive, err := NewS3PayloadArchive(cfg)
		require.NoError(t, err)
		require.NotNil(t, archive)
		assert.Equal(t, "test-bucket", archive.GetBucket())
	})

	t.Run("default region is us-east-1", func(t *testing.T) {
		cfg := config.ArchiveConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
			Endpoint:  "http://localhost:9000",
		}
		archive, err := NewS3PayloadArchive(cfg)
		require.NoError(t, err)
		require.NotNil(t, archive)
	})

	t.Run("default endpoint is localhost", func(t *testing.T) {
		cfg := config.ArchiveConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
		}
		archive, err := NewS3PayloadArchive(cfg)
		require.NoError(t, err)
		require.NotNil(t, archive)
	})

	t.Run("adds http prefix when missing and no SSL", func(t *testing.T) {
		cfg := config.ArchiveConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
			Endpoint:  "localhost:9000",
			UseSSL:    false,
		}
		archive, err := NewS3PayloadArchive(cfg)
		require.NoError(t, err)
		require.NotNil(t, archive)
	})

	t.Run("adds https prefix when missing and SSL enabled", func(t *testing.T) {
		cfg := config.ArchiveConfig{
			Bucket:    "test-bucket",
			AccessKey: "test-key",
			SecretKey: "test-secret",
			Endpoint:  "localhost:9000",
			UseSSL:    true,
		}
		archive, err := NewS3PayloadArchive(cfg)
		require.NoError(t, err)
		require.NotNil(t, archive)
	})
}

func TestS3PayloadArchiveOptions(t *testing.T) {
	baseConfig := config.ArchiveConfig{
		Bucket:    "test-bucket",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Endpoint:  "http://localhost:9000",
	}

	t.Run("WithLogger sets custom logger", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		archive, err := NewS3PayloadArchive(baseConfig, WithLogger(logger))
		require.NoError(t, err)
		assert.NotNil(t, archive.logger)
	})
}

func TestS3PayloadArchive_Upload_ValidationOnly(t *testing.T) {
	cfg := config.ArchiveConfig{
		Bucket:    "test-bucket",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Endpoint:  "http://localhost:9000",
	}
	archive, err := NewS3PayloadArchive(cfg)
	require.NoError(t, err)

	t.Run("empty key returns error", func(t *testing.T) {
		err := archive.Upload(context.Background(), "", []byte(`{}`), "application/json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key is required")
	})
}

func TestS3PayloadArchive_ObjectExists_ValidationOnly(t *testing.T) {
	cfg := config.ArchiveConfig{
		Bucket:    "test-bucket",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Endpoint:  "http://localhost:9000",
	}
	archive, err := NewS3PayloadArchive(cfg)
	require.NoError(t, err)

	t.Run("empty key returns error", func(t *testing.T) {
		exists, err := archive.ObjectExists(context.Background(), "")
		require.Error(t, err)
		assert.False(t, exists)
		assert.Contains(t, err.Error(), "key is required")
	})
}

func TestS3PayloadArchive_DeleteObject_ValidationOnly(t *testing.T) {
	cfg := config.ArchiveConfig{
		Bucket:    "test-bucket",
		AccessKey: "test-key",
		SecretKey: "test-secret",
		Endpoint:  "http://localhost:9000",
	}
	archive, err := NewS3PayloadArchive(cfg)
	require.NoError(t, err)

	t.Run("empty key returns error", func(t *testing.T) {
		err := archive.DeleteObject(context.Background(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key is required")
	})
}

// ============================================================================
// Integration Tests (require RustFS/MinIO running)
// ============================================================================

// skipIntegration skips the test unless an S3-compatible backend is running
func skipIntegration(t *testing.T) {
	t.Helper()
	// These tests require RustFS/MinIO on localhost:9000
	t.Skip("Skipping integration test. Run RustFS on localhost:9000 to enable.")
}

func newIntegrationArchive(t *testing.T) *S3PayloadArchive {
	t.Helper()
	skipIntegration(t)

	cfg := config.ArchiveConfig{
		Bucket:       "test-integration",
		AccessKey:    "rustfsadmin",
		SecretKey:    "rustfsadmin123",
		Endpoint:     "http://localhost:9000",
		Region:       "us-east-1",
		UsePathStyle: true,
	}

	archive, err := NewS3PayloadArchive(cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)

	err = archive.EnsureBucket(context.Background())
	require.NoError(t, err)

	return archive
}

func TestIntegration_UploadAndDelete(t *testing.T) {
	archive := newIntegrationArchive(t)
	ctx := context.Background()
	key := "foody/2024-03-15/integration-test.json"
	payload := []byte(`{"id":"ORD-1"}`)

	err := archive.Upload(ctx, key, payload, "application/json")
	require.NoError(t, err)

	exists, err := archive.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	// Re-upload overwrites in place
	err = archive.Upload(ctx, key, payload, "application/json")
	require.NoError(t, err)

	err = archive.DeleteObject(ctx, key)
	require.NoError(t, err)

	exists, err = archive.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIntegration_EnsureBucket(t *testing.T) {
	skipIntegration(t)

	cfg := config.ArchiveConfig{
		Bucket:       "test-ensure-bucket",
		AccessKey:    "rustfsadmin",
		SecretKey:    "rustfsadmin123",
		Endpoint:     "http://localhost:9000",
		Region:       "us-east-1",
		UsePathStyle: true,
	}

	archive, err := NewS3PayloadArchive(cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)

	// Should create bucket if not exists
	err = archive.EnsureBucket(context.Background())
	require.NoError(t, err)

	// Should not error if bucket already exists
	err = archive.EnsureBucket(context.Background())
	require.NoError(t, err)
}
