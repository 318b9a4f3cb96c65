package storage

import (
	"context"
	"errors"

	integrationapp "github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/application/integration"
)

// NoopPayloadArchive discards payloads. It is the default archive when
// archive.enabled is false: ingestion behaves identically, nothing is
// retained.
type NoopPayloadArchive struct{}

// NewNoopPayloadArchive creates a new NoopPayloadArchive
func NewNoopPayloadArchive() *NoopPayloadArchive {
	return &NoopPayloadArchive{}
}

// Ensure NoopPayloadArchive implements PayloadArchive
var _ integrationapp.PayloadArchive = (*NoopPayloadArchive)(nil)

// Upload validates the key and drops the payload
func (n *NoopPayloadArchive) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("archive key is required")
	}
	return nil
}
