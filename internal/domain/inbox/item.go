package inbox

import (
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	ErrItemNotFound          = errors.New("inbox: item not found")
	ErrMissingIntegrationID  = errors.New("inbox: integration id is required")
	ErrMissingPayload        = errors.New("inbox: raw payload is required")
	ErrTerminalStatus        = errors.New("inbox: item is in a terminal status")
	ErrNotPending            = errors.New("inbox: item is not pending")
	ErrEmptyFailureMessage   = errors.New("inbox: failure message is required")
	ErrReprocessNotPermitted = errors.New("inbox: item cannot be reprocessed")
)

// MaxErrorMessageLength bounds stored failure messages so repeated failures
// cannot grow storage without limit
const MaxErrorMessageLength = 500

// Status is the inbox item state machine: PENDING -> PROCESSED | FAILED |
// IGNORED. PROCESSED and IGNORED are terminal except through the explicit
// reprocess path; FAILED items stay reprocessable indefinitely.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusProcessed Status = "PROCESSED"
	StatusFailed    Status = "FAILED"
	StatusIgnored   Status = "IGNORED"
)

// IsValid checks whether the status is part of the state machine
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusFailed, StatusIgnored:
		return true
	}
	return false
}

// IsTerminal reports whether the item finished processing
func (s Status) IsTerminal() bool {
	return s == StatusProcessed || s == StatusIgnored
}

// Item is one durable record of a single raw inbound payload. Receipts are
// never deduplicated here: duplicates across polling windows are tolerated by
// the downstream idempotent upsert.
type Item struct {
	ID            uuid.UUID
	IntegrationID uuid.UUID
	Source        string
	Event         string
	ExternalID    string
	Payload       json.RawMessage
	CorrelationID string

	Status       Status
	ErrorMessage string
	RetryCount   int

	// ParsedPayload optionally records the normalized result for audit
	ParsedPayload json.RawMessage

	ReceivedAt  time.Time
	ProcessedAt *time.Time
}

// NewItem stages a raw payload as PENDING. A correlation id is generated
// when the caller did not supply one.
func NewItem(integrationID uuid.UUID, source string, payload json.RawMessage, event, externalID, correlationID string) (*Item, error) {
	if integrationID == uuid.Nil {
		return nil, ErrMissingIntegrationID
	}
	if len(payload) == 0 {
		return nil, ErrMissingPayload
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	return &Item{
		ID:            uuid.New(),
		IntegrationID: integrationID,
		Source:        source,
		Event:         event,
		ExternalID:    externalID,
		Payload:       payload,
		CorrelationID: correlationID,
		Status:        StatusPending,
		ReceivedAt:    time.Now(),
	}, nil
}

// MarkProcessed finishes the item successfully. The retry count is left
// untouched; only failures move it.
func (i *Item) MarkProcessed(parsed json.RawMessage) error {
	if i.Status != StatusPending {
		return ErrNotPending
	}
	now := time.Now()
	i.Status = StatusProcessed
	i.ProcessedAt = &now
	i.ErrorMessage = ""
	if len(parsed) > 0 {
		i.ParsedPayload = parsed
	}
	return nil
}

// MarkFailed records a retryable failure, incrementing the retry count and
// truncating the message to the storage bound
func (i *Item) MarkFailed(message string) error {
	if i.Status != StatusPending {
		return ErrNotPending
	}
	if message == "" {
		return ErrEmptyFailureMessage
	}
	i.Status = StatusFailed
	i.ErrorMessage = truncateMessage(message)
	i.RetryCount++
	now := time.Now()
	i.ProcessedAt = &now
	return nil
}

// MarkIgnored finishes the item as irrelevant (heartbeats, unrelated events)
func (i *Item) MarkIgnored(reason string) error {
	if i.Status != StatusPending {
		return ErrNotPending
	}
	now := time.Now()
	i.Status = StatusIgnored
	i.ProcessedAt = &now
	if reason != "" {
		i.ErrorMessage = truncateMessage(reason)
	}
	return nil
}

// CanReprocess reports whether the explicit reprocess path applies. Items
// that ended in any terminal state are eligible: FAILED and IGNORED for the
// obvious reasons, PROCESSED because the idempotent upsert makes a re-run
// converge on the same order. PENDING items are already owned by a drain.
func (i *Item) CanReprocess() bool {
	return i.Status == StatusFailed || i.Status == StatusIgnored || i.Status == StatusProcessed
}

// Reopen returns the item to PENDING for the explicit reprocess path. The
// retry count survives so operators can see the item's full history.
func (i *Item) Reopen() error {
	if i.Status == StatusPending {
		return nil
	}
	i.Status = StatusPending
	i.ProcessedAt = nil
	i.ErrorMessage = ""
	return nil
}

func truncateMessage(message string) string {
	if len(message) <= MaxErrorMessageLength {
		return message
	}
	cut := MaxErrorMessageLength
	// Back up to a rune start so the cut never splits a multi-byte character.
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}
