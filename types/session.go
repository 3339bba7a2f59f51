package types

import (
	"errors"
	"fmt"
)

// SessionMeta identifies a decode session in logs, metrics and export records.
type SessionMeta struct {
	// SessionID is unique per decode session.
	SessionID string
	// Source is an optional label for where the input came from (file path, URL).
	Source string
	// InputBytes is the size of the encoded input.
	InputBytes int64
}

// Validate checks session identity fields.
func (s *SessionMeta) Validate() error {
	if s.SessionID == "" {
		return errors.New("session_id must be non-empty")
	}
	if s.InputBytes < 0 {
		return fmt.Errorf("input_bytes must be >= 0, got %d", s.InputBytes)
	}
	return nil
}

// OutcomeStatus is the final status of an export.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates every frame and sidecar was persisted.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeDecodeError indicates the decoder failed.
	OutcomeDecodeError OutcomeStatus = "decode_error"
	// OutcomeStorageError indicates a storage write or flush failed.
	OutcomeStorageError OutcomeStatus = "storage_error"
)

// Outcome is the final outcome of an export.
type Outcome struct {
	Status  OutcomeStatus
	Message string
}
