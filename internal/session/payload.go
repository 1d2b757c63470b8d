package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/secstore/secstore/internal/storage"
	"github.com/vmihailenco/msgpack/v5"
)

// PutPayload stores the original message body for one row. The body arrives
// as raw JSON and is re-encoded as msgpack, which round-trips arbitrary
// nested structures while staying compact on disk.
func (s *Store) PutPayload(ctx context.Context, sessionID string, rowID uint32, body []byte) error {
	var value interface{}
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("failed to parse payload for row %d: %w", rowID, err)
	}

	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode payload for row %d: %w", rowID, err)
	}

	if err := s.backend.Write(ctx, payloadKey(sessionID, rowID), data); err != nil {
		return fmt.Errorf("failed to write payload for row %d: %w", rowID, err)
	}
	return nil
}

// GetPayload loads one row's stored body and returns it decoded from
// msgpack. Map keys come back as strings so the result can be re-encoded
// as JSON directly.
func (s *Store) GetPayload(ctx context.Context, sessionID string, rowID uint32) (interface{}, error) {
	data, err := s.backend.Read(ctx, payloadKey(sessionID, rowID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: session %s row %d", ErrPayloadNotFound, sessionID, rowID)
		}
		return nil, err
	}

	var value interface{}
	if err := msgpack.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to decode payload for row %d: %w", rowID, err)
	}
	return value, nil
}
