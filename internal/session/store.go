// Package session owns the on-disk layout of one ingested session:
//
//	<id>/chunks/<NNN>.arrow   columnar chunk files, numeric ascending
//	<id>/payloads/<row>.mp    msgpack-encoded original message bodies
//	<id>/meta.json            session-wide summary document
//
// Sessions are independent namespaces; a session is created at ingestion
// start and removable as a unit.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/secstore/secstore/internal/storage"
	"github.com/secstore/secstore/pkg/models"
)

var (
	// ErrSessionNotFound indicates the session id has no stored artifacts.
	ErrSessionNotFound = errors.New("session not found")

	// ErrPayloadNotFound indicates no payload exists for the row id.
	ErrPayloadNotFound = errors.New("payload not found")
)

// Store manages session artifacts on a storage backend.
type Store struct {
	backend storage.Backend
	logger  zerolog.Logger
}

// NewStore creates a session store over the given backend.
func NewStore(backend storage.Backend, logger zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.With().Str("component", "session-store").Logger(),
	}
}

// Create allocates a new opaque session identifier. Storage for the session
// is provisioned lazily by the first write into its namespace.
func (s *Store) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	s.logger.Info().Str("session_id", id).Msg("Created session")
	return id, nil
}

// Delete removes every artifact of the session. Irreversible; deleting a
// session that does not exist is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.backend.DeletePrefix(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	s.logger.Info().Str("session_id", sessionID).Msg("Deleted session")
	return nil
}

// ChunkRef identifies one stored chunk.
type ChunkRef struct {
	Index int
	Key   string
}

// chunkKey builds the storage key for chunk idx. Zero-padding keeps keys
// lexically ordered for typical sessions; ListChunks still sorts by parsed
// index so sessions beyond 999 chunks stay correct.
func chunkKey(sessionID string, idx int) string {
	return fmt.Sprintf("%s/chunks/%03d.arrow", sessionID, idx)
}

func payloadKey(sessionID string, rowID uint32) string {
	return fmt.Sprintf("%s/payloads/%d.mp", sessionID, rowID)
}

func metaKey(sessionID string) string {
	return sessionID + "/meta.json"
}

// WriteChunk stores one encoded chunk under its sequence number.
func (s *Store) WriteChunk(ctx context.Context, sessionID string, idx int, data []byte) error {
	if err := s.backend.Write(ctx, chunkKey(sessionID, idx), data); err != nil {
		return fmt.Errorf("failed to write chunk %d: %w", idx, err)
	}
	s.logger.Debug().
		Str("session_id", sessionID).
		Int("chunk", idx).
		Int("size", len(data)).
		Msg("Wrote chunk")
	return nil
}

// ReadChunk loads one chunk's bytes.
func (s *Store) ReadChunk(ctx context.Context, sessionID string, ref ChunkRef) ([]byte, error) {
	data, err := s.backend.Read(ctx, ref.Key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s chunk %d", ErrSessionNotFound, sessionID, ref.Index)
		}
		return nil, err
	}
	return data, nil
}

// ListChunks returns the session's chunks in ascending numeric order, so
// record order across chunks matches ingestion order. A session with a meta
// document but no chunks yields an empty list; a session with neither
// reports ErrSessionNotFound.
func (s *Store) ListChunks(ctx context.Context, sessionID string) ([]ChunkRef, error) {
	keys, err := s.backend.List(ctx, sessionID+"/chunks/")
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}

	refs := make([]ChunkRef, 0, len(keys))
	for _, key := range keys {
		base := key[strings.LastIndex(key, "/")+1:]
		numPart, ok := strings.CutSuffix(base, ".arrow")
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(numPart)
		if err != nil {
			continue
		}
		refs = append(refs, ChunkRef{Index: idx, Key: key})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Index < refs[j].Index })

	if len(refs) == 0 {
		exists, err := s.backend.Exists(ctx, metaKey(sessionID))
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
	}

	return refs, nil
}

// WriteMeta persists the session summary document.
func (s *Store) WriteMeta(ctx context.Context, sessionID string, meta *models.SessionMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode meta: %w", err)
	}
	if err := s.backend.Write(ctx, metaKey(sessionID), data); err != nil {
		return fmt.Errorf("failed to write meta: %w", err)
	}
	return nil
}

// ReadMeta loads the session summary document.
func (s *Store) ReadMeta(ctx context.Context, sessionID string) (*models.SessionMeta, error) {
	data, err := s.backend.Read(ctx, metaKey(sessionID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, err
	}

	var meta models.SessionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode meta: %w", err)
	}
	return &meta, nil
}
