// Package query evaluates search filters over a session's stored chunks.
// Chunks are read and filtered concurrently but results are assembled in
// chunk order, so output always follows ingestion order.
package query

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/secstore/secstore/internal/ingest"
	"github.com/secstore/secstore/internal/session"
	"github.com/secstore/secstore/pkg/models"
)

// DefaultMaxConcurrentChunkReads bounds parallel chunk scans per search.
const DefaultMaxConcurrentChunkReads = 4

// Engine executes filtered scans over session chunks.
type Engine struct {
	store         *session.Store
	maxConcurrent int
	logger        zerolog.Logger
}

// NewEngine creates a query engine. maxConcurrent <= 0 falls back to the
// default.
func NewEngine(store *session.Store, maxConcurrent int, logger zerolog.Logger) *Engine {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentChunkReads
	}
	return &Engine{
		store:         store,
		maxConcurrent: maxConcurrent,
		logger:        logger.With().Str("component", "query-engine").Logger(),
	}
}

// Search evaluates the filter over every chunk of the session and returns
// the matching rows in ingestion order. All filter clauses are ANDed; an
// empty filter matches every row.
func (e *Engine) Search(ctx context.Context, sessionID string, filter *models.Filter) ([]models.Row, error) {
	refs, err := e.store.ListChunks(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return []models.Row{}, nil
	}

	needle := strings.ToLower(filter.Text)

	// One result slot per chunk keeps assembly order-independent of
	// worker completion order.
	results := make([][]models.Row, len(refs))
	errs := make([]error, len(refs))

	sem := make(chan struct{}, e.maxConcurrent)
	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		sem <- struct{}{}
		go func(slot int, ref session.ChunkRef) {
			defer wg.Done()
			defer func() { <-sem }()
			results[slot], errs[slot] = e.scanChunk(ctx, sessionID, ref, filter, needle)
		}(i, ref)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var total int
	for _, rows := range results {
		total += len(rows)
	}
	matched := make([]models.Row, 0, total)
	for _, rows := range results {
		matched = append(matched, rows...)
	}

	e.logger.Debug().
		Str("session_id", sessionID).
		Int("chunks", len(refs)).
		Int("matched", len(matched)).
		Msg("Search completed")

	return matched, nil
}

func (e *Engine) scanChunk(ctx context.Context, sessionID string, ref session.ChunkRef, filter *models.Filter, needle string) ([]models.Row, error) {
	data, err := e.store.ReadChunk(ctx, sessionID, ref)
	if err != nil {
		return nil, err
	}
	rows, err := ingest.DecodeChunk(data)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", ref.Index, err)
	}

	var matched []models.Row
	for i := range rows {
		if !filter.MatchesColumns(&rows[i]) {
			continue
		}
		if needle != "" {
			ok, err := e.payloadContains(ctx, sessionID, rows[i].RowID, needle)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, rows[i])
	}
	return matched, nil
}

// payloadContains reports whether the row's stored body, rendered as
// canonical JSON, contains the lowercased needle. A payload that cannot be
// loaded simply does not match; it never fails the whole search.
func (e *Engine) payloadContains(ctx context.Context, sessionID string, rowID uint32, needle string) (bool, error) {
	value, err := e.store.GetPayload(ctx, sessionID, rowID)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("session_id", sessionID).
			Uint32("row_id", rowID).
			Msg("Skipping row with unloadable payload")
		return false, nil
	}

	// json.Marshal writes map keys in sorted order, so the haystack is
	// deterministic for a given payload.
	rendered, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to render payload for row %d: %w", rowID, err)
	}
	return strings.Contains(strings.ToLower(string(rendered)), needle), nil
}
