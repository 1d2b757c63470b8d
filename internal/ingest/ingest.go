// Package ingest turns decoded log records into session artifacts: rows are
// normalized to the fixed-width schema, accumulated into capacity-bounded
// arrow chunks, and summarized into session metadata, while original bodies
// are stored per row.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/secstore/secstore/internal/decode"
	"github.com/secstore/secstore/internal/session"
	"github.com/secstore/secstore/pkg/models"
)

// Ingester drives one upload through normalization, chunking, payload
// storage, and metadata aggregation.
type Ingester struct {
	store     *session.Store
	chunkSize int
	logger    zerolog.Logger
}

// NewIngester creates an ingester writing chunks of chunkSize rows.
// chunkSize <= 0 falls back to DefaultChunkSize.
func NewIngester(store *session.Store, chunkSize int, logger zerolog.Logger) *Ingester {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Ingester{
		store:     store,
		chunkSize: chunkSize,
		logger:    logger.With().Str("component", "ingester").Logger(),
	}
}

// Run ingests records into the session, in input order. Row ids are assigned
// by position starting at 0, chunks rotate at the configured capacity, and
// the final partial chunk is flushed before the metadata document is written.
// Ingestion is atomic from the caller's perspective: any record or storage
// failure aborts with an error and the caller is expected to discard the
// session.
func (ing *Ingester) Run(ctx context.Context, sessionID string, records []decode.Record) (*models.SessionMeta, error) {
	start := time.Now()

	builder := NewChunkBuilder(ing.chunkSize)
	defer builder.Release()
	collector := NewMetaCollector()

	chunkIdx := 0
	for i := range records {
		row, err := Normalize(&records[i], uint32(i))
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		if err := ing.store.PutPayload(ctx, sessionID, row.RowID, records[i].Body); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		collector.Update(&row)
		builder.Push(&row)

		if builder.Full() {
			if err := ing.flush(ctx, sessionID, builder, chunkIdx); err != nil {
				return nil, err
			}
			chunkIdx++
		}
	}

	if builder.Len() > 0 {
		if err := ing.flush(ctx, sessionID, builder, chunkIdx); err != nil {
			return nil, err
		}
		chunkIdx++
	}

	meta := collector.Finalize()
	if err := ing.store.WriteMeta(ctx, sessionID, &meta); err != nil {
		return nil, err
	}

	ing.logger.Info().
		Str("session_id", sessionID).
		Int("rows", meta.RowCount).
		Int("chunks", chunkIdx).
		Dur("duration", time.Since(start)).
		Msg("Ingested session")

	return &meta, nil
}

func (ing *Ingester) flush(ctx context.Context, sessionID string, builder *ChunkBuilder, idx int) error {
	data, err := builder.Encode()
	if err != nil {
		return fmt.Errorf("chunk %d: %w", idx, err)
	}
	return ing.store.WriteChunk(ctx, sessionID, idx, data)
}
