package ingest

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/secstore/secstore/pkg/models"
)

// DefaultChunkSize is the row capacity of one chunk file.
const DefaultChunkSize = 50000

// memory.GoAllocator is safe for concurrent use; a shared instance avoids
// per-builder allocator overhead.
var sharedAllocator = memory.NewGoAllocator()

// Column indices of the fixed schema. Chunk files and query-result batches
// use the same layout.
const (
	colTsNs = iota
	colDir
	colS
	colF
	colWBit
	colSysBytes
	colCEID
	colVID
	colRPTID
	colRowID
	numCols
)

var chunkSchema = arrow.NewSchema([]arrow.Field{
	{Name: "ts_ns", Type: arrow.PrimitiveTypes.Int64},
	{Name: "dir", Type: arrow.PrimitiveTypes.Int8},
	{Name: "s", Type: arrow.PrimitiveTypes.Uint8},
	{Name: "f", Type: arrow.PrimitiveTypes.Uint8},
	{Name: "wbit", Type: arrow.PrimitiveTypes.Uint8},
	{Name: "sysbytes", Type: arrow.PrimitiveTypes.Uint32},
	{Name: "ceid", Type: arrow.PrimitiveTypes.Uint32},
	{Name: "vid", Type: arrow.PrimitiveTypes.Uint32},
	{Name: "rptid", Type: arrow.PrimitiveTypes.Uint32},
	{Name: "row_id", Type: arrow.PrimitiveTypes.Uint32},
}, nil)

// ChunkSchema returns the fixed 10-column schema shared by chunk files and
// query results.
func ChunkSchema() *arrow.Schema {
	return chunkSchema
}

// ChunkBuilder accumulates rows into arrow column builders and serializes
// them as one IPC stream. Encode drains the buffer, so the builder can be
// reused for the next chunk.
type ChunkBuilder struct {
	builder  *array.RecordBuilder
	capacity int
	rows     int
}

// NewChunkBuilder creates a builder that reports Full at capacity rows.
// capacity <= 0 means unbounded (used for query-result batches).
func NewChunkBuilder(capacity int) *ChunkBuilder {
	return &ChunkBuilder{
		builder:  array.NewRecordBuilder(sharedAllocator, chunkSchema),
		capacity: capacity,
	}
}

// Push appends one row.
func (b *ChunkBuilder) Push(row *models.Row) {
	b.builder.Field(colTsNs).(*array.Int64Builder).Append(row.TsNs)
	b.builder.Field(colDir).(*array.Int8Builder).Append(row.Dir)
	b.builder.Field(colS).(*array.Uint8Builder).Append(row.S)
	b.builder.Field(colF).(*array.Uint8Builder).Append(row.F)
	b.builder.Field(colWBit).(*array.Uint8Builder).Append(row.WBit)
	b.builder.Field(colSysBytes).(*array.Uint32Builder).Append(row.SysBytes)
	b.builder.Field(colCEID).(*array.Uint32Builder).Append(row.CEID)
	b.builder.Field(colVID).(*array.Uint32Builder).Append(row.VID)
	b.builder.Field(colRPTID).(*array.Uint32Builder).Append(row.RPTID)
	b.builder.Field(colRowID).(*array.Uint32Builder).Append(row.RowID)
	b.rows++
}

// Len returns the number of buffered rows.
func (b *ChunkBuilder) Len() int {
	return b.rows
}

// Full reports whether the builder has reached its capacity.
func (b *ChunkBuilder) Full() bool {
	return b.capacity > 0 && b.rows >= b.capacity
}

// Encode serializes the buffered rows as a self-describing arrow IPC stream
// and resets the builder for the next chunk.
func (b *ChunkBuilder) Encode() ([]byte, error) {
	rec := b.builder.NewRecord() // resets the underlying builders
	defer rec.Release()
	b.rows = 0

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(chunkSchema), ipc.WithAllocator(sharedAllocator))
	if err := w.Write(rec); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to write arrow record: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish arrow stream: %w", err)
	}

	return buf.Bytes(), nil
}

// Release frees the builder's arrow buffers.
func (b *ChunkBuilder) Release() {
	b.builder.Release()
}

// DecodeChunk reads one chunk file's IPC stream back into rows, preserving
// row order.
func DecodeChunk(data []byte) ([]models.Row, error) {
	rdr, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(sharedAllocator))
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow stream: %w", err)
	}
	defer rdr.Release()

	var rows []models.Row
	for rdr.Next() {
		rec := rdr.Record()
		if rec.NumCols() != numCols {
			return nil, fmt.Errorf("unexpected column count %d in chunk", rec.NumCols())
		}

		tsNs := rec.Column(colTsNs).(*array.Int64)
		dir := rec.Column(colDir).(*array.Int8)
		s := rec.Column(colS).(*array.Uint8)
		f := rec.Column(colF).(*array.Uint8)
		wbit := rec.Column(colWBit).(*array.Uint8)
		sysbytes := rec.Column(colSysBytes).(*array.Uint32)
		ceid := rec.Column(colCEID).(*array.Uint32)
		vid := rec.Column(colVID).(*array.Uint32)
		rptid := rec.Column(colRPTID).(*array.Uint32)
		rowID := rec.Column(colRowID).(*array.Uint32)

		for i := 0; i < int(rec.NumRows()); i++ {
			rows = append(rows, models.Row{
				TsNs:     tsNs.Value(i),
				Dir:      dir.Value(i),
				S:        s.Value(i),
				F:        f.Value(i),
				WBit:     wbit.Value(i),
				SysBytes: sysbytes.Value(i),
				CEID:     ceid.Value(i),
				VID:      vid.Value(i),
				RPTID:    rptid.Value(i),
				RowID:    rowID.Value(i),
			})
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("failed to read arrow stream: %w", err)
	}

	return rows, nil
}

// EncodeRows serializes an arbitrary row slice as one arrow IPC stream in
// the chunk schema. Used for query-result batches.
func EncodeRows(rows []models.Row) ([]byte, error) {
	b := NewChunkBuilder(0)
	defer b.Release()
	for i := range rows {
		b.Push(&rows[i])
	}
	return b.Encode()
}
