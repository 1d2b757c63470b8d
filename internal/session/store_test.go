package session

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/secstore/secstore/internal/storage"
	"github.com/secstore/secstore/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	backend, err := storage.NewLocalBackend(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return NewStore(backend, zerolog.Nop())
}

func TestCreateReturnsUniqueIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a, err := store.Create(ctx)
	require.NoError(t, err)
	b, err := store.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestChunkRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, store.WriteChunk(ctx, id, 0, []byte("chunk-zero")))
	require.NoError(t, store.WriteChunk(ctx, id, 1, []byte("chunk-one")))

	refs, err := store.ListChunks(ctx, id)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, 0, refs[0].Index)
	assert.Equal(t, 1, refs[1].Index)

	data, err := store.ReadChunk(ctx, id, refs[1])
	require.NoError(t, err)
	assert.Equal(t, []byte("chunk-one"), data)
}

func TestListChunksNumericOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx)
	require.NoError(t, err)

	// Indices past 999 break lexical ordering of the zero-padded names;
	// listing must sort by parsed index.
	for _, idx := range []int{1000, 2, 0, 999} {
		require.NoError(t, store.WriteChunk(ctx, id, idx, []byte("x")))
	}

	refs, err := store.ListChunks(ctx, id)
	require.NoError(t, err)
	require.Len(t, refs, 4)
	indices := []int{refs[0].Index, refs[1].Index, refs[2].Index, refs[3].Index}
	assert.Equal(t, []int{0, 2, 999, 1000}, indices)
}

func TestListChunksUnknownSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ListChunks(context.Background(), "no-such-session")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestListChunksEmptySessionWithMeta(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.WriteMeta(ctx, id, &models.SessionMeta{}))

	refs, err := store.ListChunks(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestMetaRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx)
	require.NoError(t, err)

	meta := &models.SessionMeta{
		RowCount:     3,
		TMinNs:       1700000000000000000,
		TMaxNs:       1700000002000000000,
		DistinctS:    []uint16{1, 6},
		DistinctF:    []uint16{3, 11},
		DistinctCEID: []uint32{1001},
	}
	require.NoError(t, store.WriteMeta(ctx, id, meta))

	got, err := store.ReadMeta(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}

func TestReadMetaUnknownSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ReadMeta(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestDeleteRemovesEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.WriteChunk(ctx, id, 0, []byte("data")))
	require.NoError(t, store.WriteMeta(ctx, id, &models.SessionMeta{RowCount: 1}))
	require.NoError(t, store.PutPayload(ctx, id, 0, []byte(`{"k":"v"}`)))

	require.NoError(t, store.Delete(ctx, id))

	_, err = store.ReadMeta(ctx, id)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = store.ListChunks(ctx, id)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = store.GetPayload(ctx, id, 0)
	assert.True(t, errors.Is(err, ErrPayloadNotFound))
}

func TestDeleteMissingSessionIsNoError(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Delete(context.Background(), "never-existed"))
}

func TestDeleteIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	keep, err := store.Create(ctx)
	require.NoError(t, err)
	drop, err := store.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, store.WriteMeta(ctx, keep, &models.SessionMeta{RowCount: 5}))
	require.NoError(t, store.WriteMeta(ctx, drop, &models.SessionMeta{RowCount: 9}))

	require.NoError(t, store.Delete(ctx, drop))

	meta, err := store.ReadMeta(ctx, keep)
	require.NoError(t, err)
	assert.Equal(t, 5, meta.RowCount)
}
