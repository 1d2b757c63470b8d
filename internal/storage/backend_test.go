package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *LocalBackend {
	t.Helper()
	b, err := NewLocalBackend(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return b
}

func TestLocalBackendWriteRead(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	data := []byte("hello columnar world")
	require.NoError(t, b.Write(ctx, "abc/chunks/000.arrow", data))

	got, err := b.Read(ctx, "abc/chunks/000.arrow")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalBackendReadMissing(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.Read(context.Background(), "nope/meta.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalBackendList(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "s1/chunks/000.arrow", []byte("a")))
	require.NoError(t, b.Write(ctx, "s1/chunks/001.arrow", []byte("b")))
	require.NoError(t, b.Write(ctx, "s1/payloads/0.mp", []byte("c")))
	require.NoError(t, b.Write(ctx, "s2/meta.json", []byte("d")))

	keys, err := b.List(ctx, "s1/chunks")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1/chunks/000.arrow", "s1/chunks/001.arrow"}, keys)

	keys, err = b.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLocalBackendDeletePrefix(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "s1/chunks/000.arrow", []byte("a")))
	require.NoError(t, b.Write(ctx, "s1/meta.json", []byte("m")))
	require.NoError(t, b.Write(ctx, "s2/meta.json", []byte("m")))

	require.NoError(t, b.DeletePrefix(ctx, "s1"))

	exists, err := b.Exists(ctx, "s1/meta.json")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = b.Exists(ctx, "s2/meta.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalBackendDeleteMissingIsNoError(t *testing.T) {
	b := newTestBackend(t)
	assert.NoError(t, b.Delete(context.Background(), "ghost.bin"))
}

func TestLocalBackendRejectsTraversal(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	err := b.Write(ctx, "../escape.txt", []byte("x"))
	require.Error(t, err)

	_, err = b.Read(ctx, "../../etc/passwd")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
