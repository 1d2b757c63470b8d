package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferEviction(t *testing.T) {
	b := NewBuffer(3)
	for _, msg := range []string{"one", "two", "three", "four"} {
		b.Add(Entry{Timestamp: time.Now(), Level: "INFO", Message: msg})
	}

	assert.Equal(t, 3, b.Count())

	entries := b.Recent(10, "", 60)
	require.Len(t, entries, 3)
	// Newest first; "one" was evicted.
	assert.Equal(t, "four", entries[0].Message)
	assert.Equal(t, "two", entries[2].Message)
}

func TestBufferLevelFilter(t *testing.T) {
	b := NewBuffer(10)
	b.Add(Entry{Timestamp: time.Now(), Level: "DEBUG", Message: "noise"})
	b.Add(Entry{Timestamp: time.Now(), Level: "ERROR", Message: "boom"})
	b.Add(Entry{Timestamp: time.Now(), Level: "WARN", Message: "odd"})

	entries := b.Recent(10, "warn", 60)
	require.Len(t, entries, 2)
	assert.Equal(t, "odd", entries[0].Message)
	assert.Equal(t, "boom", entries[1].Message)
}

func TestBufferAgeFilter(t *testing.T) {
	b := NewBuffer(10)
	b.Add(Entry{Timestamp: time.Now().Add(-2 * time.Hour), Level: "INFO", Message: "stale"})
	b.Add(Entry{Timestamp: time.Now(), Level: "INFO", Message: "fresh"})

	entries := b.Recent(10, "", 60)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].Message)
}

func TestBufferWriterCapturesJSONLines(t *testing.T) {
	b := GetBuffer()
	before := b.Count()

	w := NewBufferWriter(nil)
	_, err := w.Write([]byte(`{"level":"warn","component":"test","message":"captured"}`))
	require.NoError(t, err)

	assert.Equal(t, before+1, b.Count())
	entries := b.Recent(1, "", 60)
	require.NotEmpty(t, entries)
	assert.Equal(t, "captured", entries[0].Message)
	assert.Equal(t, "WARN", entries[0].Level)
}
