package logger

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Entry is one captured log line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Component string    `json:"component,omitempty"`
	Message   string    `json:"message"`
	Caller    string    `json:"caller,omitempty"`
}

// Buffer is a fixed-size ring of recent log entries.
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	count   int
}

const bufferCapacity = 10000

var (
	globalBuffer *Buffer
	bufferOnce   sync.Once
)

// GetBuffer returns the process-wide log buffer.
func GetBuffer() *Buffer {
	bufferOnce.Do(func() {
		globalBuffer = NewBuffer(bufferCapacity)
	})
	return globalBuffer
}

// NewBuffer creates a ring buffer holding up to size entries.
func NewBuffer(size int) *Buffer {
	return &Buffer{entries: make([]Entry, size)}
}

// Add appends an entry, evicting the oldest once the ring is full.
func (b *Buffer) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.count < len(b.entries) {
		b.count++
	}
}

// Count returns the number of buffered entries.
func (b *Buffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Recent returns up to limit entries, newest first, filtered by minimum
// level (empty = all) and age in minutes.
func (b *Buffer) Recent(limit int, level string, sinceMinutes int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if limit <= 0 || limit > b.count {
		limit = b.count
	}
	cutoff := time.Now().Add(-time.Duration(sinceMinutes) * time.Minute)

	var result []Entry
	for i := 0; i < b.count && len(result) < limit; i++ {
		idx := (b.next - 1 - i + len(b.entries)) % len(b.entries)
		e := b.entries[idx]
		if e.Timestamp.Before(cutoff) {
			continue
		}
		if level != "" && !levelAtLeast(e.Level, level) {
			continue
		}
		result = append(result, e)
	}
	return result
}

func levelPriority(level string) (int, bool) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return 0, true
	case "INFO":
		return 1, true
	case "WARN", "WARNING":
		return 2, true
	case "ERROR":
		return 3, true
	case "FATAL":
		return 4, true
	}
	return 0, false
}

func levelAtLeast(entryLevel, filterLevel string) bool {
	ep, ok1 := levelPriority(entryLevel)
	fp, ok2 := levelPriority(filterLevel)
	if !ok1 || !ok2 {
		return strings.EqualFold(entryLevel, filterLevel)
	}
	return ep >= fp
}

// BufferWriter tees zerolog JSON output into the global buffer.
type BufferWriter struct {
	buffer *Buffer
	out    io.Writer
}

// NewBufferWriter wraps out so every log line is also captured.
func NewBufferWriter(out io.Writer) *BufferWriter {
	return &BufferWriter{buffer: GetBuffer(), out: out}
}

// Write implements io.Writer.
func (w *BufferWriter) Write(p []byte) (n int, err error) {
	if w.out != nil {
		n, err = w.out.Write(p)
	} else {
		n = len(p)
	}

	var line struct {
		Level     string `json:"level"`
		Component string `json:"component"`
		Message   string `json:"message"`
		Caller    string `json:"caller"`
	}
	if jsonErr := json.Unmarshal(p, &line); jsonErr == nil && (line.Message != "" || line.Level != "") {
		w.buffer.Add(Entry{
			Timestamp: time.Now(),
			Level:     strings.ToUpper(line.Level),
			Component: line.Component,
			Message:   line.Message,
			Caller:    line.Caller,
		})
	}

	return n, err
}
