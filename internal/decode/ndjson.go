package decode

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
)

// NDJSONDecoder handles newline-delimited JSON: one record object per line,
// blank lines skipped.
type NDJSONDecoder struct{}

func (d *NDJSONDecoder) Name() string {
	return "ndjson"
}

func (d *NDJSONDecoder) Extensions() []string {
	return []string{"ndjson", "jsonl"}
}

// CanDecode requires the first line alone to be a complete JSON object.
func (d *NDJSONDecoder) CanDecode(sample []byte) bool {
	trimmed := strings.TrimSpace(string(sample))
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}

	first, _, _ := strings.Cut(trimmed, "\n")
	first = strings.TrimRight(first, " \t\r")
	if !strings.HasSuffix(first, "}") {
		return false
	}
	return json.Valid([]byte(first))
}

func (d *NDJSONDecoder) Decode(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	// Bodies can be large SECS trees; lines routinely exceed the default
	// scanner buffer.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var records []Record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, &RecordError{Line: lineNo, Err: err}
		}
		if len(rec.Body) == 0 {
			return nil, &RecordError{Line: lineNo, Err: fmt.Errorf("%w: body_json field missing", ErrInvalidBody)}
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}

	return records, nil
}
