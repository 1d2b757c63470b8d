package decode

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
)

// JSONDecoder handles a single JSON array of record objects.
type JSONDecoder struct{}

func (d *JSONDecoder) Name() string {
	return "json"
}

func (d *JSONDecoder) Extensions() []string {
	return []string{"json"}
}

// CanDecode only inspects the first non-whitespace character. A
// close-but-invalid array still claims to match and fails on full parse.
func (d *JSONDecoder) CanDecode(sample []byte) bool {
	return strings.HasPrefix(strings.TrimSpace(string(sample)), "[")
}

// Decode parses the array element-wise so a failing record is reported by
// its 1-based index within the array.
func (d *JSONDecoder) Decode(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &RecordError{Line: 1, Err: err}
	}

	records := make([]Record, 0, len(raw))
	for i, item := range raw {
		var rec Record
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, &RecordError{Line: i + 1, Err: err}
		}
		if len(rec.Body) == 0 {
			return nil, &RecordError{Line: i + 1, Err: fmt.Errorf("%w: body_json field missing", ErrInvalidBody)}
		}
		records = append(records, rec)
	}
	return records, nil
}
