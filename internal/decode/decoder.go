// Package decode turns uploaded session logs in any of the supported
// textual encodings (CSV, newline-delimited JSON, JSON array) into a uniform
// record stream. Format selection is by filename hint when available,
// otherwise by content sniffing.
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// Record is one message as decoded from the source bytes, before
// normalization. All decoders produce this same shape regardless of the
// input encoding.
type Record struct {
	TsISO    string          `json:"ts_iso"`
	Dir      string          `json:"dir"`
	S        uint8           `json:"s"`
	F        uint8           `json:"f"`
	WBit     uint8           `json:"wbit"`
	SysBytes uint32          `json:"sysbytes"`
	CEID     uint32          `json:"ceid"`
	VID      uint32          `json:"vid"`
	RPTID    uint32          `json:"rptid"`
	Body     json.RawMessage `json:"body_json"`
}

// Decoder decodes a byte stream into records. Implementations must also be
// able to self-test a content sample so the registry can fall back to
// trial-and-error when sniffing is inconclusive.
type Decoder interface {
	// Name is the decoder's logical name ("csv", "ndjson", "json").
	Name() string

	// Extensions lists the file extensions this decoder recognizes.
	Extensions() []string

	// CanDecode reports whether the sample looks like this decoder's format.
	CanDecode(sample []byte) bool

	// Decode consumes the full stream and returns all records. A failure on
	// any record aborts the decode; no partial results are returned.
	Decode(r io.Reader) ([]Record, error)
}

// ErrFormatUndetected is returned when neither sniffing nor decoder
// self-tests matched the input.
var ErrFormatUndetected = errors.New("unable to detect input format")

// ErrInvalidBody indicates a record's body column is not valid structured
// data.
var ErrInvalidBody = errors.New("body_json is not valid JSON")

// RecordError reports a decode failure with the position of the offending
// record. Line is 1-based; for the JSON-array decoder it is the record index
// within the array instead.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
