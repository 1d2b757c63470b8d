package decode

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// CSVDecoder handles CSV input with a header row. The body travels as a
// JSON-encoded string column (body_json) that must itself parse as valid
// structured data; a row whose body fails to parse is a hard error, not
// skipped.
type CSVDecoder struct{}

func (d *CSVDecoder) Name() string {
	return "csv"
}

func (d *CSVDecoder) Extensions() []string {
	return []string{"csv"}
}

func (d *CSVDecoder) CanDecode(sample []byte) bool {
	trimmed := strings.TrimSpace(string(sample))
	return strings.HasPrefix(trimmed, "ts_iso,") ||
		strings.Contains(trimmed, ",dir,") ||
		strings.Contains(trimmed, ",s,f,")
}

func (d *CSVDecoder) Decode(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, &RecordError{Line: 1, Err: fmt.Errorf("missing header row")}
		}
		return nil, &RecordError{Line: 1, Err: err}
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"ts_iso", "dir", "s", "f", "wbit", "sysbytes", "body_json"} {
		if _, ok := cols[required]; !ok {
			return nil, &RecordError{Line: 1, Err: fmt.Errorf("missing column %q", required)}
		}
	}

	var records []Record
	lineNo := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			return nil, &RecordError{Line: lineNo, Err: err}
		}

		rec, err := d.decodeRow(row, cols)
		if err != nil {
			return nil, &RecordError{Line: lineNo, Err: err}
		}
		records = append(records, rec)
	}

	return records, nil
}

func (d *CSVDecoder) decodeRow(row []string, cols map[string]int) (Record, error) {
	field := func(name string) (string, error) {
		idx := cols[name]
		if idx >= len(row) {
			return "", fmt.Errorf("row too short, missing column %q", name)
		}
		return row[idx], nil
	}

	var rec Record
	var err error

	if rec.TsISO, err = field("ts_iso"); err != nil {
		return Record{}, err
	}
	if rec.Dir, err = field("dir"); err != nil {
		return Record{}, err
	}
	if rec.S, err = parseU8Field(row, cols, "s"); err != nil {
		return Record{}, err
	}
	if rec.F, err = parseU8Field(row, cols, "f"); err != nil {
		return Record{}, err
	}
	if rec.WBit, err = parseU8Field(row, cols, "wbit"); err != nil {
		return Record{}, err
	}
	if rec.SysBytes, err = parseU32Field(row, cols, "sysbytes", true); err != nil {
		return Record{}, err
	}
	// Tag columns are optional; absent or empty means 0.
	if rec.CEID, err = parseU32Field(row, cols, "ceid", false); err != nil {
		return Record{}, err
	}
	if rec.VID, err = parseU32Field(row, cols, "vid", false); err != nil {
		return Record{}, err
	}
	if rec.RPTID, err = parseU32Field(row, cols, "rptid", false); err != nil {
		return Record{}, err
	}

	body, err := field("body_json")
	if err != nil {
		return Record{}, err
	}
	if !json.Valid([]byte(body)) {
		return Record{}, fmt.Errorf("%w: %.60q", ErrInvalidBody, body)
	}
	rec.Body = json.RawMessage(body)

	return rec, nil
}

func parseU8Field(row []string, cols map[string]int, name string) (uint8, error) {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return 0, fmt.Errorf("row too short, missing column %q", name)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(row[idx]), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, row[idx], err)
	}
	return uint8(v), nil
}

func parseU32Field(row []string, cols map[string]int, name string, required bool) (uint32, error) {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		if required {
			return 0, fmt.Errorf("row too short, missing column %q", name)
		}
		return 0, nil
	}
	s := strings.TrimSpace(row[idx])
	if s == "" {
		if required {
			return 0, fmt.Errorf("empty %s value", name)
		}
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, s, err)
	}
	return uint32(v), nil
}
