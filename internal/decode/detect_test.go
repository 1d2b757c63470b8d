package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		sample   string
		expected Format
	}{
		{
			name:     "csv header",
			sample:   "ts_iso,dir,s,f,wbit,sysbytes,ceid,body_json\n2025-11-03T09:12:14.123Z,E->H,6,11,0,12345,201,\"{}\"",
			expected: FormatCSV,
		},
		{
			name:     "csv by dir column",
			sample:   "timestamp,dir,s,f\n1,E->H,6,11",
			expected: FormatCSV,
		},
		{
			name:     "ndjson two lines",
			sample:   "{\"ts_iso\":\"2025-11-03T09:12:14.123Z\"}\n{\"ts_iso\":\"2025-11-03T09:12:15.456Z\"}",
			expected: FormatNDJSON,
		},
		{
			name:     "json array",
			sample:   "[\n  {\"ts_iso\":\"2025-11-03T09:12:14.123Z\"}\n]",
			expected: FormatJSON,
		},
		{
			name:     "single json object is not ndjson",
			sample:   "{\"ts_iso\":\"2025-11-03T09:12:14.123Z\"}",
			expected: FormatUnknown,
		},
		{
			name:     "csv with json body column wins over ndjson",
			sample:   "ts_iso,dir,s,f,wbit,sysbytes,ceid,body_json\n2025-11-03T09:12:14.123Z,E->H,6,11,0,12345,201,\"{\"\"t\"\":\"\"L\"\"}\"",
			expected: FormatCSV,
		},
		{
			name:     "plain text",
			sample:   "hello world\nsecond line",
			expected: FormatUnknown,
		},
		{
			name:     "empty",
			sample:   "",
			expected: FormatUnknown,
		},
		{
			name:     "leading whitespace array",
			sample:   "   \n\t[{\"s\":1}]",
			expected: FormatJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectFormat([]byte(tt.sample)))
		})
	}
}
