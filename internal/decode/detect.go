package decode

import "strings"

// Format is a best-guess content format derived from a byte sample.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatNDJSON
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatNDJSON:
		return "ndjson"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// DetectFormat inspects a sample (a bounded prefix of the stream) and
// returns a format guess from syntactic cues alone.
//
// The checks are order-sensitive: CSV must be tested first because a CSV row
// whose body column carries JSON can itself start with '{' and would
// otherwise be taken for NDJSON.
func DetectFormat(sample []byte) Format {
	trimmed := strings.TrimSpace(string(sample))

	if strings.HasPrefix(trimmed, "ts_iso,") || strings.Contains(trimmed, ",dir,") {
		return FormatCSV
	}

	if strings.HasPrefix(trimmed, "{") {
		if first, rest, found := strings.Cut(trimmed, "\n"); found && rest != "" {
			if strings.HasSuffix(strings.TrimRight(first, " \t\r"), "}") {
				return FormatNDJSON
			}
		}
	}

	if strings.HasPrefix(trimmed, "[") {
		return FormatJSON
	}

	return FormatUnknown
}
