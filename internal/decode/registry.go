package decode

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultSampleSize is how many bytes are sniffed for format detection.
const DefaultSampleSize = 512

// Registry owns the set of available decoders and resolves one by logical
// name, filename hint, or content sniffing.
type Registry struct {
	decoders   []Decoder
	sampleSize int
	logger     zerolog.Logger
}

// NewRegistry creates a registry pre-populated with the built-in decoders.
// sampleSize bounds the sniffing prefix; values <= 0 use DefaultSampleSize.
func NewRegistry(sampleSize int, logger zerolog.Logger) *Registry {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	r := &Registry{
		sampleSize: sampleSize,
		logger:     logger.With().Str("component", "decode-registry").Logger(),
	}
	for _, d := range builtinDecoders() {
		r.Register(d)
	}
	return r
}

// builtinDecoders returns the built-in decoder set. Adding a format means
// one implementation file plus one entry here.
func builtinDecoders() []Decoder {
	return []Decoder{
		&NDJSONDecoder{},
		&CSVDecoder{},
		&JSONDecoder{},
	}
}

// Register appends a decoder. Registration is additive; built-ins are never
// replaced.
func (r *Registry) Register(d Decoder) {
	r.logger.Debug().
		Str("decoder", d.Name()).
		Strs("extensions", d.Extensions()).
		Msg("Registered decoder")
	r.decoders = append(r.decoders, d)
}

// ByName returns the decoder with the given logical name, or nil.
func (r *Registry) ByName(name string) Decoder {
	for _, d := range r.decoders {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

// ByExtension returns the first decoder claiming the given file extension
// (without the dot), or nil.
func (r *Registry) ByExtension(ext string) Decoder {
	for _, d := range r.decoders {
		for _, e := range d.Extensions() {
			if e == ext {
				return d
			}
		}
	}
	return nil
}

// DecodeWithHint decodes using the decoder matching the filename's
// extension, falling back to auto-detection when no decoder claims it.
func (r *Registry) DecodeWithHint(reader io.Reader, filename string) ([]Record, error) {
	ext := ""
	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		ext = filename[idx+1:]
	}

	if d := r.ByExtension(ext); d != nil {
		r.logger.Debug().
			Str("decoder", d.Name()).
			Str("filename", filename).
			Msg("Resolved decoder by extension")
		return d.Decode(reader)
	}

	r.logger.Debug().
		Str("filename", filename).
		Msg("No decoder for extension, falling back to auto-detection")
	return r.DecodeAuto(reader)
}

// DecodeAuto sniffs a sample, picks a decoder, and decodes the full stream.
// The sampled prefix is replayed ahead of the remaining source so decoders
// always see the stream from its first byte.
func (r *Registry) DecodeAuto(reader io.Reader) ([]Record, error) {
	sample := make([]byte, r.sampleSize)
	n, err := io.ReadFull(reader, sample)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read detection sample: %w", err)
	}
	sample = sample[:n]

	var d Decoder
	if format := DetectFormat(sample); format != FormatUnknown {
		d = r.ByName(format.String())
	} else {
		for _, candidate := range r.decoders {
			if candidate.CanDecode(sample) {
				d = candidate
				break
			}
		}
	}
	if d == nil {
		return nil, ErrFormatUndetected
	}

	r.logger.Debug().Str("decoder", d.Name()).Int("sample_bytes", n).Msg("Resolved decoder by content")
	return d.Decode(io.MultiReader(bytes.NewReader(sample), reader))
}
