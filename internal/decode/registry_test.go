package decode

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(DefaultSampleSize, zerolog.Nop())
}

func TestRegistryByName(t *testing.T) {
	r := newTestRegistry()

	for _, name := range []string{"csv", "ndjson", "json"} {
		d := r.ByName(name)
		require.NotNil(t, d, "decoder %s", name)
		assert.Equal(t, name, d.Name())
	}
	assert.Nil(t, r.ByName("xml"))
}

func TestRegistryByExtension(t *testing.T) {
	r := newTestRegistry()

	assert.Equal(t, "csv", r.ByExtension("csv").Name())
	assert.Equal(t, "ndjson", r.ByExtension("jsonl").Name())
	assert.Equal(t, "ndjson", r.ByExtension("ndjson").Name())
	assert.Equal(t, "json", r.ByExtension("json").Name())
	assert.Nil(t, r.ByExtension("txt"))
}

func TestRegistryDecodeAutoNDJSON(t *testing.T) {
	r := newTestRegistry()

	records, err := r.DecodeAuto(strings.NewReader(ndjsonFixture))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint8(6), records[0].S)
}

func TestRegistryDecodeAutoCSV(t *testing.T) {
	r := newTestRegistry()

	records, err := r.DecodeAuto(strings.NewReader(csvFixture))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "E->H", records[0].Dir)
}

func TestRegistryDecodeAutoJSONArray(t *testing.T) {
	r := newTestRegistry()

	records, err := r.DecodeAuto(strings.NewReader(jsonFixture))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRegistryDecodeWithHint(t *testing.T) {
	r := newTestRegistry()

	records, err := r.DecodeWithHint(strings.NewReader(csvFixture), "trace.csv")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint8(6), records[0].S)
}

func TestRegistryDecodeWithHintFallsBackToAuto(t *testing.T) {
	r := newTestRegistry()

	// .log is not claimed by any decoder; content sniffing must kick in.
	records, err := r.DecodeWithHint(strings.NewReader(ndjsonFixture), "trace.log")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRegistryDecodeAutoUndetected(t *testing.T) {
	r := newTestRegistry()

	_, err := r.DecodeAuto(strings.NewReader("this is not any known format\nat all"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormatUndetected))
}

// The sniffed prefix must be replayed: a sample size that cuts the second
// record in half still has to decode both records in full.
func TestRegistrySampleReplay(t *testing.T) {
	r := NewRegistry(160, zerolog.Nop())

	records, err := r.DecodeAuto(strings.NewReader(ndjsonFixture))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint32(12346), records[1].SysBytes)
}

type fakeDecoder struct {
	name string
}

func (f *fakeDecoder) Name() string                  { return f.name }
func (f *fakeDecoder) Extensions() []string          { return []string{"fake"} }
func (f *fakeDecoder) CanDecode(sample []byte) bool  { return strings.HasPrefix(string(sample), "FAKE") }
func (f *fakeDecoder) Decode(r io.Reader) ([]Record, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	return []Record{{TsISO: "2025-01-01T00:00:00Z", Dir: "H->E"}}, nil
}

func TestRegistryRegisterCustom(t *testing.T) {
	r := newTestRegistry()
	r.Register(&fakeDecoder{name: "fake"})

	records, err := r.DecodeAuto(strings.NewReader("FAKE payload"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "H->E", records[0].Dir)
}
