package ingest

import (
	"errors"
	"testing"

	"github.com/secstore/secstore/internal/decode"
	"github.com/secstore/secstore/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	rec := decode.Record{
		TsISO:    "2025-03-14T09:26:53.589793238Z",
		Dir:      "E->H",
		S:        6,
		F:        11,
		WBit:     1,
		SysBytes: 4242,
		CEID:     1001,
	}

	row, err := Normalize(&rec, 7)
	require.NoError(t, err)

	assert.Equal(t, int64(1741944413589793238), row.TsNs)
	assert.Equal(t, models.DirEquipmentToHost, row.Dir)
	assert.Equal(t, uint8(6), row.S)
	assert.Equal(t, uint8(11), row.F)
	assert.Equal(t, uint8(1), row.WBit)
	assert.Equal(t, uint32(4242), row.SysBytes)
	assert.Equal(t, uint32(1001), row.CEID)
	assert.Equal(t, uint32(0), row.VID)
	assert.Equal(t, uint32(7), row.RowID)
}

func TestNormalizeTimestampOrdering(t *testing.T) {
	// Nanosecond conversion must preserve the order of the source instants.
	isoTimes := []string{
		"2025-01-01T00:00:00Z",
		"2025-01-01T00:00:00.000000001Z",
		"2025-01-01T00:00:01Z",
		"2025-06-30T23:59:59.999999999+02:00",
		"2025-07-01T00:00:00+02:00",
	}
	var prev int64
	for i, iso := range isoTimes {
		row, err := Normalize(&decode.Record{TsISO: iso, Dir: "H->E"}, uint32(i))
		require.NoError(t, err, iso)
		if i > 0 {
			assert.Greater(t, row.TsNs, prev, iso)
		}
		prev = row.TsNs
	}
}

func TestNormalizeOffsetTimestamp(t *testing.T) {
	utc, err := Normalize(&decode.Record{TsISO: "2025-03-14T08:00:00Z", Dir: "H->E"}, 0)
	require.NoError(t, err)
	offset, err := Normalize(&decode.Record{TsISO: "2025-03-14T09:00:00+01:00", Dir: "H->E"}, 0)
	require.NoError(t, err)
	assert.Equal(t, utc.TsNs, offset.TsNs)
}

func TestNormalizeDirections(t *testing.T) {
	he, err := Normalize(&decode.Record{TsISO: "2025-01-01T00:00:00Z", Dir: "H->E"}, 0)
	require.NoError(t, err)
	eh, err := Normalize(&decode.Record{TsISO: "2025-01-01T00:00:00Z", Dir: "E->H"}, 0)
	require.NoError(t, err)

	assert.Equal(t, int8(1), he.Dir)
	assert.Equal(t, int8(-1), eh.Dir)
	assert.NotEqual(t, he.Dir, eh.Dir)
}

func TestNormalizeInvalidTimestamp(t *testing.T) {
	for _, iso := range []string{"", "yesterday", "2025-13-40T99:00:00Z", "1741944413"} {
		_, err := Normalize(&decode.Record{TsISO: iso, Dir: "H->E"}, 0)
		require.Error(t, err, iso)
		assert.True(t, errors.Is(err, ErrInvalidTimestamp), iso)
	}
}

func TestNormalizeInvalidDirection(t *testing.T) {
	for _, dir := range []string{"", "H<->E", "up", "h->e"} {
		_, err := Normalize(&decode.Record{TsISO: "2025-01-01T00:00:00Z", Dir: dir}, 0)
		require.Error(t, err, dir)
		assert.True(t, errors.Is(err, ErrInvalidDirection), dir)
	}
}
