package decode

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ndjsonFixture = `{"ts_iso":"2025-11-03T09:12:14.123Z","dir":"E->H","s":6,"f":11,"wbit":0,"sysbytes":12345,"ceid":201,"body_json":{"secs_tree":{"t":"L","items":[]}}}
{"ts_iso":"2025-11-03T09:12:15.456Z","dir":"H->E","s":1,"f":3,"wbit":1,"sysbytes":12346,"body_json":{"semantic":{"kind":"EventReport"}}}`

func TestNDJSONDecode(t *testing.T) {
	d := &NDJSONDecoder{}

	records, err := d.Decode(strings.NewReader(ndjsonFixture))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, uint8(6), records[0].S)
	assert.Equal(t, uint8(11), records[0].F)
	assert.Equal(t, "E->H", records[0].Dir)
	assert.Equal(t, uint32(201), records[0].CEID)

	// Absent tags default to zero.
	assert.Equal(t, uint32(0), records[1].CEID)
	assert.JSONEq(t, `{"semantic":{"kind":"EventReport"}}`, string(records[1].Body))
}

func TestNDJSONDecodeSkipsBlankLines(t *testing.T) {
	d := &NDJSONDecoder{}
	data := "\n{\"ts_iso\":\"2025-11-03T09:12:14.123Z\",\"dir\":\"E->H\",\"s\":6,\"f\":11,\"wbit\":0,\"sysbytes\":1,\"body_json\":{}}\n\n\n"

	records, err := d.Decode(strings.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestNDJSONDecodeReportsLine(t *testing.T) {
	d := &NDJSONDecoder{}
	data := "{\"ts_iso\":\"2025-11-03T09:12:14.123Z\",\"dir\":\"E->H\",\"s\":6,\"f\":11,\"wbit\":0,\"sysbytes\":1,\"body_json\":{}}\nnot json\n"

	_, err := d.Decode(strings.NewReader(data))
	require.Error(t, err)

	var recErr *RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, 2, recErr.Line)
}

func TestNDJSONDecodeMissingBodyIsHardError(t *testing.T) {
	d := &NDJSONDecoder{}
	data := "{\"ts_iso\":\"2025-11-03T09:12:14.123Z\",\"dir\":\"E->H\",\"s\":6,\"f\":11,\"wbit\":0,\"sysbytes\":1,\"body_json\":{}}\n" +
		"{\"ts_iso\":\"2025-11-03T09:12:15.456Z\",\"dir\":\"H->E\",\"s\":1,\"f\":13,\"wbit\":1,\"sysbytes\":2}\n"

	_, err := d.Decode(strings.NewReader(data))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidBody))

	var recErr *RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, 2, recErr.Line)
}

func TestNDJSONCanDecode(t *testing.T) {
	d := &NDJSONDecoder{}

	assert.True(t, d.CanDecode([]byte(ndjsonFixture)))
	assert.False(t, d.CanDecode([]byte("ts_iso,dir,s,f\n1,2,3,4")))
	assert.False(t, d.CanDecode([]byte("[{\"s\":1}]")))
	// First line must be a complete, valid JSON object on its own.
	assert.False(t, d.CanDecode([]byte("{\"unterminated\":\ntrue}")))
}
