package ingest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/secstore/secstore/internal/decode"
	"github.com/secstore/secstore/pkg/models"
)

var (
	// ErrInvalidTimestamp indicates a record timestamp that is not valid
	// RFC 3339 or falls outside the nanosecond-representable range.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrInvalidDirection indicates a direction string other than "H->E"
	// or "E->H".
	ErrInvalidDirection = errors.New("invalid direction")
)

// time.UnixNano is only defined within this window.
var (
	minNanoTime = time.Unix(0, math.MinInt64).UTC()
	maxNanoTime = time.Unix(0, math.MaxInt64).UTC()
)

// Normalize converts a decoded record into a fixed-width row. rowID is the
// caller's ingestion-order counter; it is never derived from record content,
// which keeps row identifiers dense and strictly increasing even when input
// timestamps are unsorted.
func Normalize(rec *decode.Record, rowID uint32) (models.Row, error) {
	ts, err := time.Parse(time.RFC3339Nano, rec.TsISO)
	if err != nil {
		return models.Row{}, fmt.Errorf("%w: %q: %v", ErrInvalidTimestamp, rec.TsISO, err)
	}
	if ts.Before(minNanoTime) || ts.After(maxNanoTime) {
		return models.Row{}, fmt.Errorf("%w: %q out of range", ErrInvalidTimestamp, rec.TsISO)
	}

	var dir int8
	switch rec.Dir {
	case "H->E":
		dir = models.DirHostToEquipment
	case "E->H":
		dir = models.DirEquipmentToHost
	default:
		return models.Row{}, fmt.Errorf("%w: %q", ErrInvalidDirection, rec.Dir)
	}

	return models.Row{
		TsNs:     ts.UnixNano(),
		Dir:      dir,
		S:        rec.S,
		F:        rec.F,
		WBit:     rec.WBit,
		SysBytes: rec.SysBytes,
		CEID:     rec.CEID,
		VID:      rec.VID,
		RPTID:    rec.RPTID,
		RowID:    rowID,
	}, nil
}
