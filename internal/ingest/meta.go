package ingest

import (
	"math"
	"sort"

	"github.com/secstore/secstore/pkg/models"
)

// MetaCollector incrementally folds rows into session-wide summary
// statistics, independent of chunk boundaries.
type MetaCollector struct {
	rowCount int
	tMinNs   int64
	tMaxNs   int64
	s        map[uint8]struct{}
	f        map[uint8]struct{}
	ceid     map[uint32]struct{}
	vid      map[uint32]struct{}
	rptid    map[uint32]struct{}
}

// NewMetaCollector returns an empty collector. Timestamp bounds start at
// the sentinel extremes and are reported as 0,0 if no row ever arrives.
func NewMetaCollector() *MetaCollector {
	return &MetaCollector{
		tMinNs: math.MaxInt64,
		tMaxNs: math.MinInt64,
		s:      make(map[uint8]struct{}),
		f:      make(map[uint8]struct{}),
		ceid:   make(map[uint32]struct{}),
		vid:    make(map[uint32]struct{}),
		rptid:  make(map[uint32]struct{}),
	}
}

// Update folds one row into the running state. Stream/function codes are
// always collected; the optional tags only when non-zero, since 0 encodes
// "tag absent".
func (m *MetaCollector) Update(row *models.Row) {
	m.rowCount++
	if row.TsNs < m.tMinNs {
		m.tMinNs = row.TsNs
	}
	if row.TsNs > m.tMaxNs {
		m.tMaxNs = row.TsNs
	}
	m.s[row.S] = struct{}{}
	m.f[row.F] = struct{}{}
	if row.CEID > 0 {
		m.ceid[row.CEID] = struct{}{}
	}
	if row.VID > 0 {
		m.vid[row.VID] = struct{}{}
	}
	if row.RPTID > 0 {
		m.rptid[row.RPTID] = struct{}{}
	}
}

// Finalize sorts the distinct sets ascending and returns the session
// metadata.
func (m *MetaCollector) Finalize() models.SessionMeta {
	meta := models.SessionMeta{
		RowCount:      m.rowCount,
		DistinctS:     sortedU8(m.s),
		DistinctF:     sortedU8(m.f),
		DistinctCEID:  sortedU32(m.ceid),
		DistinctVID:   sortedU32(m.vid),
		DistinctRPTID: sortedU32(m.rptid),
	}
	if m.rowCount > 0 {
		meta.TMinNs = m.tMinNs
		meta.TMaxNs = m.tMaxNs
	}
	return meta
}

// sortedU8 widens to uint16 for the wire types in models.
func sortedU8(set map[uint8]struct{}) []uint16 {
	out := make([]uint16, 0, len(set))
	for v := range set {
		out = append(out, uint16(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedU32(set map[uint32]struct{}) []uint32 {
	out := make([]uint32, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
