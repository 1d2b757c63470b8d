package models

// TimeRange bounds a filter to [FromNs, ToNs]. A zero bound is open.
type TimeRange struct {
	FromNs int64 `json:"from_ns"`
	ToNs   int64 `json:"to_ns"`
}

// Filter is a conjunctive row predicate. Empty sets and zero values leave
// their dimension unconstrained; a non-empty set requires membership. Text,
// when non-empty, requires a case-insensitive substring match against the
// row's payload rendered as JSON. S and F are uint16 for the same JSON
// encoding reason as SessionMeta's distinct sets.
type Filter struct {
	Time  TimeRange `json:"time"`
	Dir   int8      `json:"dir"` // 0 = either direction
	S     []uint16  `json:"s"`
	F     []uint16  `json:"f"`
	CEID  []uint32  `json:"ceid"`
	VID   []uint32  `json:"vid"`
	RPTID []uint32  `json:"rptid"`
	Text  string    `json:"text"`
}

// MatchesColumns reports whether the row passes every column-local
// dimension of the filter. The text dimension is evaluated separately by the
// query engine because it needs the payload store.
func (f *Filter) MatchesColumns(r *Row) bool {
	if f.Dir != 0 && f.Dir != r.Dir {
		return false
	}
	if !containsU16(f.S, uint16(r.S)) || !containsU16(f.F, uint16(r.F)) {
		return false
	}
	if !containsU32(f.CEID, r.CEID) || !containsU32(f.VID, r.VID) || !containsU32(f.RPTID, r.RPTID) {
		return false
	}
	if f.Time.FromNs > 0 && r.TsNs < f.Time.FromNs {
		return false
	}
	if f.Time.ToNs > 0 && r.TsNs > f.Time.ToNs {
		return false
	}
	return true
}

func containsU16(set []uint16, v uint16) bool {
	if len(set) == 0 {
		return true
	}
	for _, m := range set {
		if m == v {
			return true
		}
	}
	return false
}

func containsU32(set []uint32, v uint32) bool {
	if len(set) == 0 {
		return true
	}
	for _, m := range set {
		if m == v {
			return true
		}
	}
	return false
}
