package models

// Direction codes as stored in the dir column. 0 never appears in stored
// rows; it is reserved for "either direction" in Filter.
const (
	DirHostToEquipment int8 = 1  // "H->E"
	DirEquipmentToHost int8 = -1 // "E->H"
)

// Row is one normalized message event in the fixed columnar schema.
// Rows are written once at ingestion and never mutated. RowID is dense and
// strictly increasing in ingestion order within a session; it is not derived
// from the timestamp, since input files are not required to be time-sorted.
type Row struct {
	TsNs     int64  `json:"ts_ns"`
	Dir      int8   `json:"dir"`
	S        uint8  `json:"s"`
	F        uint8  `json:"f"`
	WBit     uint8  `json:"wbit"`
	SysBytes uint32 `json:"sysbytes"`
	CEID     uint32 `json:"ceid"`
	VID      uint32 `json:"vid"`
	RPTID    uint32 `json:"rptid"`
	RowID    uint32 `json:"row_id"`
}

// SessionMeta is the aggregate summary for one fully ingested session.
// Distinct sets are sorted ascending; the optional tag sets (ceid, vid,
// rptid) never contain 0, which encodes "tag absent" in the source data.
// Stream/function codes travel as uint16 here because []uint8 is []byte to
// the JSON encoder and would marshal as base64 instead of a numeric array.
type SessionMeta struct {
	RowCount      int      `json:"row_count"`
	TMinNs        int64    `json:"t_min_ns"`
	TMaxNs        int64    `json:"t_max_ns"`
	DistinctS     []uint16 `json:"distinct_s"`
	DistinctF     []uint16 `json:"distinct_f"`
	DistinctCEID  []uint32 `json:"distinct_ceid"`
	DistinctVID   []uint32 `json:"distinct_vid"`
	DistinctRPTID []uint32 `json:"distinct_rptid"`
}
