package backend

// Query types understood by the backend's /api/tsdb/query endpoint.
const (
	TypeTimeSeries = "timeSeriesQuery"
	TypeTable      = "tableQuery"
	TypeTest       = "testDatasource"
)

// ExpandedQuery is one fully substituted query inside a batch.
type ExpandedQuery struct {
	RefID         string `json:"refId"`
	Type          string `json:"type,omitempty"`
	DatasourceID  int64  `json:"datasourceId,omitempty"`
	Query         string `json:"query"`
	RawQuery      string `json:"rawQuery,omitempty"`
	IntervalMs    int64  `json:"intervalMs,omitempty"`
	MaxDataPoints int64  `json:"maxDataPoints,omitempty"`
	Device        string `json:"device,omitempty"`
	Child         string `json:"child,omitempty"`
	Attribute     string `json:"attribute,omitempty"`
	SingleValue   bool   `json:"singleValue,omitempty"`
	OmitParents   bool   `json:"omitParents,omitempty"`
}

// Request is the payload of a single batch round trip.
// From and To are epoch milliseconds rendered as strings.
type Request struct {
	Queries []ExpandedQuery `json:"queries"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to,omitempty"`
}

// Result maps a refId to what the backend produced for it.
type Result struct {
	Results map[string]*ResultEntry `json:"results"`
}

// Entry returns the result for refID, or nil.
func (r *Result) Entry(refID string) *ResultEntry {
	if r == nil || r.Results == nil {
		return nil
	}
	return r.Results[refID]
}

type ResultEntry struct {
	RefID    string       `json:"refId,omitempty"`
	Error    string       `json:"error,omitempty"`
	MetaJSON string       `json:"metaJson,omitempty"`
	Series   []TimeSeries `json:"series,omitempty"`
	Tables   []Table      `json:"tables,omitempty"`
}

// IsTimeSeries reports whether the entry carries at least one series.
// Series take precedence over tables.
func (e *ResultEntry) IsTimeSeries() bool {
	return e != nil && len(e.Series) > 0
}

// IsTable reports whether the entry is a table result.
func (e *ResultEntry) IsTable() bool {
	return e != nil && len(e.Series) == 0 && len(e.Tables) > 0
}

// Point is a [value, timestampMs] pair. Either side may be null.
type Point [2]*float64

// Value returns the sample value, or nil for a gap.
func (p Point) Value() *float64 {
	return p[0]
}

// Timestamp returns the sample time in epoch milliseconds.
func (p Point) Timestamp() (int64, bool) {
	if p[1] == nil {
		return 0, false
	}
	return int64(*p[1]), true
}

type TimeSeries struct {
	Name   string            `json:"name,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
	Points []Point           `json:"points,omitempty"`
}

type Column struct {
	Text string `json:"text"`
}

type Table struct {
	Columns []Column        `json:"columns,omitempty"`
	Rows    [][]interface{} `json:"rows,omitempty"`
}
