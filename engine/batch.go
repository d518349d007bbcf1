package engine

import (
	"strconv"
	"time"

	"github.com/andydixon/chronoquery/backend"
)

// ExecContext is shared by every target of one execution.
type ExecContext struct {
	Range TimeRange
	// IntervalMs must already be normalized.
	IntervalMs    int64
	MaxDataPoints int64
	ScopedVars    Variables
	DatasourceID  int64
	Location      *time.Location
}

// Batch is the request for one execution plus what is needed to turn
// its result back into frames.
type Batch struct {
	Request *backend.Request

	order   []string
	targets map[string]*Target
	vars    map[string]Variables
}

// Empty reports whether there is nothing to send.
func (b *Batch) Empty() bool {
	return len(b.Request.Queries) == 0
}

// RefIDs lists the refIds in the order they were submitted.
func (b *Batch) RefIDs() []string {
	return append([]string(nil), b.order...)
}

// Target returns the originating target of refID.
func (b *Batch) Target(refID string) (*Target, bool) {
	t, ok := b.targets[refID]
	return t, ok
}

// Variables returns the merged variables refID was expanded with.
func (b *Batch) Variables(refID string) Variables {
	return b.vars[refID]
}

// BuildBatch expands every visible target into one backend query. Hidden
// targets are dropped entirely. RefIDs must be unique within targets.
func BuildBatch(targets []Target, ec ExecContext) *Batch {
	b := &Batch{
		Request: &backend.Request{
			Queries: make([]backend.ExpandedQuery, 0, len(targets)),
			From:    epochMs(ec.Range.From),
			To:      epochMs(ec.Range.To),
		},
		targets: make(map[string]*Target, len(targets)),
		vars:    make(map[string]Variables, len(targets)),
	}

	for i := range targets {
		t := &targets[i]
		if t.Hidden {
			continue
		}
		vars := MergeVariables(ec.ScopedVars, BuildVariables(ec.Range, ec.IntervalMs, t, ec.Location))

		b.Request.Queries = append(b.Request.Queries, backend.ExpandedQuery{
			RefID:         t.RefID,
			Type:          backendType(t.kind()),
			DatasourceID:  ec.DatasourceID,
			Query:         Substitute(t.RawQuery, vars),
			RawQuery:      t.RawQuery,
			IntervalMs:    ec.IntervalMs,
			MaxDataPoints: ec.MaxDataPoints,
			Device:        t.Device,
			Child:         t.Child,
			Attribute:     t.Attribute,
			SingleValue:   t.SingleValue,
			OmitParents:   t.OmitParents,
		})
		b.order = append(b.order, t.RefID)
		b.targets[t.RefID] = t
		b.vars[t.RefID] = vars
	}
	return b
}

func backendType(k QueryKind) string {
	if k == KindTable {
		return backend.TypeTable
	}
	return backend.TypeTimeSeries
}

func epochMs(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return strconv.FormatInt(ts.UnixMilli(), 10)
}
