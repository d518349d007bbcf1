package engine

import (
	"github.com/andydixon/chronoquery/backend"
)

// Materialize turns a backend result into frames, in batch order.
//
// RefIDs the batch did not send are ignored. An entry with an error
// produces a *QueryError instead of a frame; an entry with neither series
// nor tables produces nothing.
func Materialize(res *backend.Result, b *Batch) ([]Frame, map[string]*QueryError) {
	frames := make([]Frame, 0, len(b.order))
	var failures map[string]*QueryError

	for i, refID := range b.order {
		entry := res.Entry(refID)
		if entry == nil {
			continue
		}
		if entry.Error != "" {
			if failures == nil {
				failures = make(map[string]*QueryError)
			}
			failures[refID] = &QueryError{RefID: refID, Message: entry.Error}
			continue
		}

		var fields []Field
		switch {
		case entry.IsTimeSeries():
			fields = timeSeriesFields(entry.Series, b.targets[refID], b.vars[refID])
		case entry.IsTable():
			fields = tableFields(entry.Tables[0])
		default:
			continue
		}

		frames = append(frames, Frame{
			RefID:  refID,
			Fields: fields,
			Meta:   &FrameMeta{ExecutedQueryString: b.Request.Queries[i].Query},
		})
	}
	return frames, failures
}

// timeSeriesFields emits one number field per series followed by a
// single time field. Series of one result are co-sampled by the backend,
// so only the first series' timestamps are used.
func timeSeriesFields(series []backend.TimeSeries, t *Target, vars Variables) []Field {
	fields := make([]Field, 0, len(series)+1)
	for _, s := range series {
		values := make([]interface{}, len(s.Points))
		for i, p := range s.Points {
			if v := p.Value(); v != nil {
				values[i] = *v
			}
		}
		fields = append(fields, Field{
			Kind:   FieldNumber,
			Name:   FormatLegend(t, s.Name, vars),
			Unit:   InferUnit(s.Name),
			Values: values,
		})
	}

	first := series[0].Points
	times := make([]interface{}, len(first))
	for i, p := range first {
		if ts, ok := p.Timestamp(); ok {
			times[i] = ts
		}
	}
	fields = append(fields, Field{Kind: FieldTime, Name: "Time", Values: times})
	return fields
}

// tableFields emits one field per column. Only a leading "Value" column
// is numeric.
func tableFields(tbl backend.Table) []Field {
	fields := make([]Field, len(tbl.Columns))
	for ci, col := range tbl.Columns {
		kind := FieldString
		if ci == 0 && col.Text == "Value" {
			kind = FieldNumber
		}
		values := make([]interface{}, len(tbl.Rows))
		for ri, row := range tbl.Rows {
			if ci < len(row) {
				values[ri] = row[ci]
			}
		}
		fields[ci] = Field{Kind: kind, Name: col.Text, Values: values}
	}
	return fields
}
