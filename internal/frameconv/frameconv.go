// Package frameconv converts engine frames to Grafana plugin SDK data
// frames for hosts that consume the dataframe wire format.
package frameconv

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/grafana/grafana-plugin-sdk-go/data"

	"github.com/andydixon/chronoquery/engine"
)

// ToDataFrames converts frames in order.
func ToDataFrames(frames []engine.Frame) data.Frames {
	out := make(data.Frames, 0, len(frames))
	for _, f := range frames {
		out = append(out, ToDataFrame(f))
	}
	return out
}

// ToDataFrame converts one frame. Number fields become nullable float64,
// time fields nullable time, everything else nullable string.
func ToDataFrame(f engine.Frame) *data.Frame {
	frame := data.NewFrame(f.RefID)
	frame.RefID = f.RefID

	for _, fld := range f.Fields {
		var field *data.Field
		switch fld.Kind {
		case engine.FieldNumber:
			vals := make([]*float64, len(fld.Values))
			for i, v := range fld.Values {
				vals[i] = toFloat(v)
			}
			field = data.NewField(fld.Name, nil, vals)
		case engine.FieldTime:
			vals := make([]*time.Time, len(fld.Values))
			for i, v := range fld.Values {
				vals[i] = toTime(v)
			}
			field = data.NewField(fld.Name, nil, vals)
		default:
			vals := make([]*string, len(fld.Values))
			for i, v := range fld.Values {
				vals[i] = toString(v)
			}
			field = data.NewField(fld.Name, nil, vals)
		}
		if fld.Unit != "" {
			field.Config = &data.FieldConfig{Unit: fld.Unit}
		}
		frame.Fields = append(frame.Fields, field)
	}

	if f.Meta != nil {
		frame.Meta = &data.FrameMeta{ExecutedQueryString: f.Meta.ExecutedQueryString}
	}
	return frame
}

func toFloat(v interface{}) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		p, err := n.Float64()
		if err != nil {
			return nil
		}
		f = p
	case string:
		p, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil
		}
		f = p
	default:
		return nil
	}
	return &f
}

// toTime reads epoch milliseconds.
func toTime(v interface{}) *time.Time {
	var ms int64
	switch n := v.(type) {
	case int64:
		ms = n
	case float64:
		ms = int64(n)
	case int:
		ms = int64(n)
	default:
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func toString(v interface{}) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s = x
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		s = string(b)
	}
	return &s
}
