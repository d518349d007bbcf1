package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// QueryKind selects how a target's result is shaped.
type QueryKind string

const (
	KindTimeSeries QueryKind = "time_series"
	KindTable      QueryKind = "table"
)

// Target is one user-authored query plus its display options.
type Target struct {
	RefID         string    `json:"refId"`
	RawQuery      string    `json:"rawQuery"`
	Kind          QueryKind `json:"kind,omitempty"`
	Device        string    `json:"device,omitempty"`
	Child         string    `json:"child,omitempty"`
	Attribute     string    `json:"attribute,omitempty"`
	SingleValue   bool      `json:"singleValue,omitempty"`
	OmitParents   bool      `json:"omitParents,omitempty"`
	LegendFormat  string    `json:"legendFormat,omitempty"`
	LegendIsRegex bool      `json:"legendIsRegex,omitempty"`
	Hidden        bool      `json:"hidden,omitempty"`
}

// UnmarshalJSON accepts the older field names still sent by saved
// dashboards: query, hide, legendRegex and type.
func (t *Target) UnmarshalJSON(b []byte) error {
	type plain Target
	var aux struct {
		plain
		Query       string `json:"query"`
		Hide        bool   `json:"hide"`
		LegendRegex bool   `json:"legendRegex"`
		Type        string `json:"type"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*t = Target(aux.plain)
	if t.RawQuery == "" {
		t.RawQuery = aux.Query
	}
	t.Hidden = t.Hidden || aux.Hide
	t.LegendIsRegex = t.LegendIsRegex || aux.LegendRegex
	if t.Kind == "" {
		t.Kind = kindFromType(aux.Type)
	}
	return nil
}

// DisplayText is the query text shown for a target in lists and history.
func (t Target) DisplayText() string {
	return t.RawQuery
}

func (t Target) kind() QueryKind {
	if t.Kind == KindTable {
		return KindTable
	}
	return KindTimeSeries
}

func kindFromType(typ string) QueryKind {
	switch typ {
	case "table", "tableQuery":
		return KindTable
	case "time_series", "timeSeriesQuery":
		return KindTimeSeries
	}
	return ""
}

// TimeRange is the dashboard range for one execution.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Variable is a named value available to template substitution.
type Variable struct {
	Text  string      `json:"text"`
	Value interface{} `json:"value"`
}

// String is the substitution form: Text, falling back to Value.
func (v Variable) String() string {
	if v.Text != "" || v.Value == nil {
		return v.Text
	}
	return fmt.Sprint(v.Value)
}

// Variables maps names to values for one execution.
type Variables map[string]Variable

// FieldKind is the type of a frame field.
type FieldKind string

const (
	FieldNumber FieldKind = "number"
	FieldTime   FieldKind = "time"
	FieldString FieldKind = "string"
)

// Field is one column of a frame. Number values are float64 or nil,
// time values are epoch milliseconds (int64) or nil.
type Field struct {
	Kind   FieldKind     `json:"type"`
	Name   string        `json:"name"`
	Unit   string        `json:"unit,omitempty"`
	Values []interface{} `json:"values"`
}

type FrameMeta struct {
	ExecutedQueryString string `json:"executedQueryString,omitempty"`
}

// Frame is the normalized output for one refId.
type Frame struct {
	RefID  string     `json:"refId"`
	Fields []Field    `json:"fields"`
	Meta   *FrameMeta `json:"meta,omitempty"`
}

// QueryRequest is the input of Engine.Execute.
type QueryRequest struct {
	Targets       []Target
	Range         TimeRange
	IntervalMs    int64
	MaxDataPoints int64
	ScopedVars    Variables
}

// QueryResponse carries the frames of every successful refId and the
// per-refId failures reported by the backend.
type QueryResponse struct {
	Frames []Frame                `json:"frames"`
	Errors map[string]*QueryError `json:"errors,omitempty"`
}

// EntityValue is one option for a device/child/attribute picker.
type EntityValue struct {
	Text  string `json:"text"`
	Value string `json:"value,omitempty"`
}

// HealthResult is the outcome of a connectivity probe.
type HealthResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

const (
	HealthOK    = "success"
	HealthError = "error"
)

// InterpolatedQuery is a target together with its expanded query text.
type InterpolatedQuery struct {
	Target Target `json:"target"`
	Query  string `json:"query"`
}
