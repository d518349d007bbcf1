// Package engine expands templated monitoring queries, sends them to the
// backend in one batch and normalizes the results into frames.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/andydixon/chronoquery/backend"
)

var tracer = otel.Tracer("github.com/andydixon/chronoquery/engine")

const (
	probeRefID    = "testDatasource"
	probeQuery    = "mget device __dummy__"
	entitiesRefID = "tableQuery"
)

// Dispatcher executes a batch in a single round trip.
type Dispatcher interface {
	Query(ctx context.Context, req *backend.Request) (*backend.Result, error)
	Probe(ctx context.Context, q backend.ExpandedQuery) error
}

// Options configures an Engine.
type Options struct {
	Dispatcher   Dispatcher
	DatasourceID int64
	// MaxDataPoints is used when a request does not carry its own.
	MaxDataPoints int64
	// Location formats __from_datetime/__to_datetime. Nil keeps the
	// location of the range endpoints.
	Location *time.Location
	Metrics  *Metrics
	Logger   logrus.FieldLogger
}

// Engine is stateless between calls and safe for concurrent use.
type Engine struct {
	dispatcher    Dispatcher
	datasourceID  int64
	maxDataPoints int64
	location      *time.Location
	metrics       *Metrics
	log           logrus.FieldLogger
}

func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Engine{
		dispatcher:    opts.Dispatcher,
		datasourceID:  opts.DatasourceID,
		maxDataPoints: opts.MaxDataPoints,
		location:      opts.Location,
		metrics:       opts.Metrics,
		log:           opts.Logger.WithField("component", "engine"),
	}
}

// Execute runs one query execution: normalize the interval, expand every
// visible target, send the batch and materialize the result. When every
// target is hidden the backend is not contacted. A transport failure
// fails the whole execution; per-refId failures are returned in
// QueryResponse.Errors.
func (e *Engine) Execute(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "engine.Execute")
	defer span.End()

	interval := NormalizeInterval(req.IntervalMs)
	maxPoints := req.MaxDataPoints
	if maxPoints <= 0 {
		maxPoints = e.maxDataPoints
	}

	batch := BuildBatch(req.Targets, ExecContext{
		Range:         req.Range,
		IntervalMs:    interval,
		MaxDataPoints: maxPoints,
		ScopedVars:    req.ScopedVars,
		DatasourceID:  e.datasourceID,
		Location:      e.location,
	})
	span.SetAttributes(
		attribute.Int("chronoquery.targets", len(req.Targets)),
		attribute.Int("chronoquery.queries", len(batch.Request.Queries)),
		attribute.Int64("chronoquery.interval_ms", interval),
	)

	if batch.Empty() {
		e.log.Debug("all targets hidden, skipping backend")
		e.metrics.observeExecution(outcomeEmpty, 0, 0, 0, time.Since(start))
		return &QueryResponse{Frames: []Frame{}}, nil
	}

	for _, q := range batch.Request.Queries {
		e.log.WithField("refId", q.RefID).Debugf("expanded query: %s", q.Query)
	}

	res, err := e.dispatcher.Query(ctx, batch.Request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.metrics.observeExecution(outcomeBackend, len(batch.Request.Queries), 0, 0, time.Since(start))
		return nil, fmt.Errorf("execute %d queries: %w", len(batch.Request.Queries), err)
	}

	for _, refID := range batch.order {
		if err := LegendError(batch.targets[refID], batch.vars[refID]); err != nil {
			e.log.WithField("refId", refID).WithError(err).Debug("legend pattern does not compile, using series names")
		}
	}

	frames, failures := Materialize(res, batch)
	for refID, qe := range failures {
		e.log.WithField("refId", refID).Warnf("query failed: %s", qe.Message)
	}
	e.metrics.observeExecution(outcomeOK, len(batch.Request.Queries), len(frames), len(failures), time.Since(start))

	return &QueryResponse{Frames: frames, Errors: failures}, nil
}

// ResolveEntities runs a picker lookup (e.g. "mlist device *") and returns
// the subject column of the first table. The subject is the Attribute
// column when present, else the Child column, else the first column.
func (e *Engine) ResolveEntities(ctx context.Context, query string, vars Variables) ([]EntityValue, error) {
	ctx, span := tracer.Start(ctx, "engine.ResolveEntities")
	defer span.End()
	e.metrics.observeEntityLookup()

	expanded := Substitute(query, vars)
	res, err := e.dispatcher.Query(ctx, &backend.Request{
		Queries: []backend.ExpandedQuery{{
			RefID:        entitiesRefID,
			Type:         backend.TypeTable,
			DatasourceID: e.datasourceID,
			Query:        expanded,
			RawQuery:     query,
		}},
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("resolve entities %q: %w", expanded, err)
	}

	entry := res.Entry(entitiesRefID)
	if entry == nil {
		return []EntityValue{}, nil
	}
	if entry.Error != "" {
		return nil, &QueryError{RefID: entitiesRefID, Message: entry.Error}
	}
	if len(entry.Tables) == 0 {
		return []EntityValue{}, nil
	}

	table := entry.Tables[0]
	col := subjectColumn(table.Columns)
	out := make([]EntityValue, 0, len(table.Rows))
	for _, row := range table.Rows {
		var text string
		if col < len(row) {
			text = cellText(row[col])
		}
		out = append(out, EntityValue{Text: text, Value: text})
	}
	return out, nil
}

// cellText renders a table cell the way the backend printed it; numbers
// keep their plain digits.
func cellText(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func subjectColumn(cols []backend.Column) int {
	idx := 0
	if len(cols) > 1 && cols[1].Text == "Child" {
		idx = 1
	}
	if len(cols) > 2 && cols[2].Text == "Attribute" {
		idx = 2
	}
	return idx
}

// TestConnection probes the backend. Failures are reported in the result,
// never as an error.
func (e *Engine) TestConnection(ctx context.Context) HealthResult {
	ctx, span := tracer.Start(ctx, "engine.TestConnection")
	defer span.End()

	err := e.dispatcher.Probe(ctx, backend.ExpandedQuery{
		RefID:        probeRefID,
		Type:         backend.TypeTest,
		DatasourceID: e.datasourceID,
		Query:        probeQuery,
	})
	if err != nil {
		span.RecordError(err)
		msg := err.Error()
		var be *backend.BackendError
		if errors.As(err, &be) {
			msg = be.Message
		}
		e.log.WithError(err).Warn("connection test failed")
		return HealthResult{Status: HealthError, Message: msg}
	}
	return HealthResult{Status: HealthOK, Message: "Success"}
}

// InterpolateQueries expands each target's query with vars only, without
// any reserved variables. Hidden targets are kept.
func (e *Engine) InterpolateQueries(targets []Target, vars Variables) []InterpolatedQuery {
	out := make([]InterpolatedQuery, len(targets))
	for i, t := range targets {
		out[i] = InterpolatedQuery{Target: t, Query: Substitute(t.RawQuery, vars)}
	}
	return out
}
