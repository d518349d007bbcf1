package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/andydixon/chronoquery/backend"
	"github.com/andydixon/chronoquery/engine"
	"github.com/andydixon/chronoquery/internal/frameconv"
)

const formatDataFrame = "dataframe"

// timeParam accepts a JSON string or number.
type timeParam string

func (tp *timeParam) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*tp = timeParam(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*tp = timeParam(n.String())
	return nil
}

type rangeBody struct {
	From timeParam `json:"from"`
	To   timeParam `json:"to"`
}

type queryBody struct {
	Targets       []engine.Target  `json:"targets"`
	Range         rangeBody        `json:"range"`
	IntervalMs    int64            `json:"intervalMs"`
	MaxDataPoints int64            `json:"maxDataPoints"`
	ScopedVars    engine.Variables `json:"scopedVars"`
	Format        string           `json:"format"`
}

type interpolateBody struct {
	Targets    []engine.Target  `json:"targets"`
	ScopedVars engine.Variables `json:"scopedVars"`
}

// handleQuery implements /api/query. JSON POST carries full targets; GET
// and form POST describe a single target with query parameters.
func (p *QueryProxy) handleQuery(w http.ResponseWriter, r *http.Request) {
	if DebugMode {
		p.log.Debugf("handleQuery: %s %s", r.Method, r.URL.Path)
	}

	var (
		body queryBody
		err  error
	)
	if r.Method == http.MethodPost && isJSON(r) {
		err = decodeBody(r, &body)
	} else {
		body, err = queryFromParams(parseClientParams(r))
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f := r.URL.Query().Get("format"); f != "" {
		body.Format = f
	}

	req, err := body.toRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := p.engine.Execute(r.Context(), req)
	if err != nil {
		p.log.WithError(err).Error("query execution failed")
		writeError(w, statusFor(err), err.Error())
		return
	}

	if DebugMode {
		p.log.Debugf("handleQuery: %d frames, %d errors", len(resp.Frames), len(resp.Errors))
	}

	if body.Format == formatDataFrame {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"frames": frameconv.ToDataFrames(resp.Frames),
			"errors": resp.Errors,
		})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEntities implements /api/entities. Either an explicit query or a
// device/child selector picks the lookup; var-* parameters are substituted.
func (p *QueryProxy) handleEntities(w http.ResponseWriter, r *http.Request) {
	params := parseClientParams(r)
	query := params.Get("query")
	if query == "" {
		query = engine.EntityQuery(params.Get("device"), params.Get("child"))
	}

	if DebugMode {
		p.log.Debugf("handleEntities: query=%q", query)
	}

	values, err := p.engine.ResolveEntities(r.Context(), query, variablesFromParams(params))
	if err != nil {
		p.log.WithError(err).Warn("entity lookup failed")
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// handleInterpolate implements /api/interpolate.
func (p *QueryProxy) handleInterpolate(w http.ResponseWriter, r *http.Request) {
	var body interpolateBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p.engine.InterpolateQueries(body.Targets, body.ScopedVars))
}

// handleHealth implements /api/health.
func (p *QueryProxy) handleHealth(w http.ResponseWriter, r *http.Request) {
	res := p.engine.TestConnection(r.Context())
	status := http.StatusOK
	if res.Status != engine.HealthOK {
		status = http.StatusServiceUnavailable
	}
	writeJSONRaw(w, status, res)
}

func queryFromParams(vals map[string][]string) (queryBody, error) {
	get := func(k string) string {
		if vs := vals[k]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	var body queryBody
	var err error
	if body.IntervalMs, err = parseInt(get("intervalMs")); err != nil {
		return body, err
	}
	if body.MaxDataPoints, err = parseInt(get("maxDataPoints")); err != nil {
		return body, err
	}
	body.Range = rangeBody{From: timeParam(get("from")), To: timeParam(get("to"))}
	body.Format = get("format")
	body.ScopedVars = variablesFromParams(vals)

	query := get("query")
	if query == "" {
		return body, errors.New("missing query parameter")
	}
	refID := get("refId")
	if refID == "" {
		refID = "A"
	}
	body.Targets = []engine.Target{{
		RefID:         refID,
		RawQuery:      query,
		Kind:          engine.QueryKind(get("kind")),
		Device:        get("device"),
		Child:         get("child"),
		Attribute:     get("attribute"),
		SingleValue:   get("singleValue") == "true",
		OmitParents:   get("omitParents") == "true",
		LegendFormat:  get("legendFormat"),
		LegendIsRegex: get("legendIsRegex") == "true",
		Hidden:        get("hidden") == "true",
	}}
	return body, nil
}

func (b queryBody) toRequest() (*engine.QueryRequest, error) {
	from, err := parseTime(string(b.Range.From))
	if err != nil {
		return nil, fmt.Errorf("range.from: %w", err)
	}
	to, err := parseTime(string(b.Range.To))
	if err != nil {
		return nil, fmt.Errorf("range.to: %w", err)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, errors.New("range.to is before range.from")
	}
	return &engine.QueryRequest{
		Targets:       b.Targets,
		Range:         engine.TimeRange{From: from, To: to},
		IntervalMs:    b.IntervalMs,
		MaxDataPoints: b.MaxDataPoints,
		ScopedVars:    b.ScopedVars,
	}, nil
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrQuery):
		return http.StatusUnprocessableEntity
	case errors.Is(err, backend.ErrBackend):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
