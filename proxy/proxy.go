package proxy

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/andydixon/chronoquery/engine"
)

// QueryProxy exposes the engine over HTTP.
type QueryProxy struct {
	engine  *engine.Engine
	metrics http.Handler
	log     logrus.FieldLogger
}

// NewQueryProxy wires the engine and, when gatherer is non-nil, the
// /metrics endpoint.
func NewQueryProxy(e *engine.Engine, gatherer prometheus.Gatherer, log logrus.FieldLogger) *QueryProxy {
	if log == nil {
		log = logrus.StandardLogger()
	}
	p := &QueryProxy{
		engine: e,
		log:    log.WithField("component", "proxy"),
	}
	if gatherer != nil {
		p.metrics = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	return p
}

// ServeHTTP dispatches to handlers.
func (p *QueryProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	getOrPost := r.Method == http.MethodGet || r.Method == http.MethodPost

	switch {
	case path == "/api/query" && getOrPost:
		p.handleQuery(w, r)

	case path == "/api/entities" && getOrPost:
		p.handleEntities(w, r)

	case path == "/api/interpolate" && r.Method == http.MethodPost:
		p.handleInterpolate(w, r)

	case path == "/api/health" && r.Method == http.MethodGet:
		p.handleHealth(w, r)

	case path == "/metrics" && r.Method == http.MethodGet && p.metrics != nil:
		p.metrics.ServeHTTP(w, r)

	default:
		if DebugMode {
			p.log.Debugf("no route for %s %s", r.Method, r.URL.Path)
		}
		writeError(w, http.StatusNotFound, "not found")
	}
}
