package backend

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	QueryEndpoint = "/api/tsdb/query"

	defaultTimeout     = 30 * time.Second
	defaultMaxFailures = 5
	defaultOpenTimeout = 30 * time.Second
)

var tracer = otel.Tracer("github.com/andydixon/chronoquery/backend")

// Options configures a Client.
type Options struct {
	URL       string
	Username  string
	Password  string
	Timeout   time.Duration
	VerifySSL bool

	// MaxFailures consecutive failed round trips open the breaker for
	// OpenTimeout. Rejections by the backend (4xx) do not count.
	MaxFailures uint32
	OpenTimeout time.Duration

	// HTTPClient overrides the client built from Timeout/VerifySSL.
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// Client sends query batches to the backend, one POST per batch.
type Client struct {
	endpoint   string
	username   string
	password   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        logrus.FieldLogger
}

// NewClient creates a Client for the backend at opts.URL.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = defaultMaxFailures
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = defaultOpenTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: !opts.VerifySSL},
			},
			Timeout: opts.Timeout,
		}
	}

	log := opts.Logger.WithField("component", "backend")
	maxFailures := opts.MaxFailures

	return &Client{
		endpoint:   strings.TrimRight(opts.URL, "/") + QueryEndpoint,
		username:   opts.Username,
		password:   opts.Password,
		httpClient: client,
		log:        log,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "backend",
			Timeout: opts.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			IsSuccessful: func(err error) bool {
				if err == nil || errors.Is(err, context.Canceled) {
					return true
				}
				var be *BackendError
				return errors.As(err, &be) && be.clientSide()
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warnf("circuit %s: %s -> %s", name, from, to)
			},
		}),
	}
}

// Query executes the whole batch in one round trip. Every failure comes
// back as a *BackendError.
func (c *Client) Query(ctx context.Context, req *Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "backend.Query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("chronoquery.queries", len(req.Queries))),
	)
	defer span.End()

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, req)
	})
	if err != nil {
		be := asBackendError(err)
		span.RecordError(be)
		span.SetStatus(codes.Error, be.Message)
		c.log.WithError(err).Debugf("batch of %d queries failed", len(req.Queries))
		return nil, be
	}
	return out.(*Result), nil
}

// Probe sends a single minimal query and only reports whether the round
// trip succeeded. The payload is not inspected.
func (c *Client) Probe(ctx context.Context, q ExpandedQuery) error {
	_, err := c.Query(ctx, &Request{Queries: []ExpandedQuery{q}})
	return err
}

func (c *Client) post(ctx context.Context, req *Request) (*Result, error) {
	var res Result
	rb := requests.URL(c.endpoint).
		Client(c.httpClient).
		BodyJSON(req).
		Accept("application/json").
		AddValidator(statusValidator).
		ToJSON(&res).
		Post()
	if c.username != "" || c.password != "" {
		rb = rb.BasicAuth(c.username, c.password)
	}

	start := time.Now()
	if err := rb.Fetch(ctx); err != nil {
		return nil, err
	}
	c.log.Debugf("POST %s: %d queries in %s", c.endpoint, len(req.Queries), time.Since(start))
	return &res, nil
}
