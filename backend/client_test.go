package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{URL: srv.URL + "/", Timeout: 5 * time.Second, MaxFailures: 2, OpenTimeout: time.Minute}), srv
}

func TestClientQuery(t *testing.T) {
	var got Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, QueryEndpoint, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":{"A":{"refId":"A","series":[{"name":"X.Octets","points":[[1,1700000000000],[null,1700000060000]]}]}}}`))
	})

	res, err := c.Query(context.Background(), &Request{
		Queries: []ExpandedQuery{{RefID: "A", Type: TypeTimeSeries, Query: "series avg time 60"}},
		From:    "1700000000000",
		To:      "1700003600000",
	})
	require.NoError(t, err)

	require.Len(t, got.Queries, 1)
	assert.Equal(t, "A", got.Queries[0].RefID)
	assert.Equal(t, "1700000000000", got.From)

	entry := res.Entry("A")
	require.NotNil(t, entry)
	assert.True(t, entry.IsTimeSeries())
	require.Len(t, entry.Series[0].Points, 2)
	assert.Equal(t, 1.0, *entry.Series[0].Points[0].Value())
	assert.Nil(t, entry.Series[0].Points[1].Value())
	ts, ok := entry.Series[0].Points[1].Timestamp()
	assert.True(t, ok)
	assert.Equal(t, int64(1700000060000), ts)
}

func TestClientBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":{}}`))
	}))
	defer srv.Close()

	c := NewClient(Options{URL: srv.URL, Username: "admin", Password: "secret"})
	_, err := c.Query(context.Background(), &Request{Queries: []ExpandedQuery{{RefID: "A"}}})
	require.NoError(t, err)

	c = NewClient(Options{URL: srv.URL, Username: "admin", Password: "wrong"})
	_, err = c.Query(context.Background(), &Request{Queries: []ExpandedQuery{{RefID: "A"}}})
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusUnauthorized, be.StatusCode)
	assert.Equal(t, "invalid credentials", be.Message)
}

func TestClientErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message field", http.StatusBadRequest, `{"message":"syntax error near mget"}`, "syntax error near mget"},
		{"error field", http.StatusInternalServerError, `{"error":"akips unreachable"}`, "akips unreachable"},
		{"no body", http.StatusBadGateway, ``, "backend request failed: 502 Bad Gateway"},
		{"html body", http.StatusServiceUnavailable, `<html>down</html>`, "backend request failed: 503 Service Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Query(context.Background(), &Request{Queries: []ExpandedQuery{{RefID: "A"}}})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBackend))

			var be *BackendError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.status, be.StatusCode)
			assert.Equal(t, tt.message, be.Message)
		})
	}
}

func TestClientTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(Options{URL: url, Timeout: time.Second})
	_, err := c.Query(context.Background(), &Request{Queries: []ExpandedQuery{{RefID: "A"}}})
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Zero(t, be.StatusCode)
	assert.Contains(t, be.Message, genericFailure)
	assert.NotNil(t, be.Unwrap())
}

func TestClientBreakerOpens(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	req := &Request{Queries: []ExpandedQuery{{RefID: "A"}}}

	for i := 0; i < 2; i++ {
		_, err := c.Query(context.Background(), req)
		require.Error(t, err)
	}
	_, err := c.Query(context.Background(), req)
	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "backend unavailable: circuit open", be.Message)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientBreakerIgnoresRejections(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad query"}`))
	})
	req := &Request{Queries: []ExpandedQuery{{RefID: "A"}}}

	for i := 0; i < 4; i++ {
		_, err := c.Query(context.Background(), req)
		var be *BackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "bad query", be.Message)
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestClientProbe(t *testing.T) {
	var got Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"results":{"testDatasource":{"error":"ignored"}}}`))
	})

	err := c.Probe(context.Background(), ExpandedQuery{RefID: "testDatasource", Type: TypeTest, Query: "mget device __dummy__"})
	require.NoError(t, err)
	require.Len(t, got.Queries, 1)
	assert.Equal(t, TypeTest, got.Queries[0].Type)
	assert.Empty(t, got.From)
}

func TestResultEntryClassification(t *testing.T) {
	var nilEntry *ResultEntry
	assert.False(t, nilEntry.IsTimeSeries())
	assert.False(t, nilEntry.IsTable())

	both := &ResultEntry{Series: []TimeSeries{{Name: "a"}}, Tables: []Table{{}}}
	assert.True(t, both.IsTimeSeries())
	assert.False(t, both.IsTable())

	table := &ResultEntry{Tables: []Table{{}}}
	assert.True(t, table.IsTable())

	assert.Nil(t, (*Result)(nil).Entry("A"))
}
