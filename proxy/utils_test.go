package proxy

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseClientParams(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		url         string
		contentType string
		body        string
		expected    map[string][]string
	}{
		{
			name:     "GET parameters",
			method:   http.MethodGet,
			url:      "/api/entities?device=core-sw1&var-site=syd",
			expected: map[string][]string{"device": {"core-sw1"}, "var-site": {"syd"}},
		},
		{
			name:        "JSON POST",
			method:      http.MethodPost,
			url:         "/api/entities",
			contentType: "application/json",
			body:        `{"query":"mlist device *","tags":["a","b"],"skip":null}`,
			expected:    map[string][]string{"query": {"mlist device *"}, "tags": {"a", "b"}},
		},
		{
			name:        "Form POST merged with URL",
			method:      http.MethodPost,
			url:         "/api/entities?child=Gi0/1",
			contentType: "application/x-www-form-urlencoded",
			body:        "device=core-sw1",
			expected:    map[string][]string{"device": {"core-sw1"}, "child": {"Gi0/1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.url, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			params := parseClientParams(req)
			if len(params) != len(tt.expected) {
				t.Fatalf("Expected %d params, got %d: %v", len(tt.expected), len(params), params)
			}
			for k, want := range tt.expected {
				got := params[k]
				if strings.Join(got, ",") != strings.Join(want, ",") {
					t.Errorf("Param %s: expected %v, got %v", k, want, got)
				}
			}
		})
	}
}

func TestVariablesFromParams(t *testing.T) {
	vars := variablesFromParams(map[string][]string{
		"var-dev":  {"sw1", "sw2"},
		"var-":     {"ignored"},
		"device":   {"not-a-var"},
		"var-site": {"syd"},
	})
	if len(vars) != 2 {
		t.Fatalf("Expected 2 variables, got %d: %v", len(vars), vars)
	}
	if vars["dev"].Text != "sw2" {
		t.Errorf("Expected last value to win, got %q", vars["dev"].Text)
	}
	if vars["site"].String() != "syd" {
		t.Errorf("Expected site=syd, got %q", vars["site"].String())
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{name: "empty", input: "", expected: time.Time{}},
		{name: "epoch seconds", input: "1700000000", expected: time.Unix(1700000000, 0)},
		{name: "fractional seconds", input: "1700000000.5", expected: time.Unix(1700000000, 500000000)},
		{name: "epoch millis", input: "1700000000123", expected: time.UnixMilli(1700000000123)},
		{name: "RFC3339", input: "2023-11-14T22:13:20Z", expected: time.Unix(1700000000, 0)},
		{name: "RFC3339 with offset", input: "2023-11-15T09:13:20+11:00", expected: time.Unix(1700000000, 0)},
		{name: "garbage", input: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTime(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestParseTimeNow(t *testing.T) {
	before := time.Now()
	got, err := parseTime("now")
	if err != nil {
		t.Fatal(err)
	}
	if got.Before(before) || time.Since(got) > time.Minute {
		t.Errorf("Expected a time close to now, got %v", got)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusTeapot, "short and stout")

	if rr.Code != http.StatusTeapot {
		t.Errorf("Expected status %d, got %d", http.StatusTeapot, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}
	want := `{"error":"short and stout","status":"error"}`
	if strings.TrimSpace(rr.Body.String()) != want {
		t.Errorf("Expected %s, got %s", want, rr.Body.String())
	}
}
