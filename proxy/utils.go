package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andydixon/chronoquery/engine"
)

// maxBodyBytes caps request bodies read by the proxy.
const maxBodyBytes = 1 << 20

// varPrefix marks dashboard variables passed as query parameters.
const varPrefix = "var-"

// ─── PARAM PARSING ───────────────────────────────────────────────────────────

// parseClientParams merges GET + JSON-POST + form-POST into url.Values
func parseClientParams(r *http.Request) url.Values {
	vals := url.Values{}
	if r.Method == http.MethodPost {
		body, _ := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if isJSON(r) {
			var m map[string]interface{}
			_ = json.Unmarshal(body, &m)
			for k, v := range m {
				switch arr := v.(type) {
				case []interface{}:
					for _, x := range arr {
						vals.Add(k, fmt.Sprintf("%v", x))
					}
				case nil:
				default:
					vals.Set(k, fmt.Sprintf("%v", v))
				}
			}
		} else {
			r.Body = io.NopCloser(bytes.NewReader(body))
			_ = r.ParseForm()
			for k, vs := range r.PostForm {
				for _, x := range vs {
					vals.Add(k, x)
				}
			}
		}
	}
	for k, vs := range r.URL.Query() {
		for _, x := range vs {
			vals.Add(k, x)
		}
	}
	return vals
}

func isJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// variablesFromParams collects var-<name>=<value> pairs.
func variablesFromParams(vals url.Values) engine.Variables {
	vars := engine.Variables{}
	for k, vs := range vals {
		name := strings.TrimPrefix(k, varPrefix)
		if name == k || name == "" || len(vs) == 0 {
			continue
		}
		v := vs[len(vs)-1]
		vars[name] = engine.Variable{Text: v, Value: v}
	}
	return vars
}

// ─── TIME HELPERS ────────────────────────────────────────────────────────────

// epochMsThreshold separates epoch seconds from epoch milliseconds.
const epochMsThreshold = 1e11

// parseTime accepts epoch seconds, epoch milliseconds, RFC3339 or "now".
// An empty string is the zero time.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return time.Time{}, nil
	case "now":
		return time.Now(), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		if math.Abs(f) >= epochMsThreshold {
			return time.UnixMilli(int64(f)), nil
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

// ─── RESPONSE WRITING ────────────────────────────────────────────────────────

// writeJSON emits the standard success envelope
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSONRaw(w, status, map[string]interface{}{
		"status": "success",
		"data":   data,
	})
}

// writeError emits the error envelope
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONRaw(w, status, map[string]interface{}{
		"status": "error",
		"error":  msg,
	})
}

// writeJSONRaw emits any raw JSON-able object
func writeJSONRaw(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
