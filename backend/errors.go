package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
)

// ErrBackend matches any *BackendError via errors.Is.
var ErrBackend = errors.New("backend error")

const genericFailure = "backend request failed"

// BackendError is a transport or non-2xx failure of a batch round trip.
// Message carries the backend's own message when it sent one.
type BackendError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend: %s (status %d)", e.Message, e.StatusCode)
	}
	return "backend: " + e.Message
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// clientSide reports whether the backend rejected the request itself,
// as opposed to being unreachable or broken.
func (e *BackendError) clientSide() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// errorBody is the JSON shape the backend uses for failures.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// statusValidator turns non-2xx responses into a *BackendError carrying
// whatever message the backend put in the body.
func statusValidator(res *http.Response) error {
	if res.StatusCode/100 == 2 {
		return nil
	}
	be := &BackendError{
		StatusCode: res.StatusCode,
		Message:    fmt.Sprintf("%s: %s", genericFailure, res.Status),
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return be
	}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		switch {
		case eb.Message != "":
			be.Message = eb.Message
		case eb.Error != "":
			be.Message = eb.Error
		}
	}
	return be
}

// asBackendError normalizes anything coming out of the breaker or the
// HTTP builder into a *BackendError.
func asBackendError(err error) *BackendError {
	var be *BackendError
	if errors.As(err, &be) {
		return be
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &BackendError{Message: "backend unavailable: circuit open", Err: err}
	}
	return &BackendError{Message: fmt.Sprintf("%s: %v", genericFailure, err), Err: err}
}
