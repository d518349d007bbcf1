package engine

import (
	"errors"
	"fmt"
)

// ErrQuery matches any *QueryError via errors.Is.
var ErrQuery = errors.New("query failed")

// QueryError is a failure the backend reported for a single refId.
// Other refIds of the same batch are unaffected.
type QueryError struct {
	RefID   string `json:"refId"`
	Message string `json:"message"`
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %s", e.RefID, e.Message)
}

func (e *QueryError) Is(target error) bool { return target == ErrQuery }
