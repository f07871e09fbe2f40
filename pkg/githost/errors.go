package githost

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRemote is any remote API failure outside the specifically handled
	// not-found and conflict cases.
	ErrRemote = errors.New("remote API error")
	// ErrNotFound wraps a 404 at call sites where absence is an error.
	ErrNotFound = errors.New("not found")
	// ErrConflict covers stale-SHA rejections, non-fast-forward ref
	// updates and merge conflicts.
	ErrConflict = errors.New("conflict")
)

// APIError carries the status and body of a non-2xx remote response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote API responded %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrConflict
	default:
		return ErrRemote
	}
}
