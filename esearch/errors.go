package esearch

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is wrapped when the body is not the JSON we expect.
var ErrMalformedResponse = errors.New("malformed esearch response")

// StatusError reports a non-200 response from the search service.
type StatusError struct {
	Term       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("esearch for %q returned HTTP status %d", e.Term, e.StatusCode)
}

// TransportError reports a failure to talk to the search service at all.
type TransportError struct {
	Term string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("esearch for %q failed: %v", e.Term, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
