package spacetime

import (
	"errors"
	"fmt"
)

// Sentinel errors for session state checks.
var (
	ErrNotConnected = errors.New("spacetime: not connected")
	ErrClosed       = errors.New("spacetime: client closed")
)

// ConnectError reports a failed connection attempt. The first attempt's
// failure is fatal to the caller; later ones feed the reconnect policy.
type ConnectError struct {
	URI string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("spacetime: connect %s: %v", e.URI, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// SubscribeError reports a rejected or unacknowledged subscription request.
// The caller must fix the query set before retrying; the client never
// retries these on its own.
type SubscribeError struct {
	Queries int
	Err     error
}

func (e *SubscribeError) Error() string {
	return fmt.Sprintf("spacetime: subscribe %d queries: %v", e.Queries, e.Err)
}

func (e *SubscribeError) Unwrap() error { return e.Err }

// QueryError reports a failed one-off query.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("spacetime: query %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
