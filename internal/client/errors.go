package client

import "fmt"

// APIError is returned when the remote API rejects a request.
type APIError struct {
	StatusCode int
	Body       string
	Attempts   int
}

func (e *APIError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("telegram api error %d after %d attempts: %s", e.StatusCode, e.Attempts, e.Body)
	}
	return fmt.Sprintf("telegram api error %d: %s", e.StatusCode, e.Body)
}

// NetworkError wraps transport level failures (connection, timeout, decoding).
type NetworkError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("telegram network error on %s after %d attempts: %v", e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("telegram network error on %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
