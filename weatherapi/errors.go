package weatherapi

import "fmt"

// APIError represents a non-success response from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// NetworkError represents a transport-level failure.
type NetworkError struct {
	Operation string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError represents a response body that could not be decoded or that
// violates the payload invariants.
type ParseError struct {
	Operation string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error during %s: %v", e.Operation, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
