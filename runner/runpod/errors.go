package runpod

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is matched by errors for 401 responses
	ErrAuthentication = errors.New("authentication failed")
	// ErrUnexpectedStatus is matched by errors for non-200, non-401 responses
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrMalformedSample is matched by errors for 200 responses that cannot be used
	ErrMalformedSample = errors.New("malformed metrics response")
)

// AuthenticationError reports a rejected API key for an endpoint
type AuthenticationError struct {
	Endpoint string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed for %s endpoint, check your API key", e.Endpoint)
}

func (e *AuthenticationError) Unwrap() error { return ErrAuthentication }

// UnexpectedStatusError reports any status other than 200 and 401
type UnexpectedStatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status code from metrics API for %s endpoint: %d", e.Endpoint, e.StatusCode)
}

func (e *UnexpectedStatusError) Unwrap() error { return ErrUnexpectedStatus }

// MalformedSampleError reports a 200 response whose body or latest sample is unusable
type MalformedSampleError struct {
	Endpoint string
	Err      error
}

func (e *MalformedSampleError) Error() string {
	return fmt.Sprintf("malformed metrics response for %s endpoint: %v", e.Endpoint, e.Err)
}

func (e *MalformedSampleError) Unwrap() []error { return []error{ErrMalformedSample, e.Err} }
