package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable is returned when the model service cannot be reached
	ErrServiceUnavailable = errors.New("model service unavailable, verify the service is running")

	// ErrAnalysisTimeout is returned when a single model request exceeds its deadline
	ErrAnalysisTimeout = errors.New("analysis timed out")

	// ErrModelConnection is returned when a request could not reach the model service.
	// It is retryable; callers turn it into ErrServiceUnavailable once retries run out.
	ErrModelConnection = errors.New("model service connection failed")

	// ErrModelResponse is returned for non-2xx replies or undecodable envelopes
	ErrModelResponse = errors.New("model service returned an invalid response")

	// ErrUnparsable is returned when no recovery strategy produced a structure
	ErrUnparsable = errors.New("model output could not be parsed")

	// ErrInvalidDocument is returned when an uploaded document cannot be read
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyDocument is returned when a document yields no text
	ErrEmptyDocument = errors.New("document contains no extractable text")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrDiagnosticNotFound is returned when a diagnostic record does not exist
	ErrDiagnosticNotFound = errors.New("diagnostic record not found")
)

// StatusError carries the HTTP status of a failed model-service call.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", ErrModelResponse, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrModelResponse }

// Temporary reports whether the service may succeed on a later attempt.
func (e *StatusError) Temporary() bool { return e.StatusCode >= 500 }

// SegmentError reports a fatal failure while analysing one segment.
type SegmentError struct {
	Index int
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d: %v", e.Index, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }
