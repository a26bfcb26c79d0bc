package poller

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies poll failures for severity-aware logging and
// recovery decisions.
type ErrorType string

const (
	// ErrTypeNetwork covers timeouts, connection failures and non-2xx
	// statuses; recovered by trying the next endpoint.
	ErrTypeNetwork ErrorType = "network"
	// ErrTypeMalformed marks an undecodable payload; same recovery.
	ErrTypeMalformed ErrorType = "malformed_response"
	// ErrTypeValidation marks a response missing required structure;
	// the endpoint is skipped this cycle, not marked permanently bad.
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeRateLimited marks an endpoint skipped by the rate limiter;
	// does not count toward the failure threshold.
	ErrTypeRateLimited ErrorType = "rate_limited"
	// ErrTypeUnexpected is everything else.
	ErrTypeUnexpected ErrorType = "unexpected"
)

// LogLevel determines whether a PollError is logged at WARN or ERROR.
type LogLevel int

const (
	LevelWarn LogLevel = iota
	LevelError
)

// PollError is a classified polling failure for one endpoint attempt.
type PollError struct {
	Type       ErrorType
	Level      LogLevel
	StatusCode int
	URL        string
	Cause      error
}

func (e *PollError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("poll %s: HTTP %d for %s", e.Type, e.StatusCode, e.URL)
	}

	return fmt.Sprintf("poll %s: %s for %s", e.Type, e.Cause, e.URL)
}

func (e *PollError) Unwrap() error { return e.Cause }

// ErrAllSourcesExhausted reports a cycle where every endpoint failed
// and no cached fallback existed.
var ErrAllSourcesExhausted = errors.New("all sources failed")

// ClassifyHTTPStatus creates a PollError from a non-200 status.
func ClassifyHTTPStatus(statusCode int, url string) *PollError {
	cause := fmt.Errorf("HTTP %d", statusCode)

	if statusCode == http.StatusTooManyRequests {
		return &PollError{Type: ErrTypeRateLimited, Level: LevelWarn, StatusCode: statusCode, URL: url, Cause: cause}
	}

	return &PollError{Type: ErrTypeNetwork, Level: LevelWarn, StatusCode: statusCode, URL: url, Cause: cause}
}

// ClassifyNetworkError creates a PollError for transport-level
// failures (DNS, timeout, connection reset).
func ClassifyNetworkError(cause error, url string) *PollError {
	return &PollError{Type: ErrTypeNetwork, Level: LevelWarn, URL: url, Cause: cause}
}

// ClassifyMalformedResponse creates a PollError for undecodable
// payloads.
func ClassifyMalformedResponse(cause error, url string) *PollError {
	return &PollError{Type: ErrTypeMalformed, Level: LevelWarn, URL: url, Cause: cause}
}

// ClassifyValidationError creates a PollError for responses that
// decode but fail the domain contract.
func ClassifyValidationError(cause error, url string) *PollError {
	return &PollError{Type: ErrTypeValidation, Level: LevelWarn, URL: url, Cause: cause}
}

// RateLimitSkip creates the PollError recorded when the limiter
// rejects an attempt before any request is made.
func RateLimitSkip(sourceName string) *PollError {
	return &PollError{
		Type:  ErrTypeRateLimited,
		Level: LevelWarn,
		Cause: fmt.Errorf("rate limit exceeded for %s", sourceName),
	}
}
