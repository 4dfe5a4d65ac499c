package notion

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitError is returned when the API answers 429.
type RateLimitError struct {
	// RetryAfter is only meaningful when HasRetryAfter is true.
	RetryAfter    time.Duration
	HasRetryAfter bool
}

func (e *RateLimitError) Error() string {
	if e.HasRetryAfter {
		return fmt.Sprintf("notion: rate limited, retry after %s", e.RetryAfter)
	}
	return "notion: rate limited"
}

// APIError is any other non-2xx answer, retrying it is not expected to help.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion: status %d", e.Status)
	}
	return fmt.Sprintf("notion: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// TransportError wraps a failure to get any response at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("notion: transport: %s", e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// parseRetryAfter accepts both forms of the Retry-After header: delay seconds and an http date.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds * float64(time.Second)), true
	}
	at, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	d := at.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}
