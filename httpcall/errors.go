package httpcall

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/callcache/resilience"
)

// Sentinel errors for HTTP calls.
var (
	// ErrNilCodec indicates New was given a nil codec.
	ErrNilCodec = errors.New("httpcall: codec is nil")

	// ErrBodyTooLarge indicates a response body exceeded the size limit.
	ErrBodyTooLarge = errors.New("httpcall: response body too large")

	// ErrBodyNotReplayable indicates a retry needed a request body that
	// cannot be re-read (req.GetBody is nil).
	ErrBodyNotReplayable = errors.New("httpcall: request body not replayable")

	// ErrDecode wraps codec failures on a 2xx body.
	ErrDecode = errors.New("httpcall: decode response")
)

// maxErrorBody bounds the body snippet kept on a StatusError.
const maxErrorBody = 512

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	Header     http.Header
	// Body is the start of the response body.
	Body []byte

	retryAfter time.Duration
}

func newStatusError(resp *http.Response, body []byte, now time.Time) *StatusError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
		retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), now),
	}
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("httpcall: unexpected status %s", status)
}

// RetryAfter returns the server's Retry-After hint, or zero.
func (e *StatusError) RetryAfter() time.Duration {
	return e.retryAfter
}

// Temporary reports whether the status is worth retrying: 408, 429 or 5xx
// other than 501.
func (e *StatusError) Temporary() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode == http.StatusNotImplemented:
		return false
	default:
		return e.StatusCode >= 500
	}
}

// Retryable classifies err for resilience.RetryConfig.RetryIf. Temporary
// status errors and transport failures are retryable. Cancellation,
// decode failures, non-replayable bodies and local rate-limit or bulkhead
// rejections are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrDecode) ||
		errors.Is(err, ErrBodyNotReplayable) ||
		errors.Is(err, ErrBodyTooLarge) ||
		errors.Is(err, resilience.ErrRateLimitExceeded) ||
		errors.Is(err, resilience.ErrBulkheadFull) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
