package fault

import (
	"fmt"
	"net/http"
	"time"
)

// HTTPError is a non-2xx answer from an HTTP collaborator.
type HTTPError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// FromResponse builds an HTTPError from resp, using up to the first 512
// bytes of body as the message.
func FromResponse(resp *http.Response, body []byte) *HTTPError {
	msg := string(body)
	if len(msg) > 512 {
		msg = msg[:512]
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	endpoint := ""
	if resp.Request != nil && resp.Request.URL != nil {
		endpoint = resp.Request.URL.Path
	}
	return &HTTPError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: msg}
}

// TimeoutError is a collaborator call that exceeded its own time limit.
type TimeoutError struct {
	Op    string
	After time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.After, e.Op)
}

// MalformedError is a response whose payload could not be decoded.
type MalformedError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s response: %v", e.Source, e.Err)
}

// Unwrap returns the decoding error.
func (e *MalformedError) Unwrap() error { return e.Err }
