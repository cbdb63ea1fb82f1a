// Package fault classifies collaborator failures and retries the transient ones.
//
// Every outbound call in a turn (generation, web search, catalog lookup) can
// fail. Callers wrap transport failures in the types from this package so
// Categorize can decide whether another attempt is worthwhile:
//   - Transient: rate limits, 5xx, timeouts. Retried with backoff.
//   - Permanent: bad credentials, unknown failures. Not retried.
//   - Malformed: the collaborator answered but the payload was unusable.
package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Category says how an error should be handled.
type Category int

const (
	// CategoryTransient indicates another attempt will likely help.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retrying will not help.
	CategoryPermanent

	// CategoryMalformed indicates a response that could not be interpreted,
	// such as generator output that ignored the requested schema.
	CategoryMalformed
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// CategorizedError pins a category onto an error.
type CategorizedError struct {
	Err      error
	Category Category

	// Attempts is how many times the operation ran.
	Attempts int

	// Op describes the operation, e.g. "catalog search".
	Op string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v (category: %s, attempts: %d)", e.Op, e.Err, e.Category, e.Attempts)
	}
	return fmt.Sprintf("%v (category: %s, attempts: %d)", e.Err, e.Category, e.Attempts)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error { return e.Err }

// Transient marks err as worth retrying.
func Transient(err error, op string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryTransient, Op: op}
}

// Permanent marks err as not worth retrying.
func Permanent(err error, op string) *CategorizedError {
	return &CategorizedError{Err: err, Category: CategoryPermanent, Op: op}
}

// Categorize decides how err should be handled. Unknown errors are permanent.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return categorizeStatus(httpErr.StatusCode)
	}

	var malformed *MalformedError
	if errors.As(err, &malformed) {
		return CategoryMalformed
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return CategoryTransient
	}

	// The caller's own deadline or cancellation ends the turn; retrying
	// inside it cannot succeed.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryPermanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTransient
	}

	return CategoryPermanent
}

func categorizeStatus(code int) Category {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return CategoryTransient
	case code >= 500:
		return CategoryTransient
	default:
		return CategoryPermanent
	}
}

// IsRetryable reports whether err is transient.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}
