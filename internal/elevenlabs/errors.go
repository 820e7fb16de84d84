// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package elevenlabs

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed knowledge-base API call.
type ErrorKind int

const (
	// KindTransient covers connection errors, HTTP 429, and HTTP 5xx.
	// Transient failures are retry-eligible.
	KindTransient ErrorKind = iota

	// KindPermanent covers 4xx rejections (quota exceeded, invalid
	// content). Permanent failures are surfaced, never retried.
	KindPermanent

	// KindNotFound means the referenced remote document no longer exists.
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// APIError is the typed result of a failed knowledge-base API call. The
// sync engine branches on Kind rather than on status codes or response
// shapes.
type APIError struct {
	Op         string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (HTTP %d): %s", e.Op, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, e.Kind, e.StatusCode)
}

func (e *APIError) Unwrap() error { return e.Err }

// classifyStatus maps an HTTP status code to an ErrorKind.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests || status >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}

// IsTransient reports whether err is a retry-eligible remote failure.
func IsTransient(err error) bool { return hasKind(err, KindTransient) }

// IsPermanent reports whether err is a non-retryable remote rejection.
func IsPermanent(err error) bool { return hasKind(err, KindPermanent) }

// IsNotFound reports whether err means the remote document is gone.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

func hasKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
