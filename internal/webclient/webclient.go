// Package webclient fetches target pages for auditing. Backends register
// themselves by name; the nethttp backend is the default and only shipped
// implementation.
package webclient

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// UserAgent identifies webgrade on every outbound request.
const UserAgent = "WebgradeBot/2.3 (+https://github.com/webgrade/webgrade)"

// Client performs a single instrumented GET against a validated URL.
type Client interface {
	// Fetch issues one GET with redirects followed and a hard timeout.
	// Non-2xx statuses are not errors; they are recorded in the result.
	Fetch(ctx context.Context, rawURL string, timeout time.Duration) (*FetchResult, error)

	Close() error
}

// FetchResult carries everything the scorers need about one response.
// It is owned by the pipeline invocation that produced it.
type FetchResult struct {
	FinalURL       string
	StatusCode     int
	ElapsedSeconds float64
	// Headers holds response headers with lowercased keys; multi-valued
	// headers are comma-joined. Set-Cookie is kept apart because each
	// cookie must be inspected individually.
	Headers       map[string]string
	SetCookies    []string
	Body          []byte
	BodySizeBytes int
	FetchedAt     time.Time
}

// Header returns the named header (any case) or "".
func (r *FetchResult) Header(name string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return r.Headers[lowerASCII(name)]
}

// HasHeader reports whether the named header (any case) was present on the
// response, counting headers sent with an empty value.
func (r *FetchResult) HasHeader(name string) bool {
	if r == nil || r.Headers == nil {
		return false
	}
	_, ok := r.Headers[lowerASCII(name)]
	return ok
}

// ErrKind tags a fetch failure so callers can map it without string matching.
type ErrKind string

const (
	KindTimeout    ErrKind = "timeout"
	KindConnection ErrKind = "connection_error"
	KindOther      ErrKind = "other"
)

// FetchError wraps a transport failure with its kind. The pipeline converts
// these to the result's error field; the API maps them to 504/502/500.
type FetchError struct {
	Kind ErrKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch: %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf extracts the error kind, defaulting to KindOther for non-fetch
// errors.
func KindOf(err error) ErrKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindOther
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
