// Package model defines shared per-request types for the gateway.
package model

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ProxyRequest represents a client request to be forwarded upstream.
type ProxyRequest struct {
	Ctx        context.Context
	Method     string
	Path       string
	Query      url.Values
	Header     http.Header
	Body       io.ReadCloser
	ClientAddr string // caller's network address, without port
	Scheme     string // "http" or "https", as received by the gateway
}

// UpstreamResponse is a well-formed HTTP response from the backend. Any
// status code counts as success at this layer; only transport-level
// failures become an UpstreamError.
type UpstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// FailureKind classifies a transport-level upstream failure.
type FailureKind int

const (
	// FailureUnavailable covers refused connections and aborted transfers,
	// including responses over the body ceiling.
	FailureUnavailable FailureKind = iota
	// FailureTimeout covers the upstream not answering within the
	// configured wall-clock timeout.
	FailureTimeout
	// FailureUnknown covers every other transport error.
	FailureUnknown
)

// String returns the kind's log label.
func (k FailureKind) String() string {
	switch k {
	case FailureUnavailable:
		return "unavailable"
	case FailureTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// UpstreamError is a classified transport failure from the backend call.
type UpstreamError struct {
	Kind FailureKind
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
