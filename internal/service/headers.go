package service

import (
	"net/http"

	"catalog-gateway/internal/model"
)

const userAgent = "catalog-gateway/1.0"

// forwardableResponseHeaders are the only upstream response headers relayed
// to the caller. Allow-list, not blocklist: CORS, caching and cookie
// headers set by the backend never leave the gateway.
var forwardableResponseHeaders = map[string]bool{
	"Content-Type":   true,
	"Content-Length": true,
}

// buildRequestHeaders derives the outbound header set from an inbound
// request. Nothing is passed through wholesale: the original Content-Type
// is copied only when the request carries a body, X-Forwarded-For and
// X-Forwarded-Proto are set fresh (single-hop; any inbound values are
// ignored, never appended to), and the inbound Content-Length is dropped so
// the client recomputes it from the actual outbound body.
func buildRequestHeaders(pr *model.ProxyRequest) http.Header {
	dst := make(http.Header)

	if pr.Body != nil {
		if ct := pr.Header.Get("Content-Type"); ct != "" {
			dst.Set("Content-Type", ct)
		}
	}

	dst.Set("X-Forwarded-For", pr.ClientAddr)
	dst.Set("X-Forwarded-Proto", pr.Scheme)
	dst.Set("User-Agent", userAgent)

	return dst
}

// filterResponseHeaders keeps only the allow-listed upstream response headers.
func filterResponseHeaders(src http.Header) http.Header {
	dst := make(http.Header)
	for key, vals := range src {
		if forwardableResponseHeaders[http.CanonicalHeaderKey(key)] {
			dst[http.CanonicalHeaderKey(key)] = vals
		}
	}
	return dst
}
