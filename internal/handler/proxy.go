package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"catalog-gateway/internal/model"
	"catalog-gateway/internal/service"
)

// errorBody is the stable external error schema. Internal error detail goes
// to the log only, never into this body.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Fixed failure responses, bit-exact per the public API contract.
var (
	bodyUnavailable = errorBody{
		Error:   "Backend service unavailable",
		Message: "The backend service is currently unavailable. Please try again later.",
	}
	bodyTimeout = errorBody{
		Error:   "Backend service timeout",
		Message: "The backend service did not respond in time. Please try again later.",
	}
	bodyBadGateway = errorBody{
		Error: "bad gateway",
	}
)

// ProxyHandler forwards /api/* requests to the backend catalog service.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle proxies the request to the backend and relays the response.
// Exactly one response is written per request.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()
	start := time.Now()

	pr := &model.ProxyRequest{
		Ctx:        req.Context(),
		Method:     req.Method,
		Path:       req.URL.Path,
		Query:      req.URL.Query(),
		Header:     req.Header,
		Body:       requestBody(req),
		ClientAddr: clientAddr(req),
		Scheme:     requestScheme(req),
	}

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, err, start)
	}

	return h.writeResponse(c, resp, start)
}

// writeResponse relays the upstream response verbatim: status unchanged
// (never clamped), allow-listed headers, body bytes as received. A body
// whose Content-Type claims JSON but does not parse is converted to a 502
// before anything is written.
func (h *ProxyHandler) writeResponse(c echo.Context, resp *model.UpstreamResponse, start time.Time) error {
	req := c.Request()

	if claimsJSON(resp.Header.Get("Content-Type")) && len(resp.Body) > 0 && !json.Valid(resp.Body) {
		h.logger.Error("upstream body is not valid JSON",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
		)
		return c.JSON(http.StatusBadGateway, bodyBadGateway)
	}

	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// The status line is already on the wire; a write error here cannot be
	// turned into a second response, only logged and escalated for
	// connection cleanup.
	if _, err := c.Response().Write(resp.Body); err != nil {
		h.logger.Error("writing response body",
			"err", err,
			"method", req.Method,
			"path", req.URL.Path,
		)
		return err
	}

	h.logger.Info("request completed",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// mapError converts a classified upstream failure into its fixed JSON
// response. Every failure is terminal for the request; nothing is retried.
func (h *ProxyHandler) mapError(c echo.Context, err error, start time.Time) error {
	req := c.Request()

	status := http.StatusBadGateway
	body := bodyBadGateway

	var ue *model.UpstreamError
	if errors.As(err, &ue) {
		switch ue.Kind {
		case model.FailureUnavailable:
			status = http.StatusServiceUnavailable
			body = bodyUnavailable
		case model.FailureTimeout:
			status = http.StatusGatewayTimeout
			body = bodyTimeout
		}
	}

	h.logger.Error("upstream request failed",
		"err", err,
		"method", req.Method,
		"path", req.URL.Path,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return c.JSON(status, body)
}

// requestBody returns the request body, or nil for bodyless requests so the
// header policy can tell the two apart. ContentLength -1 (chunked, length
// unknown) counts as a body.
func requestBody(req *http.Request) io.ReadCloser {
	if req.ContentLength == 0 {
		return nil
	}
	return req.Body
}

// clientAddr returns the caller's network address without the port.
func clientAddr(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// requestScheme reports the scheme the gateway itself received the request
// on. Single-hop: inbound X-Forwarded-Proto is deliberately ignored.
func requestScheme(req *http.Request) string {
	if req.TLS != nil {
		return "https"
	}
	return "http"
}

// claimsJSON reports whether a Content-Type declares a JSON payload.
func claimsJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
