package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Version is a string type for dependency injection of the build version.
type Version string

// availableEndpoints is the advertised route map, shared by the root
// descriptor and the 404 body.
var availableEndpoints = map[string]string{
	"gateway": "GET /",
	"health":  "GET /health",
	"api":     "ANY /api/*",
}

// gatewayDescriptor is the GET / response.
type gatewayDescriptor struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
	Status    string            `json:"status"`
}

// notFoundBody is the structured 404 response.
type notFoundBody struct {
	Error              string            `json:"error"`
	Message            string            `json:"message"`
	AvailableEndpoints map[string]string `json:"availableEndpoints"`
}

// GatewayHandler serves the gateway's own endpoints: descriptor, liveness
// and the structured 404.
type GatewayHandler struct {
	version Version
}

// NewGatewayHandler creates a GatewayHandler.
func NewGatewayHandler(v Version) *GatewayHandler {
	return &GatewayHandler{version: v}
}

// Root returns the gateway descriptor. No upstream call is made.
func (h *GatewayHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, gatewayDescriptor{
		Message:   "Product Catalog API Gateway",
		Version:   string(h.version),
		Endpoints: availableEndpoints,
		Status:    "running",
	})
}

// Health is a liveness check of the gateway process only. It deliberately
// does not probe the backend: a 200 here means the gateway is up, not that
// /api/* requests will succeed. Adding a backend probe would turn this into
// a compound readiness check and change its meaning for orchestrators.
func (h *GatewayHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// NotFound returns the structured 404 listing available endpoints.
func (h *GatewayHandler) NotFound(c echo.Context) error {
	req := c.Request()
	return c.JSON(http.StatusNotFound, notFoundBody{
		Error:              "Not Found",
		Message:            fmt.Sprintf("Route %s %s not found", req.Method, req.URL.Path),
		AvailableEndpoints: availableEndpoints,
	})
}

// HTTPErrorHandler renders unmatched routes (404) and method mismatches
// (405) as the structured 404 body; everything else falls through to Echo's
// default handler.
func (h *GatewayHandler) HTTPErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) && (he.Code == http.StatusNotFound || he.Code == http.StatusMethodNotAllowed) {
			_ = h.NotFound(c)
			return
		}

		e.DefaultHTTPErrorHandler(err, c)
	}
}
