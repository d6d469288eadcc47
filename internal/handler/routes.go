package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
// Path matching for /api is prefix-based: /api, /api/products and
// /api/products/123 all delegate to the proxy with the full path intact.
func RegisterRoutes(e *echo.Echo, proxy *ProxyHandler, gw *GatewayHandler) {
	e.GET("/", gw.Root)
	e.GET("/health", gw.Health)

	e.Any("/api", proxy.Handle)
	e.Any("/api/*", proxy.Handle)

	e.RouteNotFound("/*", gw.NotFound)
	e.HTTPErrorHandler = gw.HTTPErrorHandler(e)
}
