// Package service implements the core proxy forwarding logic.
package service

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"catalog-gateway/internal/client"
	"catalog-gateway/internal/config"
	"catalog-gateway/internal/model"
)

// ProxyService handles the forwarding logic for proxy requests. It is a
// pure function of the inbound request plus the configuration loaded at
// startup; no state survives a request.
type ProxyService struct {
	client  *client.BackendClient
	logger  *slog.Logger
	baseURL *url.URL
}

// NewProxyService creates a ProxyService.
func NewProxyService(c *client.BackendClient, cfg *config.Config, logger *slog.Logger) (*ProxyService, error) {
	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend base_url: %w", err)
	}

	return &ProxyService{
		client:  c,
		logger:  logger.With("component", "proxy_service"),
		baseURL: u,
	}, nil
}

// Forward sends a ProxyRequest to the backend and returns its response.
// Exactly one upstream attempt is made; transport failures come back as a
// classified *model.UpstreamError and are never retried.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.UpstreamResponse, error) {
	upstreamURL := s.buildUpstreamURL(pr.Path, pr.Query)
	header := buildRequestHeaders(pr)

	s.logger.Info("dispatching upstream request",
		"method", pr.Method,
		"path", pr.Path,
		"target", upstreamURL,
	)

	resp, err := s.client.Do(pr.Ctx, pr.Method, upstreamURL, header, pr.Body)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	resp.Header = filterResponseHeaders(resp.Header)
	return resp, nil
}

// buildUpstreamURL joins the backend base URL with the forwarded path and
// merges query parameters. Path joining normalizes to exactly one slash
// between base and path regardless of how either side is written.
func (s *ProxyService) buildUpstreamURL(path string, query url.Values) string {
	u := *s.baseURL
	u.Path = joinPath(s.baseURL.Path, path)

	// Base-URL query params survive unless the inbound request carries the
	// same key; forwarded params are never duplicated.
	q := u.Query()
	for k, v := range query {
		q[k] = v
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// joinPath concatenates two URL path segments with a single separating slash.
func joinPath(base, p string) string {
	base = strings.TrimRight(base, "/")
	p = strings.TrimLeft(p, "/")
	return base + "/" + p
}
