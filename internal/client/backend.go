// Package client provides the upstream HTTP client for the backend catalog service.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"catalog-gateway/internal/config"
	"catalog-gateway/internal/metrics"
	"catalog-gateway/internal/model"
)

// BackendClient sends requests to the upstream catalog service. It performs
// exactly one attempt per call; failed calls are classified, never retried.
type BackendClient struct {
	httpClient   *http.Client
	bodyMaxBytes int64
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// NewBackendClient creates a BackendClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewBackendClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *BackendClient {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Backend.IdleConnections,
		MaxIdleConnsPerHost: cfg.Backend.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &BackendClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		},
		bodyMaxBytes: cfg.Backend.BodyMaxBytes,
		logger:       logger.With("component", "backend_client"),
		metrics:      m,
	}
}

// Do executes one HTTP request against the backend and reads the full
// response body, capped at the configured ceiling. A well-formed HTTP
// response at any status code is a success; transport failures come back
// as a classified *model.UpstreamError. The provided context controls the
// lifetime of the upstream request: when it is canceled (e.g. the client
// disconnects), the upstream request is also canceled.
func (c *BackendClient) Do(ctx context.Context, method, url string, header http.Header, body io.Reader) (*model.UpstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = header

	c.logger.Debug("upstream request",
		"method", method,
		"url", url,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()

	methodLabel := metrics.NormalizeMethod(method)

	if err != nil {
		kind := classify(err)
		if c.metrics != nil {
			c.metrics.UpstreamDuration.WithLabelValues(methodLabel).Observe(duration)
			c.metrics.UpstreamFailures.WithLabelValues(methodLabel, kind.String()).Inc()
		}
		return nil, &model.UpstreamError{Kind: kind, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	// Read one byte past the ceiling so an at-limit body is distinguishable
	// from an over-limit one.
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.bodyMaxBytes+1))
	if err != nil {
		kind := classify(err)
		if c.metrics != nil {
			c.metrics.UpstreamFailures.WithLabelValues(methodLabel, kind.String()).Inc()
		}
		return nil, &model.UpstreamError{Kind: kind, Err: fmt.Errorf("read upstream body: %w", err)}
	}
	if int64(len(data)) > c.bodyMaxBytes {
		return nil, &model.UpstreamError{
			Kind: model.FailureUnavailable,
			Err:  fmt.Errorf("upstream body exceeds %d bytes", c.bodyMaxBytes),
		}
	}

	if c.metrics != nil {
		status := strconv.Itoa(resp.StatusCode)
		c.metrics.UpstreamDuration.WithLabelValues(methodLabel).Observe(duration)
		c.metrics.UpstreamResponses.WithLabelValues(methodLabel, status).Inc()
	}

	return &model.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// classify maps a transport error to its failure kind: refused connections
// are unavailable, timeouts and aborts are timeout, everything else is
// unknown.
func classify(err error) model.FailureKind {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return model.FailureUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return model.FailureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return model.FailureTimeout
	}
	return model.FailureUnknown
}
