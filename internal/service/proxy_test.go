package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"catalog-gateway/internal/client"
	"catalog-gateway/internal/config"
	"catalog-gateway/internal/model"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Backend: config.BackendConfig{
			BaseURL:         baseURL,
			TimeoutSeconds:  10,
			BodyMaxBytes:    50 * 1024 * 1024,
			IdleConnections: 10,
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, baseURL string) *ProxyService {
	t.Helper()
	cfg := testConfig(baseURL)
	logger := discardLogger()
	bc := client.NewBackendClient(cfg, logger, nil)
	svc, err := NewProxyService(bc, cfg, logger)
	if err != nil {
		t.Fatalf("NewProxyService: %v", err)
	}
	return svc
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{"no slashes on either side", "", "api/products", "/api/products"},
		{"base without trailing slash", "", "/api/products", "/api/products"},
		{"base with trailing slash", "/", "/api/products", "/api/products"},
		{"base with subpath", "/catalog", "/api/products", "/catalog/api/products"},
		{"base subpath trailing slash", "/catalog/", "/api/products", "/catalog/api/products"},
		{"nested forwarded path", "", "/api/products/123", "/api/products/123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinPath(tt.base, tt.path); got != tt.want {
				t.Errorf("joinPath(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
			}
		})
	}
}

func TestBuildUpstreamURL(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		path  string
		query url.Values
		want  string
	}{
		{
			name: "base without trailing slash",
			base: "http://catalog:5000",
			path: "/api/products",
			want: "http://catalog:5000/api/products",
		},
		{
			name: "base with trailing slash",
			base: "http://catalog:5000/",
			path: "/api/products",
			want: "http://catalog:5000/api/products",
		},
		{
			name: "nested subpath",
			base: "http://catalog:5000",
			path: "/api/products/123",
			want: "http://catalog:5000/api/products/123",
		},
		{
			name:  "query forwarded",
			base:  "http://catalog:5000",
			path:  "/api/products",
			query: url.Values{"page": {"2"}, "sort": {"price"}},
			want:  "http://catalog:5000/api/products?page=2&sort=price",
		},
		{
			name:  "repeated query values survive",
			base:  "http://catalog:5000",
			path:  "/api/products",
			query: url.Values{"tag": {"new", "sale"}},
			want:  "http://catalog:5000/api/products?tag=new&tag=sale",
		},
		{
			name:  "base query merged without duplicates",
			base:  "http://catalog:5000?source=gateway",
			path:  "/api/products",
			query: url.Values{"source": {"client"}, "page": {"1"}},
			want:  "http://catalog:5000/api/products?page=1&source=client",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, err := url.Parse(tt.base)
			if err != nil {
				t.Fatalf("parse base: %v", err)
			}
			s := &ProxyService{baseURL: base, logger: discardLogger()}

			got := s.buildUpstreamURL(tt.path, tt.query)
			if got != tt.want {
				t.Errorf("buildUpstreamURL(%q, %v) = %q, want %q", tt.path, tt.query, got, tt.want)
			}
		})
	}
}

func TestForward_HappyPath(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/products" {
			t.Errorf("upstream path = %q, want %q", r.URL.Path, "/api/products")
		}
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("page = %q, want %q", r.URL.Query().Get("page"), "2")
		}
		if r.Header.Get("X-Forwarded-For") != "198.51.100.4" {
			t.Errorf("X-Forwarded-For = %q, want %q", r.Header.Get("X-Forwarded-For"), "198.51.100.4")
		}
		if r.Header.Get("X-Custom") != "" {
			t.Errorf("X-Custom should not reach upstream, got %q", r.Header.Get("X-Custom"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"products":[]}`))
	}))
	defer upstream.Close()

	svc := newTestService(t, upstream.URL)

	pr := &model.ProxyRequest{
		Ctx:        context.Background(),
		Method:     http.MethodGet,
		Path:       "/api/products",
		Query:      url.Values{"page": {"2"}},
		Header:     http.Header{"X-Custom": {"foo"}},
		ClientAddr: "198.51.100.4",
		Scheme:     "http",
	}

	resp, err := svc.Forward(pr)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if string(resp.Body) != `{"products":[]}` {
		t.Errorf("body = %q, want %q", string(resp.Body), `{"products":[]}`)
	}
}

func TestForward_FiltersResponseHeaders(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Set-Cookie", "session=abc")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	svc := newTestService(t, upstream.URL)

	pr := &model.ProxyRequest{
		Ctx:        context.Background(),
		Method:     http.MethodGet,
		Path:       "/api/products",
		Query:      url.Values{},
		Header:     http.Header{},
		ClientAddr: "198.51.100.4",
		Scheme:     "http",
	}

	resp, err := svc.Forward(pr)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want %q", resp.Header.Get("Content-Type"), "application/json")
	}
	if resp.Header.Get("Set-Cookie") != "" {
		t.Errorf("Set-Cookie should be stripped, got %q", resp.Header.Get("Set-Cookie"))
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("CORS header should be stripped, got %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestForward_UpstreamErrorPassesThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"validation failed"}`))
	}))
	defer upstream.Close()

	svc := newTestService(t, upstream.URL)

	pr := &model.ProxyRequest{
		Ctx:        context.Background(),
		Method:     http.MethodPost,
		Path:       "/api/products",
		Query:      url.Values{},
		Header:     http.Header{},
		ClientAddr: "198.51.100.4",
		Scheme:     "http",
	}

	resp, err := svc.Forward(pr)
	if err != nil {
		t.Fatalf("Forward() error = %v; upstream application errors are not transport failures", err)
	}

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
	if string(resp.Body) != `{"error":"validation failed"}` {
		t.Errorf("body = %q, want verbatim upstream body", string(resp.Body))
	}
}
