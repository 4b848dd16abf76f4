// Package sharing implements the forwarding side of the gateway: the HTTP
// client for the upstream Delta Sharing server, the wire-format helpers for
// its two response framings, and the listing filter.
package sharing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"
)

// Protocol headers exchanged with clients and the upstream server.
const (
	HeaderSharingKey   = "X-Giga-Sharing-Key"
	HeaderCapabilities = "delta-sharing-capabilities"
	HeaderTableVersion = "delta-table-version"
)

// ErrUpstreamUnavailable indicates the upstream server could not be reached
// or did not answer within the request timeout. Distinct from an upstream
// error status, which is relayed verbatim.
var ErrUpstreamUnavailable = errors.New("upstream sharing server unavailable")

// Config holds the upstream connection settings.
type Config struct {
	// BaseURL is the upstream sharing endpoint including any path prefix,
	// e.g. "http://sharing-server:8890/sharing".
	BaseURL string
	// BearerToken is the service-to-service credential. Caller credentials
	// are never forwarded; the gateway re-authenticates itself.
	BearerToken string
	// MetadataTimeout bounds listing and metadata calls.
	MetadataTimeout time.Duration
	// QueryTimeout bounds bulk data and change-feed calls.
	QueryTimeout time.Duration
}

// DefaultConfig returns upstream settings with production timeouts.
func DefaultConfig() Config {
	return Config{
		MetadataTimeout: 30 * time.Second,
		QueryTimeout:    5 * time.Minute,
	}
}

// Client forwards requests to the upstream sharing server. The underlying
// http.Client is injected so the connection pool is constructed at process
// start and shared across all in-flight requests.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	cfg    Config
	logger *slog.Logger
}

// NewClient creates a Client. httpClient may be nil, in which case a client
// with a bounded keep-alive pool is constructed.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("upstream base URL %q must be absolute", cfg.BaseURL)
	}
	if cfg.MetadataTimeout == 0 {
		cfg.MetadataTimeout = DefaultConfig().MetadataTimeout
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = DefaultConfig().QueryTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 50,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{
		base:   base,
		token:  cfg.BearerToken,
		http:   httpClient,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Request describes one forwarded call.
type Request struct {
	Method string
	// Path is relative to the upstream base URL, e.g. "/shares".
	Path  string
	Query url.Values
	// Capabilities is the caller's delta-sharing-capabilities header value,
	// passed through verbatim when non-empty.
	Capabilities string
	ContentType  string
	Body         io.Reader
	// Bulk selects the longer data-query timeout instead of the metadata one.
	Bulk bool
}

// Response is the outcome of a forwarded call with the body fully read.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// IsError reports whether the upstream answered with an error status. Error
// responses are relayed to the caller unchanged.
func (r *Response) IsError() bool {
	return r.Status >= 400
}

// TableVersion returns the upstream table-version header, empty if absent.
func (r *Response) TableVersion() string {
	return r.Header.Get(HeaderTableVersion)
}

// Forward sends one request upstream and returns the raw response. There are
// no retries: upstream errors are assumed request-caused, and write
// operations are not known to be idempotent from here. Cancelling ctx cancels
// the in-flight upstream call.
func (c *Client) Forward(ctx context.Context, req Request) (*Response, error) {
	timeout := c.cfg.MetadataTimeout
	if req.Bulk {
		timeout = c.cfg.QueryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u := *c.base
	u.Path = path.Join(c.base.Path, req.Path)
	u.RawQuery = req.Query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), req.Body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	if req.Capabilities != "" {
		httpReq.Header.Set(HeaderCapabilities, req.Capabilities)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("upstream request failed",
			"method", req.Method, "path", req.Path, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstreamUnavailable, err)
	}

	c.logger.Debug("upstream request",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}
