package webclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

func init() {
	RegisterDefaultBackends()
}

// RegisterDefaultBackends registers the nethttp backend.
func RegisterDefaultBackends() {
	RegisterBackend("nethttp", func(_ Config, logger *zap.Logger) (Client, error) {
		return NewNetHTTPClient(nil, logger), nil
	})
}

// NetHTTPClient is the net/http backed Client. The per-request timeout comes
// from the Fetch call, so the underlying http.Client carries no Timeout of
// its own.
type NetHTTPClient struct {
	client *http.Client
	logger *zap.Logger
}

// NewNetHTTPClient wraps httpClient, or a tuned default when nil.
func NewNetHTTPClient(httpClient *http.Client, logger *zap.Logger) *NetHTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	return &NetHTTPClient{
		client: httpClient,
		logger: logger.With(zap.String("backend", "nethttp")),
	}
}

// Fetch issues a single GET, following redirects under the default policy,
// and converts transport failures into kind-tagged FetchErrors.
func (c *NetHTTPClient) Fetch(ctx context.Context, rawURL string, timeout time.Duration) (*FetchResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindOther, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		kind := classify(err)
		c.logger.Warn("fetch failed",
			zap.String("url", rawURL),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return nil, &FetchError{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		kind := classify(err)
		c.logger.Warn("fetch body read failed",
			zap.String("url", rawURL),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return nil, &FetchError{Kind: kind, Err: err}
	}

	result := &FetchResult{
		FinalURL:       resp.Request.URL.String(),
		StatusCode:     resp.StatusCode,
		ElapsedSeconds: elapsed.Seconds(),
		Headers:        lowerHeaders(resp.Header),
		SetCookies:     resp.Header.Values("Set-Cookie"),
		Body:           body,
		BodySizeBytes:  len(body),
		FetchedAt:      start.UTC(),
	}

	c.logger.Debug("fetched",
		zap.String("url", rawURL),
		zap.String("final_url", result.FinalURL),
		zap.Int("status", result.StatusCode),
		zap.Float64("elapsed_s", result.ElapsedSeconds),
		zap.Int("size_bytes", result.BodySizeBytes))

	return result, nil
}

func (c *NetHTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// classify maps a transport error onto the fetch error taxonomy.
func classify(err error) ErrKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// url.Error wraps the transport failure; "connection refused"
		// and friends land here when the inner error is opaque.
		msg := urlErr.Err.Error()
		if strings.Contains(msg, "connect") || strings.Contains(msg, "no such host") ||
			strings.Contains(msg, "EOF") || strings.Contains(msg, "reset") {
			return KindConnection
		}
	}
	return KindOther
}

func lowerHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		lower := strings.ToLower(key)
		if lower == "set-cookie" {
			continue
		}
		out[lower] = strings.Join(values, ", ")
	}
	return out
}
