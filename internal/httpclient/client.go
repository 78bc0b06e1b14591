package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// HttpClientWrapper wraps http.Client with the request shapes of the
// scheduling API
type HttpClientWrapper interface {
	// DoJSON sends in (when non-nil) as a JSON body and decodes the response
	// into out (when non-nil).
	DoJSON(ctx context.Context, method, path string, query url.Values, in, out any) error
	// DoRaw sends body with the given content type and returns the raw
	// response body.
	DoRaw(ctx context.Context, method, path string, query url.Values, contentType string, body []byte) ([]byte, error)
}

type httpClientWrapper struct {
	client  *http.Client
	baseURL url.URL
	logger  *slog.Logger
}

// resolveURL resolves a path and query against the base URL
func (c *httpClientWrapper) resolveURL(path string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", path, err)
	}
	resolved := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		resolved.RawQuery = query.Encode()
	}
	return resolved, nil
}

// NewHttpClientWrapper creates a new client wrapper. baseURL should end with
// a slash when the API lives below a path prefix.
func NewHttpClientWrapper(client *http.Client, baseURL url.URL, logger *slog.Logger) (HttpClientWrapper, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &httpClientWrapper{client: client, baseURL: baseURL, logger: logger}, nil
}
