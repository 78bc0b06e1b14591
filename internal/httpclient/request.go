package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/cyp0633/libcalsched/server/storage"
)

const maxResponseBytes = 32 << 20

// StatusError is returned for failed responses that do not carry a
// storage error kind, e.g. 401 or 500.
type StatusError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("unexpected status code %d", e.StatusCode)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var storageKinds = map[storage.ErrorType]bool{
	storage.ErrNotFound:         true,
	storage.ErrAlreadyExists:    true,
	storage.ErrInvalidInput:     true,
	storage.ErrInvalidTimeRange: true,
	storage.ErrInvalidPattern:   true,
}

// decodeError turns an error response into a *storage.Error when the
// server reported one of its kinds, so storage.IsErrorType works on both
// sides of the wire.
func decodeError(resp *http.Response, data []byte) error {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return &StatusError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(data))}
	}
	if kind := storage.ErrorType(body.Error); storageKinds[kind] {
		return &storage.Error{Type: kind, Message: body.Message}
	}
	return &StatusError{StatusCode: resp.StatusCode, Kind: body.Error, Message: body.Message}
}

func (c *httpClientWrapper) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader) ([]byte, error) {
	resolvedURL, err := c.resolveURL(path, query)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "path", path, "error", err)
		return nil, err
	}

	c.logger.Debug("starting request",
		"method", method,
		"url", resolvedURL.String())

	req, err := http.NewRequestWithContext(ctx, method, resolvedURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "error", err)
		return nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("received response",
		"status", resp.Status,
		"length", len(data))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp, data)
	}
	return data, nil
}

// DoJSON implements HttpClientWrapper
func (c *httpClientWrapper) DoJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	data, err := c.do(ctx, method, path, query, contentType, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// DoRaw implements HttpClientWrapper
func (c *httpClientWrapper) DoRaw(ctx context.Context, method, path string, query url.Values, contentType string, body []byte) ([]byte, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	return c.do(ctx, method, path, query, contentType, r)
}
