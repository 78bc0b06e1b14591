package httpclient

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// maxLoggedBody bounds how much of each body ends up in debug logs
const maxLoggedBody = 2048

// BasicAuthTransport implements http.RoundTripper and adds Basic Auth
// authentication to outgoing requests.
type BasicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewBasicAuthTransport creates a new BasicAuthTransport with the given
// credentials and optional underlying transport. If transport is nil,
// http.DefaultTransport will be used.
func NewBasicAuthTransport(username, password string, transport http.RoundTripper, logger *slog.Logger) *BasicAuthTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BasicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: transport,
		Logger:    logger,
	}
}

// peekBody reads the body for logging and puts an equivalent reader back
func peekBody(body io.ReadCloser) (string, io.ReadCloser) {
	if body == nil || body == http.NoBody {
		return "", body
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return "", io.NopCloser(bytes.NewReader(data))
	}
	logged := data
	if len(logged) > maxLoggedBody {
		logged = logged[:maxLoggedBody]
	}
	return string(logged), io.NopCloser(bytes.NewReader(data))
}

// RoundTrip implements the http.RoundTripper interface. It adds Basic Auth
// credentials to a copy of the request and delegates to the underlying
// transport.
func (t *BasicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Username == "" {
		return nil, errors.New("basic auth username cannot be empty")
	}
	if t.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	out := req.Clone(req.Context())
	var reqBody string
	reqBody, out.Body = peekBody(out.Body)

	t.Logger.Debug("outgoing request",
		"method", out.Method,
		"url", out.URL.String(),
		"body", reqBody)

	out.SetBasicAuth(t.Username, t.Password)
	resp, err := t.Transport.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	var respBody string
	respBody, resp.Body = peekBody(resp.Body)
	t.Logger.Debug("incoming response",
		"status", resp.Status,
		"body", respBody)

	return resp, nil
}
