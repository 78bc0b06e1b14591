// Package schedclient is a Go client for the scheduling REST API.
package schedclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cyp0633/libcalsched/internal/httpclient"
	"github.com/cyp0633/libcalsched/server/schedule"
	"github.com/cyp0633/libcalsched/server/storage"
)

// Client defines the scheduling API operations
type Client interface {
	Events() EventQuery

	GetEvent(ctx context.Context, id string) (storage.Event, error)
	CreateEvent(ctx context.Context, event storage.Event) (storage.Event, error)
	UpdateEvent(ctx context.Context, id string, patch storage.EventPatch) (storage.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	CreateBulkEvents(ctx context.Context, events []storage.Event) ([]storage.Event, error)
	DeleteBulkEvents(ctx context.Context, ids []string) (int, error)

	Upcoming(ctx context.Context, userID string, limit int) ([]storage.Event, error)
	Today(ctx context.Context, userID string) ([]storage.Event, error)
	Search(ctx context.Context, query, userID string) ([]storage.Event, error)
	Stats(ctx context.Context, userID string) (schedule.EventStats, error)

	ExportICS(ctx context.Context) ([]byte, error)
	ExportXLSX(ctx context.Context, from, to time.Time) ([]byte, error)
	ImportICS(ctx context.Context, data []byte) ([]storage.Event, error)
}

type schedClient struct {
	httpClient httpclient.HttpClientWrapper
}

// NewClient creates a client on top of an existing wrapper
func NewClient(httpClient httpclient.HttpClientWrapper) Client {
	return &schedClient{httpClient: httpClient}
}

// Options configures New
type Options struct {
	Username string
	Password string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// New creates a client for the API rooted at baseURL, e.g.
// "http://localhost:8080/api". Basic auth is used when Username is set.
func New(baseURL string, opts Options) (Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	hc := &http.Client{Timeout: timeout}
	if opts.Username != "" {
		hc.Transport = httpclient.NewBasicAuthTransport(opts.Username, opts.Password, nil, logger)
	}

	wrapper, err := httpclient.NewHttpClientWrapper(hc, *base, logger)
	if err != nil {
		return nil, err
	}
	return NewClient(wrapper), nil
}
