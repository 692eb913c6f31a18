// Package fas talks to the external access-control system and pulls its
// workers and attendance into the local directory.
package fas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultTimeout         = 5 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
	maxErrorBody           = 512
)

// Operation names used in errors and ledger entries.
const (
	OperationFetchWorkers    = "fetch_workers"
	OperationFetchAttendance = "fetch_attendance"
)

// ErrNotConfigured is returned when no base URL is set.
var ErrNotConfigured = errors.New("external system not configured")

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Config configures the client.
type Config struct {
	BaseURL         string
	ClientID        string
	ClientSecret    string
	TokenURL        string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Worker is a worker record as served by the external system.
type Worker struct {
	ExternalWorkerID string  `json:"externalWorkerId"`
	Name             string  `json:"name"`
	Phone            string  `json:"phone"`
	DOB              string  `json:"dob"`
	CompanyName      *string `json:"companyName,omitempty"`
	TradeType        *string `json:"tradeType,omitempty"`
}

// AttendanceEvent is a check-in as served by the external system.
type AttendanceEvent struct {
	ExternalEventID  string    `json:"externalEventId"`
	ExternalWorkerID string    `json:"externalWorkerId"`
	CheckinAt        time.Time `json:"checkinAt"`
	SiteID           *string   `json:"siteId,omitempty"`
}

// Client is a JSON HTTP client for the external system, guarded by a
// circuit breaker.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger
}

// NewClient creates a client. OAuth2 client credentials are used when a
// client id and token URL are configured.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = defaultBreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = defaultBreakerTimeout
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.ClientID != "" && cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout})
		httpClient = cc.Client(tokenCtx)
		httpClient.Timeout = cfg.Timeout
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "fas",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// FetchWorkers returns the workers registered at a site.
func (c *Client) FetchWorkers(ctx context.Context, siteID string) ([]Worker, error) {
	endpoint := fmt.Sprintf("%s/sites/%s/workers", c.baseURL, url.PathEscape(siteID))

	var body struct {
		Workers []Worker `json:"workers"`
	}
	if err := c.getJSON(ctx, OperationFetchWorkers, endpoint, &body); err != nil {
		return nil, err
	}
	return body.Workers, nil
}

// FetchAttendance returns check-ins at a site after since. A zero since
// fetches everything the external system still holds.
func (c *Client) FetchAttendance(ctx context.Context, siteID string, since time.Time) ([]AttendanceEvent, error) {
	endpoint := fmt.Sprintf("%s/sites/%s/attendance", c.baseURL, url.PathEscape(siteID))
	if !since.IsZero() {
		endpoint += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}

	var body struct {
		Events []AttendanceEvent `json:"events"`
	}
	if err := c.getJSON(ctx, OperationFetchAttendance, endpoint, &body); err != nil {
		return nil, err
	}
	return body.Events, nil
}

func (c *Client) getJSON(ctx context.Context, operation, endpoint string, out any) error {
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.get(ctx, operation, endpoint)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s: %w", operation, err)
		}
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, operation, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", operation, err)
	}
	return raw, nil
}
