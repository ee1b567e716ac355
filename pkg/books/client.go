// Package books provides a Google Books API client that looks up volumes by
// ISBN and extracts their descriptions.
package books

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/book-fanout/pkg/quota"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for Books API operations.
var (
	booksRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "books_requests_total",
		Help: "Total Books API requests by status",
	}, []string{"status"})

	booksRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "books_request_duration_seconds",
		Help:    "Books API request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	booksErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "books_errors_total",
		Help: "Total Books API errors by class",
	}, []string{"class"})

	booksMissingFieldsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "books_missing_fields_total",
		Help: "Lookups that returned no usable description",
	})
)

// DefaultBaseURL is the public Google Books API root.
const DefaultBaseURL = "https://www.googleapis.com/books/v1"

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// Gate decides whether a request may be sent and learns from responses.
// *quota.Tracker implements it.
type Gate interface {
	ShouldAllowRequest(ctx context.Context) (bool, error)
	UpdateFromResponse(ctx context.Context, resp *http.Response) error
}

// Client is the Books API client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	gate       Gate
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. DefaultBaseURL or a test server.
	BaseURL string

	// APIKey is optional; anonymous access has a much lower daily quota.
	APIKey string

	// UserAgent header (REQUIRED)
	UserAgent string

	// Timeout bounds a single HTTP round trip.
	Timeout time.Duration

	// Redis enables the shared quota gate when set.
	Redis *redis.Client
}

// DefaultConfig returns a default configuration without a quota gate.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   10 * time.Second,
	}
}

// New creates a new Books API client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	logger := log.With().Str("component", "books-client").Logger()

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		config:     cfg,
		logger:     logger,
	}
	if cfg.Redis != nil {
		c.gate = quota.NewTracker(cfg.Redis, logger)
	}
	return c, nil
}

// Do sends req through the quota gate and classifies the outcome.
// Non-2xx responses are returned as *APIError with the body closed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	startTime := time.Now()
	defer func() {
		booksRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	if c.gate != nil {
		allowed, err := c.gate.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Quota check failed")
			return nil, fmt.Errorf("quota check: %w", err)
		}
		if !allowed {
			booksRequestsTotal.WithLabelValues("quota_blocked").Inc()
			return nil, ErrQuotaBlocked
		}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Msg("Executing Books API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errClass := c.classifyError(nil, err)
		booksErrorsTotal.WithLabelValues(string(errClass)).Inc()
		booksRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, &APIError{ErrorClass: errClass, Message: "request failed", Err: err}
	}

	booksRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if c.gate != nil {
		if err := c.gate.UpdateFromResponse(ctx, resp); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update quota state")
		}
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		errClass := c.classifyError(resp, nil)
		booksErrorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Books API request error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    errorMessage(resp),
		}
	}

	return resp, nil
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// errorMessage extracts error.message from a Google API error body,
// falling back to the status text.
func errorMessage(resp *http.Response) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && json.Unmarshal(data, &body) == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return resp.Status
}

// volumesURL builds {base}/volumes?q=isbn:{isbn}[&key=...].
func (c *Client) volumesURL(isbn string) string {
	u := c.baseURL.JoinPath("volumes")
	q := url.Values{}
	q.Set("q", "isbn:"+isbn)
	if c.config.APIKey != "" {
		q.Set("key", c.config.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Lookup searches volumes by ISBN.
func (c *Client) Lookup(ctx context.Context, isbn string) (*VolumesResponse, error) {
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		return nil, errors.New("isbn cannot be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.volumesURL(isbn), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup isbn %s: %w", isbn, err)
	}
	defer resp.Body.Close()

	var out VolumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: isbn %s: %v", ErrMalformedResponse, isbn, err)
	}
	return &out, nil
}

// Description returns the description of the first volume matching isbn.
// It returns ErrMissingField when no volume matches or the field is unusable.
func (c *Client) Description(ctx context.Context, isbn string) (string, error) {
	res, err := c.Lookup(ctx, isbn)
	if err != nil {
		return "", err
	}

	if len(res.Items) == 0 {
		booksMissingFieldsTotal.Inc()
		return "", fmt.Errorf("%w: no volume for isbn %s", ErrMissingField, NormalizeISBN(isbn))
	}

	text, err := res.Items[0].DescriptionText()
	if err != nil {
		booksMissingFieldsTotal.Inc()
		c.logger.Debug().Str("isbn", isbn).Err(err).Msg("Volume has no usable description")
		return "", err
	}
	return text, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetGate replaces the quota gate; nil disables gating.
func (c *Client) SetGate(gate Gate) {
	c.gate = gate
}
