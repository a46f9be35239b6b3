package crawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/poiesic/lorekeep/core"
	"github.com/poiesic/lorekeep/normalize"
	"golang.org/x/time/rate"
)

// maxResponseSize caps how much of a scrape response is read.
const maxResponseSize = 32 << 20

// Client fetches rendered page content from the crawl service.
// A Client performs exactly one HTTP request per FetchPage call and never
// retries. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient sets the HTTP client used for requests.
// The per-fetch timeout is applied through the request context, so the
// client's own Timeout may be left unset.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client == nil {
			return ErrHTTPClientRequired
		}
		c.httpClient = client
		return nil
	}
}

// WithLimiter shares an existing limiter, overriding the configured rate.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) error {
		c.limiter = limiter
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewClient creates a crawl client. A nil cfg uses DefaultConfig.
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c := &Client{
		cfg:        *cfg,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "crawl")
	return c, nil
}

// HasCredential reports whether an API key is configured.
func (c *Client) HasCredential() bool {
	return c.cfg.APIKey != ""
}

// FetchPage retrieves the main content of rawURL and returns it normalized.
//
// Failures are *core.IngestError values: MissingCredential when no API key is
// configured (no request is made), InvalidURL for anything that is not an
// absolute http or https URL, Timeout when the bounded call runs out of time,
// UpstreamError with the HTTP status for non-2xx or unsuccessful responses,
// and EmptyContent when neither the markdown nor the plain content of the
// page normalizes to any text. When ctx is cancelled
// by the caller the returned error wraps context.Canceled instead.
func (c *Client) FetchPage(ctx context.Context, rawURL string) (*Page, error) {
	target := strings.TrimSpace(rawURL)

	if c.cfg.APIKey == "" {
		return nil, core.NewIngestError(core.KindMissingCredential, target, "set a crawl service API key", nil)
	}
	if err := validateTarget(target); err != nil {
		return nil, core.NewIngestError(core.KindInvalidURL, target, err.Error(), nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(callCtx); err != nil {
			return nil, c.callError(ctx, target, err)
		}
	}

	body, err := json.Marshal(scrapeRequest{
		URL:         target,
		PageOptions: pageOptions{OnlyMainContent: true},
	})
	if err != nil {
		return nil, fmt.Errorf("encode scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.BaseURL+"/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	c.logger.Debug("fetching page", "url", target)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.callError(ctx, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, c.callError(ctx, target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("crawl service rejected request", "url", target, "status", resp.StatusCode)
		return nil, upstreamError(target, resp.StatusCode, errorMessage(raw))
	}

	var sr scrapeResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, upstreamError(target, resp.StatusCode, "malformed response: "+err.Error())
	}
	if !sr.Success {
		msg := sr.Error
		if msg == "" {
			msg = "service reported failure"
		}
		return nil, upstreamError(target, resp.StatusCode, msg)
	}

	text := normalize.Normalize(sr.Data.Markdown)
	if text == "" {
		text = normalize.Normalize(sr.Data.Content)
	}
	if text == "" {
		return nil, core.NewIngestError(core.KindEmptyContent, target, "page has no readable content", nil)
	}

	sourceURL := sr.Data.Metadata.SourceURL
	if sourceURL == "" {
		sourceURL = target
	}

	c.logger.Info("fetched page", "url", target, "bytes", len(text))
	return &Page{
		Content:     text,
		Title:       strings.TrimSpace(sr.Data.Metadata.Title),
		Description: strings.TrimSpace(sr.Data.Metadata.Description),
		SourceURL:   sourceURL,
	}, nil
}

// callError maps a failed wait, request or read. parent is the caller's
// context; a cancellation there is passed through rather than classified.
func (c *Client) callError(parent context.Context, target string, err error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return fmt.Errorf("fetch %s: %w", target, context.Canceled)
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout(),
		isLimiterDeadline(err):
		c.logger.Warn("crawl request timed out", "url", target, "timeout", c.cfg.Timeout)
		return core.NewIngestError(core.KindTimeout, target, fmt.Sprintf("no response within %s", c.cfg.Timeout), err)
	}

	c.logger.Warn("crawl request failed", "url", target, "error", err)
	return core.NewIngestError(core.KindUpstreamError, target, "request failed", err)
}

// isLimiterDeadline matches the error rate.Limiter.Wait returns when the
// reservation would outlast the context deadline.
func isLimiterDeadline(err error) bool {
	return err != nil && strings.Contains(err.Error(), "would exceed context deadline")
}

func upstreamError(target string, status int, message string) *core.IngestError {
	e := core.NewIngestError(core.KindUpstreamError, target, message, nil)
	e.Status = status
	return e
}

// errorMessage extracts a short reason from an error response body.
func errorMessage(raw []byte) string {
	var sr scrapeResponse
	if err := json.Unmarshal(raw, &sr); err == nil && sr.Error != "" {
		return sr.Error
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func validateTarget(target string) error {
	if target == "" {
		return errors.New("url is empty")
	}
	u, err := url.Parse(target)
	if err != nil {
		return errors.New("url cannot be parsed")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q is not allowed", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url has no host")
	}
	return nil
}
