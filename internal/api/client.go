package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/yildizm/logdash/internal/logger"
	"github.com/yildizm/logdash/internal/monitor"
)

const (
	DefaultBaseURL       = "http://localhost:8000"
	DefaultTimeout       = 30 * time.Second
	DefaultUploadTimeout = 5 * time.Minute
	DefaultMaxRetries    = 3

	maxErrorBody = 64 << 10
)

// Client talks to the log scanning backend
type Client struct {
	baseURL       *url.URL
	httpClient    *http.Client
	timeout       time.Duration
	uploadTimeout time.Duration
	maxRetries    int
	backoff       time.Duration
	logger        *logger.Logger
	tracker       *monitor.Tracker
}

// Option configures a Client
type Option func(*Client)

// WithTimeout bounds every request except uploads
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUploadTimeout bounds POST /upload
func WithUploadTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.uploadTimeout = d
	}
}

// WithRetries sets how many times an idempotent request is retried
func WithRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBackoff sets the first retry delay; later retries double it
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff = d
	}
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the request logger
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTracker records per-operation timings
func WithTracker(t *monitor.Tracker) Option {
	return func(c *Client) {
		c.tracker = t
	}
}

// New creates a client for the backend at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: missing host", baseURL)
	}

	c := &Client{
		baseURL:       u,
		httpClient:    &http.Client{},
		timeout:       DefaultTimeout,
		uploadTimeout: DefaultUploadTimeout,
		maxRetries:    DefaultMaxRetries,
		backoff:       time.Second,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	return c, nil
}

// BaseURL returns the backend origin
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Patterns lists the error patterns the backend can match
func (c *Client) Patterns(ctx context.Context) (*PatternsResponse, error) {
	var resp PatternsResponse
	if err := c.get(ctx, "patterns", "patterns", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status reports whether an index is ready and for which file
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.get(ctx, "status", "status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RagStatus reports the index build state
func (c *Client) RagStatus(ctx context.Context) (*RagStatusResponse, error) {
	var resp RagStatusResponse
	if err := c.get(ctx, "rag-status", "rag-status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Upload sends a log file as multipart field "file" and returns the scan
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (*ScanResult, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart body: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	var result ScanResult
	err = c.once(ctx, "upload", http.MethodPost, "upload", mw.FormDataContentType(), body.Bytes(), &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadFile opens path and uploads it
func (c *Client) UploadFile(ctx context.Context, path string) (*ScanResult, error) {
	f, err := os.Open(path) // #nosec G304 -- path is chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return c.Upload(ctx, path, f)
}

// Query asks a question about the indexed file
func (c *Client) Query(ctx context.Context, question string) (*QueryResponse, error) {
	payload, err := json.Marshal(QueryRequest{Question: question})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp QueryResponse
	if err := c.once(ctx, "query", http.MethodPost, "query", "application/json", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Rescan re-runs the scan of the current file with a subset of patterns
func (c *Client) Rescan(ctx context.Context, patterns []string) (*ScanResult, error) {
	payload, err := json.Marshal(RescanRequest{Patterns: patterns})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rescan: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	var result ScanResult
	if err := c.once(ctx, "rescan", http.MethodPost, "rescan", "application/json", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// get sends an idempotent request, retrying network failures, 429 and 5xx.
func (c *Client) get(ctx context.Context, op, path string, dest any) error {
	var lastErr *TransportError
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoffDelay(attempt, lastErr)
			c.logger.DebugWithFields("retrying request", []logger.Field{
				logger.F("op", op), logger.F("attempt", attempt), logger.Duration(wait),
			})
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return newNetworkError(op, ctx.Err())
			case <-t.C:
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.once(reqCtx, op, http.MethodGet, path, "", nil, dest)
		cancel()
		if err == nil {
			return nil
		}

		var te *TransportError
		if !errors.As(err, &te) || !te.Retryable() || ctx.Err() != nil {
			return err
		}
		lastErr = te
	}
	return lastErr
}

func (c *Client) backoffDelay(attempt int, lastErr *TransportError) time.Duration {
	if lastErr != nil {
		if ra, ok := lastErr.Cause.(retryAfter); ok && ra > 0 {
			return time.Duration(ra)
		}
	}
	return c.backoff * time.Duration(1<<(attempt-1))
}

// retryAfter carries a 429 Retry-After hint as the error cause
type retryAfter time.Duration

func (r retryAfter) Error() string {
	return fmt.Sprintf("retry after %s", time.Duration(r))
}

// once sends one request and decodes a 2xx body into dest.
func (c *Client) once(ctx context.Context, op, method, path, contentType string, payload []byte, dest any) (err error) {
	start := time.Now()
	status := 0
	defer func() {
		elapsed := time.Since(start)
		if c.tracker != nil {
			c.tracker.Observe(op, elapsed, err)
		}
		c.logger.DebugWithFields("request finished", []logger.Field{
			logger.F("op", op), logger.F("status", status), logger.Duration(elapsed),
		})
	}()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newNetworkError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		te := &TransportError{
			Type:       ErrTypeBackend,
			Op:         op,
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(raw),
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			if secs, perr := strconv.Atoi(resp.Header.Get("Retry-After")); perr == nil && secs > 0 {
				te.Cause = retryAfter(time.Duration(secs) * time.Second)
			}
		}
		return te
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return newNetworkError(op, err)
	}

	// The backend answers 202 with only a detail while the index is building.
	if resp.StatusCode == http.StatusAccepted {
		if detail := parseDetail(raw); detail != "" {
			return &TransportError{Type: ErrTypePending, Op: op, StatusCode: resp.StatusCode, Detail: detail}
		}
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return newDecodeError(op, resp.StatusCode, err)
	}
	return nil
}
