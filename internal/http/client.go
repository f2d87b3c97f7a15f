package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Common errors.
var (
	ErrTransport       = errors.New("http: transport failure")
	ErrUnknownBodyType = errors.New("http: unknown body data type")
)

// BodyType selects how a request body is encoded.
type BodyType string

const (
	BodyForm BodyType = "form"
	BodyJSON BodyType = "json"
)

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 4
	MaxIdleConnsPerHost int

	// Timeout for individual requests, including reading the body.
	// Default: 0 (no timeout)
	Timeout time.Duration

	// RetryAttempts is the total number of attempts made when the
	// transport fails. HTTP error statuses are never retried.
	// Default: 5
	RetryAttempts int

	// RetryBackoff is the initial backoff duration. Zero retries immediately.
	// Default: 0
	RetryBackoff time.Duration

	// RetryMaxBackoff caps the backoff duration.
	// Default: 30s
	RetryMaxBackoff time.Duration

	// Logger receives one entry per failed attempt.
	Logger logrus.FieldLogger
}

// DefaultOptions returns options matching the generator's expectations.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 4,
		RetryAttempts:       5,
		RetryMaxBackoff:     30 * time.Second,
	}
}

// Credentials are sent as HTTP basic auth when set.
type Credentials struct {
	Username string
	Password string
}

// Request describes a single logical call. Body must be url.Values for
// BodyForm and any JSON-marshalable value for BodyJSON.
type Request struct {
	Method   string
	URL      string
	Body     any
	BodyType BodyType
	Auth     *Credentials
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return isSuccess(r.StatusCode)
}

// Err returns a *StatusError for non-2xx responses and nil otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{Code: r.StatusCode, Body: string(r.Body)}
}

// StatusError is returned for non-2xx server responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	if body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, body)
}

// Client performs requests with a bounded number of transport-level retries.
type Client struct {
	client *http.Client
	opts   Options
	log    logrus.FieldLogger
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 1
	}
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = 4
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
		log:  log.WithField("component", "http"),
	}
}

// Do performs req, retrying only when the transport fails. Non-2xx
// responses are returned without error; use Response.Err to check them.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	payload, contentType, err := encodeBody(req.Body, req.BodyType)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	resp, err := c.send(ctx, method, req.URL, payload, contentType, req.Auth)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Stream performs a GET and returns the live body for streaming. Non-2xx
// responses are closed and returned as *StatusError.
func (c *Client) Stream(ctx context.Context, rawURL string, auth *Credentials) (io.ReadCloser, error) {
	resp, err := c.send(ctx, http.MethodGet, rawURL, nil, "", auth)
	if err != nil {
		return nil, err
	}

	if !isSuccess(resp.StatusCode) {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: string(snippet)}
	}

	return resp.Body, nil
}

// send runs the retry loop and returns the first response the transport
// delivered, whatever its status.
func (c *Client) send(ctx context.Context, method, rawURL string, payload []byte, contentType string, auth *Credentials) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 1 {
			if err := c.backoff(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if auth != nil {
			req.SetBasicAuth(auth.Username, auth.Password)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.log.WithFields(logrus.Fields{
				"url":     rawURL,
				"attempt": attempt,
			}).Warnf("[%d/%d] Request unsuccessful: %v", attempt, c.opts.RetryAttempts, err)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("%w: %s %s failed after %d attempts: %v", ErrTransport, method, rawURL, c.opts.RetryAttempts, lastErr)
}

// backoff waits for an exponentially increasing duration with jitter.
// It returns immediately when no backoff is configured.
func (c *Client) backoff(ctx context.Context, retry int) error {
	if c.opts.RetryBackoff <= 0 {
		return ctx.Err()
	}

	backoff := c.opts.RetryBackoff * time.Duration(1<<uint(retry-1))
	if c.opts.RetryMaxBackoff > 0 && backoff > c.opts.RetryMaxBackoff {
		backoff = c.opts.RetryMaxBackoff
	}

	// Add jitter: 0.5 to 1.5 of backoff
	jitter := time.Duration(float64(backoff) * (0.5 + rand.Float64()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jitter):
		return nil
	}
}

func encodeBody(body any, bodyType BodyType) ([]byte, string, error) {
	if body == nil {
		return nil, "", nil
	}

	switch bodyType {
	case BodyForm:
		values, ok := body.(url.Values)
		if !ok {
			return nil, "", fmt.Errorf("%w: form body must be url.Values, got %T", ErrUnknownBodyType, body)
		}
		return []byte(values.Encode()), "application/x-www-form-urlencoded", nil
	case BodyJSON, "":
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("encode json body: %w", err)
		}
		return data, "application/json", nil
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownBodyType, bodyType)
	}
}

func isSuccess(code int) bool {
	return code >= 200 && code <= 299
}
