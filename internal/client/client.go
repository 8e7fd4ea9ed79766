// Package client talks to the shop's catalog, cart, order and recent-view
// API. Every call is issued at most once; retrying is the caller's decision.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storefront/internal/apperr"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "client").Logger()

const (
	defaultTimeout  = 10 * time.Second
	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 4 << 10
)

// Client issues typed requests against the shop API rooted at baseURL
// (e.g. http://localhost:8080/api).
type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the transport timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request describes one API call. Path segments are escaped individually.
type request struct {
	op     string
	method string
	path   []string
	query  url.Values
	body   any
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	endpoint, err := c.endpoint(r.path, r.query)
	if err != nil {
		return fmt.Errorf("%s: build url: %w", r.op, err)
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", r.op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error().Err(err).Str("op", r.op).Str("request_id", requestID).Msg("request failed")
		return &apperr.NetworkError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	logger.Debug().
		Str("op", r.op).
		Str("method", r.method).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("request_id", requestID).
		Msg("request done")

	if resp.StatusCode >= http.StatusBadRequest {
		return &apperr.ServiceError{Op: r.op, Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &apperr.NetworkError{Op: r.op, Err: err}
		}
		return &apperr.DecodeError{Op: r.op, Err: err}
	}
	return nil
}

func (c *Client) endpoint(segments []string, query url.Values) (string, error) {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	u, err := url.Parse(c.baseURL + "/" + strings.Join(escaped, "/"))
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// errorBody is the service's error envelope.
type errorBody struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	var env errorBody
	if json.Unmarshal(raw, &env) == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

func id(n int64) string {
	return strconv.FormatInt(n, 10)
}

func requireShopper(shopperID string) error {
	if strings.TrimSpace(shopperID) == "" {
		return apperr.Invalid("shopper", "shopper id is required")
	}
	return nil
}
