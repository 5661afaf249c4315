// Package agentapi is the HTTP transport between vitals and the metrics agent
// running on the observed host. Every call is a single request/response round
// trip; retrying is left to callers.
package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// maxBodySize caps how much of a response body is read. Process listings on
// busy hosts are the largest payloads and stay well below this.
const maxBodySize = 16 << 20

// DialContextFunc matches net.Dialer.DialContext so tunnels can stand in for TCP.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Client talks to the agent's HTTP API.
type Client struct {
	base    *url.URL
	http    *http.Client
	dial    DialContextFunc
	timeout time.Duration
	log     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithDialContext routes all connections through dial (e.g. an SSH tunnel).
func WithDialContext(dial DialContextFunc) Option {
	return func(c *Client) {
		c.dial = dial
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a client for the agent at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		if err == nil {
			err = fmt.Errorf("expected http(s)://host[:port], got %q", baseURL)
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid agent URL '%s'", baseURL),
			"Set agent.url in .vitals.yaml or pass --url http://host:8000")
	}

	c := &Client{
		base:    u,
		timeout: DefaultTimeout,
		log:     logger.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if c.dial != nil {
			transport.DialContext = c.dial
		}
		c.http = &http.Client{Transport: transport}
	}
	if c.dial == nil {
		d := &net.Dialer{Timeout: c.timeout}
		c.dial = d.DialContext
	}

	return c, nil
}

// BaseURL returns the agent base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// DialContext returns the dial function used for agent connections.
func (c *Client) DialContext() DialContextFunc {
	return c.dial
}

// URL resolves path against the base URL.
func (c *Client) URL(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return u.String()
}

// WebSocketURL resolves path against the base URL with a ws/wss scheme.
func (c *Client) WebSocketURL(path string) string {
	u, _ := url.Parse(c.URL(path))
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return u.String()
}

// GetJSON issues a GET to path and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// PostJSON issues a POST to path with body encoded as JSON and decodes the
// response into out. out may be nil when the response is not needed.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrParse,
				fmt.Sprintf("Couldn't encode request for %s", path), "")
		}
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrFetch,
			fmt.Sprintf("Couldn't build request for %s", path), "")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrFetch,
			fmt.Sprintf("%s %s failed", method, path),
			suggestionForTransportError(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrFetch,
			fmt.Sprintf("%s %s: reading response failed", method, path),
			suggestionForTransportError(err))
	}
	c.log.Debug("%s %s -> %d (%d bytes, %s)", method, path, resp.StatusCode, len(data), time.Since(started).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.WrapWithCode(&StatusError{Code: resp.StatusCode, Body: snippet(data)}, errors.ErrFetch,
			fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode),
			suggestionForStatus(resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.WrapWithCode(err, errors.ErrParse,
			fmt.Sprintf("Couldn't decode response from %s", path),
			"The agent may be a different version than this client expects")
	}
	return nil
}

// StatusError carries a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// IsNotFound reports whether err is a 404 from the agent.
func IsNotFound(err error) bool {
	var se *StatusError
	return stderrors.As(err, &se) && se.Code == http.StatusNotFound
}

// IsTimeout reports whether err came from a request exceeding its deadline.
func IsTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return stderrors.As(err, &ne) && ne.Timeout()
}

// maxSnippet caps how much of an error body is kept, in bytes.
const maxSnippet = 200

// snippet trims an error body for display, cutting on a rune boundary.
func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) <= maxSnippet {
		return s
	}
	cut := maxSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func suggestionForTransportError(err error) string {
	if IsTimeout(err) {
		return "The agent didn't answer in time. It may be overloaded, or the timeout is too short."
	}
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is the agent running? Check agent.url in .vitals.yaml"
	}
	if strings.Contains(errStr, "no such host") {
		return "The agent host name doesn't resolve. Check agent.url"
	}
	return "Make sure the agent is reachable from this machine"
}

func suggestionForStatus(code int) string {
	switch {
	case code == http.StatusNotFound:
		return "The agent doesn't serve this endpoint. Check the agent version"
	case code >= 500:
		return "The agent hit an internal error. Check its logs"
	default:
		return ""
	}
}
