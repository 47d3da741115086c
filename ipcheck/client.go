package ipcheck

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultEndpoint is the upstream IP lookup service.
	DefaultEndpoint = "https://ifconfig.me"

	// DefaultUserAgent identifies this server to the upstream service
	// unless overridden.
	DefaultUserAgent = "ModelContextProtocol/1.0 (IP Checker)"

	// DefaultTimeout bounds the outbound call. There is no retry, so a
	// timed-out call surfaces immediately as a transport error.
	DefaultTimeout = 10 * time.Second

	// jsonPath is appended to the endpoint for json format lookups.
	jsonPath = "/all.json"
)

// Format selects the upstream representation.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Client performs IP lookups against the upstream service. A Client is safe
// for concurrent use; invocations share nothing but the underlying HTTP
// client.
type Client struct {
	http      *resty.Client
	endpoint  string
	userAgent string
	logger    *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithEndpoint overrides the upstream endpoint, mainly for tests.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithUserAgent overrides the User-Agent header sent upstream.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout overrides the outbound request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithHTTPTransport injects a custom round tripper, so tests can stub the
// upstream without network access.
func WithHTTPTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.http.SetTransport(rt)
	}
}

// WithClientLogger sets the logger for lookup activity.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a lookup client with redirect following, the default
// user agent, and the default 10 second timeout.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:      resty.New(),
		endpoint:  DefaultEndpoint,
		userAgent: DefaultUserAgent,
		logger:    slog.New(slog.DiscardHandler),
	}
	c.http.SetTimeout(DefaultTimeout)
	c.http.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	for _, opt := range opts {
		opt(c)
	}

	c.http.SetHeader("User-Agent", c.userAgent)

	return c
}

// UserAgent returns the User-Agent header the client sends upstream.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Lookup issues one GET to the upstream service and returns the response
// body verbatim. An empty format defaults to text. Any format outside
// {text, json} fails with an invalid parameter error before any network
// activity. A single attempt is made; there is no retry.
func (c *Client) Lookup(ctx context.Context, format Format) (string, error) {
	url := c.endpoint
	switch format {
	case FormatText, "":
	case FormatJSON:
		url += jsonPath
	default:
		return "", invalidParameter(fmt.Sprintf("format must be text or json, got %q", format))
	}

	c.logger.Debug("querying upstream", "url", url)

	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		c.logger.Error("lookup failed", "url", url, "error", err)
		return "", transportError(err)
	}

	if resp.StatusCode() >= 400 {
		c.logger.Error("upstream error", "url", url, "status", resp.StatusCode())
		return "", upstreamError(resp.StatusCode())
	}

	c.logger.Debug("lookup succeeded", "url", url, "status", resp.StatusCode())

	return resp.String(), nil
}
