// Package http provides HTTP implementations of the hansard sitemap, fetch
// and roster services. Every call site shares one Client carrying the user
// agent, retry policy and robots.txt policy.
package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/fwojciec/hansard"
	"github.com/temoto/robotstxt"
)

// DefaultUserAgent identifies the harvester to remote servers.
const DefaultUserAgent = "hansard/1.0 (+https://github.com/fwojciec/hansard)"

// DefaultTimeout is the default timeout for a single HTTP request.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBodySize bounds a single response body.
const DefaultMaxBodySize = 64 << 20

// RetryPolicy bounds retries of transient failures with exponential backoff.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the delay before the first retry; it doubles per retry.
	BaseDelay time.Duration

	// MaxDelay caps a single delay.
	MaxDelay time.Duration

	// Jitter is the fraction (0..1) by which a delay is randomly shortened
	// or lengthened.
	Jitter float64
}

// DefaultRetryPolicy returns the retry policy used by the CLI: 1s, 2s, 4s, 8s, 16s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Jitter:     0.2,
	}
}

// Delay returns the wait before retry number attempt (0-based). r is a
// uniform random value in [0, 1).
func (p RetryPolicy) Delay(attempt int, r float64) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt && (p.MaxDelay <= 0 || d < p.MaxDelay); i++ {
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		d = time.Duration(float64(d) * (1 + p.Jitter*(2*r-1)))
	}
	return d
}

// Config configures a Client.
type Config struct {
	UserAgent     string
	Retry         RetryPolicy
	Timeout       time.Duration
	RespectRobots bool
	// MaxBodySize is the largest accepted response body in bytes.
	MaxBodySize int64
}

// Client performs GET requests with retries and optional robots.txt
// compliance. It is safe for concurrent use.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger

	robotsMu sync.Mutex
	robots   map[string]*robotstxt.RobotsData
}

// NewClient creates a Client. Zero fields of cfg take their defaults.
// A nil logger discards retry messages.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		robots: make(map[string]*robotstxt.RobotsData),
	}
}

// Get retrieves the body of rawURL.
//
// Network errors, 429 and 5xx responses are retried according to the retry
// policy; exhausting it returns ETRANSIENT. 404 and 410 return ENOTFOUND,
// other 4xx responses fail immediately. A URL disallowed by robots.txt
// returns EINVALID without a request, and a body larger than MaxBodySize
// returns EINVALID without retrying.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if c.config.RespectRobots {
		allowed, err := c.allowed(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, hansard.Errorf(hansard.EINVALID, "robots.txt disallows %s", rawURL)
		}
	}

	for attempt := 0; ; attempt++ {
		body, retryAfter, err := c.get(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		if retryAfter < 0 {
			return nil, err
		}
		if attempt >= c.config.Retry.MaxRetries {
			return nil, hansard.Errorf(hansard.ETRANSIENT, "%s: giving up after %d attempts: %v", rawURL, attempt+1, err)
		}

		delay := c.config.Retry.Delay(attempt, rand.Float64())
		if retryAfter > delay {
			delay = retryAfter
			if limit := c.config.Retry.MaxDelay; limit > 0 && delay > limit {
				delay = limit
			}
		}
		c.logger.Warn("retrying request", "url", rawURL, "attempt", attempt+2, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// get performs one request. retryAfter is negative when the failure must not
// be retried, and otherwise the server-requested minimum delay (often zero).
func (c *Client) get(ctx context.Context, rawURL string) (body []byte, retryAfter time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, -1, hansard.Errorf(hansard.EINVALID, "invalid URL %q: %v", rawURL, err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, -1, ctx.Err()
		}
		return nil, 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		limit := c.config.MaxBodySize
		body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
		if err != nil {
			return nil, 0, fmt.Errorf("read body: %w", err)
		}
		if int64(len(body)) > limit {
			return nil, -1, hansard.Errorf(hansard.EINVALID, "%s: body exceeds %d bytes", rawURL, limit)
		}
		return body, 0, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL)
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, -1, hansard.Errorf(hansard.ENOTFOUND, "HTTP %d for %s", resp.StatusCode, rawURL)
	default:
		return nil, -1, fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL)
	}
}

// parseRetryAfter reads a delay-seconds Retry-After header.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// allowed reports whether robots.txt of the URL's host permits the request.
// Robots data is fetched once per host; an unreachable robots.txt allows
// everything.
func (c *Client) allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, hansard.Errorf(hansard.EINVALID, "invalid URL %q: %v", rawURL, err)
	}
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	c.robotsMu.Lock()
	robots, ok := c.robots[robotsURL]
	c.robotsMu.Unlock()

	if !ok {
		robots = c.fetchRobots(ctx, robotsURL)
		c.robotsMu.Lock()
		c.robots[robotsURL] = robots
		c.robotsMu.Unlock()
	}
	if robots == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return robots.TestAgent(path, c.config.UserAgent), nil
}

func (c *Client) fetchRobots(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("robots.txt unavailable", "url", robotsURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodySize))
	if err != nil {
		return nil
	}
	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		c.logger.Warn("robots.txt unreadable", "url", robotsURL, "error", err)
		return nil
	}
	return robots
}
