package kliento

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adiwarsito/kliento/internal/backoff"
)

// WithBaseURL sets the backend base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithAuthProvider sets the token source for Authorization injection and
// 401-triggered refresh. The client never owns the provider's lifecycle.
func WithAuthProvider(p AuthProvider) Option {
	return func(c *Client) {
		c.auth = p
	}
}

// WithDefaultOrg sets the tenant sent as X-Org-Id when a request does not
// override it.
func WithDefaultOrg(orgID string) Option {
	return func(c *Client) {
		c.defaultOrg = orgID
	}
}

// WithRetryConfig replaces the client-wide retry configuration.
func WithRetryConfig(rc RetryConfig) Option {
	return func(c *Client) {
		c.retry = rc
	}
}

// WithMaxAttempts sets the number of retries after the initial try.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		c.retry.Attempts = n
	}
}

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retry.Base = d
	}
}

// WithMaxDelay caps any single retry delay.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retry.Max = d
	}
}

// WithBackoffMultiplier sets the geometric growth factor.
func WithBackoffMultiplier(f float64) Option {
	return func(c *Client) {
		c.retry.Multiplier = f
	}
}

// WithJitter sets the uniform jitter fraction, clamped to [0, 1].
func WithJitter(f float64) Option {
	return func(c *Client) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		c.retry.Jitter = f
	}
}

// WithRetryMethods replaces the retry allow-list.
func WithRetryMethods(methods ...string) Option {
	return func(c *Client) {
		upper := make([]string, len(methods))
		for i, m := range methods {
			upper[i] = strings.ToUpper(m)
		}
		c.retry.Methods = upper
	}
}

// WithBackoffStrategy swaps the delay algorithm (see internal defaults:
// exponential jitter; decorrelated jitter is also available).
func WithBackoffStrategy(s backoff.Strategy) Option {
	return func(c *Client) {
		c.strategy = s
	}
}

// WithHTTPClient sets a custom underlying HTTP client. The caller is
// responsible for attaching a cookie jar if cookie-based flows are needed.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout on the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithOnError registers a callback invoked once per failed request with the
// normalized APIError, after retries are exhausted.
func WithOnError(fn func(*APIError)) Option {
	return func(c *Client) {
		c.onError = fn
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithDebug enables debug logging with the default event selection.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets a custom debug event selection.
func WithDebugConfig(cfg *DebugConfig) Option {
	return func(c *Client) {
		c.debug = cfg
	}
}

// WithSimpleLogger enables debug logging to stderr.
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(mc *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = mc
	}
}

// WithRateLimiter enables the client-side token bucket.
func WithRateLimiter(maxTokens int, refillRate time.Duration) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(maxTokens, refillRate)
	}
}

// WithDeduplication coalesces identical concurrent idempotent requests.
func WithDeduplication() Option {
	return func(c *Client) {
		c.dedup = newDeduplicationTracker()
	}
}

// WithDeduplicationCondition customizes which requests may coalesce.
func WithDeduplicationCondition(fn DeduplicationCondition) Option {
	return func(c *Client) {
		c.dedupCond = fn
	}
}

// ValidateConfiguration checks the configuration and returns an error
// listing every problem found.
func (c *Client) ValidateConfiguration() error {
	var problems []string

	problems = append(problems, c.validateBaseURL()...)
	problems = append(problems, c.validateRetry()...)
	problems = append(problems, c.validateTransport()...)
	problems = append(problems, c.validateRateLimiter()...)
	problems = append(problems, c.validateDebug()...)
	problems = append(problems, c.validateDeduplication()...)

	if len(problems) > 0 {
		return fmt.Errorf("invalid client configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Client) validateBaseURL() []string {
	var problems []string
	if c.baseURL == "" {
		problems = append(problems, "baseURL must not be empty")
		return problems
	}
	if u, err := url.Parse(c.baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("baseURL %q must be an absolute URL", c.baseURL))
	}
	return problems
}

func (c *Client) validateRetry() []string {
	var problems []string
	if c.retry.Attempts < 0 {
		problems = append(problems, "retry attempts must be non-negative")
	}
	if c.retry.Base <= 0 {
		problems = append(problems, "retry base delay must be positive")
	}
	if c.retry.Max < c.retry.Base {
		problems = append(problems, "retry max delay must be >= base delay")
	}
	if c.retry.Multiplier <= 0 {
		problems = append(problems, "backoff multiplier must be positive")
	}
	if c.retry.Jitter < 0 || c.retry.Jitter > 1 {
		problems = append(problems, "jitter must be between 0 and 1")
	}
	if c.retry.Attempts > 100 {
		problems = append(problems, "retry attempts > 100 may cause excessive resource usage")
	}
	for _, m := range c.retry.Methods {
		if m != strings.ToUpper(m) {
			problems = append(problems, fmt.Sprintf("retry method %q must be upper-case", m))
		}
	}
	return problems
}

func (c *Client) validateTransport() []string {
	var problems []string
	if c.httpClient == nil {
		problems = append(problems, "HTTP client must not be nil")
	}
	if c.strategy == nil {
		problems = append(problems, "backoff strategy must not be nil")
	}
	return problems
}

func (c *Client) validateRateLimiter() []string {
	var problems []string
	if c.rateLimiter != nil {
		if c.rateLimiter.maxTokens <= 0 {
			problems = append(problems, "rate limiter maxTokens must be positive")
		}
		if c.rateLimiter.refillRate <= 0 {
			problems = append(problems, "rate limiter refillRate must be positive")
		}
	}
	return problems
}

func (c *Client) validateDebug() []string {
	var problems []string
	if c.debug != nil && c.debug.Enabled && c.logger == nil {
		problems = append(problems, "logger must be set when debug logging is enabled")
	}
	return problems
}

func (c *Client) validateDeduplication() []string {
	var problems []string
	if c.dedup != nil && c.dedupCond == nil {
		problems = append(problems, "deduplication condition must be set when deduplication is enabled")
	}
	return problems
}
