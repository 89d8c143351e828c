package kliento

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adiwarsito/kliento/internal/backoff"
	"github.com/adiwarsito/kliento/internal/singleflight"
)

// Client is a typed API client for multi-tenant REST backends. It layers
// auth-header injection, single-flight token refresh, bounded retries with
// backoff, tenant and tracing header propagation, and problem-details error
// normalization around the standard net/http Client. It is safe for
// concurrent use; Configure is the only mutation path and must not race with
// in-flight requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	auth       AuthProvider
	defaultOrg string

	retry    RetryConfig
	strategy backoff.Strategy

	onError func(*APIError)
	logger  Logger
	debug   *DebugConfig

	metrics     *MetricsCollector
	rateLimiter *RateLimiter
	dedup       *deduplicationTracker
	dedupCond   DeduplicationCondition

	refreshGate singleflight.Gate

	mu              sync.Mutex
	validationError error
}

// rawResponse is a fully drained successful response, shared verbatim
// between deduplicated callers before each decodes into its own target.
type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

// New constructs a Client from the provided functional options. A cookie jar
// is attached to the default transport so session cookies flow alongside
// bearer tokens. Validation is best effort; check IsValid / ValidationError.
func New(options ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		baseURL:   DefaultBaseURL,
		retry:     DefaultRetryConfig(),
		strategy:  backoff.Exponential{},
		debug:     DefaultDebugConfig(),
		dedupCond: DefaultDeduplicationCondition,
	}

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Configure applies options to an existing client and revalidates. It is a
// shallow merge over the current configuration and is not safe to call while
// requests are in flight; prefer constructing a new client when isolation
// matters.
func (c *Client) Configure(options ...Option) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, option := range options {
		option(c)
	}
	err := c.ValidateConfiguration()
	c.validationError = err
	return err
}

// AuthProvider returns the configured auth provider. Generated glue should
// use this accessor instead of reaching into client internals.
func (c *Client) AuthProvider() AuthProvider {
	return c.auth
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsValid reports whether configuration validation passed.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// Get performs a GET request, decoding the response into out (may be nil).
func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, NewRequest(http.MethodGet, path, opts...), out)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	req := NewRequest(http.MethodPost, path, opts...)
	req.Body = body
	return c.Do(ctx, req, out)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	req := NewRequest(http.MethodPut, path, opts...)
	req.Body = body
	return c.Do(ctx, req, out)
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	req := NewRequest(http.MethodPatch, path, opts...)
	req.Body = body
	return c.Do(ctx, req, out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, NewRequest(http.MethodDelete, path, opts...), out)
}

// Do executes a request descriptor through the full pipeline: optional
// deduplication, the retry loop, the single attempt executor with 401
// refresh-and-replay, and finally body decoding. Every failure surfaces as
// exactly one *APIError.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	if req.Method == "" {
		req.Method = http.MethodGet
	} else {
		req.Method = strings.ToUpper(req.Method)
	}

	fullURL, err := req.buildURL(c.baseURL)
	if err != nil {
		apiErr := asAPIError(err)
		c.reportError(apiErr, req.Method, "unknown")
		return apiErr
	}
	endpoint := endpointLabel(fullURL)

	start := time.Now()
	c.metrics.RecordRequestStart(req.Method, endpoint)
	defer c.metrics.RecordRequestEnd(req.Method, endpoint)

	var res *rawResponse
	if c.dedup != nil && c.dedupCond(req) {
		key := c.dedupKey(req, fullURL)
		entry, owner := c.dedup.getOrCreate(key)
		if owner {
			res, err = c.doWithRetry(ctx, req, fullURL, endpoint)
			c.dedup.complete(key, res, err)
		} else {
			c.metrics.RecordDeduplicationHit(req.Method, endpoint)
			if c.debugOn() {
				c.logger.Debug("coalesced onto in-flight request", "method", req.Method, "endpoint", endpoint)
			}
			res, err = entry.wait(ctx)
			if err != nil && ctx.Err() != nil {
				err = networkError("request cancelled while awaiting coalesced response", ctx.Err())
			}
		}
	} else {
		res, err = c.doWithRetry(ctx, req, fullURL, endpoint)
	}

	status := 0
	if res != nil {
		status = res.status
	}
	c.metrics.RecordRequest(req.Method, endpoint, status, time.Since(start))

	if err != nil {
		apiErr := asAPIError(err)
		c.reportError(apiErr, req.Method, endpoint)
		return apiErr
	}
	return c.decodeBody(res, out)
}

// doWithRetry wraps the executor in a bounded retry loop. Only methods on
// the allow-list are retried, and only for transport failures and 5xx
// responses; the last APIError is returned unchanged once the budget is
// exhausted.
func (c *Client) doWithRetry(ctx context.Context, req *Request, fullURL, endpoint string) (*rawResponse, error) {
	cfg := c.retry.merged(req.Retry)
	attempts := cfg.Attempts
	if attempts < 0 {
		attempts = 0
	}

	for attempt := 0; ; attempt++ {
		res, err := c.execute(ctx, req, fullURL, endpoint)
		if err == nil {
			return res, nil
		}

		apiErr := asAPIError(err)
		if attempt >= attempts || !cfg.methodAllowed(req.Method) || !apiErr.Retriable() {
			return nil, apiErr
		}

		delay := c.strategy.Delay(attempt, cfg.Base, cfg.Max, cfg.Multiplier, cfg.Jitter)
		c.metrics.RecordRetry(req.Method, endpoint, attempt+1)
		if c.debugOn() && c.debug.LogRetries {
			c.logger.Info("scheduling retry",
				"method", req.Method, "endpoint", endpoint,
				"attempt", attempt+1, "maxAttempts", attempts, "delay", delay, "code", apiErr.Code)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, networkError("request cancelled during retry backoff", ctx.Err())
		}
	}
}

// execute performs a single HTTP attempt. A 401 on an authenticated request
// triggers the single-flight refresh and exactly one replay; that replay is
// the only automatic auth retry and is independent of the retry loop above.
func (c *Client) execute(ctx context.Context, req *Request, fullURL, endpoint string) (*rawResponse, error) {
	if c.rateLimiter != nil && !c.rateLimiter.Allow() {
		c.metrics.RecordRateLimited(endpoint)
		return nil, NewAPIError("rate limit exceeded", 0, CodeRateLimited)
	}

	bodyReader, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, bodyReader)
	if err != nil {
		return nil, networkError("failed to build request", err)
	}
	c.injectHeaders(httpReq, req)

	if c.debugOn() && c.debug.LogRequests {
		c.logger.Debug("sending request",
			"method", req.Method, "url", fullURL,
			"requestID", httpReq.Header.Get("X-Request-Id"),
			"headers", redactHeaders(httpReq.Header))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, networkError("network request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError("failed to read response body", err)
	}

	if c.debugOn() && c.debug.LogResponses {
		c.logger.Debug("received response",
			"method", req.Method, "url", fullURL,
			"status", resp.StatusCode, "bytes", len(data),
			"requestID", resp.Header.Get("X-Request-Id"))
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.SkipAuth && !req.replayed && c.auth != nil {
		if err := c.ensureFreshToken(ctx); err != nil {
			return nil, err
		}
		return c.execute(ctx, req.replayCopy(), fullURL, endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrorFromResponse(resp.StatusCode, resp.Header, data)
	}

	return &rawResponse{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

// injectHeaders applies headers in a fixed order: caller headers first, then
// Authorization (unless skipped or the token is blank), X-Org-Id (per-call
// override, else the client default), a generated X-Request-Id when the
// caller did not set one, and Content-Type for JSON bodies.
func (c *Client) injectHeaders(httpReq *http.Request, req *Request) {
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if !req.SkipAuth && c.auth != nil {
		if token := strings.TrimSpace(c.auth.AccessToken()); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	org := req.OrgID
	if org == "" {
		org = c.defaultOrg
	}
	if org != "" {
		httpReq.Header.Set("X-Org-Id", org)
	}

	if httpReq.Header.Get("X-Request-Id") == "" {
		httpReq.Header.Set("X-Request-Id", uuid.NewString())
	}

	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
}

// decodeBody parses a successful response into out by content type. JSON
// bodies that fail to parse are tolerated: out keeps its zero value and no
// decode error escapes. Non-JSON bodies are delivered as text into *string
// or *[]byte targets.
func (c *Client) decodeBody(res *rawResponse, out any) error {
	if out == nil || res == nil || len(res.body) == 0 || res.status == http.StatusNoContent {
		return nil
	}

	if strings.Contains(res.header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(res.body, out); err != nil && c.debugOn() {
			c.logger.Debug("ignoring malformed JSON response body", "error", err.Error())
		}
		return nil
	}

	switch dst := out.(type) {
	case *string:
		*dst = string(res.body)
	case *[]byte:
		*dst = append((*dst)[:0], res.body...)
	}
	return nil
}

func (c *Client) reportError(apiErr *APIError, method, endpoint string) {
	c.metrics.RecordError(apiErr.Code, method, endpoint)
	if c.debugOn() {
		c.logger.Warn("request failed",
			"method", method, "endpoint", endpoint,
			"code", apiErr.Code, "status", apiErr.Status, "requestID", apiErr.RequestID)
	}
	if c.onError != nil {
		c.onError(apiErr)
	}
}

func (c *Client) debugOn() bool {
	return c.debug != nil && c.debug.Enabled && c.logger != nil
}

// encodeBody serializes a request body. []byte and string pass through raw;
// anything else is marshaled to JSON. The body is re-encoded per attempt so
// retries and the refresh replay never reuse a spent reader.
func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}

// networkError wraps a transport-level failure so no raw exception escapes
// the executor.
func networkError(message string, cause error) *APIError {
	return &APIError{Status: 0, Code: CodeNetworkError, Message: message, Cause: cause}
}

// endpointLabel reduces a URL to host+path for metrics and logs.
func endpointLabel(fullURL string) string {
	u, err := url.Parse(fullURL)
	if err != nil {
		return "unknown"
	}
	endpoint := u.Host
	if u.Path != "" && u.Path != "/" {
		endpoint += u.Path
	} else {
		endpoint += "/"
	}
	return endpoint
}
