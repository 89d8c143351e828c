package kliento

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// Request describes one outbound call. A descriptor is built per call and
// consumed once; the post-refresh replay runs on a fresh copy so retry state
// never leaks between attempts.
type Request struct {
	// Method is the HTTP method; defaults to GET.
	Method string
	// Path is joined onto the client base URL, or used verbatim when it is
	// already an absolute URL.
	Path string
	// Query holds query parameters; nil values (and nil pointers) are dropped.
	Query map[string]any
	// Headers are caller-supplied headers, applied before any injected ones.
	Headers map[string]string
	// Body is marshaled to JSON when non-nil ([]byte and string pass through).
	Body any
	// OrgID overrides the client-wide default tenant for this call.
	OrgID string
	// SkipAuth suppresses the Authorization header and 401 refresh handling.
	SkipAuth bool
	// Retry overrides the client-wide retry config (shallow merge,
	// zero fields fall back). Attempts < 0 disables retries.
	Retry *RetryConfig

	// replayed marks the single post-refresh replay of a 401.
	replayed bool
}

// RequestOption customizes a Request built by the verb helpers.
type RequestOption func(*Request)

// NewRequest builds a descriptor for Client.Do.
func NewRequest(method, path string, opts ...RequestOption) *Request {
	r := &Request{Method: strings.ToUpper(method), Path: path}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithQuery merges params into the request query.
func WithQuery(params map[string]any) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(map[string]any, len(params))
		}
		for k, v := range params {
			r.Query[k] = v
		}
	}
}

// WithQueryParam sets a single query parameter.
func WithQueryParam(key string, value any) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(map[string]any, 1)
		}
		r.Query[key] = value
	}
}

// WithHeader sets a caller header.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string, 1)
		}
		r.Headers[key] = value
	}
}

// WithOrg overrides the tenant for this call.
func WithOrg(orgID string) RequestOption {
	return func(r *Request) { r.OrgID = orgID }
}

// WithSkipAuth omits the Authorization header and disables 401 refresh.
func WithSkipAuth() RequestOption {
	return func(r *Request) { r.SkipAuth = true }
}

// WithRetryOverride overrides retry behavior for this call.
func WithRetryOverride(rc RetryConfig) RequestOption {
	return func(r *Request) { r.Retry = &rc }
}

// WithNoRetry disables the retry loop for this call.
func WithNoRetry() RequestOption {
	return func(r *Request) { r.Retry = &RetryConfig{Attempts: -1} }
}

// replayCopy returns the descriptor used for the single post-refresh replay.
func (r *Request) replayCopy() *Request {
	clone := *r
	clone.replayed = true
	return &clone
}

// buildURL joins the base URL and path and appends non-nil query parameters.
func (r *Request) buildURL(baseURL string) (string, error) {
	raw := r.Path
	if !strings.Contains(raw, "://") {
		raw = strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(raw, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid request URL %q: %w", raw, err)
	}

	if len(r.Query) > 0 {
		q := u.Query()
		for k, v := range r.Query {
			s, ok := queryValue(v)
			if !ok {
				continue
			}
			q.Set(k, s)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// queryValue coerces a scalar to its string form. Nil values and nil
// pointers report ok=false and are dropped from the URL.
func queryValue(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
		v = rv.Interface()
	}

	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case fmt.Stringer:
		return val.String(), true
	default:
		return fmt.Sprintf("%v", val), true
	}
}
