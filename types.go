package kliento

import (
	"context"
	"time"
)

// AuthProvider supplies bearer tokens for outgoing requests. The hosting
// application owns the provider's lifecycle; the client only holds a
// reference and orchestrates when to call it.
type AuthProvider interface {
	// AccessToken returns the current access token without blocking.
	// An empty or whitespace-only token means unauthenticated and the
	// Authorization header is omitted.
	AccessToken() string

	// RefreshToken rotates the token. The client guarantees at most one
	// call is in flight per client instance at any time.
	RefreshToken(ctx context.Context) error
}

// RetryConfig controls the retry loop. Zero-valued fields on a per-request
// override fall back to the client-wide configuration.
type RetryConfig struct {
	// Attempts is the number of retries after the initial try.
	Attempts int
	// Base is the delay before the first retry; attempt n waits
	// roughly Base * Multiplier^n.
	Base time.Duration
	// Max caps any single delay.
	Max time.Duration
	// Multiplier is the geometric growth factor.
	Multiplier float64
	// Jitter is the uniform jitter fraction in [0, 1].
	Jitter float64
	// Methods is the allow-list of HTTP methods eligible for retry.
	Methods []string
}

// DefaultRetryConfig is the client-wide retry default: 3 retries starting at
// 300ms, doubling with 10% jitter, capped at 10s, idempotent methods only.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:   3,
		Base:       300 * time.Millisecond,
		Max:        10 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
		Methods:    []string{"GET", "PUT", "DELETE"},
	}
}

// merged returns the config with non-zero fields of override applied.
func (rc RetryConfig) merged(override *RetryConfig) RetryConfig {
	if override == nil {
		return rc
	}
	out := rc
	if override.Attempts != 0 {
		out.Attempts = override.Attempts
	}
	if override.Base != 0 {
		out.Base = override.Base
	}
	if override.Max != 0 {
		out.Max = override.Max
	}
	if override.Multiplier != 0 {
		out.Multiplier = override.Multiplier
	}
	if override.Jitter != 0 {
		out.Jitter = override.Jitter
	}
	if override.Methods != nil {
		out.Methods = override.Methods
	}
	return out
}

func (rc RetryConfig) methodAllowed(method string) bool {
	for _, m := range rc.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// Logger is the minimal leveled logging interface used for debug output.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// DebugConfig selects which request lifecycle events are logged.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogResponses bool
	LogRetries   bool
	LogRefresh   bool
}

// DefaultDebugConfig enables every event category but leaves debug output
// off until WithDebug is applied.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		LogRequests:  true,
		LogResponses: true,
		LogRetries:   true,
		LogRefresh:   true,
	}
}

// Option configures a Client at construction or via Configure.
type Option func(*Client)
