// Package kliento provides a typed HTTP API client for multi-tenant REST
// backends speaking JSON and RFC 7807 problem details:
//
//   - Bearer-token injection with single-flight 401 refresh-and-replay
//   - Bounded retries with exponential backoff + jitter on idempotent methods
//   - Tenant (X-Org-Id) and tracing (X-Request-Id) header propagation
//   - Typed error normalization: every failure is one *APIError
//   - Lazy pagination helpers for page-number and cursor listings
//   - Optional request de-duplication, rate limiting and Prometheus metrics
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - Safe concurrent use of a single *Client instance
//   - The hosting application owns authentication; the client only
//     orchestrates calling its AuthProvider correctly
//
// Typical usage:
//
//	client := kliento.New(
//	    kliento.WithBaseURL("https://api.example.com"),
//	    kliento.WithAuthProvider(provider),
//	    kliento.WithDefaultOrg("org_123"),
//	    kliento.WithMaxAttempts(3),
//	)
//	var user User
//	err := client.Get(ctx, "/api/v1/users/me/", &user)
//
// Failures branch on the typed error:
//
//	var apiErr *kliento.APIError
//	if errors.As(err, &apiErr) && apiErr.IsValidationError() {
//	    form.SetErrors(apiErr.ValidationErrors())
//	}
//
// The client carries no built-in request deadline beyond the underlying
// http.Client timeout; pass a context with a deadline for per-call limits.
package kliento
