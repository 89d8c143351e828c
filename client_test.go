package kliento

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeAuth is a scriptable AuthProvider shared across the test files.
type fakeAuth struct {
	mu           sync.Mutex
	token        string
	newToken     string
	refreshErr   error
	refreshDelay time.Duration
	refreshCalls int
}

func (f *fakeAuth) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAuth) RefreshToken(ctx context.Context) error {
	if f.refreshDelay > 0 {
		time.Sleep(f.refreshDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	if f.newToken != "" {
		f.token = f.newToken
	}
	return nil
}

func (f *fakeAuth) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func newTestClient(serverURL string, opts ...Option) *Client {
	return New(append([]Option{WithBaseURL(serverURL)}, opts...)...)
}

func TestNewDefaults(t *testing.T) {
	client := New()
	if client == nil {
		t.Fatal("New() returned nil")
	}
	if client.retry.Attempts != 3 {
		t.Errorf("expected 3 retry attempts, got %d", client.retry.Attempts)
	}
	if client.retry.Base != 300*time.Millisecond {
		t.Errorf("expected base delay 300ms, got %v", client.retry.Base)
	}
	if client.baseURL != DefaultBaseURL {
		t.Errorf("expected base URL %s, got %s", DefaultBaseURL, client.baseURL)
	}
	if client.httpClient.Jar == nil {
		t.Error("expected a cookie jar on the default HTTP client")
	}
	if !client.IsValid() {
		t.Errorf("default configuration should validate, got %v", client.ValidationError())
	}
}

func TestHeaderInjection(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL,
		WithAuthProvider(&fakeAuth{token: "tok-123"}),
		WithDefaultOrg("org-7"),
	)

	err := client.Post(context.Background(), "/things/", map[string]string{"name": "x"}, nil,
		WithHeader("X-Custom", "yes"))
	if err != nil {
		t.Fatalf("Post() returned error: %v", err)
	}

	if v := got.Get("Authorization"); v != "Bearer tok-123" {
		t.Errorf("expected Authorization 'Bearer tok-123', got %q", v)
	}
	if v := got.Get("X-Org-Id"); v != "org-7" {
		t.Errorf("expected X-Org-Id 'org-7', got %q", v)
	}
	if v := got.Get("X-Custom"); v != "yes" {
		t.Errorf("expected caller header to pass through, got %q", v)
	}
	if v := got.Get("Content-Type"); v != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", v)
	}
	rid := got.Get("X-Request-Id")
	if len(rid) != 36 || rid[14] != '4' {
		t.Errorf("expected a v4-shaped request id, got %q", rid)
	}
}

func TestCallerRequestIDPreserved(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.Get(context.Background(), "/", nil, WithHeader("X-Request-Id", "fixed-id")); err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if got != "fixed-id" {
		t.Errorf("expected caller request id to be preserved, got %q", got)
	}
}

func TestAuthHeaderOmittedForBlankToken(t *testing.T) {
	for _, token := range []string{"", "   ", "\t"} {
		var sawAuth bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, sawAuth = r.Header["Authorization"]
			w.WriteHeader(http.StatusOK)
		}))

		client := newTestClient(server.URL, WithAuthProvider(&fakeAuth{token: token}))
		if err := client.Get(context.Background(), "/", nil); err != nil {
			t.Fatalf("token %q: Get() returned error: %v", token, err)
		}
		if sawAuth {
			t.Errorf("token %q: expected no Authorization header", token)
		}
		server.Close()
	}
}

func TestSkipAuth(t *testing.T) {
	var sawAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithAuthProvider(&fakeAuth{token: "tok"}))
	if err := client.Get(context.Background(), "/", nil, WithSkipAuth()); err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if sawAuth {
		t.Error("expected Authorization header to be skipped")
	}
}

func TestPerCallOrgOverride(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Org-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithDefaultOrg("default-org"))
	if err := client.Get(context.Background(), "/", nil, WithOrg("other-org")); err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if got != "other-org" {
		t.Errorf("expected per-call org to win, got %q", got)
	}
}

func TestQueryParamOmission(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var nilStr *string
	client := newTestClient(server.URL)
	err := client.Get(context.Background(), "/items/", nil, WithQuery(map[string]any{
		"a": 1,
		"b": nil,
		"c": nilStr,
	}))
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if gotQuery != "a=1" {
		t.Errorf("expected query 'a=1', got %q", gotQuery)
	}
}

func TestDecodeJSONResponse(t *testing.T) {
	type user struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(user{ID: 42, Name: "Ada"}); err != nil {
			t.Fatalf("failed to encode response: %v", err)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var got user
	if err := client.Get(context.Background(), "/users/42/", &got); err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if got.ID != 42 || got.Name != "Ada" {
		t.Errorf("unexpected decoded user: %+v", got)
	}
}

func TestDecodeTextResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte("pong")); err != nil {
			t.Fatalf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var got string
	if err := client.Get(context.Background(), "/ping/", &got); err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if got != "pong" {
		t.Errorf("expected 'pong', got %q", got)
	}
}

func TestMalformedJSONTolerated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte("{not json")); err != nil {
			t.Fatalf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var got map[string]any
	if err := client.Get(context.Background(), "/", &got); err != nil {
		t.Fatalf("malformed success body should not surface an error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected target to keep its zero value, got %v", got)
	}
}

func TestNoContentResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var got map[string]any
	if err := client.Delete(context.Background(), "/things/1/", &got); err != nil {
		t.Fatalf("Delete() returned error: %v", err)
	}
	if got != nil {
		t.Errorf("expected no decoding for 204, got %v", got)
	}
}

func TestNetworkErrorSurfacesAsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(server.URL, WithMaxAttempts(0))
	err := client.Get(context.Background(), "/", nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != 0 {
		t.Errorf("expected status 0, got %d", apiErr.Status)
	}
	if apiErr.Code != CodeNetworkError {
		t.Errorf("expected code %s, got %s", CodeNetworkError, apiErr.Code)
	}
}

func TestErrorResponseCarriesProblemDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "req-99")
		w.WriteHeader(http.StatusUnprocessableEntity)
		if _, err := w.Write([]byte(`{"detail":"Invalid field","code":"VALIDATION","issues":[{"field":"email","message":"Required"}]}`)); err != nil {
			t.Fatalf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.Post(context.Background(), "/signup/", map[string]string{}, nil)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if !apiErr.IsValidationError() {
		t.Error("expected a validation error")
	}
	if apiErr.Message != "Invalid field" {
		t.Errorf("expected message 'Invalid field', got %q", apiErr.Message)
	}
	if apiErr.Code != "VALIDATION" {
		t.Errorf("expected code VALIDATION, got %s", apiErr.Code)
	}
	if apiErr.RequestID != "req-99" {
		t.Errorf("expected request id req-99, got %q", apiErr.RequestID)
	}
	got := apiErr.ValidationErrors()
	if len(got["email"]) != 1 || got["email"][0] != "Required" {
		t.Errorf("unexpected validation errors: %v", got)
	}
}

func TestOnErrorCallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	var seen *APIError
	client := newTestClient(server.URL, WithOnError(func(e *APIError) { seen = e }))
	if err := client.Get(context.Background(), "/missing/", nil); err == nil {
		t.Fatal("expected an error")
	}
	if seen == nil || !seen.IsNotFoundError() {
		t.Errorf("expected onError to observe the 404, got %v", seen)
	}
}

func TestAbsolutePathBypassesBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient("http://injected.invalid")
	if err := client.Get(context.Background(), server.URL+"/abs/", nil); err != nil {
		t.Fatalf("absolute URL request failed: %v", err)
	}
}

func TestConfigure(t *testing.T) {
	client := New()
	if err := client.Configure(WithBaseURL("https://api.example.com"), WithDefaultOrg("org-1")); err != nil {
		t.Fatalf("Configure() returned error: %v", err)
	}
	if client.BaseURL() != "https://api.example.com" {
		t.Errorf("expected configured base URL, got %s", client.BaseURL())
	}
	if err := client.Configure(WithBaseURL("")); err == nil {
		t.Error("expected validation failure for empty base URL")
	}
}

func TestAuthProviderAccessor(t *testing.T) {
	provider := &fakeAuth{token: "t"}
	client := New(WithAuthProvider(provider))
	if client.AuthProvider() != AuthProvider(provider) {
		t.Error("expected accessor to return the configured provider")
	}
}
