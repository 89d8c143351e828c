package kliento

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Machine-readable error codes. Any non-2xx response without a
// server-supplied code falls back to "HTTP_{status}".
const (
	CodeNetworkError      = "NETWORK_ERROR"
	CodeAuthRefreshFailed = "AUTH_REFRESH_FAILED"
	CodeRateLimited       = "RATE_LIMITED"
	CodeUnknownError      = "UNKNOWN_ERROR"
)

// GeneralField is the bucket ValidationErrors uses for issues that carry no
// field name.
const GeneralField = "_general"

// Issue is one field-level validation failure inside a problem-details body.
type Issue struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ProblemDetails is the RFC 7807 error body shape emitted by the backend.
type ProblemDetails struct {
	Type   string  `json:"type,omitempty"`
	Title  string  `json:"title,omitempty"`
	Status int     `json:"status,omitempty"`
	Detail string  `json:"detail,omitempty"`
	Code   string  `json:"code,omitempty"`
	Issues []Issue `json:"issues,omitempty"`
}

// APIError is the single failure type surfaced by the client. Every rejected
// request yields exactly one APIError; raw transport and decode errors never
// escape the request pipeline.
type APIError struct {
	// Status is the HTTP status code, or 0 for transport-level failures.
	Status int
	// Code is machine-readable: a server-supplied problem code, one of the
	// Code* constants, or "HTTP_{status}".
	Code string
	// Message is human-readable.
	Message string
	// Details holds the parsed problem-details payload when the server sent one.
	Details *ProblemDetails
	// RequestID is the correlation id echoed in the X-Request-Id response header.
	RequestID string
	// Cause is the underlying error for transport failures.
	Cause error
}

// NewAPIError builds an APIError with no payload attached.
func NewAPIError(message string, status int, code string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

// ErrorFromResponse normalizes a non-2xx response into an APIError. The body
// is interpreted as RFC 7807 problem details when it parses as JSON; message
// priority is detail > title > "HTTP {status}: {statusText}" and code
// priority is problem code > "HTTP_{status}".
func ErrorFromResponse(status int, header http.Header, body []byte) *APIError {
	e := &APIError{
		Status:    status,
		Code:      fmt.Sprintf("HTTP_%d", status),
		Message:   fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)),
		RequestID: header.Get("X-Request-Id"),
	}

	var problem ProblemDetails
	if len(body) > 0 && json.Unmarshal(body, &problem) == nil {
		if problem.Detail != "" {
			e.Message = problem.Detail
		} else if problem.Title != "" {
			e.Message = problem.Title
		}
		if problem.Code != "" {
			e.Code = problem.Code
		}
		if problem.Type != "" || problem.Title != "" || problem.Detail != "" ||
			problem.Code != "" || problem.Status != 0 || len(problem.Issues) > 0 {
			e.Details = &problem
		}
	}
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches APIErrors by code for errors.Is.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*APIError); ok {
		return e.Code == t.Code
	}
	return false
}

// IsValidationError reports a 400 or 422 response.
func (e *APIError) IsValidationError() bool {
	return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
}

// IsAuthError reports a 401 or 403 response.
func (e *APIError) IsAuthError() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsNotFoundError reports a 404 response.
func (e *APIError) IsNotFoundError() bool {
	return e.Status == http.StatusNotFound
}

// IsServerError reports any 5xx response.
func (e *APIError) IsServerError() bool {
	return e.Status >= 500
}

// Retriable reports whether the failure is eligible for the retry loop:
// transport failures and 5xx responses only. Client-side rejections such as
// rate limiting share status 0 but are excluded by code.
func (e *APIError) Retriable() bool {
	return e.Code == CodeNetworkError || e.IsServerError()
}

// ValidationErrors flattens the problem-details issues into field name →
// ordered messages. Issues without a field land under GeneralField. The
// result is empty when no structured issues were attached.
func (e *APIError) ValidationErrors() map[string][]string {
	out := make(map[string][]string)
	if e.Details == nil {
		return out
	}
	for _, issue := range e.Details.Issues {
		field := issue.Field
		if field == "" {
			field = GeneralField
		}
		out[field] = append(out[field], issue.Message)
	}
	return out
}

// Format renders "[code] message (Request ID: id)" with absent parts omitted.
func (e *APIError) Format() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Code != "" {
		fmt.Fprintf(&b, "[%s] ", e.Code)
	}
	b.WriteString(e.Message)
	if e.RequestID != "" {
		fmt.Fprintf(&b, " (Request ID: %s)", e.RequestID)
	}
	return b.String()
}

// FormatError renders any error as a human string, using Format for
// APIErrors and Error() otherwise.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Format()
	}
	return err.Error()
}

// IsTransient reports whether err might succeed on retry.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retriable()
	}
	return false
}

// asAPIError coerces any error into an APIError. Non-APIError values should
// not reach callers; seeing UNKNOWN_ERROR indicates a bug in the pipeline.
func asAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{
		Status:  0,
		Code:    CodeUnknownError,
		Message: err.Error(),
		Cause:   err,
	}
}
