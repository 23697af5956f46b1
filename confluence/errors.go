package confluence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// AuthError reports rejected credentials (401/403).  It is never retried.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("confluence: authentication failed (%d)", e.StatusCode)
	}
	return fmt.Sprintf("confluence: authentication failed (%d): %s", e.StatusCode, e.Message)
}

// RemoteError is any other non-2xx response.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("confluence: remote error %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the status is worth retrying.
func (e *RemoteError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsAuthError reports whether err wraps an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// errorFromResponse maps a non-2xx response onto AuthError or RemoteError, pulling the message out
// of Confluence's JSON error body when there is one.
func errorFromResponse(status int, statusText string, body []byte) error {
	msg := errorMessage(body)
	if msg == "" {
		msg = statusText
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &AuthError{StatusCode: status, Message: msg}
	}
	return &RemoteError{StatusCode: status, Message: msg}
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Reason  string `json:"reason"`
		Errors  []struct {
			Title string `json:"title"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			return payload.Message
		case payload.Reason != "":
			return payload.Reason
		case len(payload.Errors) > 0:
			return payload.Errors[0].Title
		}
	}

	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "<") {
		// HTML error pages from proxies aren't worth repeating.
		return ""
	}
	if len(text) > 200 {
		text = text[:200] + "…"
	}
	return text
}

// isTransient decides whether a failed attempt should be retried.  parent is the caller's context:
// when it is done, nothing is retried.
func isTransient(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}

	var re *RemoteError
	if errors.As(err, &re) {
		return re.Temporary()
	}
	if IsAuthError(err) {
		return false
	}

	// Per-attempt deadline expired while the caller is still waiting.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}
