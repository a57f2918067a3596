// Package apierr classifies failed API calls into network, auth,
// validation and server categories and maps them to user-facing messages.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// CodeTimeout is the machine code carried by deadline failures.
const CodeTimeout = "TIMEOUT"

// Kind is the error category used for logging and retry decisions.
type Kind string

const (
	KindNetwork    Kind = "network_error"
	KindAuth       Kind = "auth_error"
	KindValidation Kind = "validation_error"
	KindServer     Kind = "server_error"
	KindOther      Kind = "other_error"
)

const (
	MessageNetwork    = "Unable to reach the server. Please check your connection and try again."
	MessageAuth       = "Your session has expired. Please sign in again."
	MessageValidation = "Some of the submitted data is invalid."
	MessageServer     = "The server is having trouble right now. Please try again later."
	MessageUnexpected = "An unexpected error occurred."
)

// maxDetailsBytes bounds how much of an error body is kept.
const maxDetailsBytes = 64 << 10

// Error is a failed request outcome. Status 0 means no HTTP response was obtained.
type Error struct {
	Message string
	Status  int
	Code    string
	Details any
	cause   error
}

// New creates an Error with the given status and message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Network wraps a transport failure (no response) as a status-0 error.
func Network(cause error) *Error {
	msg := "network error"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Message: msg, cause: cause}
}

// DefaultTimeoutMessage is the timeout text when the caller supplies none.
const DefaultTimeoutMessage = "Request timed out"

// Timeout creates the failure reported when a deadline elapses first.
func Timeout(message string) *Error {
	if message == "" {
		message = DefaultTimeoutMessage
	}
	return &Error{Message: message, Code: CodeTimeout}
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *Error) Unwrap() error { return e.cause }

// IsNetworkError reports that no HTTP response was obtained.
func (e *Error) IsNetworkError() bool { return e.Status == 0 }

func (e *Error) IsAuthError() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

func (e *Error) IsValidationError() bool {
	return e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity
}

func (e *Error) IsServerError() bool { return e.Status >= 500 }

// ShouldRetry is true only for network and server failures.
func (e *Error) ShouldRetry() bool {
	return e.IsNetworkError() || e.IsServerError()
}

func (e *Error) Kind() Kind {
	switch {
	case e.IsNetworkError():
		return KindNetwork
	case e.IsAuthError():
		return KindAuth
	case e.IsValidationError():
		return KindValidation
	case e.IsServerError():
		return KindServer
	default:
		return KindOther
	}
}

// UserMessage returns the stable human-readable text for the category.
func (e *Error) UserMessage() string {
	switch e.Kind() {
	case KindNetwork:
		return MessageNetwork
	case KindAuth:
		return MessageAuth
	case KindValidation:
		if strings.TrimSpace(e.Message) == "" {
			return MessageValidation
		}
		return e.Message
	case KindServer:
		return MessageServer
	default:
		if strings.TrimSpace(e.Message) == "" {
			return MessageUnexpected
		}
		return e.Message
	}
}

// body is the error envelope served by the API.
type body struct {
	Detail  any    `json:"detail"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// FromResponse builds an Error from a non-success response. The message is
// taken from "detail", then "message", then "HTTP <status>"; a non-JSON body
// falls back to the status text. The body is consumed but not closed.
func FromResponse(resp *http.Response) *Error {
	e := &Error{Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDetailsBytes))
	if err != nil || len(strings.TrimSpace(string(raw))) == 0 {
		e.Message = statusText(resp)
		return e
	}

	var b body
	if err := json.Unmarshal(raw, &b); err != nil {
		e.Message = statusText(resp)
		e.Details = string(raw)
		return e
	}

	var details any
	_ = json.Unmarshal(raw, &details)
	e.Details = details
	e.Code = b.Code

	switch {
	case detailText(b.Detail) != "":
		e.Message = detailText(b.Detail)
	case b.Message != "":
		e.Message = b.Message
	default:
		e.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return e
}

// detailText accepts a plain string detail or a structured one (validation
// error lists), rendering the latter as compact JSON.
func detailText(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		return d
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ShouldRetry is the default retry predicate: classified errors decide for
// themselves, anything else is never retried.
func ShouldRetry(err error) bool {
	if e, ok := As(err); ok {
		return e.ShouldRetry()
	}
	return false
}

// IsTimeout reports whether err is a deadline failure.
func IsTimeout(err error) bool {
	e, ok := As(err)
	return ok && e.Code == CodeTimeout
}

// UserMessage maps any error to user-facing text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.UserMessage()
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return MessageUnexpected
}
