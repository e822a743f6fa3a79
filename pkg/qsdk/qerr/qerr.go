package qerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code represents a stable error category that callers can switch on.
type Code string

const (
	CodeUnknown      Code = "unknown"
	CodeUnauthorized Code = "unauthorized"
	CodeExpiredToken Code = "expired_token"
	CodeTransport    Code = "transport"
	CodeBadRequest   Code = "bad_request"
	CodeNotFound     Code = "not_found"
	CodeServer       Code = "server"
	CodeDecode       Code = "decode"
)

// APIError is the error record the service returns, either as the body of a
// failed request or in-band in the `error` field of a success-shaped response.
type APIError struct {
	Name         string     `json:"name,omitempty"`
	Code         int        `json:"code,omitempty"`
	Message      string     `json:"message,omitempty"`
	ResourceType string     `json:"resourceType,omitempty"`
	ResourceID   string     `json:"resourceId,omitempty"`
	Args         []string   `json:"args,omitempty"`
	InnerErrors  []APIError `json:"innerErrors,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Name == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// Error carries a Code, the HTTP status (0 when no response was received), a
// human readable message and, when the server sent one, the decoded record.
type Error struct {
	Code    Code
	Status  int
	Message string
	Body    *APIError
	err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.err != nil {
		b.WriteString(": ")
		b.WriteString(e.err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// New wraps an error with the provided code. If err is nil a nil is returned.
func New(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: err.Error(), err: err}
}

// FromResponse builds the error for a non-2xx response. The body is parsed as
// `{"error": {...}}` first, then as an RFC 7807 problem document, and falls
// back to the trimmed raw text.
func FromResponse(status int, body []byte) *Error {
	e := &Error{Code: CodeFromStatus(status), Status: status}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		e.Body = envelope.Error
		e.Message = envelope.Error.Message
	} else {
		var problem struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(body, &problem); err == nil && (problem.Detail != "" || problem.Title != "") {
			e.Message = problem.Detail
			if e.Message == "" {
				e.Message = problem.Title
			}
		} else {
			e.Message = strings.TrimSpace(string(body))
		}
	}

	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// CodeFromStatus maps an HTTP status onto an error category.
func CodeFromStatus(status int) Code {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CodeUnauthorized
	case status == http.StatusNotFound:
		return CodeNotFound
	case status >= 400 && status < 500:
		return CodeBadRequest
	case status >= 500:
		return CodeServer
	default:
		return CodeUnknown
	}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode helps callers compare codes without type assertions.
func IsCode(err error, code Code) bool {
	if e, ok := As(err); ok {
		return e.Code == code
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.Status
	}
	return 0
}
