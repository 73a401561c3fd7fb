package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies client-observable failures.
type Kind int

// Failure kinds. Transport covers network errors, 5xx and anything not
// matched by a more specific kind.
const (
	KindTransport Kind = iota
	KindAuth
	KindValidation
	KindNotFound
)

// Error is a failed API call. Message is human-readable; for validation
// failures it carries the server-supplied detail verbatim when present.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// IsNotFound reports whether err is a not-found API failure.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindNotFound
}

// IsAuth reports whether err is an authorization API failure.
func IsAuth(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuth
}

type detailBody struct {
	Detail json.RawMessage `json:"detail"`
}

// statusError maps a non-2xx response to an Error. The body is consumed
// only for its optional detail message.
func statusError(resp *http.Response) *Error {
	message := fmt.Sprintf("unexpected status: %s", resp.Status)
	var body detailBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && len(body.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(body.Detail, &detail); err == nil && detail != "" {
			message = detail
		}
	}

	kind := KindTransport
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = KindAuth
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = KindValidation
	}
	return &Error{Kind: kind, StatusCode: resp.StatusCode, Message: message}
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: fmt.Sprintf("request failed: %v", err)}
}
