package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Kind classifies a gateway failure for policy decisions upstream.
type Kind string

const (
	KindNetwork    Kind = "network"    // no response at all
	KindAuth       Kind = "auth"       // 401: expired or invalid credential
	KindValidation Kind = "validation" // other 4xx with a structured message
	KindServer     Kind = "server"     // 5xx
)

// Error carries the HTTP status and the server-supplied message of a failed
// call. The gateway tags but never interprets failures; callers decide what
// to do with them.
type Error struct {
	Status  int
	Message string
	Kind    Kind
}

func (e *Error) Error() string {
	if e.Kind == KindNetwork {
		if e.Message != "" {
			return fmt.Sprintf("gateway: no response: %s", e.Message)
		}
		return "gateway: no response"
	}
	if e.Message != "" {
		return fmt.Sprintf("gateway: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("gateway: status %d", e.Status)
}

// errorEnvelope mirrors the backend's duck-typed error payload. The message
// lives under "msg" or "error" depending on the endpoint; extraction checks
// them in that fixed order.
type errorEnvelope struct {
	Msg string `json:"msg"`
	Err string `json:"error"`
}

func (e errorEnvelope) message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Err
}

func classify(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}

// newStatusError builds an Error from a non-2xx response body.
func newStatusError(status int, body []byte) *Error {
	var envelope errorEnvelope
	_ = json.Unmarshal(body, &envelope) // best effort; an unparsable body just means no message
	return &Error{
		Status:  status,
		Message: envelope.message(),
		Kind:    classify(status),
	}
}

// newNetworkError wraps a transport failure that produced no response.
func newNetworkError(err error) *Error {
	return &Error{
		Message: err.Error(),
		Kind:    KindNetwork,
	}
}
