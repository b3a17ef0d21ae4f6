// Package errors carries the error shape the HTTP API hands back to clients.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error is an error with an HTTP status and optional per-field details.
type Error struct {
	Status  int
	Err     error // The error this wraps
	Details []Detail
}

type Detail struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s, details: %v", e.Status, e.Err, e.Details)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type transport struct {
	Message string   `json:"message"`
	Details []Detail `json:"details,omitempty"`
	Status  int      `json:"status"`
}

func (e *Error) MarshalJSON() ([]byte, error) {
	msg := http.StatusText(e.Status)
	if e.Err != nil {
		msg = e.Err.Error()
	}

	return json.Marshal(transport{
		Message: msg,
		Details: e.Details,
		Status:  e.Status,
	})
}

// E builds an [Error] from its arguments in any order: a string or error
// becomes the message, an int the status, and any [Detail] is appended.
//
// The status defaults to 500.
func E(args ...any) *Error {
	ret := &Error{
		Status:  http.StatusInternalServerError,
		Err:     nil,
		Details: nil,
	}

	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			ret.Err = errors.New(arg)
		case error:
			ret.Err = arg
		case int:
			ret.Status = arg
		case Detail:
			ret.Details = append(ret.Details, arg)
		case []Detail:
			ret.Details = append(ret.Details, arg...)
		}
	}

	return ret
}

// Status returns the HTTP status an error should be reported with.
func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}
