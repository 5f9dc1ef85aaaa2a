package api

import "net/http"

// Code is a stable, machine-readable error classification, distinct from
// the human-readable message.
type Code string

const (
	CodeNotFound      Code = "not_found"
	CodeBadRequest    Code = "bad_request"
	CodeDBUnavailable Code = "db_unavailable"
)

// Error is the {code, message} envelope returned for every failed
// request.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

// HTTPStatus maps the error's code to the HTTP status written for it.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeDBUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func notFound(message string) *Error      { return &Error{Code: CodeNotFound, Message: message} }
func badRequest(message string) *Error    { return &Error{Code: CodeBadRequest, Message: message} }
func dbUnavailable(message string) *Error { return &Error{Code: CodeDBUnavailable, Message: message} }
