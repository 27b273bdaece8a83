// Package apperr carries HTTP-status-aligned errors from the store and domain
// layers up to the handlers.
package apperr

import (
	"errors"
	"net/http"
)

// Info tags understood by the admin UI.
const (
	InfoDuplicateSurveyName = "duplicate_survey_name"
)

type Error struct {
	Status  int
	Message string
	Info    string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithInfo returns a copy of e carrying a machine readable info tag.
func (e *Error) WithInfo(info string) *Error {
	c := *e
	c.Info = info
	return &c
}

func BadRequest(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Message: msg}
}

func Internal(msg string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: msg, Err: err}
}

// StatusOf reports the HTTP status for err. Errors that are not *Error are 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Is reports whether err is an *Error with the given status.
func Is(err error, status int) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == status
}
