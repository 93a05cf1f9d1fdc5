package protocol

import (
	"errors"
	"net/http"
)

// Code is a machine-readable rejection reason carried on the wire
type Code string

const (
	CodeNotAuthorized       Code = "not_authorized"
	CodeHandInProgress      Code = "hand_in_progress"
	CodeInsufficientPlayers Code = "insufficient_players"
	CodeStaleHand           Code = "stale_hand"
	CodeNotYourTurn         Code = "not_your_turn"
	CodeIllegalAction       Code = "illegal_action"
	CodeTableClosed         Code = "table_closed"
	CodeNotFound            Code = "not_found"
	CodeBadRequest          Code = "bad_request"
	CodeConflict            Code = "conflict"
	CodeInternal            Code = "internal"
)

// Status maps a code to an HTTP status
func (c Code) Status() int {
	switch c {
	case CodeNotAuthorized:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeInternal:
		return http.StatusInternalServerError
	case CodeIllegalAction:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusConflict
	}
}

// Error is an error with a wire code
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// NewError returns an error carrying code
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string { return e.Message }

// Is matches an *Error with the same code and message. A target with an empty
// message matches on code alone, which is how errors decoded off the wire are
// compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// CodeOf extracts the wire code from err, defaulting to internal
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
