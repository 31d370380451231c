package authclient

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArguments indicates a call omitted the parameter that selects
	// which flow to run (e.g. neither email nor phone on sign-up).
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrNotAuthenticated indicates the operation requires a signed-in user
	// and there is no current session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoCurrentSession indicates a refresh was requested with no refresh
	// token supplied and no current session to take one from.
	ErrNoCurrentSession = errors.New("no current session")
)

// CallbackError carries the error_description reported by the auth service
// through a callback URL. The description is passed through verbatim.
type CallbackError struct {
	Description string
}

func (e *CallbackError) Error() string {
	return e.Description
}

// MissingFieldError indicates a callback URL lacked a required parameter.
// Field names the first missing parameter in the fixed check order
// access_token, refresh_token, token_type, expires_in.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("no %s detected", e.Field)
}

// APIError is a classified non-success response from the auth service.
// Message is the server-supplied human-readable message, extracted from the
// response body (msg, then message, then error, then the raw body).
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth api error (status %d): %s", e.Status, e.Message)
}
