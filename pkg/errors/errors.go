package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to players and API consumers.
// Code doubles as the message key used when the outcome is surfaced through a notifier.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is reports whether target is an AppError with the same code, so copies produced by
// WithInternal still match their sentinel.
func (e *AppError) Is(target error) bool {
	if e == nil {
		return false
	}
	var other *AppError
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return other.Code == e.Code
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// Party lifecycle outcomes. All of them are expected, recoverable and user facing.
var (
	ErrAlreadyInParty = &AppError{
		Code:       "party.already_in_party",
		Message:    "Player is already in a party",
		StatusCode: http.StatusConflict,
	}

	ErrNotAMember = &AppError{
		Code:       "party.not_a_member",
		Message:    "Player is not a member of the party",
		StatusCode: http.StatusNotFound,
	}

	ErrNotOwner = &AppError{
		Code:       "party.not_owner",
		Message:    "Only the party owner can do that",
		StatusCode: http.StatusForbidden,
	}

	ErrCannotRemoveOwner = &AppError{
		Code:       "party.cannot_remove_owner",
		Message:    "The party owner cannot be removed",
		StatusCode: http.StatusConflict,
	}

	ErrSelfInvite = &AppError{
		Code:       "party.self_invite",
		Message:    "Players cannot invite themselves",
		StatusCode: http.StatusBadRequest,
	}

	ErrInviteeAlreadyGrouped = &AppError{
		Code:       "party.invitee_grouped",
		Message:    "Invited player is already in a party",
		StatusCode: http.StatusConflict,
	}

	ErrDuplicateInvite = &AppError{
		Code:       "party.duplicate_invite",
		Message:    "Player already has a pending invitation to this party",
		StatusCode: http.StatusConflict,
	}

	ErrNoSuchInvite = &AppError{
		Code:       "party.no_such_invite",
		Message:    "No pending invitation",
		StatusCode: http.StatusNotFound,
	}

	ErrPartyNotFound = &AppError{
		Code:       "party.not_found",
		Message:    "Party not found",
		StatusCode: http.StatusNotFound,
	}

	ErrPlayerOffline = &AppError{
		Code:       "party.player_offline",
		Message:    "Player is not online",
		StatusCode: http.StatusNotFound,
	}
)

// Transport level errors used by the HTTP adapter.
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}
