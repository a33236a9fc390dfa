package members

import (
	"fmt"

	"github.com/alubilles/membership-api/internal/domain"
)

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
	// Err is the underlying cause, if any. It is never shown to clients.
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeMemberNotFound    = "MEMBER_NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeCardNotAvailable  = "CARD_NOT_AVAILABLE"
	CodeCardRenderFailed  = "CARD_RENDER_FAILED"
	CodePhotoTooLarge     = "PHOTO_TOO_LARGE"
)

func validationError(message string, details map[string]any) *Error {
	return &Error{Status: 422, Code: CodeValidation, Message: message, Details: details}
}

func memberNotFound(key string, value any) *Error {
	return &Error{
		Status:  404,
		Code:    CodeMemberNotFound,
		Message: "member not found",
		Details: map[string]any{key: value},
	}
}

func invalidTransition(err error, from domain.Status, ev domain.Event) *Error {
	return &Error{
		Status:  409,
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot %s a member in status %s", ev, from),
		Details: map[string]any{"status": string(from), "event": string(ev)},
		Err:     err,
	}
}

func cardNotAvailable(n domain.MemberNumber) *Error {
	return &Error{
		Status:  404,
		Code:    CodeCardNotAvailable,
		Message: "no card is available for this member",
		Details: map[string]any{"memberNumber": string(n)},
	}
}

func cardRenderFailed(err error, m domain.Member) *Error {
	return &Error{
		Status:  500,
		Code:    CodeCardRenderFailed,
		Message: "member card could not be generated",
		Details: map[string]any{"memberId": string(m.ID), "status": string(m.Status)},
		Err:     err,
	}
}
