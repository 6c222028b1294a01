// Package apperr carries the error kinds services return. The HTTP layer
// turns a Kind into a status code and never inspects messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict // duplicate email, agent still owning leads
	KindBadRequest
	// KindInconsistent means stored agent counters disagree with the leads
	// they summarize and an adjustment was refused.
	KindInconsistent
	KindInternal
)

const InconsistentMessage = "agent counters are inconsistent; manual reconciliation required"

// Error is safe to show to clients: Message and Details are rendered as-is,
// Err and Op only reach the logs.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
	Details interface{}
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the kind to a response code. Inconsistent and Internal
// both answer 500.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap keeps err for errors.Is and the logs while clients only see message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp names the failing operation, e.g. "leads.assign".
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

// Inconsistent reports a refused counter adjustment. The message is fixed.
func Inconsistent(err error) *Error {
	return Wrap(KindInconsistent, InconsistentMessage, err)
}

func Internal(message string) *Error {
	return New(KindInternal, message)
}

// GetKind returns the Kind of the first *Error in err's chain, or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
