package workflow

import (
	"errors"

	"nestkey/server/internal/database"
	"nestkey/server/internal/payment"
)

// Kind classifies workflow failures so the API surface can map them to
// transport status codes without string matching.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindUnauthorized       Kind = "unauthorized"
	KindPreconditionFailed Kind = "precondition_failed"
	KindConflict           Kind = "conflict"
	KindInvalidInput       Kind = "invalid_input"
	KindGateway            Kind = "gateway_error"
	KindInternal           Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func notFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func preconditionFailed(message string) *Error {
	return &Error{Kind: KindPreconditionFailed, Message: message}
}

func conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func invalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// KindOf classifies any error coming out of the engine.
func KindOf(err error) Kind {
	var wErr *Error
	if errors.As(err, &wErr) {
		return wErr.Kind
	}
	if errors.Is(err, payment.ErrGateway) {
		return KindGateway
	}
	if errors.Is(err, database.ErrNotFound) {
		return KindNotFound
	}
	return KindInternal
}
