package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")
)

type classified struct {
	kind error
	msg  string
}

func (e *classified) Error() string {
	return e.msg
}

func (e *classified) Unwrap() error {
	return e.kind
}

// WithMessage attaches a caller-visible message to an error class. The
// result still matches the class via errors.Is.
func WithMessage(kind error, msg string) error {
	return &classified{kind: kind, msg: msg}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
