package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoRecord is returned by storage backends when a lookup matches no row.
var ErrNoRecord = errors.New("no record found")

// Kind classifies domain errors. Callers inspect it with KindOf / IsKind, never by matching messages.
type Kind uint8

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindNotFound
	KindUnauthorized
	KindConflict
	KindInvalidState
	KindTransient
)

var kindNames = map[Kind]string{
	KindInternal:        "internal",
	KindInvalidArgument: "invalid argument",
	KindNotFound:        "not found",
	KindUnauthorized:    "unauthorized",
	KindConflict:        "conflict",
	KindInvalidState:    "invalid state",
	KindTransient:       "transient",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Error is a classified domain error.
// IDs holds the offending entity ids, when there are several (e.g. unenrolled students).
type Error struct {
	Kind Kind
	Msg  string
	IDs  []int
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err != nil:
		return e.Err.Error()
	case e.Msg == "":
		return e.Kind.String()
	case e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// WithIDs attaches the offending ids.
func (e *Error) WithIDs(ids ...int) *Error {
	e.IDs = append(e.IDs, ids...)
	return e
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func InvalidArgument(format string, args ...interface{}) *Error {
	return newError(KindInvalidArgument, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newError(KindUnauthorized, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return newError(KindInvalidState, format, args...)
}

// Transient wraps a storage failure that may succeed when the whole unit of work is re-run.
func Transient(err error, format string, args ...interface{}) *Error {
	e := newError(KindTransient, format, args...)
	e.Err = err
	return e
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FormatIDs renders ids as "[4, 7]".
func FormatIDs(ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
