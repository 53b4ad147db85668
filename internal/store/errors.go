package store

import "errors"

// Kind classifies store failures. Callers surface every kind the same way;
// the distinction exists for logs.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindRejected
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRejected:
		return "rejected"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

var (
	ErrNetwork   = errors.New("network error")
	ErrRejected  = errors.New("rejected by store")
	ErrMalformed = errors.New("malformed response")

	// ErrNotFound is returned by backends deleting an unknown id.
	ErrNotFound = errors.New("expense not found")
)

// Error is the single failure type returned by Store implementations.
type Error struct {
	Op      string
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String() + " error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrRejected:
		return e.Kind == KindRejected
	case ErrMalformed:
		return e.Kind == KindMalformed
	}
	return false
}

// NetworkError reports a transport failure.
func NetworkError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindNetwork, Message: "network request failed", Err: err}
}

// Rejected reports a store that answered but refused the operation.
func Rejected(op, message string) *Error {
	if message == "" {
		message = "the expense store rejected the request"
	}
	return &Error{Op: op, Kind: KindRejected, Message: message}
}

// Malformed reports a response that could not be understood.
func Malformed(op string, err error) *Error {
	return &Error{Op: op, Kind: KindMalformed, Message: "unexpected response from the expense store", Err: err}
}

// KindOf returns the kind of err, or 0 when err is not a store error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

