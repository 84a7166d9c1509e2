package completion

import "errors"

// ErrorKind categorizes a completion failure.
type ErrorKind string

const (
	ErrKindNetwork         ErrorKind = "network"
	ErrKindAuthentication  ErrorKind = "authentication"
	ErrKindRateLimit       ErrorKind = "rate_limit"
	ErrKindQuota           ErrorKind = "quota"
	ErrKindProvider        ErrorKind = "provider"
	ErrKindInvalidResponse ErrorKind = "invalid_response"
)

// Error is returned for any failure of the completion call. Error() yields
// the underlying cause's message unchanged so it can be shown to users as-is.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Kind)
	}
	return e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

func newError(kind ErrorKind, status int, cause error) *Error {
	return &Error{Kind: kind, StatusCode: status, Cause: cause}
}

// Wrap converts any error into an *Error of the given kind, leaving existing
// *Error values untouched. It lets other Completer implementations report
// failures the same way.
func Wrap(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return newError(kind, 0, err)
}

func kindForStatus(status int, code string) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return ErrKindAuthentication
	case status == 429 && code == "insufficient_quota":
		return ErrKindQuota
	case status == 429:
		return ErrKindRateLimit
	case status == 402:
		return ErrKindQuota
	default:
		return ErrKindProvider
	}
}
