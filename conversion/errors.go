package conversion

import "errors"

var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrConfiguration         = errors.New("configuration error")
	ErrUpstreamSubmission    = errors.New("upstream submission error")
	ErrUpstreamJob           = errors.New("upstream job error")
	ErrUpstreamResultMissing = errors.New("upstream result missing")
	ErrUpstreamTimeout       = errors.New("upstream timeout")
)

// Error carries a caller-facing message together with its class and cause.
// The message is returned verbatim in the JSON error body.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func NewError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
