package herosync

// Kind classifies synchronizer failures.
type Kind string

const (
	// KindValidation is bad user input caught before submission.
	KindValidation Kind = "validation"
	// KindPrecondition is an action blocked by the current session state.
	KindPrecondition Kind = "precondition"
	// KindRemote is a failed submission or query.
	KindRemote Kind = "remote"
)

// Error is the synchronizer error type.
type Error struct {
	Kind    Kind   // Machine-readable class
	Message string // User-facing message
	Cause   error  // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrValidation   = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrPrecondition = &Error{Kind: KindPrecondition, Message: "action not allowed"}
	ErrRemote       = &Error{Kind: KindRemote, Message: "ledger request failed"}
)

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func preconditionError(msg string) *Error {
	return &Error{Kind: KindPrecondition, Message: msg}
}

func remoteError(msg string, cause error) *Error {
	return &Error{Kind: KindRemote, Message: msg, Cause: cause}
}
