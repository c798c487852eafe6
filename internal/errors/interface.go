package errors

// ErrorCode names a failure category. Callers branch on codes, never on
// message text.
type ErrorCode string

// Error is a coded failure with an optional cause and payload.
//
// Two Errors match under Is when the target carries the same code and
// neither a cause nor a payload, so New(code) works as a sentinel for
// any wrapped error of that code. Payloads are structured values (paths,
// CPU indexes, rejected values) rather than preformatted text.
type Error interface {
	error
	Code() ErrorCode
	// WithMessage and WithData return a copy; the receiver is unchanged.
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
	Is(target error) bool
}

// Factory builds Errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
