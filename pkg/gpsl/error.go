package gpsl

// Error reasons are enumerated here to be used in the Err struct,
// the error type shared across all GPSL APIs.
const (
	ErrUnknown = 0
	ErrSyntax  = 1

	ErrUnboundVariable     = 10
	ErrUndefinedFunction   = 11
	ErrTypeMismatch        = 12
	ErrDivisionByZero      = 13
	ErrArithmeticUnderflow = 14
	ErrUnknownType         = 15

	ErrUnknownPermission  = 20
	ErrPermissionRejected = 21
	ErrExternal           = 22

	ErrSystem = 40
	ErrAssert = 100
)

// Err constants represent possible errors that GPSL runtime
// binding functions may return.
type Err struct {
	reason  int
	message string
}

func (e Err) Error() string {
	return e.message
}
