package errno

import "errors"

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// WithMessage returns a copy carrying a more specific message but the same code
func (e Errno) WithMessage(msg string) Errno {
	return Errno{Code: e.Code, Message: msg}
}

// Is lets errors.Is match by code, so WithMessage copies still compare equal
func (e Errno) Is(target error) bool {
	switch t := target.(type) {
	case Errno:
		return t.Code == e.Code
	case *Errno:
		return t != nil && t.Code == e.Code
	}
	return false
}

// Decode tries to convert an error to Errno
// Wrapped errors (fmt.Errorf("...: %w", errno.ErrXxx)) keep their business code.
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	var typed Errno
	if errors.As(err, &typed) {
		return typed.Code, typed.Message
	}
	var ptr *Errno
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, ptr.Message
	}
	return InternalServerError.Code, err.Error()
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
	ErrRPC              = Errno{Code: 10005, Message: "Chain RPC error"}
)

// Business Errors (20000+)
var (
	ErrInvalidAddress     = Errno{Code: 20201, Message: "Invalid address"}
	ErrWalletNotConnected = Errno{Code: 20301, Message: "Wallet not connected"}
	ErrSubmissionInFlight = Errno{Code: 20302, Message: "A transaction is already in flight for this account"}
	ErrClaimNotFound      = Errno{Code: 20303, Message: "Claim not found"}
	ErrClaimLocked        = Errno{Code: 20304, Message: "Claim is being processed by another instance"}
	ErrFrameNotFound      = Errno{Code: 20401, Message: "Frame not found"}
)
