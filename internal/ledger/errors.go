package ledger

import "errors"

var (
	ErrDuplicateUsername  = errors.New("username unavailable")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidAmount      = errors.New("invalid amount (must be > 0)")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrIDSpaceExhausted   = errors.New("could not allocate a unique account id")
)

// Stable machine-readable codes for the ledger errors, used on the wire.
const (
	CodeDuplicateUsername  = "duplicate_username"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidAmount      = "invalid_amount"
	CodeInsufficientFunds  = "insufficient_funds"
	CodeAccountNotFound    = "account_not_found"
	CodeInvalidInput       = "invalid_input"
	CodeInternal           = "internal"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrDuplicateUsername, CodeDuplicateUsername},
	{ErrInvalidCredentials, CodeInvalidCredentials},
	{ErrInvalidAmount, CodeInvalidAmount},
	{ErrInsufficientFunds, CodeInsufficientFunds},
	{ErrAccountNotFound, CodeAccountNotFound},
	{ErrInvalidInput, CodeInvalidInput},
}

// ErrorCode returns the wire code for err, or CodeInternal.
func ErrorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// ErrorFromCode is the inverse of ErrorCode. It returns nil for unknown codes.
func ErrorFromCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
