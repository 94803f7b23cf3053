package ledger

import "errors"

// Validation rejections. Each maps to a distinct user-correctable reason
// and guarantees no state was mutated.
var (
	ErrPriceUnavailable   = errors.New("price unavailable")
	ErrInvalidSymbol      = errors.New("invalid symbol")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrInsufficientCash   = errors.New("insufficient cash")
	ErrInvalidAmount      = errors.New("enter a positive whole number")

	// ErrStaleState is returned when another writer committed between this
	// operation's read and its write. The caller should re-review.
	ErrStaleState = errors.New("state changed, please retry")
)

// IsRejection reports whether err is a user-correctable validation
// rejection rather than an infrastructure failure.
func IsRejection(err error) bool {
	for _, rejection := range []error{
		ErrPriceUnavailable,
		ErrInvalidSymbol,
		ErrInvalidQuantity,
		ErrInsufficientShares,
		ErrInsufficientCash,
		ErrInvalidAmount,
	} {
		if errors.Is(err, rejection) {
			return true
		}
	}
	return false
}
