package pool

import "errors"

// Policy failures. These are expected outcomes of a well-formed request and
// never change the state of the pool.
var (
	ErrInsufficientBalance = errors.New("sender balance does not exceed the deposit amount")
	ErrDuplicateNullifier  = errors.New("nullifier is already registered")
	ErrNullifierSpent      = errors.New("nullifier has already been spent")
	ErrUnknownNullifier    = errors.New("nullifier was never registered by a deposit")
	ErrCommitmentMismatch  = errors.New("path leaf is not the commitment to the secret")
	ErrUnknownRoot         = errors.New("path does not lead to a known root")
)

var (
	ErrMalformedNote    = errors.New("malformed note")
	ErrBalanceOverflow  = errors.New("balance would overflow")
	ErrCustodyShortfall = errors.New("custodian balance is below the deposit amount")
)

var policyErrors = []error{
	ErrInsufficientBalance,
	ErrDuplicateNullifier,
	ErrNullifierSpent,
	ErrUnknownNullifier,
	ErrCommitmentMismatch,
	ErrUnknownRoot,
}

// IsPolicyError returns true if err is, or wraps, one of the policy failures
// above.
func IsPolicyError(err error) bool {
	for _, target := range policyErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
