package round

import "errors"

// The bet/transition error taxonomy. Validation errors are reported
// synchronously to the submitter and never retried. ErrCommitmentMismatch is
// fatal for the round and requires operator attention; silently continuing
// would void the fairness guarantee.
var (
	ErrPhaseClosed         = errors.New("phase_closed")
	ErrInvalidBet          = errors.New("invalid_bet")
	ErrLimitExceeded       = errors.New("limit_exceeded")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrCommitmentMismatch  = errors.New("commitment_mismatch")
	ErrAlreadySettled      = errors.New("already_settled")
	ErrNotResolved         = errors.New("not_resolved")
)

// Code maps an error chain to the stable wire code sent back to submitters.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPhaseClosed):
		return "phase_closed"
	case errors.Is(err, ErrInvalidBet):
		return "invalid_bet"
	case errors.Is(err, ErrLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrCommitmentMismatch):
		return "commitment_mismatch"
	case errors.Is(err, ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, ErrNotResolved):
		return "not_resolved"
	default:
		return "internal"
	}
}
