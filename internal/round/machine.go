package round

import (
	"crypto/subtle"
	"fmt"

	"fairtable/internal/game"
	"fairtable/internal/rng"
)

// AcceptBet stages a bet against the round. balance is the player's known
// available balance as seen by the caller (overlay state on-chain, account
// store off-chain); the machine checks it against everything the player has
// already staked this round, so funds cannot be committed twice. Nothing is
// debited here; settlement returns net deltas.
func AcceptBet(r *Round, b Bet, balance uint64) error {
	if r.Phase != PhaseBetting {
		return fmt.Errorf("%w: bets close after %s", ErrPhaseClosed, PhaseBetting)
	}
	rules, err := game.ForKind(r.Config.GameKind)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBet, err)
	}
	if err := rules.ValidateBet(b.Type, b.Target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBet, err)
	}
	if b.Amount < r.Config.MinBet || b.Amount > r.Config.MaxBet {
		return fmt.Errorf("%w: amount %d outside %d..%d",
			ErrLimitExceeded, b.Amount, r.Config.MinBet, r.Config.MaxBet)
	}
	if r.BetCount(b.Player) >= r.Config.MaxBetsPerRound {
		return fmt.Errorf("%w: player already holds %d bets",
			ErrLimitExceeded, r.Config.MaxBetsPerRound)
	}
	if r.Staked(b.Player)+b.Amount > balance {
		return fmt.Errorf("%w: need %d, have %d",
			ErrInsufficientBalance, r.Staked(b.Player)+b.Amount, balance)
	}
	r.Bets = append(r.Bets, b)
	return nil
}

// Lock freezes bet acceptance. Valid only from Betting.
func Lock(r *Round) error {
	if r.Phase != PhaseBetting {
		return fmt.Errorf("%w: lock requires %s, round is %s", ErrPhaseClosed, PhaseBetting, r.Phase)
	}
	r.Phase = PhaseLocked
	return nil
}

// Resolve verifies the reveal against the round's commitment and derives the
// outcome. It fails closed: a reveal that does not hash to the commitment
// leaves the round Locked and returns ErrCommitmentMismatch. The round must
// not settle and the condition must surface to operators.
func Resolve(r *Round, reveal []byte) (game.Outcome, error) {
	if r.Phase != PhaseLocked {
		return game.Outcome{}, fmt.Errorf("%w: resolve requires %s, round is %s",
			ErrPhaseClosed, PhaseLocked, r.Phase)
	}
	digest := Commitment(reveal)
	if subtle.ConstantTimeCompare(digest[:], r.Commit[:]) != 1 {
		return game.Outcome{}, fmt.Errorf("%w: reveal does not hash to round %d commitment",
			ErrCommitmentMismatch, r.ID)
	}
	rules, err := game.ForKind(r.Config.GameKind)
	if err != nil {
		return game.Outcome{}, fmt.Errorf("%w: %v", ErrInvalidBet, err)
	}
	out := rules.Resolve(rng.New(reveal, r.ID, 0))
	r.Reveal = append([]byte(nil), reveal...)
	r.Outcome = &out
	r.Phase = PhaseResolving
	return out, nil
}

// Settle computes one net delta per bettor, in first-bet arrival order, and
// moves the round to Payout. It is idempotent: a second call returns
// ErrAlreadySettled and no deltas, so a replayed settle can never pay twice.
// A round with zero bets settles normally with an empty delta set.
func Settle(r *Round) ([]Delta, error) {
	if r.Settled {
		return nil, ErrAlreadySettled
	}
	if r.Phase != PhaseResolving || r.Outcome == nil {
		return nil, fmt.Errorf("%w: settle requires a resolved round, phase is %s",
			ErrNotResolved, r.Phase)
	}
	rules, err := game.ForKind(r.Config.GameKind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBet, err)
	}
	net := map[string]int64{}
	for _, b := range r.Bets {
		mult, win := rules.Payout(b.Type, b.Target, *r.Outcome)
		if win {
			net[b.Player] += int64(b.Amount) * int64(mult-1)
		} else {
			net[b.Player] -= int64(b.Amount)
		}
	}
	deltas := make([]Delta, 0, len(net))
	for _, p := range r.Players() {
		deltas = append(deltas, Delta{Player: p, Amount: net[p]})
	}
	r.Settled = true
	r.Phase = PhasePayout
	return deltas, nil
}

// Finalize moves a settled round into Cooldown. The driver opens the next
// round once CooldownUntil has passed.
func Finalize(r *Round, nowMS int64) error {
	if r.Phase != PhasePayout {
		return fmt.Errorf("%w: finalize requires %s, round is %s", ErrPhaseClosed, PhasePayout, r.Phase)
	}
	r.Phase = PhaseCooldown
	r.CooldownUntil = nowMS + r.Config.Timing.CooldownMS
	return nil
}
