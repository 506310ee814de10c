// Package ledger names the balance moves a table makes. Entry types and
// references are minted here so the trail reads the same regardless of
// which component wrote it.
package ledger

import (
	"context"
	"strconv"

	"fairtable/internal/accounts"
)

type Ledger struct {
	Store accounts.Store
}

func New(s accounts.Store) *Ledger {
	return &Ledger{Store: s}
}

// GrantFaucet funds a first-time player. Existing accounts keep their
// balance; the store books the grant as an initial_credit entry.
func (l *Ledger) GrantFaucet(ctx context.Context, player string, amount uint64) error {
	return l.Store.Ensure(ctx, player, amount)
}

// SettleRound applies one player's net result for a round and returns the
// new balance. Non-negative deltas land as round_win, negative as
// round_loss, both referencing the round id.
func (l *Ledger) SettleRound(ctx context.Context, player string, roundID uint64, delta int64) (uint64, error) {
	entryType := "round_win"
	if delta < 0 {
		entryType = "round_loss"
	}
	return l.Store.ApplyDelta(ctx, player, delta, entryType, "round", strconv.FormatUint(roundID, 10))
}

// Topup credits an existing account out of band, booked as topup_credit.
// The account must already exist; topping up is not a way to mint players.
func (l *Ledger) Topup(ctx context.Context, player string, amount uint64, refID string) (uint64, error) {
	return l.Store.Credit(ctx, player, amount, "topup_credit", "topup", refID)
}
