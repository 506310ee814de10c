package exec

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"fairtable/internal/codec"
	"fairtable/internal/game"
	"fairtable/internal/round"
)

func (e *Executor) dispatch(st *State, b codec.Batch, env codec.Envelope) ([]Event, error) {
	switch env.Kind {
	case codec.KindOpenRound:
		return e.openRound(st, b, env)
	case codec.KindPlaceBets:
		return e.placeBets(st, env)
	case codec.KindLockRound:
		return e.lockRound(st, env)
	case codec.KindRevealOutcome:
		return e.revealOutcome(st, env)
	case codec.KindSettleRound:
		return e.settleRound(st, env)
	case codec.KindFinalizeRound:
		return e.finalizeRound(st, b, env)
	case codec.KindSetConfig:
		return e.setConfig(st, env)
	case codec.KindCreditAccount:
		return e.creditAccount(st, env)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, env.Kind)
	}
}

func decodeOp(env codec.Envelope, out any) error {
	if err := json.Unmarshal(env.Value, out); err != nil {
		return fmt.Errorf("%w: bad %s value: %v", ErrUnknownKind, env.Kind, err)
	}
	return nil
}

// currentRound loads the table's round and checks the op targets it.
func currentRound(st *State, tableID string, roundID uint64) (*round.Round, error) {
	r, ok, err := st.Round(tableID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: table %s has no round", ErrBadRoundID, tableID)
	}
	if r.ID != roundID {
		return nil, fmt.Errorf("%w: op targets round %d, current is %d", ErrBadRoundID, roundID, r.ID)
	}
	return r, nil
}

func (e *Executor) openRound(st *State, b codec.Batch, env codec.Envelope) ([]Event, error) {
	var op codec.OpenRoundOp
	if err := decodeOp(env, &op); err != nil {
		return nil, err
	}
	cfg, ok, err := st.Config(op.TableID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, op.TableID)
	}
	if len(op.Commit) != 32 {
		return nil, fmt.Errorf("%w: commit must be 32 bytes, got %d", round.ErrInvalidBet, len(op.Commit))
	}
	prev, hasPrev, err := st.Round(op.TableID)
	if err != nil {
		return nil, err
	}
	if hasPrev {
		if !prev.Phase.Terminal() {
			return nil, fmt.Errorf("%w: round %d is %s", ErrRoundActive, prev.ID, prev.Phase)
		}
		if op.RoundID != prev.ID+1 {
			return nil, fmt.Errorf("%w: want %d, got %d", ErrBadRoundID, prev.ID+1, op.RoundID)
		}
	} else if op.RoundID == 0 {
		return nil, fmt.Errorf("%w: round ids start at 1", ErrBadRoundID)
	}
	var commit [32]byte
	copy(commit[:], op.Commit)
	r := round.Open(cfg, op.RoundID, commit, b.TimeMS)
	if err := st.PutRound(op.TableID, r); err != nil {
		return nil, err
	}
	return []Event{NewEvent("round_opened", map[string]string{
		"table_id":        op.TableID,
		"round_id":        fmt.Sprintf("%d", r.ID),
		"commit":          hex.EncodeToString(commit[:]),
		"betting_ends_at": fmt.Sprintf("%d", r.BettingEndsAt),
	})}, nil
}

// placeBets applies every bet in the op or none of them. The dry run goes
// against a clone so a failure in the third bet cannot leave the first two
// behind.
func (e *Executor) placeBets(st *State, env codec.Envelope) ([]Event, error) {
	var op codec.PlaceBetsOp
	if err := decodeOp(env, &op); err != nil {
		return nil, err
	}
	if len(op.Bets) == 0 {
		return nil, fmt.Errorf("%w: empty bet list", round.ErrInvalidBet)
	}
	r, err := currentRound(st, op.TableID, op.RoundID)
	if err != nil {
		return nil, err
	}
	acct, ok, err := st.Account(env.Signer)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, env.Signer)
	}

	staged := r.Clone()
	for _, spec := range op.Bets {
		b := round.Bet{Player: env.Signer, Type: spec.Type, Target: spec.Target, Amount: spec.Amount}
		if err := round.AcceptBet(staged, b, acct.Balance); err != nil {
			return nil, err
		}
	}
	if err := st.PutRound(op.TableID, staged); err != nil {
		return nil, err
	}

	available := acct.Balance - staged.Staked(env.Signer)
	events := make([]Event, 0, len(op.Bets))
	for _, spec := range op.Bets {
		events = append(events, NewEvent("bet_accepted", map[string]string{
			"table_id":      op.TableID,
			"round_id":      fmt.Sprintf("%d", op.RoundID),
			"player":        env.Signer,
			"type":          fmt.Sprintf("%d", spec.Type),
			"target":        fmt.Sprintf("%d", spec.Target),
			"amount":        fmt.Sprintf("%d", spec.Amount),
			"balance_after": fmt.Sprintf("%d", available),
		}))
	}
	return events, nil
}

func (e *Executor) lockRound(st *State, env codec.Envelope) ([]Event, error) {
	var op codec.LockRoundOp
	if err := decodeOp(env, &op); err != nil {
		return nil, err
	}
	r, err := currentRound(st, op.TableID, op.RoundID)
	if err != nil {
		return nil, err
	}
	if err := round.Lock(r); err != nil {
		return nil, err
	}
	if err := st.PutRound(op.TableID, r); err != nil {
		return nil, err
	}
	return []Event{NewEvent("round_locked", map[string]string{
		"table_id": op.TableID,
		"round_id": fmt.Sprintf("%d", r.ID),
		"bets":     fmt.Sprintf("%d", len(r.Bets)),
		"staked":   fmt.Sprintf("%d", r.TotalStaked()),
	})}, nil
}

func (e *Executor) revealOutcome(st *State, env codec.Envelope) ([]Event, error) {
	var op codec.RevealOutcomeOp
	if err := decodeOp(env, &op); err != nil {
		return nil, err
	}
	r, err := currentRound(st, op.TableID, op.RoundID)
	if err != nil {
		return nil, err
	}
	out, err := round.Resolve(r, op.Reveal)
	if err != nil {
		return nil, err
	}
	if err := st.PutRound(op.TableID, r); err != nil {
		return nil, err
	}
	vals := make([]string, len(out.Values))
	for i, v := range out.Values {
		vals[i] = fmt.Sprintf("%d", v)
	}
	return []Event{NewEvent("outcome_revealed", map[string]string{
		"table_id": op.TableID,
		"round_id": fmt.Sprintf("%d", r.ID),
		"values":   strings.Join(vals, ","),
		"score":    fmt.Sprintf("%d", out.Score),
	})}, nil
}

// settleRound applies the round's net deltas to account balances. A negative
// delta larger than the stored balance fails the op; balances only move
// through bets this executor accepted, so that means state was tampered with
// out of band.
func (e *Executor) settleRound(st *State, env codec.Envelope) ([]Event, error) {
	var op codec.SettleRoundOp
	if err := decodeOp(env, &op); err != nil {
		return nil, err
	}
	r, err := currentRound(st, op.TableID, op.RoundID)
	if err != nil {
		return nil, err
	}
	deltas, err := round.Settle(r)
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(deltas)+1)
	events = append(events, NewEvent("round_settled", map[string]string{
		"table_id": op.TableID,
		"round_id": fmt.Sprintf("%d", r.ID),
		"deltas":   fmt.Sprintf("%d", len(deltas)),
	}))
	for _, d := range deltas {
		acct, ok, err := st.Account(d.Player)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s bet without an account", ErrUnknownAccount, d.Player)
		}
		next := int64(acct.Balance) + d.Amount
		if next < 0 {
			return nil, fmt.Errorf("settle round %d: %s balance %d cannot absorb delta %d",
				r.ID, d.Player, acct.Balance, d.Amount)
		}
		acct.Balance = uint64(next)
		if err := st.PutAccount(d.Player, acct); err != nil {
			return nil, err
		}
		events = append(events, NewEvent("balance_delta", map[string]string{
			"table_id":      op.TableID,
			"round_id":      fmt.Sprintf("%d", r.ID),
			"player":        d.Player,
			"amount":        fmt.Sprintf("%d", d.Amount),
			"balance_after": fmt.Sprintf("%d", acct.Balance),
		}))
	}
	if err := st.PutRound(op.TableID, r); err != nil {
		return nil, err
	}
	return events, nil
}

func (e *Executor) finalizeRound(st *State, b codec.Batch, env codec.Envelope) ([]Event, error) {
	var op codec.FinalizeRoundOp
	if err := decodeOp(env, &op); err != nil {
		return nil, err
	}
	r, err := currentRound(st, op.TableID, op.RoundID)
	if err != nil {
		return nil, err
	}
	if err := round.Finalize(r, b.TimeMS); err != nil {
		return nil, err
	}
	if err := st.ArchiveRound(op.TableID, r); err != nil {
		return nil, err
	}
	if err := st.PutRound(op.TableID, r); err != nil {
		return nil, err
	}
	return []Event{NewEvent("round_finalized", map[string]string{
		"table_id":       op.TableID,
		"round_id":       fmt.Sprintf("%d", r.ID),
		"cooldown_until": fmt.Sprintf("%d", r.CooldownUntil),
	})}, nil
}

// setConfig installs a table config. It refuses while a round is in flight;
// the running round keeps the config it opened with either way.
func (e *Executor) setConfig(st *State, env codec.Envelope) ([]Event, error) {
	var op codec.SetConfigOp
	if err := decodeOp(env, &op); err != nil {
		return nil, err
	}
	if op.TableID == "" {
		return nil, fmt.Errorf("%w: missing table_id", ErrUnknownTable)
	}
	if err := e.validate.Struct(op.Config); err != nil {
		return nil, fmt.Errorf("%w: %v", round.ErrInvalidBet, err)
	}
	if _, err := game.ForKind(op.Config.GameKind); err != nil {
		return nil, fmt.Errorf("%w: %v", round.ErrInvalidBet, err)
	}
	r, ok, err := st.Round(op.TableID)
	if err != nil {
		return nil, err
	}
	if ok && !r.Phase.Terminal() {
		return nil, fmt.Errorf("%w: round %d is %s", ErrRoundActive, r.ID, r.Phase)
	}
	if err := st.PutConfig(op.TableID, op.Config); err != nil {
		return nil, err
	}
	return []Event{NewEvent("config_updated", map[string]string{
		"table_id":  op.TableID,
		"game_kind": string(op.Config.GameKind),
		"min_bet":   fmt.Sprintf("%d", op.Config.MinBet),
		"max_bet":   fmt.Sprintf("%d", op.Config.MaxBet),
	})}, nil
}

func (e *Executor) creditAccount(st *State, env codec.Envelope) ([]Event, error) {
	var op codec.CreditAccountOp
	if err := decodeOp(env, &op); err != nil {
		return nil, err
	}
	if op.Account == "" || op.Amount == 0 {
		return nil, fmt.Errorf("%w: missing account or amount", ErrUnknownAccount)
	}
	if len(op.PubKey) != 0 && len(op.PubKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: pub key must be %d bytes", ErrUnknownAccount, ed25519.PublicKeySize)
	}
	acct, _, err := st.Account(op.Account)
	if err != nil {
		return nil, err
	}
	if acct.Balance+op.Amount < acct.Balance {
		return nil, fmt.Errorf("credit %s: balance overflow", op.Account)
	}
	acct.Balance += op.Amount
	if err := st.PutAccount(op.Account, acct); err != nil {
		return nil, err
	}
	if len(op.PubKey) == ed25519.PublicKeySize {
		st.PutPubKey(op.Account, ed25519.PublicKey(op.PubKey))
	}
	return []Event{NewEvent("account_credited", map[string]string{
		"account":       op.Account,
		"amount":        fmt.Sprintf("%d", op.Amount),
		"balance_after": fmt.Sprintf("%d", acct.Balance),
	})}, nil
}
