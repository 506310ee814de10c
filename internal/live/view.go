package live

import (
	"encoding/hex"
	"sort"
	"time"

	"fairtable/internal/game"
	"fairtable/internal/round"
)

// TableView is the wire snapshot of the table. The reveal never appears
// here; spectators see only the commitment until resolution.
type TableView struct {
	TableID string `json:"table_id"`
	Session string `json:"session"`
	NowMS   int64  `json:"now_ms"`

	RoundID       uint64        `json:"round_id"`
	Phase         round.Phase   `json:"phase"`
	GameKind      game.Kind     `json:"game_kind"`
	Commit        string        `json:"commit"`
	BettingEndsAt int64         `json:"betting_ends_at"`
	LockEndsAt    int64         `json:"lock_ends_at"`
	ResolveAt     int64         `json:"resolve_at"`
	CooldownUntil int64         `json:"cooldown_until,omitempty"`
	MinBet        uint64        `json:"min_bet"`
	MaxBet        uint64        `json:"max_bet"`
	Bets          []BetView     `json:"bets"`
	TotalStaked   uint64        `json:"total_staked"`
	Outcome       *game.Outcome `json:"outcome,omitempty"`
	Reveal        string        `json:"reveal,omitempty"`

	Recent []OutcomeSummary `json:"recent"`
	Halted bool             `json:"halted,omitempty"`
}

type BetView struct {
	Player string `json:"player"`
	Type   uint8  `json:"type"`
	Target uint8  `json:"target"`
	Amount uint64 `json:"amount"`
}

type OutcomeSummary struct {
	RoundID uint64  `json:"round_id"`
	Values  []uint8 `json:"values"`
	Score   uint8   `json:"score"`
	At      int64   `json:"at"`
}

type BetsPlacedView struct {
	RoundID uint64 `json:"round_id"`
	Player  string `json:"player"`
	Bets    int    `json:"bets"`
	Staked  uint64 `json:"staked"`
}

type SettledDelta struct {
	Player  string `json:"player"`
	Amount  int64  `json:"amount"`
	Balance uint64 `json:"balance"`
}

// SettlementView carries the published reveal so anyone can recheck the
// commitment and replay the outcome.
type SettlementView struct {
	RoundID uint64         `json:"round_id"`
	Reveal  string         `json:"reveal"`
	Deltas  []SettledDelta `json:"deltas"`
}

// View snapshots the table for handlers.
func (e *Engine) View() TableView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

// viewLocked builds the snapshot. Callers hold the lock.
func (e *Engine) viewLocked() TableView {
	r := e.rnd
	v := TableView{
		TableID:       e.tableID,
		Session:       e.session,
		NowMS:         time.Now().UnixMilli(),
		RoundID:       r.ID,
		Phase:         r.Phase,
		GameKind:      r.Config.GameKind,
		Commit:        hex.EncodeToString(r.Commit[:]),
		BettingEndsAt: r.BettingEndsAt,
		LockEndsAt:    r.LockEndsAt,
		ResolveAt:     r.ResolveAt,
		CooldownUntil: r.CooldownUntil,
		MinBet:        r.Config.MinBet,
		MaxBet:        r.Config.MaxBet,
		TotalStaked:   r.TotalStaked(),
		Halted:        e.halted,
	}
	v.Bets = make([]BetView, 0, len(r.Bets))
	for _, b := range r.Bets {
		v.Bets = append(v.Bets, BetView{Player: b.Player, Type: b.Type, Target: b.Target, Amount: b.Amount})
	}
	if r.Outcome != nil {
		out := *r.Outcome
		out.Values = append([]uint8(nil), r.Outcome.Values...)
		v.Outcome = &out
		v.Reveal = hex.EncodeToString(r.Reveal)
	}
	v.Recent = e.recentLocked()
	return v
}

// recentLocked lists finished outcomes, newest first.
func (e *Engine) recentLocked() []OutcomeSummary {
	keys := e.recent.Keys()
	out := make([]OutcomeSummary, 0, len(keys))
	for _, k := range keys {
		if v, ok := e.recent.Peek(k); ok {
			out = append(out, v.(OutcomeSummary))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundID > out[j].RoundID })
	return out
}
