// Package round is the authoritative lifecycle for the shared table: phases,
// bet bookkeeping, outcome resolution and payout computation. It is pure
// logic. It holds no clock and performs no I/O; every transition is an
// explicit call from a driver (the staged executor on-chain, the live engine
// off-chain), which is what lets both environments share identical rules.
package round

import (
	"crypto/sha256"

	"fairtable/internal/game"
)

type Phase string

const (
	PhaseBetting   Phase = "betting"
	PhaseLocked    Phase = "locked"
	PhaseResolving Phase = "resolving"
	PhasePayout    Phase = "payout"
	PhaseCooldown  Phase = "cooldown"
)

// Terminal reports whether the phase ends the round's active life.
func (p Phase) Terminal() bool { return p == PhaseCooldown }

// Timing windows in milliseconds, one per lifecycle phase.
type Timing struct {
	BetMS      int64 `json:"bet_ms" toml:"bet_ms" validate:"gt=0"`
	LockMS     int64 `json:"lock_ms" toml:"lock_ms" validate:"gte=0"`
	ResolveMS  int64 `json:"resolve_ms" toml:"resolve_ms" validate:"gte=0"`
	PayoutMS   int64 `json:"payout_ms" toml:"payout_ms" validate:"gte=0"`
	CooldownMS int64 `json:"cooldown_ms" toml:"cooldown_ms" validate:"gte=0"`
}

// TableConfig is the static per-game-type parameter set. It is created at
// table initialization, replaced only by an authorized set_config operation,
// and never mutated mid-round.
type TableConfig struct {
	GameKind        game.Kind `json:"game_kind" toml:"game_kind" validate:"required"`
	MinBet          uint64    `json:"min_bet" toml:"min_bet" validate:"gt=0"`
	MaxBet          uint64    `json:"max_bet" toml:"max_bet" validate:"gtefield=MinBet"`
	MaxBetsPerRound int       `json:"max_bets_per_round" toml:"max_bets_per_round" validate:"gt=0"`
	Timing          Timing    `json:"timing" toml:"timing"`
	AuthorityKeys   [][]byte  `json:"authority_keys" toml:"-" validate:"min=1"`
}

// Bet is immutable once accepted; it is referenced again only at settlement.
type Bet struct {
	Player string `json:"player"`
	Type   uint8  `json:"type"`
	Target uint8  `json:"target"`
	Amount uint64 `json:"amount"`
}

// Round is the one active round of a table. Exactly one non-terminal round
// exists per table at any time (the driver's invariant; the machine enforces
// per-transition legality).
type Round struct {
	ID     uint64      `json:"id"`
	Phase  Phase       `json:"phase"`
	Config TableConfig `json:"config"`

	// Deadlines (unix milliseconds): when each of the first three phases
	// completes. Later windows derive from ResolveAt plus the configured
	// payout/cooldown durations.
	OpenedAt      int64 `json:"opened_at"`
	BettingEndsAt int64 `json:"betting_ends_at"`
	LockEndsAt    int64 `json:"lock_ends_at"`
	ResolveAt     int64 `json:"resolve_at"`
	CooldownUntil int64 `json:"cooldown_until,omitempty"`

	// Commit is fixed before any bet is accepted; Reveal must hash to it.
	Commit  [32]byte      `json:"commit"`
	Reveal  []byte        `json:"reveal,omitempty"`
	Outcome *game.Outcome `json:"outcome,omitempty"`

	Bets    []Bet `json:"bets"`
	Settled bool  `json:"settled"`
}

// Delta is one player's net balance change from a settled round.
type Delta struct {
	Player string `json:"player"`
	Amount int64  `json:"amount"`
}

// Open creates the round in Betting and publishes its commitment. The
// commitment must be fixed before the first bet; callers derive it from the
// reveal they intend to publish at resolution (Commitment helper below).
func Open(cfg TableConfig, id uint64, commit [32]byte, nowMS int64) *Round {
	bettingEnds := nowMS + cfg.Timing.BetMS
	lockEnds := bettingEnds + cfg.Timing.LockMS
	return &Round{
		ID:            id,
		Phase:         PhaseBetting,
		Config:        cfg,
		OpenedAt:      nowMS,
		BettingEndsAt: bettingEnds,
		LockEndsAt:    lockEnds,
		ResolveAt:     lockEnds + cfg.Timing.ResolveMS,
		Commit:        commit,
	}
}

// Commitment is the published digest for a reveal value.
func Commitment(reveal []byte) [32]byte {
	return sha256.Sum256(reveal)
}

// Staked returns the sum a player has already committed to this round.
func (r *Round) Staked(player string) uint64 {
	var total uint64
	for _, b := range r.Bets {
		if b.Player == player {
			total += b.Amount
		}
	}
	return total
}

// BetCount returns how many bets a player holds in this round.
func (r *Round) BetCount(player string) int {
	n := 0
	for _, b := range r.Bets {
		if b.Player == player {
			n++
		}
	}
	return n
}

// TotalStaked is the sum of all accepted bet amounts.
func (r *Round) TotalStaked() uint64 {
	var total uint64
	for _, b := range r.Bets {
		total += b.Amount
	}
	return total
}

// Players returns the distinct bettors in first-bet arrival order.
func (r *Round) Players() []string {
	seen := map[string]bool{}
	var out []string
	for _, b := range r.Bets {
		if !seen[b.Player] {
			seen[b.Player] = true
			out = append(out, b.Player)
		}
	}
	return out
}

// Clone deep-copies the round so a driver can dry-run a multi-bet
// submission without touching the authoritative state.
func (r *Round) Clone() *Round {
	c := *r
	c.Bets = append([]Bet(nil), r.Bets...)
	c.Reveal = append([]byte(nil), r.Reveal...)
	if r.Outcome != nil {
		out := *r.Outcome
		out.Values = append([]uint8(nil), r.Outcome.Values...)
		c.Outcome = &out
	}
	return &c
}
