// Package live runs the off-chain table: a timer advances the round
// lifecycle, humans and bots place bets through the same entry point, and
// every phase change fans out to attached sinks. All round math is the
// shared round package, so live tables and replicated tables cannot drift.
package live

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"fairtable/internal/accounts"
	"fairtable/internal/codec"
	"fairtable/internal/ledger"
	"fairtable/internal/round"
)

const recentOutcomes = 32

// Sink receives table pushes. Implementations must not block; the engine
// calls them under its lock.
type Sink interface {
	Push(msgType string, payload any)
}

// Options configure an engine instance.
type Options struct {
	TableID string
	Config  round.TableConfig
	Store   accounts.Store

	// Tick is the lifecycle timer resolution. Zero means 100ms.
	Tick time.Duration
	// Faucet is the play-money balance granted to first-time joiners.
	Faucet uint64
}

// Engine is the authoritative in-process table. One mutex guards all round
// state; handlers and the timer loop both go through it.
type Engine struct {
	mu      sync.Mutex
	tableID string
	session string
	cfg     round.TableConfig
	store   accounts.Store
	ledger  *ledger.Ledger
	tick    time.Duration
	faucet  uint64

	rnd    *round.Round
	reveal []byte
	recent *lru.Cache
	sink   Sink
	halted bool

	log zerolog.Logger
}

func NewEngine(opts Options, log zerolog.Logger) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("live: nil account store")
	}
	if opts.Tick <= 0 {
		opts.Tick = 100 * time.Millisecond
	}
	cache, err := lru.New(recentOutcomes)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		tableID: opts.TableID,
		session: uuid.NewString(),
		cfg:     opts.Config,
		store:   opts.Store,
		ledger:  ledger.New(opts.Store),
		tick:    opts.Tick,
		faucet:  opts.Faucet,
		recent:  cache,
		log:     log.With().Str("component", "live").Str("table", opts.TableID).Logger(),
	}
	e.openRound(1, time.Now().UnixMilli())
	return e, nil
}

// SetSink attaches the push fan-out. Call before Run.
func (e *Engine) SetSink(s Sink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = s
}

// Run drives the lifecycle until ctx ends.
func (e *Engine) Run(ctx context.Context) error {
	t := time.NewTicker(e.tick)
	defer t.Stop()
	e.log.Info().Str("session", e.session).Dur("tick", e.tick).Msg("live engine running")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			e.step(now.UnixMilli())
		}
	}
}

// step advances the round when its current phase deadline has passed. At
// most one transition fires per tick; back-to-back deadlines resolve on
// consecutive ticks, which keeps each push observable.
func (e *Engine) step(nowMS int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.halted || e.rnd == nil {
		return
	}
	r := e.rnd
	switch r.Phase {
	case round.PhaseBetting:
		if nowMS >= r.BettingEndsAt {
			e.lock(r)
		}
	case round.PhaseLocked:
		if nowMS >= r.LockEndsAt {
			e.resolve(r)
		}
	case round.PhaseResolving:
		if nowMS >= r.ResolveAt {
			e.settle(r)
		}
	case round.PhasePayout:
		if nowMS >= r.ResolveAt+r.Config.Timing.PayoutMS {
			e.finalize(r, nowMS)
		}
	case round.PhaseCooldown:
		if nowMS >= r.CooldownUntil {
			e.openRound(r.ID+1, nowMS)
		}
	}
}

// openRound draws a fresh reveal, publishes its commitment and starts the
// betting window. Callers hold the lock (or are the constructor).
func (e *Engine) openRound(id uint64, nowMS int64) {
	reveal := make([]byte, 32)
	if _, err := rand.Read(reveal); err != nil {
		e.halted = true
		e.log.Error().Err(err).Msg("entropy unavailable, table halted")
		return
	}
	e.reveal = reveal
	e.rnd = round.Open(e.cfg, id, round.Commitment(reveal), nowMS)
	metricRoundsOpened.Add(1)
	e.log.Info().Uint64("round", id).Msg("round opened")
	e.push("round_opened", e.viewLocked())
}

func (e *Engine) lock(r *round.Round) {
	if err := round.Lock(r); err != nil {
		e.halt("lock", err)
		return
	}
	e.log.Info().Uint64("round", r.ID).Int("bets", len(r.Bets)).Uint64("staked", r.TotalStaked()).Msg("round locked")
	e.push("round_locked", e.viewLocked())
}

func (e *Engine) resolve(r *round.Round) {
	out, err := round.Resolve(r, e.reveal)
	if err != nil {
		// Commitment mismatch here means the engine's own reveal does
		// not match what it published. Fail closed and stop the table.
		e.halt("resolve", err)
		return
	}
	e.log.Info().Uint64("round", r.ID).Str("outcome", out.String()).Msg("outcome revealed")
	e.push("outcome_revealed", e.viewLocked())
}

func (e *Engine) settle(r *round.Round) {
	deltas, err := round.Settle(r)
	if err != nil {
		e.halt("settle", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results := make([]SettledDelta, 0, len(deltas))
	for _, d := range deltas {
		bal, err := e.ledger.SettleRound(ctx, d.Player, r.ID, d.Amount)
		if err != nil {
			// Deltas derive from balance-checked bets; a failure here is
			// a store-level problem, not a table one.
			e.halt("apply delta", err)
			return
		}
		results = append(results, SettledDelta{Player: d.Player, Amount: d.Amount, Balance: bal})
	}
	metricSettleDeltas.Add(int64(len(results)))
	e.log.Info().Uint64("round", r.ID).Int("deltas", len(results)).Msg("round settled")
	e.push("round_settled", SettlementView{
		RoundID: r.ID,
		Reveal:  fmt.Sprintf("%x", r.Reveal),
		Deltas:  results,
	})
}

func (e *Engine) finalize(r *round.Round, nowMS int64) {
	if err := round.Finalize(r, nowMS); err != nil {
		e.halt("finalize", err)
		return
	}
	if r.Outcome != nil {
		e.recent.Add(r.ID, OutcomeSummary{
			RoundID: r.ID,
			Values:  append([]uint8(nil), r.Outcome.Values...),
			Score:   r.Outcome.Score,
			At:      nowMS,
		})
	}
	e.push("round_finalized", e.viewLocked())
}

func (e *Engine) halt(stage string, err error) {
	e.halted = true
	metricHalts.Add(1)
	e.log.Error().Err(err).Str("stage", stage).Uint64("round", e.rnd.ID).Msg("table halted")
	e.push("table_halted", map[string]any{"round_id": e.rnd.ID, "stage": stage})
}

// Halted reports whether the table stopped after an internal failure.
func (e *Engine) Halted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.halted
}

func (e *Engine) push(msgType string, payload any) {
	if e.sink != nil {
		e.sink.Push(msgType, payload)
	}
}

// Join registers a player, granting the faucet balance on first contact,
// and returns the current table view.
func (e *Engine) Join(ctx context.Context, player string) (TableView, error) {
	if player == "" {
		return TableView{}, errors.New("empty player name")
	}
	if err := e.ledger.GrantFaucet(ctx, player, e.faucet); err != nil {
		return TableView{}, err
	}
	return e.View(), nil
}

// BetResult reports one place-bets attempt. Code mirrors the round error
// codes; BalanceAfter is the player's balance minus everything staked.
type BetResult struct {
	OK           bool   `json:"ok"`
	Code         string `json:"code"`
	Error        string `json:"error,omitempty"`
	RoundID      uint64 `json:"round_id"`
	BalanceAfter uint64 `json:"balance_after"`
}

// PlaceBets applies all bets or none, against a clone first so a rejected
// list cannot half-land. Bots and websocket clients both come through here.
func (e *Engine) PlaceBets(ctx context.Context, player string, specs []codec.BetSpec) BetResult {
	if player == "" || len(specs) == 0 {
		return BetResult{Code: "invalid_bet", Error: "empty player or bet list"}
	}
	balance, err := e.store.Balance(ctx, player)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return BetResult{Code: "unknown_account", Error: "join the table first"}
		}
		return BetResult{Code: "internal", Error: err.Error()}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.halted {
		return BetResult{Code: "table_halted", Error: "table is halted"}
	}
	r := e.rnd
	staged := r.Clone()
	for _, spec := range specs {
		b := round.Bet{Player: player, Type: spec.Type, Target: spec.Target, Amount: spec.Amount}
		if err := round.AcceptBet(staged, b, balance); err != nil {
			metricBetsRejected.Add(1)
			return BetResult{
				Code:    round.Code(err),
				Error:   err.Error(),
				RoundID: r.ID,
			}
		}
	}
	e.rnd = staged
	metricBetsAccepted.Add(int64(len(specs)))
	res := BetResult{
		OK:           true,
		Code:         "ok",
		RoundID:      r.ID,
		BalanceAfter: balance - staged.Staked(player),
	}
	e.push("bets_placed", BetsPlacedView{
		RoundID: staged.ID,
		Player:  player,
		Bets:    len(specs),
		Staked:  staged.Staked(player),
	})
	return res
}

// Balance is a read-through to the account store.
func (e *Engine) Balance(ctx context.Context, player string) (uint64, error) {
	return e.store.Balance(ctx, player)
}
