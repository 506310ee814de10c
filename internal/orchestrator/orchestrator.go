// Package orchestrator drives the replicated table's round lifecycle. It
// watches node state, decides which transition is due, and submits the
// signed admin op for it. Sequence numbers come from a shared reservation
// source; a rejection attributable to sequence drift triggers one resync
// from the node and exactly one retry. Attempts for the same transition
// are spaced by a minimum retry interval.
package orchestrator

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"fairtable/internal/codec"
	"fairtable/internal/exec"
	"fairtable/internal/round"
)

var (
	// ErrSubmissionRejected surfaces a node rejection that survived the
	// single resync retry.
	ErrSubmissionRejected = errors.New("submission rejected")
	// ErrSettlementPending blocks opening a new round while the prior
	// round's payouts are not confirmed on-state.
	ErrSettlementPending = errors.New("prior round settlement pending")
)

type Options struct {
	TableID string
	// Signer is the authority account the ops are signed as.
	Signer string
	Priv   ed25519.PrivateKey
	Node   NodeClient
	Seq    SeqSource

	// Tick is the poll interval for Run. Zero means 500ms.
	Tick time.Duration
	// RetryTTL is the minimum interval between attempts of the same
	// transition. Zero means 3s.
	RetryTTL time.Duration
}

type Orchestrator struct {
	tableID  string
	signer   string
	priv     ed25519.PrivateKey
	node     NodeClient
	seq      SeqSource
	tick     time.Duration
	throttle *cache.Cache
	log      zerolog.Logger

	// reveals holds, per open round, the value whose hash was published
	// as the commitment. Held in memory only; losing it (restart) stalls
	// the round at Locked for operator attention.
	mu      sync.Mutex
	reveals map[uint64][]byte
}

func New(opts Options, log zerolog.Logger) (*Orchestrator, error) {
	if opts.Node == nil || opts.Seq == nil {
		return nil, errors.New("orchestrator: node and seq source are required")
	}
	if len(opts.Priv) != ed25519.PrivateKeySize {
		return nil, errors.New("orchestrator: bad private key size")
	}
	if opts.Tick <= 0 {
		opts.Tick = 500 * time.Millisecond
	}
	if opts.RetryTTL <= 0 {
		opts.RetryTTL = 3 * time.Second
	}
	return &Orchestrator{
		tableID:  opts.TableID,
		signer:   opts.Signer,
		priv:     opts.Priv,
		node:     opts.Node,
		seq:      opts.Seq,
		tick:     opts.Tick,
		throttle: cache.New(opts.RetryTTL, 2*opts.RetryTTL),
		log:      log.With().Str("component", "orchestrator").Str("table", opts.TableID).Logger(),
		reveals:  map[uint64][]byte{},
	}, nil
}

// Run polls the node until ctx ends.
func (o *Orchestrator) Run(ctx context.Context) error {
	t := time.NewTicker(o.tick)
	defer t.Stop()
	o.log.Info().Str("signer", o.signer).Dur("tick", o.tick).Msg("orchestrator running")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			if _, err := o.Advance(ctx, now.UnixMilli()); err != nil {
				o.log.Warn().Err(err).Msg("advance")
			}
		}
	}
}

// Advance submits the one transition the table is due for, if any, and
// reports whether an op went out. Not-yet-due and throttled both return
// (false, nil).
func (o *Orchestrator) Advance(ctx context.Context, nowMS int64) (bool, error) {
	r, err := o.node.Round(ctx, o.tableID)
	if err != nil {
		if errors.Is(err, ErrNoRound) {
			return o.openRound(ctx, 1)
		}
		return false, fmt.Errorf("read round: %w", err)
	}

	switch r.Phase {
	case round.PhaseBetting:
		if nowMS >= r.BettingEndsAt {
			return o.transition(ctx, codec.KindLockRound, r.ID,
				codec.LockRoundOp{TableID: o.tableID, RoundID: r.ID})
		}
	case round.PhaseLocked:
		if nowMS >= r.LockEndsAt {
			return o.revealOutcome(ctx, r.ID)
		}
	case round.PhaseResolving:
		if nowMS >= r.ResolveAt {
			return o.transition(ctx, codec.KindSettleRound, r.ID,
				codec.SettleRoundOp{TableID: o.tableID, RoundID: r.ID})
		}
	case round.PhasePayout:
		if nowMS >= r.ResolveAt+r.Config.Timing.PayoutMS {
			return o.transition(ctx, codec.KindFinalizeRound, r.ID,
				codec.FinalizeRoundOp{TableID: o.tableID, RoundID: r.ID})
		}
	case round.PhaseCooldown:
		if nowMS >= r.CooldownUntil {
			if !r.Settled {
				return false, ErrSettlementPending
			}
			return o.openRound(ctx, r.ID+1)
		}
	}
	return false, nil
}

func (o *Orchestrator) openRound(ctx context.Context, id uint64) (bool, error) {
	reveal := o.revealFor(id)
	if reveal == nil {
		return false, errors.New("entropy unavailable")
	}
	commit := sha256.Sum256(reveal)
	return o.transition(ctx, codec.KindOpenRound, id, codec.OpenRoundOp{
		TableID: o.tableID,
		RoundID: id,
		Commit:  commit[:],
	})
}

// revealFor returns the reveal committed to for round id, drawing it on
// first use. Reusing the same value across submit retries keeps the held
// reveal consistent with whichever commitment actually landed.
func (o *Orchestrator) revealFor(id uint64) []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	if r, ok := o.reveals[id]; ok {
		return r
	}
	r := make([]byte, 32)
	if _, err := rand.Read(r); err != nil {
		o.log.Error().Err(err).Msg("entropy unavailable")
		return nil
	}
	o.reveals[id] = r
	return r
}

func (o *Orchestrator) revealOutcome(ctx context.Context, id uint64) (bool, error) {
	o.mu.Lock()
	reveal, held := o.reveals[id]
	o.mu.Unlock()
	if !held {
		// Custody lost, typically a restart mid-round. The round cannot
		// resolve; surface until an operator intervenes.
		return false, fmt.Errorf("no reveal held for round %d", id)
	}
	acted, err := o.transition(ctx, codec.KindRevealOutcome, id,
		codec.RevealOutcomeOp{TableID: o.tableID, RoundID: id, Reveal: reveal})
	if acted && err == nil {
		o.mu.Lock()
		delete(o.reveals, id)
		o.mu.Unlock()
	}
	return acted, err
}

// transition submits one signed admin op, at most once per retry window
// per (round, kind). Sequence drift gets one resync-and-retry; any other
// rejection surfaces immediately.
func (o *Orchestrator) transition(ctx context.Context, kind string, roundID uint64, payload any) (bool, error) {
	key := fmt.Sprintf("%d/%s", roundID, kind)
	if err := o.throttle.Add(key, time.Now(), cache.DefaultExpiration); err != nil {
		return false, nil
	}

	res, err := o.submit(ctx, kind, payload)
	if err != nil {
		// Unknown outcome: the op may or may not have landed. Resync the
		// sequence from the node so the next attempt starts from truth,
		// and let the next poll read what actually happened.
		if _, rerr := o.ResyncSeq(ctx); rerr != nil {
			o.log.Error().Err(rerr).Msg("resync after transport failure")
		}
		return false, fmt.Errorf("submit %s: %w", kind, err)
	}
	if res.OK {
		metricTransitions.Add(1)
		o.log.Info().Str("kind", kind).Uint64("round", roundID).Msg("transition submitted")
		return true, nil
	}
	if res.Code != "seq_mismatch" {
		metricRejections.Add(1)
		return false, fmt.Errorf("%w: %s: %s (%s)", ErrSubmissionRejected, kind, res.Code, res.Log)
	}

	o.log.Warn().Str("kind", kind).Uint64("round", roundID).Msg("sequence drift, resyncing")
	if _, err := o.ResyncSeq(ctx); err != nil {
		return false, err
	}
	res, err = o.submit(ctx, kind, payload)
	if err != nil {
		return false, fmt.Errorf("retry %s: %w", kind, err)
	}
	if !res.OK {
		metricRejections.Add(1)
		return false, fmt.Errorf("%w: %s after resync: %s", ErrSubmissionRejected, kind, res.Code)
	}
	metricTransitions.Add(1)
	o.log.Info().Str("kind", kind).Uint64("round", roundID).Msg("transition submitted after resync")
	return true, nil
}

func (o *Orchestrator) submit(ctx context.Context, kind string, payload any) (exec.OpResult, error) {
	seq, err := o.seq.Reserve(o.signer)
	if err != nil {
		return exec.OpResult{}, err
	}
	env, err := codec.NewEnvelope(kind, o.signer, seq, payload)
	if err != nil {
		return exec.OpResult{}, err
	}
	codec.Sign(&env, o.priv)
	results, err := o.node.SubmitOps(ctx, []codec.Envelope{env})
	if err != nil {
		return exec.OpResult{}, err
	}
	if len(results) != 1 {
		return exec.OpResult{}, fmt.Errorf("node returned %d results for one op", len(results))
	}
	return results[0], nil
}

// ResyncSeq reloads the signer's committed sequence from the node into the
// reservation source and returns it.
func (o *Orchestrator) ResyncSeq(ctx context.Context) (uint64, error) {
	committed, err := o.node.Seq(ctx, o.signer)
	if err != nil {
		return 0, fmt.Errorf("read committed seq: %w", err)
	}
	if err := o.seq.Resync(o.signer, committed); err != nil {
		return 0, err
	}
	metricResyncs.Add(1)
	o.log.Info().Uint64("seq", committed).Msg("sequence resynced")
	return committed, nil
}

// Status is the operator-facing view of the table and this orchestrator.
type Status struct {
	TableID      string       `json:"table_id"`
	Signer       string       `json:"signer"`
	CommittedSeq uint64       `json:"committed_seq"`
	Round        *round.Round `json:"round,omitempty"`
	HeldReveals  []uint64     `json:"held_reveals,omitempty"`
}

func (o *Orchestrator) Status(ctx context.Context) (*Status, error) {
	st := &Status{TableID: o.tableID, Signer: o.signer}
	r, err := o.node.Round(ctx, o.tableID)
	if err != nil && !errors.Is(err, ErrNoRound) {
		return nil, err
	}
	st.Round = r
	committed, err := o.node.Seq(ctx, o.signer)
	if err != nil {
		return nil, err
	}
	st.CommittedSeq = committed
	o.mu.Lock()
	for id := range o.reveals {
		st.HeldReveals = append(st.HeldReveals, id)
	}
	o.mu.Unlock()
	sort.Slice(st.HeldReveals, func(i, j int) bool { return st.HeldReveals[i] < st.HeldReveals[j] })
	return st, nil
}
