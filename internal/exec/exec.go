// Package exec is the staged execution adapter: it applies ordered batches
// of signed operations to table state through a transactional overlay.
// Each op runs in its own sub-transaction; a failed op rolls back alone and
// the batch continues. The committed change set is sorted and digested so
// independent replicas can compare results byte for byte.
package exec

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"fairtable/internal/codec"
	"fairtable/internal/kvdb"
	"fairtable/internal/round"
)

var (
	ErrSeqMismatch    = errors.New("sequence mismatch")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUnknownKind    = errors.New("unknown op kind")
	ErrUnknownTable   = errors.New("unknown table")
	ErrUnknownAccount = errors.New("unknown account")
	ErrRoundActive    = errors.New("round still active")
	ErrBadRoundID     = errors.New("bad round id")
)

func isNotFound(err error) bool { return errors.Is(err, kvdb.ErrNotFound) }

// codeOf maps an op failure to its stable wire code.
func codeOf(err error) string {
	switch {
	case errors.Is(err, ErrSeqMismatch):
		return "seq_mismatch"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrUnknownKind):
		return "unknown_kind"
	case errors.Is(err, ErrUnknownTable):
		return "unknown_table"
	case errors.Is(err, ErrUnknownAccount):
		return "unknown_account"
	case errors.Is(err, ErrRoundActive):
		return "round_active"
	case errors.Is(err, ErrBadRoundID):
		return "bad_round_id"
	}
	return round.Code(err)
}

// Attr is one event attribute. Attributes are emitted in sorted key order
// so event streams compare equal across replicas.
type Attr struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Event struct {
	Type  string `json:"type"`
	Attrs []Attr `json:"attrs"`
}

func NewEvent(typ string, attrs map[string]string) Event {
	ev := Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attrs = append(ev.Attrs, Attr{Key: k, Value: attrs[k]})
	}
	return ev
}

// OpResult is the outcome of one op inside a batch.
type OpResult struct {
	Index  int     `json:"index"`
	Kind   string  `json:"kind"`
	Signer string  `json:"signer"`
	OK     bool    `json:"ok"`
	Code   string  `json:"code"`
	Log    string  `json:"log,omitempty"`
	Events []Event `json:"events,omitempty"`
}

// BatchResult is what a replica reports after applying a batch: per-op
// results plus the committed change set and its digest.
type BatchResult struct {
	BatchID uint64      `json:"batch_id"`
	TimeMS  int64       `json:"time_ms"`
	Results []OpResult  `json:"results"`
	Changes []kvdb.Pair `json:"-"`
	Digest  [32]byte    `json:"-"`
}

// DigestHex is the digest in the form reported over the wire.
func (r *BatchResult) DigestHex() string { return hex.EncodeToString(r.Digest[:]) }

// Executor applies batches to a backing store. It is not safe for
// concurrent ApplyBatch calls; the node serializes batches.
type Executor struct {
	db          kvdb.DB
	authorities []ed25519.PublicKey
	validate    *validator.Validate
	log         zerolog.Logger
}

// New creates an executor. authorities are the bootstrap admin keys used
// until a table config carries its own.
func New(db kvdb.DB, authorities []ed25519.PublicKey, log zerolog.Logger) *Executor {
	return &Executor{
		db:          db,
		authorities: authorities,
		validate:    validator.New(),
		log:         log.With().Str("component", "exec").Logger(),
	}
}

// InitTable seeds a table config outside batch flow. Used at node bootstrap
// only; later changes go through signed set_config ops.
func (e *Executor) InitTable(tableID string, cfg round.TableConfig) error {
	if err := e.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid table config: %w", err)
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := e.db.Set(ConfigKey(tableID), raw); err != nil {
		return err
	}
	e.log.Info().Str("table", tableID).Str("game", string(cfg.GameKind)).Msg("table initialized")
	return nil
}

// ApplyBatch executes every op in order, flushes the surviving writes and
// returns per-op results with the change-set digest. The batch itself only
// fails on storage errors; op failures are results, not errors.
func (e *Executor) ApplyBatch(b codec.Batch) (*BatchResult, error) {
	ov := NewOverlay(e.db)
	st := NewState(ov)
	results := make([]OpResult, 0, len(b.Ops))
	for i, env := range b.Ops {
		results = append(results, e.applyOp(ov, st, b, i, env))
	}
	changes := ov.Changes()
	res := &BatchResult{
		BatchID: b.ID,
		TimeMS:  b.TimeMS,
		Results: results,
		Changes: changes,
		Digest:  Digest(changes),
	}
	if err := ov.Flush(changes); err != nil {
		return nil, fmt.Errorf("flush batch %d: %w", b.ID, err)
	}
	e.log.Info().
		Uint64("batch", b.ID).
		Int("ops", len(b.Ops)).
		Int("writes", len(changes)).
		Str("digest", res.DigestHex()).
		Msg("batch applied")
	return res, nil
}

// applyOp runs one op under the overlay. The sequence number advances as
// soon as the op authenticates, in its own sub-transaction, so a handler
// failure cannot be replayed under the same seq.
func (e *Executor) applyOp(ov *Overlay, st *State, b codec.Batch, idx int, env codec.Envelope) OpResult {
	res := OpResult{Index: idx, Kind: env.Kind, Signer: env.Signer, Code: "ok"}
	fail := func(err error) OpResult {
		ov.Rollback()
		res.OK = false
		res.Code = codeOf(err)
		res.Log = err.Error()
		e.log.Warn().
			Uint64("batch", b.ID).
			Int("op", idx).
			Str("kind", env.Kind).
			Str("signer", env.Signer).
			Str("code", res.Code).
			Msg("op rejected")
		return res
	}

	ov.Begin()
	if env.Kind == "" || env.Signer == "" {
		return fail(fmt.Errorf("%w: empty kind or signer", ErrUnknownKind))
	}
	expected, err := st.Seq(env.Signer)
	if err != nil {
		return fail(err)
	}
	if env.Seq != expected {
		out := fail(fmt.Errorf("%w: signer %s sent %d, expected %d",
			ErrSeqMismatch, env.Signer, env.Seq, expected))
		out.Events = []Event{NewEvent("seq_mismatch", map[string]string{
			"signer": env.Signer,
			"got":    fmt.Sprintf("%d", env.Seq),
			"want":   fmt.Sprintf("%d", expected),
		})}
		return out
	}
	if err := e.verify(st, env); err != nil {
		return fail(err)
	}
	if err := st.PutSeq(env.Signer, expected+1); err != nil {
		return fail(err)
	}
	ov.Commit()

	// Handler writes are isolated from the seq advance above: a failed
	// handler rolls back its own writes and nothing else.
	ov.Begin()
	events, err := e.dispatch(st, b, env)
	if err != nil {
		return fail(err)
	}
	ov.Commit()
	res.OK = true
	res.Events = events
	return res
}

// verify authenticates the envelope. Player ops verify against the
// account's registered key; everything else is an admin op and verifies
// against the table's authority keys, falling back to the bootstrap set
// when the table does not exist yet.
func (e *Executor) verify(st *State, env codec.Envelope) error {
	if env.Kind == codec.KindPlaceBets {
		pub, ok, err := st.PubKey(env.Signer)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: no key registered for %s", ErrUnknownAccount, env.Signer)
		}
		if err := codec.Verify(env, pub); err != nil {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil
	}

	keys := e.authorities
	if tableID := peekTableID(env.Value); tableID != "" {
		if cfg, ok, err := st.Config(tableID); err != nil {
			return err
		} else if ok && len(cfg.AuthorityKeys) > 0 {
			keys = make([]ed25519.PublicKey, 0, len(cfg.AuthorityKeys))
			for _, k := range cfg.AuthorityKeys {
				keys = append(keys, ed25519.PublicKey(k))
			}
		}
	}
	for _, pub := range keys {
		if codec.Verify(env, pub) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s op by %s matches no authority key", ErrUnauthorized, env.Kind, env.Signer)
}

func peekTableID(value json.RawMessage) string {
	var t struct {
		TableID string `json:"table_id"`
	}
	if err := json.Unmarshal(value, &t); err != nil {
		return ""
	}
	return t.TableID
}
