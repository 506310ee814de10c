// Package codec defines the wire form of table operations: a JSON envelope
// carrying a typed payload, a per-signer sequence number and an ed25519
// signature. Envelopes are opaque bytes to the transport; everything the
// executor needs for replay protection and auth rides inside.
package codec

import (
	"encoding/json"
	"fmt"

	"fairtable/internal/round"
)

// Operation kinds routed by the staged executor.
const (
	KindOpenRound     = "open_round"
	KindPlaceBets     = "place_bets"
	KindLockRound     = "lock_round"
	KindRevealOutcome = "reveal_outcome"
	KindSettleRound   = "settle_round"
	KindFinalizeRound = "finalize_round"
	KindSetConfig     = "set_config"
	KindCreditAccount = "credit_account"
)

// Envelope is the signed operation container.
//
// Seq is the signer's sequence number and must equal the stored value for
// the signer exactly; Sig is ed25519 over the domain-separated sign bytes
// (see SignBytes), which cover kind, seq, signer and a digest of Value.
type Envelope struct {
	Kind   string          `json:"kind"`
	Value  json.RawMessage `json:"value"`
	Seq    uint64          `json:"seq"`
	Signer string          `json:"signer"`
	Sig    []byte          `json:"sig,omitempty"`
}

// Decode parses and structurally validates an envelope. Signature checks
// happen later, against executor state.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("invalid op json: %w", err)
	}
	if env.Kind == "" {
		return Envelope{}, fmt.Errorf("missing op.kind")
	}
	if env.Signer == "" {
		return Envelope{}, fmt.Errorf("missing op.signer")
	}
	return env, nil
}

func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// NewEnvelope marshals payload and wraps it unsigned.
func NewEnvelope(kind, signer string, seq uint64, payload any) (Envelope, error) {
	value, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return Envelope{Kind: kind, Value: value, Seq: seq, Signer: signer}, nil
}

// Batch is an ordered list of envelopes executed as one atomic unit.
// Order inside the batch is authoritative and preserved end to end.
type Batch struct {
	ID     uint64     `json:"id"`
	TimeMS int64      `json:"time_ms"`
	Ops    []Envelope `json:"ops"`
}

func DecodeBatch(raw []byte) (Batch, error) {
	var b Batch
	if err := json.Unmarshal(raw, &b); err != nil {
		return Batch{}, fmt.Errorf("invalid batch json: %w", err)
	}
	return b, nil
}

func (b Batch) Encode() ([]byte, error) {
	return json.Marshal(b)
}

// ---- Payloads ----

type OpenRoundOp struct {
	TableID string `json:"table_id"`
	RoundID uint64 `json:"round_id"`
	Commit  []byte `json:"commit"` // 32 bytes
}

// BetSpec is one bet inside a place_bets op. The player is the envelope
// signer; it is not repeated here.
type BetSpec struct {
	Type   uint8  `json:"type"`
	Target uint8  `json:"target"`
	Amount uint64 `json:"amount"`
}

type PlaceBetsOp struct {
	TableID string    `json:"table_id"`
	RoundID uint64    `json:"round_id"`
	Bets    []BetSpec `json:"bets"`
}

type LockRoundOp struct {
	TableID string `json:"table_id"`
	RoundID uint64 `json:"round_id"`
}

type RevealOutcomeOp struct {
	TableID string `json:"table_id"`
	RoundID uint64 `json:"round_id"`
	Reveal  []byte `json:"reveal"`
}

type SettleRoundOp struct {
	TableID string `json:"table_id"`
	RoundID uint64 `json:"round_id"`
}

type FinalizeRoundOp struct {
	TableID string `json:"table_id"`
	RoundID uint64 `json:"round_id"`
}

type SetConfigOp struct {
	TableID string            `json:"table_id"`
	Config  round.TableConfig `json:"config"`
}

// CreditAccountOp funds an account. PubKey, when present, registers the
// account's ed25519 key so the account can sign its own ops afterwards.
type CreditAccountOp struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
	PubKey  []byte `json:"pub_key,omitempty"`
}
