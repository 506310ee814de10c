package exec

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"fairtable/internal/round"
)

// State keys. Values are canonical JSON except pub keys (raw 32 bytes) and
// sequence numbers (JSON integers). Struct field order fixes the byte form,
// which is what makes change-set digests comparable across replicas.
const (
	prefixAcct  = "acct/"
	prefixKey   = "key/"
	prefixSeq   = "seq/"
	prefixTable = "table/"
)

func AcctKey(player string) []byte { return []byte(prefixAcct + player) }

func PubKeyKey(account string) []byte { return []byte(prefixKey + account) }

func SeqKey(signer string) []byte { return []byte(prefixSeq + signer) }

func ConfigKey(tableID string) []byte { return []byte(prefixTable + tableID + "/cfg") }

func RoundKey(tableID string) []byte { return []byte(prefixTable + tableID + "/round") }

func ArchiveKey(tableID string, roundID uint64) []byte {
	return []byte(fmt.Sprintf("%s%s/rounds/%016x", prefixTable, tableID, roundID))
}

// Account is a player's stored balance. Bets never debit it; settlement
// applies one net delta per round.
type Account struct {
	Balance uint64 `json:"balance"`
}

// State is the typed view handlers work through.
type State struct {
	ov *Overlay
}

func NewState(ov *Overlay) *State { return &State{ov: ov} }

func (s *State) getJSON(key []byte, out any) (bool, error) {
	raw, err := s.ov.Get(key)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("corrupt state at %s: %w", key, err)
	}
	return true, nil
}

func (s *State) putJSON(key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode state at %s: %w", key, err)
	}
	s.ov.Set(key, raw)
	return nil
}

func (s *State) Account(player string) (Account, bool, error) {
	var a Account
	ok, err := s.getJSON(AcctKey(player), &a)
	return a, ok, err
}

func (s *State) PutAccount(player string, a Account) error {
	return s.putJSON(AcctKey(player), a)
}

// Seq returns the signer's expected sequence number; absent signers are at 0.
func (s *State) Seq(signer string) (uint64, error) {
	var n uint64
	if _, err := s.getJSON(SeqKey(signer), &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *State) PutSeq(signer string, n uint64) error {
	return s.putJSON(SeqKey(signer), n)
}

func (s *State) PubKey(account string) (ed25519.PublicKey, bool, error) {
	raw, err := s.ov.Get(PubKeyKey(account))
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return ed25519.PublicKey(raw), true, nil
}

func (s *State) PutPubKey(account string, pub ed25519.PublicKey) {
	s.ov.Set(PubKeyKey(account), pub)
}

func (s *State) Config(tableID string) (round.TableConfig, bool, error) {
	var cfg round.TableConfig
	ok, err := s.getJSON(ConfigKey(tableID), &cfg)
	return cfg, ok, err
}

func (s *State) PutConfig(tableID string, cfg round.TableConfig) error {
	return s.putJSON(ConfigKey(tableID), cfg)
}

func (s *State) Round(tableID string) (*round.Round, bool, error) {
	var r round.Round
	ok, err := s.getJSON(RoundKey(tableID), &r)
	if !ok || err != nil {
		return nil, ok, err
	}
	return &r, true, nil
}

func (s *State) PutRound(tableID string, r *round.Round) error {
	return s.putJSON(RoundKey(tableID), r)
}

// ArchiveRound copies a finished round into the per-table history.
func (s *State) ArchiveRound(tableID string, r *round.Round) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode archived round %d: %w", r.ID, err)
	}
	s.ov.Set(ArchiveKey(tableID, r.ID), raw)
	return nil
}
