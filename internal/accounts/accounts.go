// Package accounts is the live engine's balance store with a double-entry
// ledger trail. Two implementations: Postgres for real deployments and an
// in-memory store for bots, tests and local tables.
package accounts

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrNotFound     = errors.New("account not found")
	ErrInsufficient = errors.New("insufficient balance")
)

// Entry is one ledger line. Amount is signed: stakes and losses are
// negative, wins and credits positive.
type Entry struct {
	ID      string    `json:"id"`
	Player  string    `json:"player"`
	Type    string    `json:"type"`
	Amount  int64     `json:"amount"`
	RefType string    `json:"ref_type"`
	RefID   string    `json:"ref_id"`
	At      time.Time `json:"at"`
}

// Store is what the live engine needs from a balance backend. ApplyDelta
// must be atomic per player and refuse to take a balance below zero.
type Store interface {
	Ensure(ctx context.Context, player string, initial uint64) error
	Balance(ctx context.Context, player string) (uint64, error)
	Credit(ctx context.Context, player string, amount uint64, entryType, refType, refID string) (uint64, error)
	ApplyDelta(ctx context.Context, player string, delta int64, entryType, refType, refID string) (uint64, error)
	Entries(ctx context.Context, player string, limit int) ([]Entry, error)
}

var (
	ulidEntropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	ulidEntropyMu sync.Mutex
)

// NewEntryID returns a sortable unique ledger entry id.
func NewEntryID() string {
	ulidEntropyMu.Lock()
	defer ulidEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}
