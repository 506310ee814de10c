package accounts

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemStore keeps balances and the ledger in process. The live engine uses
// it when no database is configured; a restart starts everyone fresh.
type MemStore struct {
	mu       sync.Mutex
	balances map[string]uint64
	entries  []Entry
}

func NewMemStore() *MemStore {
	return &MemStore{balances: make(map[string]uint64)}
}

func (m *MemStore) Ensure(ctx context.Context, player string, initial uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[player]; !ok {
		m.balances[player] = initial
		if initial > 0 {
			m.record(player, int64(initial), "initial_credit", "account", player)
		}
	}
	return nil
}

func (m *MemStore) Balance(ctx context.Context, player string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[player]
	if !ok {
		return 0, ErrNotFound
	}
	return bal, nil
}

func (m *MemStore) Credit(ctx context.Context, player string, amount uint64, entryType, refType, refID string) (uint64, error) {
	return m.ApplyDelta(ctx, player, int64(amount), entryType, refType, refID)
}

func (m *MemStore) ApplyDelta(ctx context.Context, player string, delta int64, entryType, refType, refID string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[player]
	if !ok {
		return 0, ErrNotFound
	}
	next := int64(bal) + delta
	if next < 0 {
		return 0, fmt.Errorf("%w: balance %d, delta %d", ErrInsufficient, bal, delta)
	}
	m.balances[player] = uint64(next)
	m.record(player, delta, entryType, refType, refID)
	return uint64(next), nil
}

func (m *MemStore) Entries(ctx context.Context, player string, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].Player == player {
			out = append(out, m.entries[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// record appends a ledger line. Callers hold the lock.
func (m *MemStore) record(player string, amount int64, entryType, refType, refID string) {
	m.entries = append(m.entries, Entry{
		ID:      NewEntryID(),
		Player:  player,
		Type:    entryType,
		Amount:  amount,
		RefType: refType,
		RefID:   refID,
		At:      time.Now(),
	})
}
