package orchestrator

import (
	"fmt"
	"sync"

	"github.com/go-redis/redis/v7"
)

// SeqSource reserves strictly increasing sequence numbers per signer.
// Counters start at the committed op count, so the first Reserve for a
// fresh signer returns 0.
type SeqSource interface {
	// Reserve hands out the next unused sequence number for signer.
	Reserve(signer string) (uint64, error)
	// Resync forces reservation state back to committed, the
	// node-confirmed count of applied ops. The next Reserve returns it.
	Resync(signer string, committed uint64) error
}

// RedisSeqSource shares reservations across orchestrator instances through
// one redis counter per signer, so two instances driving the same authority
// key never hand out the same number.
type RedisSeqSource struct {
	client *redis.Client
	prefix string
}

func NewRedisSeqSource(addr, password string, db int) (*RedisSeqSource, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := client.Ping().Result(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisSeqSource{client: client, prefix: "fairtable:seq:"}, nil
}

func (s *RedisSeqSource) key(signer string) string { return s.prefix + signer }

// Reserve increments the shared counter. The counter holds the count of
// reserved ops; the reserved number is the value before the increment.
func (s *RedisSeqSource) Reserve(signer string) (uint64, error) {
	n, err := s.client.Incr(s.key(signer)).Result()
	if err != nil {
		return 0, fmt.Errorf("reserve seq: %w", err)
	}
	return uint64(n - 1), nil
}

func (s *RedisSeqSource) Resync(signer string, committed uint64) error {
	if err := s.client.Set(s.key(signer), committed, 0).Err(); err != nil {
		return fmt.Errorf("resync seq: %w", err)
	}
	return nil
}

func (s *RedisSeqSource) Close() error { return s.client.Close() }

// LocalSeqSource is the in-process fallback for single-instance runs.
type LocalSeqSource struct {
	mu   sync.Mutex
	next map[string]uint64
}

func NewLocalSeqSource() *LocalSeqSource {
	return &LocalSeqSource{next: map[string]uint64{}}
}

func (s *LocalSeqSource) Reserve(signer string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.next[signer]
	s.next[signer] = n + 1
	return n, nil
}

func (s *LocalSeqSource) Resync(signer string, committed uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[signer] = committed
	return nil
}
