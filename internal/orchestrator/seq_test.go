package orchestrator

import (
	"fmt"
	"testing"
	"time"

	"fairtable/internal/config"
)

func TestLocalSeqSource(t *testing.T) {
	s := NewLocalSeqSource()
	for want := uint64(0); want < 3; want++ {
		got, err := s.Reserve("admin")
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if got != want {
			t.Fatalf("reserve: got %d want %d", got, want)
		}
	}
	if err := s.Resync("admin", 10); err != nil {
		t.Fatalf("resync: %v", err)
	}
	got, err := s.Reserve("admin")
	if err != nil {
		t.Fatalf("reserve after resync: %v", err)
	}
	if got != 10 {
		t.Fatalf("reserve after resync: got %d want 10", got)
	}

	// Signers do not share counters.
	got, err = s.Reserve("other")
	if err != nil {
		t.Fatalf("reserve other: %v", err)
	}
	if got != 0 {
		t.Fatalf("reserve other: got %d want 0", got)
	}
}

// Needs a reachable redis; set FAIRTABLE_TEST_REDIS_ADDR to run.
func TestRedisSeqSource(t *testing.T) {
	tcfg, err := config.LoadTestRedis()
	if err != nil {
		t.Skipf("skip redis: %v", err)
	}
	s, err := NewRedisSeqSource(tcfg.RedisAddr, "", 0)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()

	signer := fmt.Sprintf("test-%d", time.Now().UnixNano())
	defer s.client.Del(s.key(signer))

	for want := uint64(0); want < 3; want++ {
		got, err := s.Reserve(signer)
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if got != want {
			t.Fatalf("reserve: got %d want %d", got, want)
		}
	}
	if err := s.Resync(signer, 42); err != nil {
		t.Fatalf("resync: %v", err)
	}
	got, err := s.Reserve(signer)
	if err != nil {
		t.Fatalf("reserve after resync: %v", err)
	}
	if got != 42 {
		t.Fatalf("reserve after resync: got %d want 42", got)
	}
}
