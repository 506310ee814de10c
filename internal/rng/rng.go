// Package rng implements the deterministic byte stream behind every game
// outcome. Two streams built from identical inputs emit identical bytes on
// any host, which is what lets independent replicas (and the off-chain
// engine) agree on results without comparing intermediate state.
package rng

import (
	"crypto/sha256"
	"encoding/binary"
)

const domain = "fairtable/rng/v1"

// Stream is a hash-chained deterministic byte source. State is the current
// 32-byte digest; index is the read position inside it. The stream for a
// given (session, move) pair belongs to the draw that created it and must
// not be shared across moves.
type Stream struct {
	state [sha256.Size]byte
	index uint32
}

// New derives a stream from the seed, session id and move number under a
// fixed domain prefix. Pure: no clock, no global state.
func New(seed []byte, sessionID uint64, move uint32) *Stream {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0})
	h.Write(seed)
	var buf [12]byte
	binary.BigEndian.PutUint64(buf[:8], sessionID)
	binary.BigEndian.PutUint32(buf[8:], move)
	h.Write(buf[:])
	s := &Stream{}
	h.Sum(s.state[:0])
	return s
}

// NextByte returns the next byte of the stream, re-hashing the state once
// the current digest is exhausted.
func (s *Stream) NextByte() byte {
	if s.index >= sha256.Size {
		s.state = sha256.Sum256(s.state[:])
		s.index = 0
	}
	b := s.state[s.index]
	s.index++
	return b
}

// NextBounded returns a value uniform over [0, max) using rejection
// sampling: raw draws at or above limit = 255 - (255 % max) would fold
// unevenly under the modulo and are discarded. max == 0 returns 0.
func (s *Stream) NextBounded(max uint8) uint8 {
	if max == 0 {
		return 0
	}
	limit := 255 - (255 % uint16(max))
	for {
		b := s.NextByte()
		if uint16(b) < limit {
			return uint8(uint16(b) % uint16(max))
		}
	}
}

// NextBoundedWide is the 4-byte variant of NextBounded for ranges a single
// byte cannot cover uniformly. max == 0 returns 0.
func (s *Stream) NextBoundedWide(max uint32) uint32 {
	if max == 0 {
		return 0
	}
	limit := uint64(1)<<32 - (uint64(1)<<32)%uint64(max)
	for {
		var raw [4]byte
		raw[0] = s.NextByte()
		raw[1] = s.NextByte()
		raw[2] = s.NextByte()
		raw[3] = s.NextByte()
		v := uint64(binary.BigEndian.Uint32(raw[:]))
		if v < limit {
			return uint32(v % uint64(max))
		}
	}
}

// Shuffle runs Fisher-Yates from the last index down to the first, drawing
// the swap position for index i from [0, i+1). Sequences longer than 255
// elements switch to the wide draw so uniformity holds past one byte.
func (s *Stream) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		var j int
		if i+1 <= 255 {
			j = int(s.NextBounded(uint8(i + 1)))
		} else {
			j = int(s.NextBoundedWide(uint32(i + 1)))
		}
		swap(i, j)
	}
}

// ShuffleBytes shuffles b in place.
func (s *Stream) ShuffleBytes(b []byte) {
	s.Shuffle(len(b), func(i, j int) {
		b[i], b[j] = b[j], b[i]
	})
}
