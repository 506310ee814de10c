package rng

import (
	"bytes"
	"testing"
)

func TestStreamDeterminism(t *testing.T) {
	seed := []byte{0xde, 0xad, 0xbe, 0xef}
	a := New(seed, 7, 3)
	b := New(seed, 7, 3)
	for i := 0; i < 1000; i++ {
		av, bv := a.NextByte(), b.NextByte()
		if av != bv {
			t.Fatalf("streams diverged at draw %d: %d vs %d", i, av, bv)
		}
	}
}

func TestStreamInputSensitivity(t *testing.T) {
	seed := []byte{1, 2, 3}
	base := drawN(New(seed, 1, 1), 64)
	cases := map[string]*Stream{
		"seed":    New([]byte{1, 2, 4}, 1, 1),
		"session": New(seed, 2, 1),
		"move":    New(seed, 1, 2),
	}
	for name, s := range cases {
		if bytes.Equal(base, drawN(s, 64)) {
			t.Fatalf("changing %s did not change the stream", name)
		}
	}
}

func TestNextBoundedZeroMax(t *testing.T) {
	s := New([]byte{9}, 0, 0)
	if got := s.NextBounded(0); got != 0 {
		t.Fatalf("NextBounded(0) = %d, want 0", got)
	}
	if got := s.NextBoundedWide(0); got != 0 {
		t.Fatalf("NextBoundedWide(0) = %d, want 0", got)
	}
}

func TestNextBoundedRange(t *testing.T) {
	s := New([]byte{42}, 5, 5)
	for _, max := range []uint8{1, 2, 6, 37, 255} {
		for i := 0; i < 2000; i++ {
			if v := s.NextBounded(max); v >= max {
				t.Fatalf("NextBounded(%d) returned %d", max, v)
			}
		}
	}
}

// Critical chi-square values at significance 0.01, keyed by degrees of
// freedom, for the game-relevant ranges below.
var chiSquareCrit = map[int]float64{
	1:  6.635,
	2:  9.210,
	4:  13.277,
	6:  16.812,
	36: 58.619,
	51: 77.386,
}

func TestNextBoundedUniformity(t *testing.T) {
	const draws = 100000
	for _, max := range []uint8{2, 3, 5, 7, 37} {
		s := New([]byte{0xa5, byte(max)}, 11, 0)
		counts := make([]int, max)
		for i := 0; i < draws; i++ {
			counts[s.NextBounded(max)]++
		}
		stat := chiSquare(counts, draws)
		crit := chiSquareCrit[int(max)-1]
		if stat > crit {
			t.Fatalf("max=%d: chi-square %.2f exceeds critical %.2f", max, stat, crit)
		}
	}
}

func TestNextBoundedWideUniformity(t *testing.T) {
	const draws = 100000
	s := New([]byte{0xcc}, 13, 0)
	counts := make([]int, 37)
	for i := 0; i < draws; i++ {
		counts[s.NextBoundedWide(37)]++
	}
	if stat := chiSquare(counts, draws); stat > chiSquareCrit[36] {
		t.Fatalf("wide draw chi-square %.2f exceeds critical %.2f", stat, chiSquareCrit[36])
	}
}

// Shuffling a 52-element deck with independent seeds must show no positional
// bias: the value landing on position 0 is chi-square tested against a
// uniform expectation.
func TestShufflePositionalBias(t *testing.T) {
	const trials = 10000
	counts := make([]int, 52)
	for trial := 0; trial < trials; trial++ {
		deck := make([]byte, 52)
		for i := range deck {
			deck[i] = byte(i)
		}
		s := New([]byte{byte(trial), byte(trial >> 8)}, uint64(trial), 0)
		s.ShuffleBytes(deck)
		counts[deck[0]]++
	}
	if stat := chiSquare(counts, trials); stat > chiSquareCrit[51] {
		t.Fatalf("position-0 chi-square %.2f exceeds critical %.2f", stat, chiSquareCrit[51])
	}
}

func TestShuffleIsDeterministicPermutation(t *testing.T) {
	deck1 := make([]byte, 52)
	deck2 := make([]byte, 52)
	for i := range deck1 {
		deck1[i], deck2[i] = byte(i), byte(i)
	}
	New([]byte{7}, 1, 1).ShuffleBytes(deck1)
	New([]byte{7}, 1, 1).ShuffleBytes(deck2)
	if !bytes.Equal(deck1, deck2) {
		t.Fatal("same-seed shuffles disagree")
	}
	seen := map[byte]bool{}
	for _, v := range deck1 {
		if seen[v] {
			t.Fatalf("value %d appears twice after shuffle", v)
		}
		seen[v] = true
	}
	if len(seen) != 52 {
		t.Fatalf("shuffle lost elements: %d distinct", len(seen))
	}
}

func TestShuffleWideRange(t *testing.T) {
	// 300 elements forces the wide bounded draw for the high indexes.
	seq := make([]int, 300)
	for i := range seq {
		seq[i] = i
	}
	s := New([]byte{3}, 2, 2)
	s.Shuffle(len(seq), func(i, j int) { seq[i], seq[j] = seq[j], seq[i] })
	seen := make([]bool, len(seq))
	moved := false
	for pos, v := range seq {
		if v < 0 || v >= len(seq) || seen[v] {
			t.Fatalf("shuffle corrupted sequence at pos %d: %d", pos, v)
		}
		seen[v] = true
		if v != pos {
			moved = true
		}
	}
	if !moved {
		t.Fatal("300-element shuffle left sequence untouched")
	}
}

func drawN(s *Stream, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = s.NextByte()
	}
	return out
}

func chiSquare(counts []int, total int) float64 {
	expected := float64(total) / float64(len(counts))
	var stat float64
	for _, c := range counts {
		d := float64(c) - expected
		stat += d * d / expected
	}
	return stat
}
