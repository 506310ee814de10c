package game

import (
	"testing"

	"fairtable/internal/rng"
)

func TestForKind(t *testing.T) {
	for _, k := range []Kind{KindDice, KindWheel, KindCards} {
		r, err := ForKind(k)
		if err != nil {
			t.Fatalf("ForKind(%s): %v", k, err)
		}
		if r.Kind() != k {
			t.Fatalf("ForKind(%s) returned rules for %s", k, r.Kind())
		}
	}
	if _, err := ForKind("baccarat"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestDiceResolveRange(t *testing.T) {
	r, _ := ForKind(KindDice)
	s := rng.New([]byte{1}, 1, 0)
	for i := 0; i < 500; i++ {
		out := r.Resolve(s)
		if len(out.Values) != 2 {
			t.Fatalf("dice outcome has %d values", len(out.Values))
		}
		for _, d := range out.Values {
			if d < 1 || d > 6 {
				t.Fatalf("die face %d out of range", d)
			}
		}
		if out.Score != out.Values[0]+out.Values[1] {
			t.Fatalf("score %d != %d+%d", out.Score, out.Values[0], out.Values[1])
		}
	}
}

func TestDicePayouts(t *testing.T) {
	r, _ := ForKind(KindDice)
	cases := []struct {
		betType uint8
		target  uint8
		sum     uint8
		mult    uint64
		win     bool
	}{
		{BetDiceUnder, 0, 6, 2, true},
		{BetDiceUnder, 0, 7, 0, false},
		{BetDiceOver, 0, 8, 2, true},
		{BetDiceOver, 0, 7, 0, false},
		{BetDiceSeven, 0, 7, 5, true},
		{BetDiceSeven, 0, 8, 0, false},
		{BetDiceExact, 2, 2, 30, true},
		{BetDiceExact, 12, 12, 30, true},
		{BetDiceExact, 7, 7, 6, true},
		{BetDiceExact, 7, 6, 0, false},
	}
	for _, c := range cases {
		out := Outcome{Kind: KindDice, Score: c.sum}
		mult, win := r.Payout(c.betType, c.target, out)
		if win != c.win || mult != c.mult {
			t.Fatalf("type=%d target=%d sum=%d: got (%d,%v) want (%d,%v)",
				c.betType, c.target, c.sum, mult, win, c.mult, c.win)
		}
	}
}

func TestDiceValidateBet(t *testing.T) {
	r, _ := ForKind(KindDice)
	if err := r.ValidateBet(BetDiceExact, 1); err == nil {
		t.Fatal("exact target 1 should be invalid")
	}
	if err := r.ValidateBet(BetDiceExact, 13); err == nil {
		t.Fatal("exact target 13 should be invalid")
	}
	if err := r.ValidateBet(9, 0); err == nil {
		t.Fatal("unknown bet type should be invalid")
	}
	if err := r.ValidateBet(BetDiceUnder, 0); err != nil {
		t.Fatalf("under bet rejected: %v", err)
	}
}

func TestWheelColorsPartitionPockets(t *testing.T) {
	r, _ := ForKind(KindWheel)
	reds, blacks := 0, 0
	for p := uint8(0); p < 37; p++ {
		out := Outcome{Kind: KindWheel, Score: p}
		_, red := r.Payout(BetWheelRed, 0, out)
		_, black := r.Payout(BetWheelBlack, 0, out)
		_, zero := r.Payout(BetWheelZero, 0, out)
		if red {
			reds++
		}
		if black {
			blacks++
		}
		if p == 0 && (!zero || red || black) {
			t.Fatal("pocket 0 must pay zero bets only")
		}
		if p != 0 && red == black {
			t.Fatalf("pocket %d must be exactly one of red/black", p)
		}
	}
	if reds != 18 || blacks != 18 {
		t.Fatalf("red/black split %d/%d, want 18/18", reds, blacks)
	}
}

func TestWheelStraight(t *testing.T) {
	r, _ := ForKind(KindWheel)
	out := Outcome{Kind: KindWheel, Score: 17}
	if mult, win := r.Payout(BetWheelStraight, 17, out); !win || mult != 36 {
		t.Fatalf("straight hit: got (%d,%v)", mult, win)
	}
	if _, win := r.Payout(BetWheelStraight, 16, out); win {
		t.Fatal("straight miss should lose")
	}
	if err := r.ValidateBet(BetWheelStraight, 37); err == nil {
		t.Fatal("straight target 37 should be invalid")
	}
}

func TestCardResolveRange(t *testing.T) {
	r, _ := ForKind(KindCards)
	s := rng.New([]byte{2}, 1, 0)
	for i := 0; i < 500; i++ {
		out := r.Resolve(s)
		if len(out.Values) != 2 {
			t.Fatalf("card outcome has %d values", len(out.Values))
		}
		rank, suit := out.Values[0], out.Values[1]
		if rank < 2 || rank > 14 {
			t.Fatalf("rank %d out of range", rank)
		}
		if suit > 3 {
			t.Fatalf("suit %d out of range", suit)
		}
		if out.Score != rank {
			t.Fatalf("score %d != rank %d", out.Score, rank)
		}
	}
}

func TestCardPayouts(t *testing.T) {
	r, _ := ForKind(KindCards)
	cases := []struct {
		betType uint8
		target  uint8
		rank    uint8
		suit    uint8
		mult    uint64
		win     bool
	}{
		{BetCardLow, 0, 2, 0, 2, true},
		{BetCardLow, 0, 7, 1, 2, true},
		{BetCardLow, 0, 8, 0, 0, false},
		{BetCardHigh, 0, 9, 2, 2, true},
		{BetCardHigh, 0, 14, 3, 2, true},
		{BetCardHigh, 0, 8, 0, 0, false},
		{BetCardEight, 0, 8, 0, 11, true},
		{BetCardEight, 0, 9, 0, 0, false},
		{BetCardSuit, 2, 5, 2, 3, true},
		{BetCardSuit, 2, 5, 3, 0, false},
		{BetCardExact, 14, 14, 0, 12, true},
		{BetCardExact, 14, 13, 0, 0, false},
	}
	for _, c := range cases {
		out := Outcome{Kind: KindCards, Values: []uint8{c.rank, c.suit}, Score: c.rank}
		mult, win := r.Payout(c.betType, c.target, out)
		if win != c.win || mult != c.mult {
			t.Fatalf("type=%d target=%d card=%d/%d: got (%d,%v) want (%d,%v)",
				c.betType, c.target, c.rank, c.suit, mult, win, c.mult, c.win)
		}
	}
}

func TestCardValidateBet(t *testing.T) {
	r, _ := ForKind(KindCards)
	if err := r.ValidateBet(BetCardSuit, 4); err == nil {
		t.Fatal("suit target 4 should be invalid")
	}
	if err := r.ValidateBet(BetCardExact, 1); err == nil {
		t.Fatal("exact target 1 should be invalid")
	}
	if err := r.ValidateBet(BetCardExact, 15); err == nil {
		t.Fatal("exact target 15 should be invalid")
	}
	if err := r.ValidateBet(9, 0); err == nil {
		t.Fatal("unknown bet type should be invalid")
	}
	if err := r.ValidateBet(BetCardLow, 0); err != nil {
		t.Fatalf("low bet rejected: %v", err)
	}
}

func TestCardString(t *testing.T) {
	if got := (Card{Rank: Ace, Suit: Spades}).String(); got != "As" {
		t.Fatalf("ace of spades = %q", got)
	}
	if got := (Card{Rank: Seven, Suit: Hearts}).String(); got != "7h" {
		t.Fatalf("seven of hearts = %q", got)
	}
	if got := (Card{}).String(); got != "??" {
		t.Fatalf("zero card = %q", got)
	}
}

func TestResolveDeterministicAcrossStreams(t *testing.T) {
	for _, k := range []Kind{KindDice, KindWheel, KindCards} {
		r, _ := ForKind(k)
		a := r.Resolve(rng.New([]byte{0xee}, 42, 0))
		b := r.Resolve(rng.New([]byte{0xee}, 42, 0))
		if a.Score != b.Score || len(a.Values) != len(b.Values) {
			t.Fatalf("%s resolve not deterministic: %v vs %v", k, a, b)
		}
	}
}
