package game

import (
	"fmt"

	"fairtable/internal/rng"
)

// Card bet types. Target is a suit (0..3) for BetCardSuit and a rank
// (2..14, ace high) for BetCardExact.
const (
	BetCardLow   uint8 = 0 // rank 2..7
	BetCardHigh  uint8 = 1 // rank 9..14
	BetCardEight uint8 = 2 // rank exactly 8
	BetCardSuit  uint8 = 3
	BetCardExact uint8 = 4
)

const deckSize = 52

type Suit uint8

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

type Rank uint8

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

type Card struct {
	Rank Rank
	Suit Suit
}

// String renders compact notation like "As" or "7h".
func (c Card) String() string {
	if c.Rank < Two || c.Rank > Ace || c.Suit > Clubs {
		return "??"
	}
	return string("23456789TJQKA"[c.Rank-2]) + string("shdc"[c.Suit])
}

type cardRules struct{}

func (cardRules) Kind() Kind { return KindCards }

func (cardRules) ValidateBet(betType, target uint8) error {
	switch betType {
	case BetCardLow, BetCardHigh, BetCardEight:
		return nil
	case BetCardSuit:
		if target > uint8(Clubs) {
			return fmt.Errorf("card suit target %d out of range 0..3", target)
		}
		return nil
	case BetCardExact:
		if target < uint8(Two) || target > uint8(Ace) {
			return fmt.Errorf("card exact target %d out of range 2..14", target)
		}
		return nil
	default:
		return fmt.Errorf("unknown card bet type %d", betType)
	}
}

// Resolve draws one card as a single bounded index; rank and suit both
// derive from it. Values are {rank, suit} and Score is the rank, ace high.
func (cardRules) Resolve(s *rng.Stream) Outcome {
	idx := s.NextBounded(deckSize)
	c := Card{Rank: Rank(2 + idx%13), Suit: Suit(idx / 13)}
	return Outcome{Kind: KindCards, Values: []uint8{uint8(c.Rank), uint8(c.Suit)}, Score: uint8(c.Rank)}
}

func (cardRules) Payout(betType, target uint8, out Outcome) (uint64, bool) {
	rank := Rank(out.Score)
	switch betType {
	case BetCardLow:
		if rank <= Seven {
			return 2, true
		}
	case BetCardHigh:
		if rank >= Nine {
			return 2, true
		}
	case BetCardEight:
		if rank == Eight {
			return 11, true
		}
	case BetCardSuit:
		if len(out.Values) > 1 && out.Values[1] == target {
			return 3, true
		}
	case BetCardExact:
		if rank == Rank(target) {
			return 12, true
		}
	}
	return 0, false
}
