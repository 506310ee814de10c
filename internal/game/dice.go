package game

import (
	"fmt"

	"fairtable/internal/rng"
)

// Dice bet types. Target is only meaningful for BetDiceExact.
const (
	BetDiceUnder uint8 = 0 // sum 2..6
	BetDiceOver  uint8 = 1 // sum 8..12
	BetDiceSeven uint8 = 2 // sum exactly 7
	BetDiceExact uint8 = 3 // sum exactly target
)

// diceExactMultiplier pays by rarity of the exact sum; every entry keeps a
// house margin against the fair 36/ways price.
var diceExactMultiplier = map[uint8]uint64{
	2: 30, 3: 15, 4: 10, 5: 8, 6: 6,
	7: 6,
	8: 6, 9: 8, 10: 10, 11: 15, 12: 30,
}

type diceRules struct{}

func (diceRules) Kind() Kind { return KindDice }

func (diceRules) ValidateBet(betType, target uint8) error {
	switch betType {
	case BetDiceUnder, BetDiceOver, BetDiceSeven:
		return nil
	case BetDiceExact:
		if target < 2 || target > 12 {
			return fmt.Errorf("dice exact target %d out of range 2..12", target)
		}
		return nil
	default:
		return fmt.Errorf("unknown dice bet type %d", betType)
	}
}

// Resolve draws the two dice in order; the outcome is both faces plus the
// sum.
func (diceRules) Resolve(s *rng.Stream) Outcome {
	d1 := s.NextBounded(6) + 1
	d2 := s.NextBounded(6) + 1
	return Outcome{Kind: KindDice, Values: []uint8{d1, d2}, Score: d1 + d2}
}

func (diceRules) Payout(betType, target uint8, out Outcome) (uint64, bool) {
	sum := out.Score
	switch betType {
	case BetDiceUnder:
		if sum < 7 {
			return 2, true
		}
	case BetDiceOver:
		if sum > 7 {
			return 2, true
		}
	case BetDiceSeven:
		if sum == 7 {
			return 5, true
		}
	case BetDiceExact:
		if sum == target {
			return diceExactMultiplier[target], true
		}
	}
	return 0, false
}
