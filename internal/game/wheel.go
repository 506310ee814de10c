package game

import (
	"fmt"

	"fairtable/internal/rng"
)

// Wheel bet types (single-zero wheel, pockets 0..36). Target is only
// meaningful for BetWheelStraight.
const (
	BetWheelRed      uint8 = 0
	BetWheelBlack    uint8 = 1
	BetWheelZero     uint8 = 2
	BetWheelStraight uint8 = 3
)

const wheelPockets = 37

var wheelRed = map[uint8]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

type wheelRules struct{}

func (wheelRules) Kind() Kind { return KindWheel }

func (wheelRules) ValidateBet(betType, target uint8) error {
	switch betType {
	case BetWheelRed, BetWheelBlack, BetWheelZero:
		return nil
	case BetWheelStraight:
		if target >= wheelPockets {
			return fmt.Errorf("wheel straight target %d out of range 0..36", target)
		}
		return nil
	default:
		return fmt.Errorf("unknown wheel bet type %d", betType)
	}
}

func (wheelRules) Resolve(s *rng.Stream) Outcome {
	p := s.NextBounded(wheelPockets)
	return Outcome{Kind: KindWheel, Values: []uint8{p}, Score: p}
}

func (wheelRules) Payout(betType, target uint8, out Outcome) (uint64, bool) {
	p := out.Score
	switch betType {
	case BetWheelRed:
		if wheelRed[p] {
			return 2, true
		}
	case BetWheelBlack:
		if p != 0 && !wheelRed[p] {
			return 2, true
		}
	case BetWheelZero:
		if p == 0 {
			return 36, true
		}
	case BetWheelStraight:
		if p == target {
			return 36, true
		}
	}
	return 0, false
}
