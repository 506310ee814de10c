// Package game holds the per-game-type resolution and payout rules. The set
// of games is closed: adding a table game means adding a Kind and a Rules
// implementation, not touching existing ones.
package game

import (
	"fmt"

	"fairtable/internal/rng"
)

type Kind string

const (
	KindDice  Kind = "dice"
	KindWheel Kind = "wheel"
	KindCards Kind = "cards"
)

// Outcome is the derived result of one round. Values are the raw draws
// (dice faces, wheel pocket); Score is the single number payouts key on.
type Outcome struct {
	Kind   Kind    `json:"kind"`
	Values []uint8 `json:"values"`
	Score  uint8   `json:"score"`
}

func (o Outcome) String() string {
	return fmt.Sprintf("%s:%v=%d", o.Kind, o.Values, o.Score)
}

// Rules resolves outcomes and prices bets for one game kind. Resolve must
// consume draws from the stream in a fixed, documented order so replicas
// derive identical outcomes. Payout returns the total-return multiplier for
// a winning bet (stake included); losing bets return win=false.
type Rules interface {
	Kind() Kind
	ValidateBet(betType, target uint8) error
	Resolve(s *rng.Stream) Outcome
	Payout(betType, target uint8, out Outcome) (multiplier uint64, win bool)
}

var registry = map[Kind]Rules{
	KindDice:  diceRules{},
	KindWheel: wheelRules{},
	KindCards: cardRules{},
}

// ForKind returns the rules for a configured game kind. Unknown kinds are a
// configuration error and rejected up front, never at resolve time.
func ForKind(k Kind) (Rules, error) {
	r, ok := registry[k]
	if !ok {
		return nil, fmt.Errorf("unknown game kind %q", k)
	}
	return r, nil
}
