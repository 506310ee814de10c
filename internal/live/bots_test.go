package live

import (
	"reflect"
	"testing"

	"fairtable/internal/game"
)

func TestDecideBetsDeterministic(t *testing.T) {
	seed := []byte("bot-seed")
	for roundID := uint64(1); roundID <= 20; roundID++ {
		a := decideBets(seed, roundID, game.KindDice, 10, 1000, 5000)
		b := decideBets(seed, roundID, game.KindDice, 10, 1000, 5000)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("round %d: %+v vs %+v", roundID, a, b)
		}
	}
}

func TestDecideBetsBoundsAndValidity(t *testing.T) {
	seed := []byte("bounds")
	for _, kind := range []game.Kind{game.KindDice, game.KindWheel, game.KindCards} {
		rules, err := game.ForKind(kind)
		if err != nil {
			t.Fatalf("rules: %v", err)
		}
		sawBet, sawSitOut := false, false
		for roundID := uint64(1); roundID <= 200; roundID++ {
			specs := decideBets(seed, roundID, kind, 10, 30, 5000)
			if len(specs) == 0 {
				sawSitOut = true
				continue
			}
			sawBet = true
			for _, spec := range specs {
				if spec.Amount < 10 || spec.Amount > 30 {
					t.Fatalf("%s round %d: amount %d outside [10,30]", kind, roundID, spec.Amount)
				}
				if err := rules.ValidateBet(spec.Type, spec.Target); err != nil {
					t.Fatalf("%s round %d: invalid spec %+v: %v", kind, roundID, spec, err)
				}
			}
		}
		if !sawBet || !sawSitOut {
			t.Fatalf("%s: bet=%v sitout=%v over 200 rounds", kind, sawBet, sawSitOut)
		}
	}
}

func TestDecideBetsRespectsBalance(t *testing.T) {
	seed := []byte("broke")
	for roundID := uint64(1); roundID <= 50; roundID++ {
		if specs := decideBets(seed, roundID, game.KindDice, 10, 1000, 9); len(specs) != 0 {
			t.Fatalf("round %d: bet with balance below minimum: %+v", roundID, specs)
		}
		for _, spec := range decideBets(seed, roundID, game.KindDice, 10, 1000, 10) {
			if spec.Amount != 10 {
				t.Fatalf("round %d: amount %d not clamped to balance", roundID, spec.Amount)
			}
		}
	}
}

func TestDecideBetsUnknownKind(t *testing.T) {
	if specs := decideBets([]byte("x"), 1, game.Kind("baccarat"), 10, 100, 1000); specs != nil {
		t.Fatalf("unknown kind produced bets: %+v", specs)
	}
}
