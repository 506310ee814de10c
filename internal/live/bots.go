package live

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fairtable/internal/codec"
	"fairtable/internal/game"
	"fairtable/internal/rng"
	"fairtable/internal/round"
)

// Bot is a house player that keeps empty tables alive. It goes through
// Join and PlaceBets exactly like a websocket client; it has no special
// access and its balance moves through the same ledger.
type Bot struct {
	name      string
	seed      []byte
	engine    *Engine
	lastRound uint64
	log       zerolog.Logger
}

func NewBot(name string, seed []byte, e *Engine, log zerolog.Logger) *Bot {
	return &Bot{
		name:   name,
		seed:   append([]byte(nil), seed...),
		engine: e,
		log:    log.With().Str("component", "bot").Str("bot", name).Logger(),
	}
}

// Run polls the table and bets at most once per round until ctx ends.
func (b *Bot) Run(ctx context.Context) {
	t := time.NewTicker(250 * time.Millisecond)
	defer t.Stop()
	if _, err := b.engine.Join(ctx, b.name); err != nil {
		b.log.Error().Err(err).Msg("join failed")
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.maybeBet(ctx)
		}
	}
}

func (b *Bot) maybeBet(ctx context.Context) {
	v := b.engine.View()
	if v.Phase != round.PhaseBetting || v.RoundID == b.lastRound || v.Halted {
		return
	}
	b.lastRound = v.RoundID

	balance, err := b.engine.Balance(ctx, b.name)
	if err != nil || balance < v.MinBet {
		return
	}
	specs := decideBets(b.seed, v.RoundID, v.GameKind, v.MinBet, v.MaxBet, balance)
	if len(specs) == 0 {
		return
	}
	res := b.engine.PlaceBets(ctx, b.name, specs)
	if !res.OK {
		b.log.Warn().Str("code", res.Code).Uint64("round", v.RoundID).Msg("bet rejected")
		return
	}
	b.log.Debug().Uint64("round", v.RoundID).Int("bets", len(specs)).Uint64("balance_after", res.BalanceAfter).Msg("bet placed")
}

// decideBets derives a bot's bets for a round from its seed, so a bot
// replays identically given the same seed and round.
func decideBets(seed []byte, roundID uint64, kind game.Kind, minBet, maxBet, balance uint64) []codec.BetSpec {
	s := rng.New(seed, roundID, 0)
	if s.NextBounded(4) == 0 {
		return nil // sit this one out
	}
	amount := minBet * uint64(1+s.NextBounded(5))
	if amount > maxBet {
		amount = maxBet
	}
	if amount > balance {
		amount = balance
	}
	if amount < minBet {
		return nil
	}

	var spec codec.BetSpec
	switch kind {
	case game.KindDice:
		spec.Type = s.NextBounded(4)
		if spec.Type == game.BetDiceExact {
			spec.Target = 2 + s.NextBounded(11)
		}
	case game.KindWheel:
		spec.Type = s.NextBounded(4)
		if spec.Type == game.BetWheelStraight {
			spec.Target = s.NextBounded(37)
		}
	case game.KindCards:
		spec.Type = s.NextBounded(5)
		switch spec.Type {
		case game.BetCardSuit:
			spec.Target = s.NextBounded(4)
		case game.BetCardExact:
			spec.Target = 2 + s.NextBounded(13)
		}
	default:
		return nil
	}
	spec.Amount = amount
	return []codec.BetSpec{spec}
}

// StartBots launches n bots seeded from base. Returned names are stable,
// so restarts reuse the same accounts.
func StartBots(ctx context.Context, e *Engine, n int, base []byte, log zerolog.Logger) []string {
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("bot-%02d", i+1)
		seed := append(append([]byte(nil), base...), byte(i))
		bot := NewBot(name, seed, e, log)
		go bot.Run(ctx)
		names = append(names, name)
	}
	return names
}
