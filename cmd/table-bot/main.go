// table-bot is a standalone spectator-seat gambler. It speaks the public
// websocket protocol only, so it doubles as a smoke test for the live
// server: hello, then one bet per betting window until the process dies.
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"fairtable/internal/config"
	"fairtable/internal/logging"
)

type tableView struct {
	RoundID uint64 `json:"round_id"`
	Phase   string `json:"phase"`
	MinBet  uint64 `json:"min_bet"`
	MaxBet  uint64 `json:"max_bet"`
}

type helloFrame struct {
	Type   string `json:"type"`
	Player string `json:"player"`
}

type betSpec struct {
	Type   uint8  `json:"type"`
	Target uint8  `json:"target"`
	Amount uint64 `json:"amount"`
}

type placeBetsFrame struct {
	Type      string    `json:"type"`
	RequestID string    `json:"request_id,omitempty"`
	Bets      []betSpec `json:"bets"`
}

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init("table-bot", logCfg)
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}

	conn, _, err := websocket.DefaultDialer.Dial(cfg.WSURL, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.WSURL).Msg("dial failed")
	}
	defer conn.Close()

	hello := helloFrame{Type: "hello", Player: cfg.Player}
	if err := conn.WriteJSON(hello); err != nil {
		log.Fatal().Err(err).Msg("hello failed")
	}
	log.Info().Str("player", cfg.Player).Str("url", cfg.WSURL).Msg("joined table")

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	var betRound uint64
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Error().Err(err).Msg("connection closed")
			return
		}
		var base struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
			View json.RawMessage `json:"view"`
		}
		if err := json.Unmarshal(data, &base); err != nil {
			continue
		}
		switch base.Type {
		case "hello_result", "snapshot":
			var view tableView
			if err := json.Unmarshal(base.View, &view); err != nil {
				continue
			}
			betRound = maybeBet(conn, rnd, cfg, view, betRound)
		case "round_opened":
			var view tableView
			if err := json.Unmarshal(base.Data, &view); err != nil {
				continue
			}
			betRound = maybeBet(conn, rnd, cfg, view, betRound)
		case "bet_result":
			var res struct {
				Ok           bool   `json:"ok"`
				Code         string `json:"code"`
				RoundID      uint64 `json:"round_id"`
				BalanceAfter uint64 `json:"balance_after"`
			}
			if err := json.Unmarshal(data, &res); err != nil {
				continue
			}
			if res.Ok {
				log.Info().Uint64("round", res.RoundID).Uint64("balance", res.BalanceAfter).Msg("bet accepted")
			} else {
				log.Warn().Str("code", res.Code).Msg("bet rejected")
			}
		case "table_halted":
			log.Error().Msg("table halted, leaving")
			return
		}
	}
}

// maybeBet places one random under/over bet per betting window and returns
// the highest round already bet on.
func maybeBet(conn *websocket.Conn, rnd *rand.Rand, cfg config.BotConfig, view tableView, betRound uint64) uint64 {
	if view.Phase != "betting" || view.RoundID <= betRound {
		return betRound
	}
	amount := cfg.Amount
	if amount == 0 {
		amount = view.MinBet
	}
	if view.MaxBet > 0 && amount > view.MaxBet {
		amount = view.MaxBet
	}
	bet := placeBetsFrame{
		Type:      "place_bets",
		RequestID: fmt.Sprintf("bet-%d", view.RoundID),
		Bets:      []betSpec{{Type: uint8(rnd.Intn(2)), Amount: amount}},
	}
	if err := conn.WriteJSON(bet); err != nil {
		log.Error().Err(err).Msg("place_bets write failed")
		return betRound
	}
	return view.RoundID
}
