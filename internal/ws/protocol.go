package ws

import (
	"fairtable/internal/codec"
	"fairtable/internal/live"
)

const ProtocolVersion = "1.0"

// Client to server messages. Every frame carries a type discriminator; the
// server ignores frames it cannot parse rather than dropping the connection.

type HelloMessage struct {
	Type   string `json:"type"`
	Player string `json:"player"`
}

type PlaceBetsMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Bets      []codec.BetSpec `json:"bets"`
}

type GetStateMessage struct {
	Type string `json:"type"`
}

// Server to client messages.

type HelloResult struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Ok              bool           `json:"ok"`
	Error           string         `json:"error,omitempty"`
	Player          string         `json:"player,omitempty"`
	Balance         uint64         `json:"balance"`
	View            live.TableView `json:"view"`
}

type BetResultMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Ok              bool   `json:"ok"`
	Code            string `json:"code"`
	Error           string `json:"error,omitempty"`
	RoundID         uint64 `json:"round_id,omitempty"`
	BalanceAfter    uint64 `json:"balance_after"`
}

type Snapshot struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	View            live.TableView `json:"view"`
}

// PushFrame wraps engine fan-out. Type names the table event
// (round_opened, round_locked, outcome_revealed, round_settled,
// round_finalized, bets_placed, table_halted); Data is that event's
// payload.
type PushFrame struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ServerTS        int64  `json:"server_ts"`
	Data            any    `json:"data"`
}
