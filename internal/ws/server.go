// Package ws is the table's websocket surface. One shared table, any number
// of connections: spectators get the push stream as-is, players additionally
// bind a name with hello and bet with place_bets. Fan-out never blocks on a
// slow reader; each connection has a bounded queue that sheds its oldest
// frame when full.
package ws

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"fairtable/internal/live"
)

// sendBuffer is the per-connection queue depth. A reader further behind
// than this loses frames, oldest first; snapshots let it recover.
const sendBuffer = 64

var (
	clientIDEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	clientIDMu      sync.Mutex
)

func newClientID() string {
	clientIDMu.Lock()
	defer clientIDMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), clientIDEntropy).String()
}

type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	// player is set once by hello and read only from this connection's
	// readLoop.
	player string
}

// enqueue queues msg for the client's writeLoop. When the queue is full
// the oldest pending frame is discarded to make room, so a stalled reader
// degrades to a lossy stream instead of stalling the table.
func (c *Client) enqueue(msg []byte) {
	defer func() {
		_ = recover()
	}()
	for {
		select {
		case c.send <- msg:
			return
		default:
		}
		select {
		case <-c.send:
			metricWSDropped.Add(1)
		default:
		}
	}
}

type Server struct {
	engine   *live.Engine
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*Client]bool
	log      zerolog.Logger
}

func NewServer(engine *live.Engine, log zerolog.Logger) *Server {
	return &Server{
		engine:   engine,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  map[*Client]bool{},
		log:      log.With().Str("component", "ws").Logger(),
	}
}

// Push implements live.Sink: every table event fans out to every
// connection. The engine calls this under its own lock, so it must not
// block; enqueue guarantees that.
func (s *Server) Push(msgType string, payload any) {
	frame, err := json.Marshal(PushFrame{
		Type:            msgType,
		ProtocolVersion: ProtocolVersion,
		ServerTS:        time.Now().UnixMilli(),
		Data:            payload,
	})
	if err != nil {
		s.log.Error().Err(err).Str("push", msgType).Msg("marshal push")
		return
	}
	metricWSPushes.Add(1)
	s.mu.Lock()
	for c := range s.clients {
		c.enqueue(frame)
	}
	s.mu.Unlock()
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &Client{id: newClientID(), conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
	metricWSConnsTotal.Add(1)
	metricWSConnsActive.Add(1)
	s.log.Debug().Str("client", c.id).Msg("client connected")

	go s.writeLoop(c)
	c.enqueue(s.snapshotFrame())
	s.readLoop(c)
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		s.unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}
		switch base.Type {
		case "hello":
			var hello HelloMessage
			if err := json.Unmarshal(msg, &hello); err != nil {
				continue
			}
			s.handleHello(c, hello)
		case "place_bets":
			var place PlaceBetsMessage
			if err := json.Unmarshal(msg, &place); err != nil {
				continue
			}
			s.handlePlaceBets(c, place)
		case "get_state":
			c.enqueue(s.snapshotFrame())
		}
	}
}

func (s *Server) writeLoop(c *Client) {
	for msg := range c.send {
		_ = c.conn.WriteMessage(websocket.TextMessage, msg)
	}
}

func (s *Server) unregister(c *Client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	safeClose(c.send)
	metricWSConnsActive.Add(-1)
	s.log.Debug().Str("client", c.id).Str("player", c.player).Msg("client disconnected")
}

func safeClose(ch chan []byte) {
	defer func() {
		_ = recover()
	}()
	close(ch)
}

func (s *Server) handleHello(c *Client, m HelloMessage) {
	view, err := s.engine.Join(context.Background(), m.Player)
	if err != nil {
		s.log.Warn().Err(err).Str("client", c.id).Msg("hello rejected")
		reply, _ := json.Marshal(HelloResult{Type: "hello_result", ProtocolVersion: ProtocolVersion, Error: "join_failed"})
		c.enqueue(reply)
		return
	}
	c.player = m.Player
	balance, err := s.engine.Balance(context.Background(), m.Player)
	if err != nil {
		balance = 0
	}
	s.log.Info().Str("client", c.id).Str("player", m.Player).Msg("player joined")
	reply, _ := json.Marshal(HelloResult{
		Type:            "hello_result",
		ProtocolVersion: ProtocolVersion,
		Ok:              true,
		Player:          m.Player,
		Balance:         balance,
		View:            view,
	})
	c.enqueue(reply)
}

func (s *Server) handlePlaceBets(c *Client, m PlaceBetsMessage) {
	if c.player == "" {
		reply, _ := json.Marshal(BetResultMessage{
			Type:            "bet_result",
			ProtocolVersion: ProtocolVersion,
			RequestID:       m.RequestID,
			Code:            "hello_required",
			Error:           "send hello before betting",
		})
		c.enqueue(reply)
		return
	}
	res := s.engine.PlaceBets(context.Background(), c.player, m.Bets)
	reply, _ := json.Marshal(BetResultMessage{
		Type:            "bet_result",
		ProtocolVersion: ProtocolVersion,
		RequestID:       m.RequestID,
		Ok:              res.OK,
		Code:            res.Code,
		Error:           res.Error,
		RoundID:         res.RoundID,
		BalanceAfter:    res.BalanceAfter,
	})
	c.enqueue(reply)
}

func (s *Server) snapshotFrame() []byte {
	frame, _ := json.Marshal(Snapshot{
		Type:            "snapshot",
		ProtocolVersion: ProtocolVersion,
		View:            s.engine.View(),
	})
	return frame
}
