// Package monitor streams live self-play positions to WebSocket clients so
// games in flight can be watched from a browser.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/brensch/zeromax/selfplay"
)

// Event is the wire envelope. Type is "move" for board updates.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MoveData is the payload of a "move" event.
type MoveData struct {
	GameID string    `json:"game_id"`
	Ply    int       `json:"ply"`
	Board  string    `json:"board"`
	Action int       `json:"action"`
	Policy []float32 `json:"policy"`
	Value  float64   `json:"value"`
}

// Server fans self-play move events out to connected WebSocket clients.
// Slow or broken clients are dropped rather than backing up the drivers.
type Server struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	// wmu serializes writes: several drivers broadcast concurrently but a
	// websocket connection allows only one writer at a time.
	wmu sync.Mutex
}

func NewServer(log zerolog.Logger) *Server {
	return &Server{
		log: log.With().Str("component", "monitor").Logger(),
		upgrader: websocket.Upgrader{
			// Local observation tool; any origin may watch.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	n := len(s.conns)
	s.mu.Unlock()
	s.log.Info().Str("remote", conn.RemoteAddr().String()).Int("clients", n).
		Msg("observer connected")

	// Drain reads so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.drop(conn)
				return
			}
		}
	}()
}

// OnMove adapts the server into a self-play driver hook.
func (s *Server) OnMove(e selfplay.MoveEvent) {
	s.Broadcast(MoveData{
		GameID: e.GameID,
		Ply:    e.Ply,
		Board:  e.Board,
		Action: int(e.Action),
		Policy: e.Policy,
		Value:  e.Value,
	})
}

// Broadcast sends one move event to every connected client.
func (s *Server) Broadcast(data MoveData) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal move event")
		return
	}
	msg, err := json.Marshal(Event{Type: "move", Data: payload})
	if err != nil {
		s.log.Error().Err(err).Msg("marshal event envelope")
		return
	}

	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	s.wmu.Lock()
	defer s.wmu.Unlock()
	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.drop(c)
		}
	}
}

// Clients reports the number of connected observers.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.conns = make(map[*websocket.Conn]struct{})
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.Close()
	}
}

func (s *Server) drop(conn *websocket.Conn) {
	s.mu.Lock()
	_, ok := s.conns[conn]
	delete(s.conns, conn)
	n := len(s.conns)
	s.mu.Unlock()
	if ok {
		_ = conn.Close()
		s.log.Info().Int("clients", n).Msg("observer disconnected")
	}
}
