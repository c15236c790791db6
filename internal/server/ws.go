package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Geun-Oh/accelx/internal/core"
	"github.com/Geun-Oh/accelx/internal/window"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 512
)

// message is the websocket envelope. Type is "window", "append" or "status".
type message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// wsClient renders updates by writing them to one websocket connection.
// A failed write closes the connection, which ends the read loop in
// handleWS and unsubscribes the client.
type wsClient struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (c *wsClient) OnWindowUpdate(f window.Frame) { c.write(message{Type: "window", Data: f}) }
func (c *wsClient) OnAppend(d window.Delta)       { c.write(message{Type: "append", Data: d}) }
func (c *wsClient) OnStatusChange(s core.Status)  { c.write(message{Type: "status", Data: s}) }

func (c *wsClient) write(m message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := c.conn.WriteJSON(m); err != nil {
		c.closeLocked()
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	c.closeLocked()
	c.mu.Unlock()
}

func (c *wsClient) closeLocked() {
	if !c.closed {
		c.closed = true
		_ = c.conn.Close()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &wsClient{conn: conn}
	s.track(c, true)
	defer s.track(c, false)

	c.OnStatusChange(s.engine.Status())
	id, cancel := s.hub.Subscribe(c)
	s.logger.Info("websocket connected", "id", id, "remote", conn.RemoteAddr().String())
	defer func() {
		c.close()
		cancel()
		s.logger.Info("websocket disconnected", "id", id)
	}()

	// Incoming messages are ignored; reading detects the peer closing.
	conn.SetReadLimit(wsMaxMessageSize)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) track(c *wsClient, add bool) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	if add {
		s.clients[c] = struct{}{}
	} else {
		delete(s.clients, c)
	}
}

// closeClients closes every websocket. Hijacked connections are not covered
// by http.Server.Shutdown.
func (s *Server) closeClients() {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	for c := range s.clients {
		c.close()
	}
}
