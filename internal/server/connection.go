package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Silozo17/homeholdem-sub001/internal/broadcast"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Connection relays one table's topics to a websocket peer and forwards the
// peer's presence beats to the bus
type Connection struct {
	id       string
	conn     *websocket.Conn
	send     chan protocol.Frame
	tableID  string
	playerID string
	bus      Channel
	logger   *log.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	subs     []broadcast.Subscription

	mu        sync.Mutex
	presence  string
	closeOnce sync.Once
}

func newConnection(conn *websocket.Conn, tableID, playerID string, bus Channel, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &Connection{
		id:       id,
		conn:     conn,
		send:     make(chan protocol.Frame, 256),
		tableID:  tableID,
		playerID: playerID,
		bus:      bus,
		logger:   logger.WithPrefix("conn").With("conn", id[:8], "table", tableID),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// subscribe relays both table topics to the peer
func (c *Connection) subscribe() error {
	for _, topic := range []string{broadcast.TableTopic(c.tableID), broadcast.PresenceTopic(c.tableID)} {
		sub, err := c.bus.Subscribe(topic, func(ev protocol.Event) {
			c.enqueue(protocol.Frame{Topic: topic, Event: ev})
		})
		if err != nil {
			c.unsubscribe()
			return err
		}
		c.subs = append(c.subs, sub)
	}
	return nil
}

func (c *Connection) unsubscribe() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.subs = nil
}

// enqueue never blocks the bus; a peer that cannot keep up is dropped and
// recovers by refetching on reconnect
func (c *Connection) enqueue(f protocol.Frame) {
	select {
	case <-c.ctx.Done():
	case c.send <- f:
	default:
		c.logger.Warn("Send buffer full, closing connection")
		c.Close()
	}
}

// Close stops both pumps
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.conn.Close()
	})
}

// readPump handles frames from the peer. Only presence beats on this table's
// presence topic are accepted; they are stamped with the authenticated id.
func (c *Connection) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var f protocol.Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket error", "error", err)
			}
			return
		}
		if err := c.forward(f); err != nil {
			c.logger.Debug("Dropped frame", "topic", f.Topic, "error", err)
		}
	}
}

var errRejectedFrame = errors.New("only presence frames may be sent")

func (c *Connection) forward(f protocol.Frame) error {
	if f.Topic != broadcast.PresenceTopic(c.tableID) || f.Event.Type != protocol.TypePresence {
		return errRejectedFrame
	}
	var p protocol.Presence
	if err := f.Event.Decode(&p); err != nil {
		return err
	}
	if p.Key == "" {
		p.Key = c.id
	}
	p.PlayerID = c.playerID
	if c.playerID == "" {
		p.Role = protocol.RoleSpectator
	}
	c.mu.Lock()
	c.presence = p.Key
	if p.Leave {
		c.presence = ""
	}
	c.mu.Unlock()
	return c.publishPresence(p)
}

func (c *Connection) publishPresence(p protocol.Presence) error {
	ev, err := protocol.NewEvent(protocol.TypePresence, c.tableID, 0, p, p.At)
	if err != nil {
		return err
	}
	return c.bus.Publish(c.ctx, broadcast.PresenceTopic(c.tableID), ev)
}

// leave announces the peer's departure if it never said goodbye
func (c *Connection) leave() {
	c.mu.Lock()
	key := c.presence
	c.presence = ""
	c.mu.Unlock()
	if key == "" {
		return
	}
	p := protocol.Presence{Key: key, PlayerID: c.playerID, Leave: true, At: time.Now()}
	ev, err := protocol.NewEvent(protocol.TypePresence, c.tableID, 0, p, p.At)
	if err != nil {
		return
	}
	if err := c.bus.Publish(context.Background(), broadcast.PresenceTopic(c.tableID), ev); err != nil {
		c.logger.Warn("Failed to publish leave", "error", err)
	}
}

// writePump handles outgoing frames to the peer
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case f := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(f); err != nil {
				c.logger.Debug("Failed to write frame", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handleWebSocket upgrades a table subscription. A valid token marks the peer
// as that participant; without one it joins as a spectator.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	playerID, _ := participant(r)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection", "error", err)
		return
	}

	c := newConnection(ws, sess.ID(), playerID, s.bus, s.logger)
	if err := c.subscribe(); err != nil {
		s.logger.Error("Subscribe failed", "table", sess.ID(), "error", err)
		c.Close()
		return
	}
	s.connected(sess.ID(), playerID, 1)
	c.logger.Info("Client connected", "player", playerID)

	go c.writePump()
	go func() {
		c.readPump()
		c.unsubscribe()
		c.leave()
		c.logger.Info("Client disconnected", "player", playerID)
		if s.connected(sess.ID(), playerID, -1) == 0 && playerID != "" {
			// The seat keeps playing; missed turns are resolved by timeouts.
			if err := sess.Disconnect(context.Background(), playerID); err != nil && protocol.CodeOf(err) != protocol.CodeNotFound {
				c.logger.Warn("Failed to mark disconnect", "player", playerID, "error", err)
			}
		}
	}()
}

// connected adjusts the live connection count of a participant at a table
// and returns the new count
func (s *Server) connected(tableID, playerID string, delta int) int {
	if playerID == "" {
		return 0
	}
	key := tableID + "/" + playerID
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.online[key] + delta
	if n <= 0 {
		delete(s.online, key)
		return 0
	}
	s.online[key] = n
	return n
}
