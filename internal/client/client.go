package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/Silozo17/homeholdem-sub001/internal/broadcast"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

// ErrNotConnected is returned by Publish while the websocket is down
var ErrNotConnected = errors.New("client: not connected")

const (
	writeWait       = 10 * time.Second
	defaultPongWait = 60 * time.Second
	maxFrameSize    = 1 << 20
	minBackoff      = 500 * time.Millisecond
	maxBackoff      = 30 * time.Second
	sendCapacity    = 64
)

// StreamOptions configures a Stream
type StreamOptions struct {
	BaseURL string
	TableID string
	Token   string
	Logger  *log.Logger
	// OnDrop runs when an established connection is lost
	OnDrop func()
	// OnRestore runs after a dropped connection is re-established
	OnRestore func()
	// PongWait is how long the server may stay silent before the connection
	// counts as lost. Pings go out at 9/10 of it. Defaults to 60s.
	PongWait time.Duration
}

// Stream is a websocket view of one table's topics. It keeps its own
// subscriber registry, so subscriptions survive reconnects; events sent while
// the socket was down are lost and must be recovered by refetching.
type Stream struct {
	opts   StreamOptions
	url    string
	logger *log.Logger

	mu        sync.RWMutex
	send      chan protocol.Frame
	handlers  map[string]map[int]broadcast.Handler
	nextID    int
	closed    bool
	closeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// Dial connects to the table gateway and keeps the connection alive until
// Close or ctx is done
func Dial(ctx context.Context, opts StreamOptions) (*Stream, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.PongWait <= 0 {
		opts.PongWait = defaultPongWait
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/v1/tables/" + url.PathEscape(opts.TableID) + "/ws"

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		opts:     opts,
		url:      u.String(),
		logger:   opts.Logger.WithPrefix("stream").With("table", opts.TableID),
		handlers: make(map[string]map[int]broadcast.Handler),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	conn, err := s.dial(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	send := s.attach()
	go s.run(ctx, conn, send)
	return s, nil
}

func (s *Stream) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if s.opts.Token != "" {
		header.Set("Authorization", "Bearer "+s.opts.Token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return conn, nil
}

// run pumps one connection at a time, redialing with backoff after drops
func (s *Stream) run(ctx context.Context, conn *websocket.Conn, send chan protocol.Frame) {
	defer close(s.done)
	backoff := minBackoff
	for {
		s.serve(ctx, conn, send)
		if ctx.Err() != nil {
			return
		}
		if s.opts.OnDrop != nil {
			s.opts.OnDrop()
		}

		for {
			s.logger.Info("Reconnecting", "in", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			next, err := s.dial(ctx)
			if err == nil {
				conn = next
				backoff = minBackoff
				break
			}
			s.logger.Warn("Reconnect failed", "error", err)
			backoff = min(backoff*2, maxBackoff)
		}
		send = s.attach()
		if s.opts.OnRestore != nil {
			s.opts.OnRestore()
		}
	}
}

// attach opens a send buffer for the next connection
func (s *Stream) attach() chan protocol.Frame {
	send := make(chan protocol.Frame, sendCapacity)
	s.mu.Lock()
	s.send = send
	s.mu.Unlock()
	return send
}

// serve runs the read and write pumps for conn until either fails
func (s *Stream) serve(ctx context.Context, conn *websocket.Conn, send chan protocol.Frame) {
	connCtx, stop := context.WithCancel(ctx)
	go s.writePump(connCtx, conn, send, stop)
	s.readPump(connCtx, conn)
	stop()
	_ = conn.Close()

	s.mu.Lock()
	s.send = nil
	s.mu.Unlock()
}

func (s *Stream) readPump(ctx context.Context, conn *websocket.Conn) {
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	wait := s.opts.PongWait
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		var f protocol.Frame
		if err := conn.ReadJSON(&f); err != nil {
			var netErr net.Error
			switch {
			case ctx.Err() != nil:
			case errors.As(err, &netErr) && netErr.Timeout():
				s.logger.Warn("Server went silent", "after", wait)
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure):
				s.logger.Warn("WebSocket error", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wait))
		s.dispatch(f)
	}
}

func (s *Stream) writePump(ctx context.Context, conn *websocket.Conn, send <-chan protocol.Frame, stop context.CancelFunc) {
	ticker := time.NewTicker(s.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		stop()
	}()
	for {
		select {
		case f := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(f); err != nil {
				s.logger.Debug("Failed to write frame", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Stream) dispatch(f protocol.Frame) {
	s.mu.RLock()
	handlers := make([]broadcast.Handler, 0, len(s.handlers[f.Topic]))
	for _, h := range s.handlers[f.Topic] {
		handlers = append(handlers, h)
	}
	s.mu.RUnlock()
	for _, h := range handlers {
		h(f.Event)
	}
}

// Subscribe registers fn for frames on topic
func (s *Stream) Subscribe(topic string, fn broadcast.Handler) (broadcast.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, broadcast.ErrClosed
	}
	if s.handlers[topic] == nil {
		s.handlers[topic] = make(map[int]broadcast.Handler)
	}
	s.nextID++
	id := s.nextID
	s.handlers[topic][id] = fn
	return &subscription{stream: s, topic: topic, id: id}, nil
}

// Publish sends ev to the server; only presence beats are accepted there
func (s *Stream) Publish(ctx context.Context, topic string, ev protocol.Event) error {
	s.mu.RLock()
	send := s.send
	s.mu.RUnlock()
	if send == nil {
		return ErrNotConnected
	}
	select {
	case send <- protocol.Frame{Topic: topic, Event: ev}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("client: send buffer full")
	}
}

// Close disconnects and stops reconnecting
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.handlers = make(map[string]map[int]broadcast.Handler)
		s.mu.Unlock()
		s.cancel()
		<-s.done
	})
	return nil
}

// Done is closed once the stream has stopped
func (s *Stream) Done() <-chan struct{} { return s.done }

type subscription struct {
	stream *Stream
	topic  string
	id     int
}

func (sub *subscription) Unsubscribe() error {
	sub.stream.mu.Lock()
	defer sub.stream.mu.Unlock()
	delete(sub.stream.handlers[sub.topic], sub.id)
	return nil
}
