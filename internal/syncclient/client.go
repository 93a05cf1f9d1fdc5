// Package syncclient keeps one participant's view of a table in step with the
// authoritative session. Events arrive over an at-least-once, unordered
// channel; the client applies them through a single version-gated State and
// falls back to a full refetch whenever it cannot trust the next delta.
package syncclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/Silozo17/homeholdem-sub001/internal/broadcast"
	"github.com/Silozo17/homeholdem-sub001/internal/deck"
	"github.com/Silozo17/homeholdem-sub001/internal/game"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

// API is the command side of the server
type API interface {
	State(ctx context.Context, tableID string) (protocol.PublicState, error)
	MyCards(ctx context.Context, tableID, handID string) (protocol.MyCards, error)
	Act(ctx context.Context, tableID string, req protocol.ActionRequest) error
	Deal(ctx context.Context, tableID string) (protocol.DealResponse, error)
	Heartbeat(ctx context.Context, tableID string) error
	ResolveTimeout(ctx context.Context, tableID, handID string) (bool, error)
}

// Channel is the broadcast side: table events in, presence beats out
type Channel interface {
	broadcast.Publisher
	broadcast.Subscriber
}

// Options configures a Client. Zero durations take the defaults below.
type Options struct {
	TableID  string
	PlayerID string
	Role     protocol.Role
	API      API
	Channel  Channel
	Clock    quartz.Clock
	Logger   *log.Logger

	// RevealDelay paces community cards one street at a time
	RevealDelay time.Duration
	// ResultDelay holds back the winner announcement after the board is shown
	ResultDelay time.Duration
	// PendingTimeout clears an unconfirmed action flag
	PendingTimeout time.Duration
	// RefetchDebounce coalesces refetch triggers
	RefetchDebounce   time.Duration
	CardRetryDelay    time.Duration
	HeartbeatInterval time.Duration
	PresenceTTL       time.Duration

	// OnChange receives the view after every change, outside the client lock
	OnChange func(View)
	OnChat   func(protocol.ChatEmoji)
}

func (o *Options) applyDefaults() {
	if o.Clock == nil {
		o.Clock = quartz.NewReal()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Role == "" {
		o.Role = protocol.RolePlayer
	}
	defaults := []struct {
		d   *time.Duration
		def time.Duration
	}{
		{&o.RevealDelay, 800 * time.Millisecond},
		{&o.ResultDelay, 2 * time.Second},
		{&o.PendingTimeout, 1500 * time.Millisecond},
		{&o.RefetchDebounce, 250 * time.Millisecond},
		{&o.CardRetryDelay, 500 * time.Millisecond},
		{&o.HeartbeatInterval, 10 * time.Second},
		{&o.PresenceTTL, 30 * time.Second},
	}
	for _, d := range defaults {
		if *d.d == 0 {
			*d.d = d.def
		}
	}
}

// View is what the participant is shown: the authoritative state with the
// paced presentation layered on top.
type View struct {
	State protocol.PublicState
	Cards []deck.Card
	// Board is the revealed part of State.Board
	Board []deck.Card
	// Announced is the latest settlement once its announcement delay passed
	Announced  *protocol.HandResult
	Pending    bool
	MyTurn     bool
	CallAmount int
	Spectators int
	Online     []string
}

// Client mirrors one table for one participant
type Client struct {
	opts   Options
	logger *log.Logger
	key    string

	mu           sync.Mutex
	state        State
	subs         []broadcast.Subscription
	connected    bool
	wasConnected bool
	resync       bool
	refetch      *quartz.Timer
	refetches    int
	cardsRetried string

	board     int
	reveal    *quartz.Timer
	announced *protocol.HandResult
	announce  *quartz.Timer

	pending        bool
	pendingVersion int64
	pendingTimer   *quartz.Timer

	presence *presence
}

// New creates a disconnected client
func New(opts Options) *Client {
	opts.applyDefaults()
	return &Client{
		opts:     opts,
		logger:   opts.Logger.WithPrefix("sync").With("table", opts.TableID, "player", opts.PlayerID),
		key:      uuid.NewString(),
		presence: newPresence(opts.PresenceTTL),
	}
}

// Connect subscribes to the table. The first connect fetches a baseline; a
// reconnect marks the mirror untrusted until a refetch lands, since any
// number of events may have been missed.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	events, err := c.opts.Channel.Subscribe(broadcast.TableTopic(c.opts.TableID), c.onEvent)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("subscribe table: %w", err)
	}
	beats, err := c.opts.Channel.Subscribe(broadcast.PresenceTopic(c.opts.TableID), c.onPresence)
	if err != nil {
		_ = events.Unsubscribe()
		c.mu.Unlock()
		return fmt.Errorf("subscribe presence: %w", err)
	}
	c.subs = []broadcast.Subscription{events, beats}
	c.connected = true
	reconnect := c.wasConnected
	c.wasConnected = true
	if reconnect {
		c.resync = true
		c.scheduleRefetch()
	}
	c.mu.Unlock()

	if !reconnect {
		if err := c.fetch(ctx); err != nil {
			return err
		}
	}
	c.logger.Debug("Connected", "reconnect", reconnect)
	c.beat(ctx, false)
	return nil
}

// Disconnect unsubscribes and announces the departure
func (c *Client) Disconnect(ctx context.Context) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Warn("Unsubscribe failed", "error", err)
		}
	}
	c.subs = nil
	c.connected = false
	stop(&c.refetch)
	c.mu.Unlock()

	c.beat(ctx, true)
	c.logger.Debug("Disconnected")
}

// Run sends heartbeats and presence beats until ctx is done
func (c *Client) Run(ctx context.Context) error {
	w := c.opts.Clock.TickerFunc(ctx, c.opts.HeartbeatInterval, func() error {
		c.beat(ctx, false)
		return nil
	}, "heartbeat")
	err := w.Wait()
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *Client) beat(ctx context.Context, leave bool) {
	beat := protocol.Presence{
		Key: c.key, PlayerID: c.opts.PlayerID, Role: c.opts.Role,
		At: c.opts.Clock.Now(), Leave: leave,
	}
	ev, err := protocol.NewEvent(protocol.TypePresence, c.opts.TableID, 0, beat, beat.At)
	if err == nil {
		err = c.opts.Channel.Publish(ctx, broadcast.PresenceTopic(c.opts.TableID), ev)
	}
	if err != nil {
		c.logger.Debug("Presence beat failed", "error", err)
	}

	c.mu.Lock()
	seated := c.state.MySeat(c.opts.PlayerID) != 0
	c.mu.Unlock()
	if seated && !leave && c.opts.Role == protocol.RolePlayer {
		if err := c.opts.API.Heartbeat(ctx, c.opts.TableID); err != nil {
			c.logger.Debug("Heartbeat failed", "error", err)
		}
	}
}

func (c *Client) onEvent(ev protocol.Event) {
	switch ev.Type {
	case protocol.TypeGameState:
		var ps protocol.PublicState
		if err := ev.Decode(&ps); err != nil {
			c.logger.Warn("Dropped bad state", "error", err)
			return
		}
		c.onState(ps)

	case protocol.TypeHandResult, protocol.TypeHandComplete:
		var r protocol.HandResult
		if err := ev.Decode(&r); err != nil {
			c.logger.Warn("Dropped bad result", "error", err)
			return
		}
		c.mu.Lock()
		fresh := c.state.RecordResult(r)
		if fresh {
			c.scheduleAnnouncement()
		}
		c.mu.Unlock()
		if fresh {
			c.notify()
		}

	case protocol.TypeBlindsUp:
		var b protocol.BlindsUp
		if err := ev.Decode(&b); err == nil {
			c.logger.Info("Blinds up", "level", b.Level, "small", b.SmallBlind, "big", b.BigBlind)
		}

	case protocol.TypeChatEmoji:
		var chat protocol.ChatEmoji
		if err := ev.Decode(&chat); err == nil && c.opts.OnChat != nil {
			c.opts.OnChat(chat)
		}
	}
}

func (c *Client) onState(ps protocol.PublicState) {
	c.mu.Lock()
	if c.resync {
		c.scheduleRefetch()
		c.mu.Unlock()
		return
	}
	// Every state change is published at the next version, so a jump means
	// deltas were lost.
	if c.state.Table.Version != 0 && ps.Version > c.state.Table.Version+1 {
		c.logger.Debug("Version gap", "have", c.state.Table.Version, "got", ps.Version)
		c.resync = true
		c.scheduleRefetch()
		c.mu.Unlock()
		return
	}
	if !c.state.Apply(ps) {
		c.mu.Unlock()
		return
	}
	c.afterApply()
	needCards := c.needCards()
	c.mu.Unlock()

	if needCards {
		c.fetchCards(context.Background(), ps.HandID)
	}
	c.notify()
}

// afterApply updates the presentation layer; called with c.mu held
func (c *Client) afterApply() {
	ps := c.state.Table
	if c.pending && ps.Version > c.pendingVersion {
		c.clearPending()
	}
	if len(ps.Board) < c.board {
		stop(&c.reveal)
		c.board = len(ps.Board)
	}
	if len(ps.Board) > c.board && c.reveal == nil {
		c.reveal = c.opts.Clock.AfterFunc(c.opts.RevealDelay, c.revealStreet, "reveal")
	}
}

func (c *Client) revealStreet() {
	c.mu.Lock()
	c.reveal = nil
	total := len(c.state.Table.Board)
	switch {
	case c.board < 3:
		c.board = min(3, total)
	case c.board < total:
		c.board++
	}
	if c.board < total {
		c.reveal = c.opts.Clock.AfterFunc(c.opts.RevealDelay, c.revealStreet, "reveal")
	}
	c.mu.Unlock()
	c.notify()
}

// scheduleAnnouncement waits for the board to finish revealing, then the
// result delay; called with c.mu held
func (c *Client) scheduleAnnouncement() {
	streets := 0
	for shown := c.board; shown < len(c.state.Table.Board); streets++ {
		if shown < 3 {
			shown = 3
		} else {
			shown++
		}
	}
	delay := c.opts.ResultDelay + time.Duration(streets)*c.opts.RevealDelay
	result := c.state.Result
	stop(&c.announce)
	c.announce = c.opts.Clock.AfterFunc(delay, func() {
		c.mu.Lock()
		c.announced = result
		c.announce = nil
		c.mu.Unlock()
		c.notify()
	}, "announce")
}

// scheduleRefetch (re)arms the debounced refetch; called with c.mu held
func (c *Client) scheduleRefetch() {
	stop(&c.refetch)
	c.refetch = c.opts.Clock.AfterFunc(c.opts.RefetchDebounce, func() {
		if err := c.fetch(context.Background()); err != nil {
			c.logger.Warn("Refetch failed", "error", err)
			c.mu.Lock()
			if c.connected {
				c.scheduleRefetch()
			}
			c.mu.Unlock()
		}
	}, "refetch")
}

// fetch replaces the mirror with the server's current state. A fetched
// snapshot is trusted even when its version is lower, as after a server restart.
func (c *Client) fetch(ctx context.Context) error {
	ps, err := c.opts.API.State(ctx, c.opts.TableID)
	if err != nil {
		return fmt.Errorf("fetch state: %w", err)
	}

	c.mu.Lock()
	c.state.Reset(ps)
	c.resync = false
	c.refetch = nil
	c.refetches++
	stop(&c.reveal)
	c.board = len(c.state.Table.Board)
	if c.pending && c.state.Table.Version > c.pendingVersion {
		c.clearPending()
	}
	needCards := c.needCards()
	handID := c.state.Table.HandID
	c.mu.Unlock()

	if needCards {
		c.fetchCards(ctx, handID)
	}
	c.notify()
	return nil
}

// needCards reports whether our hole cards for the current hand are missing;
// called with c.mu held
func (c *Client) needCards() bool {
	ps := c.state.Table
	seat := ps.Seat(c.state.MySeat(c.opts.PlayerID))
	return seat != nil && seat.InHand && ps.HandID != "" && c.state.Cards.HandID != ps.HandID
}

// fetchCards loads our hole cards, retrying once when the fetch races the deal
func (c *Client) fetchCards(ctx context.Context, handID string) {
	cards, err := c.opts.API.MyCards(ctx, c.opts.TableID, handID)
	if err != nil {
		c.logger.Warn("Hole card fetch failed", "hand", handID, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Table.HandID != handID {
		return
	}
	if len(cards.Cards) > 0 {
		c.state.Cards = cards
		return
	}
	if c.cardsRetried == handID {
		return
	}
	c.cardsRetried = handID
	c.opts.Clock.AfterFunc(c.opts.CardRetryDelay, func() {
		c.fetchCards(context.Background(), handID)
		c.notify()
	}, "cards")
}

func (c *Client) onPresence(ev protocol.Event) {
	var beat protocol.Presence
	if err := ev.Decode(&beat); err != nil {
		return
	}
	c.mu.Lock()
	c.presence.merge(beat)
	c.mu.Unlock()
	c.notify()
}

// SendAction submits a decision. The view shows it as pending until a newer
// state arrives or PendingTimeout passes; nothing is applied locally.
func (c *Client) SendAction(ctx context.Context, action game.Action, amount int) error {
	c.mu.Lock()
	handID := c.state.Table.HandID
	c.pending = true
	c.pendingVersion = c.state.Table.Version
	stop(&c.pendingTimer)
	c.pendingTimer = c.opts.Clock.AfterFunc(c.opts.PendingTimeout, func() {
		c.mu.Lock()
		c.pendingTimer = nil
		c.pending = false
		c.mu.Unlock()
		c.notify()
	}, "pending")
	c.mu.Unlock()
	c.notify()

	err := c.opts.API.Act(ctx, c.opts.TableID, protocol.ActionRequest{HandID: handID, Action: action, Amount: amount})
	if err != nil {
		c.mu.Lock()
		c.clearPending()
		c.mu.Unlock()
		c.notify()
		return err
	}
	return nil
}

func (c *Client) clearPending() {
	c.pending = false
	stop(&c.pendingTimer)
}

// Deal asks the server to start the next hand
func (c *Client) Deal(ctx context.Context) (string, error) {
	resp, err := c.opts.API.Deal(ctx, c.opts.TableID)
	if err != nil {
		return "", err
	}
	c.onState(resp.State)
	return resp.HandID, nil
}

// ResolveTimeout asks the server to force the stalled actor of the current hand
func (c *Client) ResolveTimeout(ctx context.Context) (bool, error) {
	c.mu.Lock()
	handID := c.state.Table.HandID
	c.mu.Unlock()
	return c.opts.API.ResolveTimeout(ctx, c.opts.TableID, handID)
}

// State returns a copy of the authoritative mirror
func (c *Client) State() protocol.PublicState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Table
}

// IsMyTurn reports whether this participant is to act
func (c *Client) IsMyTurn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.IsMyTurn(c.opts.PlayerID)
}

// CallAmount is what this participant must add to call
func (c *Client) CallAmount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.CallAmount(c.opts.PlayerID)
}

// SpectatorCount is the number of distinct spectators currently present
func (c *Client) SpectatorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presence.spectators(c.opts.Clock.Now())
}

// OnlinePlayers returns the ids of everyone currently present
func (c *Client) OnlinePlayers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.presence.online(c.opts.Clock.Now())
}

// Refetches counts completed full-state fetches
func (c *Client) Refetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refetches
}

// View returns the current presentation
func (c *Client) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	ps := c.state.Table
	v := View{
		State:      ps,
		Cards:      c.state.Cards.Cards,
		Board:      ps.Board[:min(c.board, len(ps.Board))],
		Announced:  c.announced,
		Pending:    c.pending,
		MyTurn:     c.state.IsMyTurn(c.opts.PlayerID),
		CallAmount: c.state.CallAmount(c.opts.PlayerID),
		Spectators: c.presence.spectators(c.opts.Clock.Now()),
		Online:     c.presence.online(c.opts.Clock.Now()),
	}
	return v
}

func (c *Client) notify() {
	if c.opts.OnChange != nil {
		c.opts.OnChange(c.View())
	}
}

func stop(t **quartz.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
