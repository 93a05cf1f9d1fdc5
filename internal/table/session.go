// Package table runs authoritative table sessions. A Session is the only
// writer of its table's seats and hands: every command is serialized under the
// session lock, written through to the store, and followed by a broadcast of the
// public state.
package table

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/Silozo17/homeholdem-sub001/internal/broadcast"
	"github.com/Silozo17/homeholdem-sub001/internal/deck"
	"github.com/Silozo17/homeholdem-sub001/internal/game"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
	"github.com/Silozo17/homeholdem-sub001/internal/store"
)

// System is the requester id used by in-process controllers such as
// tournaments; it passes host checks.
const System = "system"

// Config is a table's fixed configuration
type Config struct {
	ID           string
	Name         string
	HostID       string
	TournamentID string
	MaxSeats     int
	SmallBlind   int
	BigBlind     int
	Ante         int
	// BlindInterval doubles the blinds each time it elapses; zero disables it
	BlindInterval time.Duration
	BuyInMin      int
	BuyInMax      int
}

// Options are the session's collaborators
type Options struct {
	Store     store.Store
	Publisher broadcast.Publisher
	Clock     quartz.Clock
	Logger    *log.Logger
	// ActionTimeout is how long each turn lasts before it may be force-resolved
	ActionTimeout time.Duration
	// RunoutDelay paces all-in runout streets; zero deals them at once
	RunoutDelay time.Duration
	// SilenceTimeout is how long a seat may go without a heartbeat before a
	// sweep marks it disconnected
	SilenceTimeout time.Duration
	// NewSeed supplies shuffle seeds, deck.NewSeed by default
	NewSeed func() (deck.Seed, error)
}

func (o *Options) applyDefaults() {
	if o.Clock == nil {
		o.Clock = quartz.NewReal()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.ActionTimeout == 0 {
		o.ActionTimeout = 30 * time.Second
	}
	if o.SilenceTimeout == 0 {
		o.SilenceTimeout = 30 * time.Second
	}
	if o.NewSeed == nil {
		o.NewSeed = deck.NewSeed
	}
}

type seat struct {
	n          int
	playerID   string
	name       string
	stack      int
	status     protocol.SeatStatus
	lastBeat   time.Time
	lastAction string
}

type outgoing struct {
	topic string
	event protocol.Event
}

// Session owns one table
type Session struct {
	mu     sync.Mutex
	cfg    Config
	opts   Options
	logger *log.Logger

	status     protocol.TableStatus
	createdAt  time.Time
	seats      map[int]*seat
	version    int64
	handNumber int
	dealerSeat int

	smallBlind     int
	bigBlind       int
	ante           int
	blindLevel     int
	blindsRaisedAt time.Time

	hand       *game.Hand
	handID     string
	seed       deck.Seed
	commitment string
	deadline   time.Time
	startedAt  time.Time
	logged     int
	runout     *quartz.Timer

	outbox []outgoing
}

// NewSession creates a table and persists it
func NewSession(ctx context.Context, cfg Config, opts Options) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := newSession(cfg, opts)
	s.createdAt = s.opts.Clock.Now()
	s.blindsRaisedAt = s.createdAt

	if err := s.opts.Store.CreateTable(ctx, s.record()); err != nil {
		return nil, fmt.Errorf("create table %s: %w", cfg.ID, err)
	}
	s.logger.Info("Table created", "name", cfg.Name, "blinds", fmt.Sprintf("%d/%d", cfg.SmallBlind, cfg.BigBlind))
	return s, nil
}

// Restore rebuilds a session from persisted state. A hand that was in
// progress is voided: seat stacks are only written at settlement, so the
// stored stacks predate it.
func Restore(ctx context.Context, t store.Table, opts Options) (*Session, error) {
	cfg := Config{
		ID: t.ID, Name: t.Name, HostID: t.HostID, TournamentID: t.TournamentID,
		MaxSeats: t.MaxSeats, SmallBlind: t.SmallBlind, BigBlind: t.BigBlind, Ante: t.Ante,
		BlindInterval: t.BlindInterval, BuyInMin: t.BuyInMin, BuyInMax: t.BuyInMax,
	}
	s := newSession(cfg, opts)
	s.status = t.Status
	s.createdAt = t.CreatedAt
	s.smallBlind, s.bigBlind, s.ante = t.CurrentSmallBlind, t.CurrentBigBlind, t.CurrentAnte
	s.blindLevel = t.BlindLevel
	s.blindsRaisedAt = t.BlindsRaisedAt
	s.handNumber = t.HandNumber
	s.dealerSeat = t.DealerSeat
	s.version = t.Version
	if s.status == protocol.TablePlaying {
		s.status = protocol.TableWaiting
	}

	seats, err := s.opts.Store.Seats(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("restore seats for %s: %w", t.ID, err)
	}
	for _, st := range seats {
		s.seats[st.Seat] = &seat{n: st.Seat, playerID: st.PlayerID, name: st.Name, stack: st.Stack, status: st.Status}
	}

	h, err := s.opts.Store.ActiveHand(ctx, t.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("restore active hand for %s: %w", t.ID, err)
	default:
		s.version = max(s.version, h.Version)
		now := s.opts.Clock.Now()
		h.Phase = game.PhaseComplete
		h.CompletedAt = &now
		if err := s.opts.Store.UpdateHand(ctx, h); err != nil {
			return nil, fmt.Errorf("void hand %s: %w", h.ID, err)
		}
		s.logger.Warn("Voided interrupted hand", "hand", h.ID)
	}
	return s, nil
}

func newSession(cfg Config, opts Options) *Session {
	opts.applyDefaults()
	return &Session{
		cfg:        cfg,
		opts:       opts,
		logger:     opts.Logger.WithPrefix("table").With("table", cfg.ID),
		status:     protocol.TableWaiting,
		seats:      make(map[int]*seat),
		smallBlind: cfg.SmallBlind,
		bigBlind:   cfg.BigBlind,
		ante:       cfg.Ante,
	}
}

func (c Config) validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: table id is required", ErrBadRequest)
	case c.MaxSeats < 2 || c.MaxSeats > 10:
		return fmt.Errorf("%w: max seats %d outside 2..10", ErrBadRequest, c.MaxSeats)
	case c.SmallBlind <= 0 || c.BigBlind < c.SmallBlind:
		return fmt.Errorf("%w: blinds %d/%d", ErrBadRequest, c.SmallBlind, c.BigBlind)
	case c.BuyInMax > 0 && c.BuyInMin > c.BuyInMax:
		return fmt.Errorf("%w: buy-in %d..%d", ErrBadRequest, c.BuyInMin, c.BuyInMax)
	}
	return nil
}

// ID returns the table id
func (s *Session) ID() string { return s.cfg.ID }

// Config returns the table configuration
func (s *Session) Config() Config { return s.cfg }

// do runs fn under the session lock, then publishes whatever fn queued.
// Publishing happens outside the lock so in-process subscribers may call back.
func (s *Session) do(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	err := fn()
	out := s.outbox
	s.outbox = nil
	s.mu.Unlock()

	for _, o := range out {
		if perr := s.opts.Publisher.Publish(ctx, o.topic, o.event); perr != nil {
			// Subscribers recover missed events by refetching state.
			s.logger.Warn("Broadcast failed", "type", o.event.Type, "error", perr)
		}
	}
	return err
}

// emit queues an event at the current version
func (s *Session) emit(eventType protocol.EventType, data any) {
	ev, err := protocol.NewEvent(eventType, s.cfg.ID, s.version, data, s.opts.Clock.Now())
	if err != nil {
		s.logger.Error("Failed to build event", "type", eventType, "error", err)
		return
	}
	s.outbox = append(s.outbox, outgoing{topic: broadcast.TableTopic(s.cfg.ID), event: ev})
}

func (s *Session) record() store.Table {
	return store.Table{
		ID: s.cfg.ID, Name: s.cfg.Name, HostID: s.cfg.HostID, TournamentID: s.cfg.TournamentID,
		MaxSeats: s.cfg.MaxSeats, SmallBlind: s.cfg.SmallBlind, BigBlind: s.cfg.BigBlind, Ante: s.cfg.Ante,
		BlindInterval: s.cfg.BlindInterval, BuyInMin: s.cfg.BuyInMin, BuyInMax: s.cfg.BuyInMax,
		Status: s.status, CurrentSmallBlind: s.smallBlind, CurrentBigBlind: s.bigBlind,
		CurrentAnte: s.ante, BlindLevel: s.blindLevel, BlindsRaisedAt: s.blindsRaisedAt,
		HandNumber: s.handNumber, DealerSeat: s.dealerSeat, Version: s.version, CreatedAt: s.createdAt,
	}
}

func (s *Session) saveTable(ctx context.Context) error {
	if err := s.opts.Store.UpdateTable(ctx, s.record()); err != nil {
		return fmt.Errorf("update table %s: %w", s.cfg.ID, err)
	}
	return nil
}

func (s *Session) saveSeat(ctx context.Context, st *seat) error {
	err := s.opts.Store.SaveSeat(ctx, store.Seat{
		TableID: s.cfg.ID, Seat: st.n, PlayerID: st.playerID, Name: st.name,
		Stack: st.stack, Status: st.status,
	})
	if err != nil {
		return fmt.Errorf("save seat %d: %w", st.n, err)
	}
	return nil
}

func (s *Session) seatOf(playerID string) *seat {
	for _, st := range s.seats {
		if st.playerID == playerID {
			return st
		}
	}
	return nil
}

func (s *Session) handActive() bool {
	return s.hand != nil && !s.hand.Complete()
}

// inHand reports whether st is dealt into the running hand
func (s *Session) inHand(st *seat) bool {
	if !s.handActive() {
		return false
	}
	p := s.hand.Player(st.n)
	return p != nil && p.ID == st.playerID
}

func (s *Session) funded() []*seat {
	var out []*seat
	for _, st := range s.seats {
		if st.stack > 0 && (st.status == protocol.SeatActive || st.status == protocol.SeatDisconnected) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].n < out[j].n })
	return out
}

// Snapshot returns the current public state
func (s *Session) Snapshot() protocol.PublicState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot("")
}

// Version returns the current state version
func (s *Session) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Session) snapshot(phase game.Phase) protocol.PublicState {
	ps := protocol.PublicState{
		TableID:    s.cfg.ID,
		Status:     s.status,
		Version:    s.version,
		HandID:     s.handID,
		HandNumber: s.handNumber,
		Phase:      game.PhaseIdle,
		DealerSeat: s.dealerSeat,
		SmallBlind: s.smallBlind,
		BigBlind:   s.bigBlind,
		Ante:       s.ante,
		Board:      []deck.Card{},
		Commitment: s.commitment,
	}

	h := s.hand
	if h != nil {
		ps.Phase = h.Phase
		ps.SmallBlindSeat = h.SmallBlindSeat
		ps.BigBlindSeat = h.BigBlindSeat
		ps.Board = append(ps.Board, h.Board...)
		ps.PotTotal = h.Pot()
		if h.Complete() {
			if h.Result != nil {
				ps.Pots = publicPots(h.Result)
			}
			if len(s.funded()) < 2 {
				ps.Phase = game.PhaseGameOver
			}
		} else {
			ps.CurrentBet = h.CurrentBet
			ps.MinRaise = h.MinRaise
			ps.ActorSeat = h.ActorSeat
			if h.ActorSeat != 0 {
				deadline := s.deadline
				ps.Deadline = &deadline
			}
		}
	}
	if phase != "" {
		ps.Phase = phase
	}

	for n := 1; n <= s.cfg.MaxSeats; n++ {
		st, ok := s.seats[n]
		if !ok {
			ps.Seats = append(ps.Seats, protocol.SeatState{Seat: n, Status: protocol.SeatEmpty})
			continue
		}
		ss := protocol.SeatState{
			Seat: n, PlayerID: st.playerID, Name: st.name, Stack: st.stack,
			Status: st.status, LastAction: st.lastAction,
		}
		if s.inHand(st) {
			p := h.Player(n)
			ss.Stack = p.Stack
			ss.Bet = p.Bet
			ss.Committed = p.Committed
			ss.InHand = true
			ss.Folded = p.Folded
			ss.AllIn = p.AllIn
		}
		ps.Seats = append(ps.Seats, ss)
	}
	return ps
}

func publicPots(r *game.Result) []protocol.Pot {
	out := make([]protocol.Pot, 0, len(r.Pots))
	for _, p := range r.Pots {
		out = append(out, protocol.Pot{Amount: p.Amount, Eligible: p.Eligible})
	}
	return out
}
