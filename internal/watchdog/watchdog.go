// Package watchdog enforces action deadlines from the client side. There is
// no central scheduler: the occupied seat with the lowest number polls often
// and asks the server to resolve a stalled turn once its deadline has passed
// by a grace buffer. Everyone else polls less often with a longer grace, so a
// departed leader cannot stall the table. The server command is idempotent,
// which makes duplicate triggers harmless.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

// Source provides the latest known table state
type Source interface {
	State() protocol.PublicState
}

// Resolver sends the resolve-timeout command for the current hand and reports
// whether the server acted on it
type Resolver interface {
	ResolveTimeout(ctx context.Context) (bool, error)
}

// Config tunes polling. Zero values take the defaults.
type Config struct {
	PlayerID         string
	LeaderInterval   time.Duration
	LeaderGrace      time.Duration
	FollowerInterval time.Duration
	FollowerGrace    time.Duration
}

func (c *Config) applyDefaults() {
	if c.LeaderInterval == 0 {
		c.LeaderInterval = 2 * time.Second
	}
	if c.LeaderGrace == 0 {
		c.LeaderGrace = 3 * time.Second
	}
	if c.FollowerInterval == 0 {
		c.FollowerInterval = 6 * time.Second
	}
	if c.FollowerGrace == 0 {
		c.FollowerGrace = 10 * time.Second
	}
}

// Watchdog polls one table for one participant
type Watchdog struct {
	cfg      Config
	source   Source
	resolver Resolver
	clock    quartz.Clock
	logger   *log.Logger

	lastFollowerPoll time.Time
	fired            string
}

// New creates a watchdog
func New(cfg Config, source Source, resolver Resolver, clock quartz.Clock, logger *log.Logger) *Watchdog {
	cfg.applyDefaults()
	return &Watchdog{
		cfg:      cfg,
		source:   source,
		resolver: resolver,
		clock:    clock,
		logger:   logger.WithPrefix("watchdog").With("player", cfg.PlayerID),
	}
}

// Leader reports whether playerID holds the lowest occupied seat
func Leader(ps protocol.PublicState, playerID string) bool {
	if playerID == "" {
		return false
	}
	for _, seat := range ps.Seats {
		if seat.Status == protocol.SeatEmpty {
			continue
		}
		// Seats are listed in ascending order.
		return seat.PlayerID == playerID
	}
	return false
}

// Check reports whether the current turn is overdue from this participant's
// point of view at now
func (w *Watchdog) Check(now time.Time) bool {
	ps := w.source.State()
	if ps.Deadline == nil || ps.ActorSeat == 0 || !ps.Phase.Betting() {
		return false
	}
	grace := w.cfg.FollowerGrace
	if Leader(ps, w.cfg.PlayerID) {
		grace = w.cfg.LeaderGrace
	}
	return now.Sub(*ps.Deadline) > grace
}

// Run polls until ctx is done
func (w *Watchdog) Run(ctx context.Context) error {
	waiter := w.clock.TickerFunc(ctx, w.cfg.LeaderInterval, func() error {
		w.Poll(ctx)
		return nil
	}, "watchdog")
	err := waiter.Wait()
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Poll runs one polling step. Followers skip steps until FollowerInterval
// has passed since their last check. It reports whether the server resolved
// the stalled turn.
func (w *Watchdog) Poll(ctx context.Context) bool {
	now := w.clock.Now()
	ps := w.source.State()
	if !Leader(ps, w.cfg.PlayerID) {
		if now.Sub(w.lastFollowerPoll) < w.cfg.FollowerInterval {
			return false
		}
		w.lastFollowerPoll = now
	}
	if !w.Check(now) {
		return false
	}

	// One trigger per observed turn; the next broadcast moves the version on.
	key := fmt.Sprintf("%s/%d", ps.HandID, ps.Version)
	if key == w.fired {
		return false
	}
	resolved, err := w.resolver.ResolveTimeout(ctx)
	if err != nil {
		w.logger.Warn("Resolve timeout failed", "hand", ps.HandID, "error", err)
		return false
	}
	if !resolved {
		// The server's deadline has not passed yet; try again next step.
		w.logger.Debug("Turn not yet overdue on server", "hand", ps.HandID, "seat", ps.ActorSeat)
		return false
	}
	w.fired = key
	w.logger.Info("Resolved stalled turn", "hand", ps.HandID, "seat", ps.ActorSeat, "leader", Leader(ps, w.cfg.PlayerID))
	return true
}
