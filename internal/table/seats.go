package table

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/Silozo17/homeholdem-sub001/internal/game"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

const maxEmojiRunes = 16

// Join seats playerID. Seat 0 takes the lowest free seat. A player joining
// while a hand runs waits for the next deal.
func (s *Session) Join(ctx context.Context, playerID, name string, seatN, buyIn int) (int, error) {
	var taken int
	err := s.do(ctx, func() error {
		if s.status == protocol.TableClosed {
			return ErrClosed
		}
		if s.cfg.TournamentID != "" {
			return fmt.Errorf("%w: tournament tables are seated by the tournament", ErrNotAuthorized)
		}
		if buyIn <= 0 || (s.cfg.BuyInMin > 0 && buyIn < s.cfg.BuyInMin) || (s.cfg.BuyInMax > 0 && buyIn > s.cfg.BuyInMax) {
			return fmt.Errorf("%w: buy-in %d outside %d..%d", ErrBadRequest, buyIn, s.cfg.BuyInMin, s.cfg.BuyInMax)
		}
		n, err := s.seatPlayer(ctx, playerID, name, seatN, buyIn)
		if err != nil {
			return err
		}
		taken = n
		s.logger.Info("Player joined", "player", playerID, "seat", n, "buy_in", buyIn)
		s.seatChanged(n, playerID, protocol.SeatJoin, buyIn)
		return nil
	})
	return taken, err
}

// Place seats a tournament entrant with a fixed stack in the lowest free seat
func (s *Session) Place(ctx context.Context, playerID, name string, stack int) (int, error) {
	var taken int
	err := s.do(ctx, func() error {
		if s.status == protocol.TableClosed {
			return ErrClosed
		}
		n, err := s.seatPlayer(ctx, playerID, name, 0, stack)
		if err != nil {
			return err
		}
		taken = n
		s.seatChanged(n, playerID, protocol.SeatMoved, stack)
		return nil
	})
	return taken, err
}

func (s *Session) seatPlayer(ctx context.Context, playerID, name string, seatN, stack int) (int, error) {
	if playerID == "" {
		return 0, fmt.Errorf("%w: player id is required", ErrBadRequest)
	}
	if s.seatOf(playerID) != nil {
		return 0, ErrAlreadySeated
	}
	if seatN == 0 {
		for n := 1; n <= s.cfg.MaxSeats; n++ {
			if _, ok := s.seats[n]; !ok {
				seatN = n
				break
			}
		}
		if seatN == 0 {
			return 0, ErrTableFull
		}
	}
	if seatN < 1 || seatN > s.cfg.MaxSeats {
		return 0, fmt.Errorf("%w: seat %d outside 1..%d", ErrBadRequest, seatN, s.cfg.MaxSeats)
	}
	if _, ok := s.seats[seatN]; ok {
		return 0, ErrSeatTaken
	}
	if name == "" {
		name = playerID
	}

	st := &seat{
		n: seatN, playerID: playerID, name: name, stack: stack,
		status: protocol.SeatActive, lastBeat: s.opts.Clock.Now(),
	}
	if err := s.saveSeat(ctx, st); err != nil {
		return 0, err
	}
	s.seats[seatN] = st
	return seatN, nil
}

// Leave removes playerID from the table, folding a live hand. It returns the
// chips the player leaves with.
func (s *Session) Leave(ctx context.Context, playerID string) (int, error) {
	var stack int
	err := s.do(ctx, func() error {
		st := s.seatOf(playerID)
		if st == nil {
			return ErrNotSeated
		}
		var err error
		stack, err = s.unseat(ctx, st, protocol.SeatLeave)
		return err
	})
	return stack, err
}

// Kick removes the player in seatN. Only the host may kick.
func (s *Session) Kick(ctx context.Context, requester string, seatN int) error {
	return s.do(ctx, func() error {
		if !s.isHost(requester) {
			return ErrNotAuthorized
		}
		st, ok := s.seats[seatN]
		if !ok {
			return ErrNotSeated
		}
		_, err := s.unseat(ctx, st, protocol.SeatKick)
		return err
	})
}

// Remove takes a tournament entrant off the table between hands, returning
// their stack so it can be placed elsewhere.
func (s *Session) Remove(ctx context.Context, playerID string) (int, error) {
	var stack int
	err := s.do(ctx, func() error {
		st := s.seatOf(playerID)
		if st == nil {
			return ErrNotSeated
		}
		if s.inHand(st) {
			return ErrHandInProgress
		}
		var err error
		stack, err = s.unseat(ctx, st, protocol.SeatMoved)
		return err
	})
	return stack, err
}

func (s *Session) unseat(ctx context.Context, st *seat, reason protocol.SeatChangeReason) (int, error) {
	stack := st.stack
	folded := false
	if s.inHand(st) {
		if err := s.hand.Fold(st.n); err != nil {
			return 0, fmt.Errorf("fold seat %d: %w", st.n, err)
		}
		stack = s.hand.Player(st.n).Stack
		folded = true
	}

	if err := s.opts.Store.DeleteSeat(ctx, s.cfg.ID, st.n); err != nil {
		return 0, fmt.Errorf("delete seat %d: %w", st.n, err)
	}
	delete(s.seats, st.n)
	s.logger.Info("Player left", "player", st.playerID, "seat", st.n, "reason", reason, "stack", stack)
	s.seatChanged(st.n, st.playerID, reason, stack)

	if folded {
		if err := s.afterChange(ctx); err != nil {
			return 0, err
		}
	}
	return stack, nil
}

// Rebuy adds chips to playerID's stack between their hands
func (s *Session) Rebuy(ctx context.Context, playerID string, amount int) error {
	return s.do(ctx, func() error {
		st := s.seatOf(playerID)
		if st == nil {
			return ErrNotSeated
		}
		if s.cfg.TournamentID != "" {
			return fmt.Errorf("%w: no rebuys in tournaments", ErrBadRequest)
		}
		if s.inHand(st) {
			return ErrHandInProgress
		}
		if amount <= 0 || (s.cfg.BuyInMax > 0 && st.stack+amount > s.cfg.BuyInMax) {
			return fmt.Errorf("%w: rebuy of %d onto %d exceeds %d", ErrBadRequest, amount, st.stack, s.cfg.BuyInMax)
		}
		st.stack += amount
		if st.status == protocol.SeatSittingOut {
			st.status = protocol.SeatActive
		}
		if err := s.saveSeat(ctx, st); err != nil {
			return err
		}
		s.seatChanged(st.n, playerID, protocol.SeatRebuy, st.stack)
		return nil
	})
}

// Disconnect marks playerID's seat as disconnected. The seat keeps playing;
// its turns are resolved by timeouts.
func (s *Session) Disconnect(ctx context.Context, playerID string) error {
	return s.do(ctx, func() error {
		st := s.seatOf(playerID)
		if st == nil {
			return ErrNotSeated
		}
		if st.status != protocol.SeatActive {
			return nil
		}
		return s.setStatus(ctx, st, protocol.SeatDisconnected, protocol.SeatDisconnect)
	})
}

// Heartbeat records liveness for playerID, reconnecting a disconnected seat
func (s *Session) Heartbeat(ctx context.Context, playerID string) error {
	return s.Reconnect(ctx, playerID)
}

// Reconnect marks a disconnected seat active again
func (s *Session) Reconnect(ctx context.Context, playerID string) error {
	return s.do(ctx, func() error {
		st := s.seatOf(playerID)
		if st == nil {
			return ErrNotSeated
		}
		st.lastBeat = s.opts.Clock.Now()
		if st.status != protocol.SeatDisconnected {
			return nil
		}
		return s.setStatus(ctx, st, protocol.SeatActive, protocol.SeatReconnect)
	})
}

// Sweep marks seats silent for longer than maxSilence as disconnected and
// returns how many changed.
func (s *Session) Sweep(ctx context.Context, maxSilence time.Duration) (int, error) {
	changed := 0
	err := s.do(ctx, func() error {
		now := s.opts.Clock.Now()
		for _, st := range s.seats {
			if st.status != protocol.SeatActive || now.Sub(st.lastBeat) <= maxSilence {
				continue
			}
			if err := s.setStatus(ctx, st, protocol.SeatDisconnected, protocol.SeatDisconnect); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	return changed, err
}

func (s *Session) setStatus(ctx context.Context, st *seat, status protocol.SeatStatus, reason protocol.SeatChangeReason) error {
	st.status = status
	if err := s.saveSeat(ctx, st); err != nil {
		return err
	}
	s.logger.Debug("Seat status", "player", st.playerID, "seat", st.n, "status", status)
	s.seatChanged(st.n, st.playerID, reason, st.stack)
	return nil
}

// seatChanged bumps the version, then queues the seat change and the new state
func (s *Session) seatChanged(n int, playerID string, reason protocol.SeatChangeReason, stack int) {
	s.version++
	s.emit(protocol.TypeSeatChange, protocol.SeatChange{Seat: n, PlayerID: playerID, Reason: reason, Stack: stack})
	s.emit(protocol.TypeGameState, s.snapshot(""))
}

// Chat relays an emoji reaction from a seated player. It does not change state.
func (s *Session) Chat(ctx context.Context, playerID, emoji string) error {
	return s.do(ctx, func() error {
		st := s.seatOf(playerID)
		if st == nil {
			return ErrNotSeated
		}
		if n := utf8.RuneCountInString(emoji); n == 0 || n > maxEmojiRunes {
			return fmt.Errorf("%w: emoji must be 1..%d characters", ErrBadRequest, maxEmojiRunes)
		}
		s.emit(protocol.TypeChatEmoji, protocol.ChatEmoji{Seat: st.n, PlayerID: playerID, Emoji: emoji})
		return nil
	})
}

// SetBlinds changes the blinds for the next hand
func (s *Session) SetBlinds(ctx context.Context, level, smallBlind, bigBlind, ante int) error {
	return s.do(ctx, func() error {
		if smallBlind <= 0 || bigBlind < smallBlind || ante < 0 {
			return fmt.Errorf("%w: blinds %d/%d ante %d", ErrBadRequest, smallBlind, bigBlind, ante)
		}
		if level == s.blindLevel && smallBlind == s.smallBlind && bigBlind == s.bigBlind && ante == s.ante {
			return nil
		}
		s.blindLevel, s.smallBlind, s.bigBlind, s.ante = level, smallBlind, bigBlind, ante
		s.blindsRaisedAt = s.opts.Clock.Now()
		s.version++
		s.emit(protocol.TypeBlindsUp, protocol.BlindsUp{Level: level, SmallBlind: smallBlind, BigBlind: bigBlind, Ante: ante})
		s.emit(protocol.TypeGameState, s.snapshot(""))
		return s.saveTable(ctx)
	})
}

// Busy reports whether a hand is running
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handActive()
}

// Occupied returns the number of seated players
func (s *Session) Occupied() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seats)
}

// Close shuts the table. Chips committed to a running hand are returned.
func (s *Session) Close(ctx context.Context, requester string) error {
	return s.do(ctx, func() error {
		if !s.isHost(requester) {
			return ErrNotAuthorized
		}
		if s.status == protocol.TableClosed {
			return nil
		}
		if s.handActive() {
			if err := s.voidHand(ctx); err != nil {
				return err
			}
		}

		s.status = protocol.TableClosed
		s.version++
		for n, st := range s.seats {
			s.emit(protocol.TypeSeatChange, protocol.SeatChange{Seat: n, PlayerID: st.playerID, Reason: protocol.SeatTableClosing, Stack: st.stack})
			if err := s.opts.Store.DeleteSeat(ctx, s.cfg.ID, n); err != nil {
				return fmt.Errorf("delete seat %d: %w", n, err)
			}
		}
		s.seats = make(map[int]*seat)
		s.emit(protocol.TypeGameState, s.snapshot(""))
		s.logger.Info("Table closed", "by", requester)
		return s.saveTable(ctx)
	})
}

// voidHand abandons the running hand and refunds every contribution
func (s *Session) voidHand(ctx context.Context) error {
	s.stopRunout()
	for _, p := range s.hand.Players {
		if st, ok := s.seats[p.Seat]; ok && st.playerID == p.ID {
			st.stack = p.Stack + p.Committed
		}
	}
	row, err := s.opts.Store.GetHand(ctx, s.handID)
	if err != nil {
		return fmt.Errorf("load hand %s: %w", s.handID, err)
	}
	now := s.opts.Clock.Now()
	row.Phase = game.PhaseComplete
	row.CompletedAt = &now
	row.Seed = s.seed.String()
	if err := s.opts.Store.UpdateHand(ctx, row); err != nil {
		return fmt.Errorf("void hand %s: %w", s.handID, err)
	}
	s.hand = nil
	s.deadline = time.Time{}
	s.logger.Warn("Hand voided", "hand", s.handID)
	return nil
}

func (s *Session) isHost(requester string) bool {
	return requester == System || (requester != "" && requester == s.cfg.HostID)
}
