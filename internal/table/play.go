package table

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Silozo17/homeholdem-sub001/internal/deck"
	"github.com/Silozo17/homeholdem-sub001/internal/game"
	"github.com/Silozo17/homeholdem-sub001/internal/gameid"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
	"github.com/Silozo17/homeholdem-sub001/internal/store"
)

// Deal starts the next hand. The requester must be seated, the host or System.
func (s *Session) Deal(ctx context.Context, requester string) (string, protocol.PublicState, error) {
	var (
		handID string
		state  protocol.PublicState
	)
	err := s.do(ctx, func() error {
		if s.status == protocol.TableClosed {
			return ErrClosed
		}
		if !s.isHost(requester) && s.seatOf(requester) == nil {
			return ErrNotAuthorized
		}
		if s.handActive() {
			return ErrHandInProgress
		}
		if err := s.deal(ctx); err != nil {
			return err
		}
		handID = s.handID
		state = s.snapshot("")
		return nil
	})
	return handID, state, err
}

func (s *Session) deal(ctx context.Context) (err error) {
	now := s.opts.Clock.Now()
	funded := s.funded()
	if len(funded) < 2 {
		return ErrInsufficientPlayers
	}

	// Blinds only move with a hand that actually starts.
	level, sb, bb, ante, raisedAt := s.blindLevel, s.smallBlind, s.bigBlind, s.ante, s.blindsRaisedAt
	queued := len(s.outbox)
	defer func() {
		if err != nil {
			s.blindLevel, s.smallBlind, s.bigBlind, s.ante, s.blindsRaisedAt = level, sb, bb, ante, raisedAt
			s.outbox = s.outbox[:queued]
		}
	}()
	s.raiseBlinds(now)

	dealer := funded[0].n
	for _, st := range funded {
		if st.n > s.dealerSeat {
			dealer = st.n
			break
		}
	}

	seed, err := s.opts.NewSeed()
	if err != nil {
		return fmt.Errorf("draw seed: %w", err)
	}
	seating := make([]game.Seating, 0, len(funded))
	for _, st := range funded {
		seating = append(seating, game.Seating{Seat: st.n, ID: st.playerID, Stack: st.stack})
	}
	h, err := game.NewHand(game.Config{
		Players:    seating,
		Dealer:     dealer,
		SmallBlind: s.smallBlind,
		BigBlind:   s.bigBlind,
		Ante:       s.ante,
		Deck:       deck.Shuffled(seed),
	})
	if err != nil {
		return fmt.Errorf("new hand: %w", err)
	}

	handID := gameid.New()
	commitment := deck.Commit(seed)
	row := store.Hand{
		ID: handID, TableID: s.cfg.ID, Number: s.handNumber + 1,
		DealerSeat: h.DealerSeat, SmallBlindSeat: h.SmallBlindSeat, BigBlindSeat: h.BigBlindSeat,
		SmallBlind: h.SmallBlind, BigBlind: h.BigBlind, Ante: h.Ante,
		Phase: h.Phase, Board: []deck.Card{}, Commitment: commitment, Seed: seed.String(),
		Version: s.version + 1, StartedAt: now,
	}
	holes := make([]store.HoleCards, 0, len(h.Players))
	for _, p := range h.Players {
		holes = append(holes, store.HoleCards{HandID: handID, Seat: p.Seat, PlayerID: p.ID, Cards: p.HoleCards})
	}
	if err := s.opts.Store.CreateHand(ctx, row, holes); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrHandInProgress
		}
		return fmt.Errorf("create hand: %w", err)
	}

	s.hand = h
	s.handID = handID
	s.handNumber++
	s.dealerSeat = dealer
	s.seed = seed
	s.commitment = commitment
	s.startedAt = now
	s.logged = 0
	s.status = protocol.TablePlaying
	for _, st := range s.seats {
		st.lastAction = ""
	}
	if err := s.saveTable(ctx); err != nil {
		return err
	}

	s.logger.Info("Dealing", "hand", handID, "number", s.handNumber, "dealer", dealer, "players", len(h.Players))
	s.version++
	s.emit(protocol.TypeGameState, s.snapshot(game.PhaseDealing))
	return s.afterChange(ctx)
}

// raiseBlinds applies every blind level that elapsed since the last raise
func (s *Session) raiseBlinds(now time.Time) {
	interval := s.cfg.BlindInterval
	if interval <= 0 || s.blindsRaisedAt.IsZero() {
		return
	}
	levels := int(now.Sub(s.blindsRaisedAt) / interval)
	for range levels {
		s.blindLevel++
		s.smallBlind *= 2
		s.bigBlind *= 2
		s.ante *= 2
		s.emit(protocol.TypeBlindsUp, protocol.BlindsUp{
			Level: s.blindLevel, SmallBlind: s.smallBlind, BigBlind: s.bigBlind, Ante: s.ante,
		})
	}
	if levels > 0 {
		s.blindsRaisedAt = s.blindsRaisedAt.Add(time.Duration(levels) * interval)
		s.logger.Info("Blinds up", "level", s.blindLevel, "blinds", fmt.Sprintf("%d/%d", s.smallBlind, s.bigBlind))
	}
}

// Act applies playerID's decision to the running hand
func (s *Session) Act(ctx context.Context, playerID, handID string, action game.Action, amount int) error {
	return s.do(ctx, func() error {
		st := s.seatOf(playerID)
		if st == nil {
			return ErrNotSeated
		}
		if !s.handActive() || handID != s.handID {
			return ErrStaleHand
		}
		if s.hand.ActorSeat != st.n || !s.inHand(st) {
			return ErrNotYourTurn
		}
		if err := s.hand.Act(st.n, action, amount); err != nil {
			if errors.Is(err, game.ErrNotYourTurn) {
				return ErrNotYourTurn
			}
			return fmt.Errorf("%w: %v", ErrIllegalAction, err)
		}
		s.logger.Debug("Action", "hand", handID, "seat", st.n, "action", action, "amount", amount)
		return s.afterChange(ctx)
	})
}

// ResolveTimeout force-resolves the actor of handID once their deadline has
// passed: check when free, otherwise fold. It reports whether anything
// changed; early, repeated or stale calls are no-ops.
func (s *Session) ResolveTimeout(ctx context.Context, handID string) (bool, error) {
	resolved := false
	err := s.do(ctx, func() error {
		if !s.handActive() || (handID != "" && handID != s.handID) {
			return nil
		}
		seatN := s.hand.ActorSeat
		if seatN == 0 || s.opts.Clock.Now().Before(s.deadline) {
			return nil
		}
		action, err := s.hand.ForceResolve(seatN)
		if err != nil {
			return fmt.Errorf("resolve seat %d: %w", seatN, err)
		}
		s.logger.Info("Turn timed out", "hand", s.handID, "seat", seatN, "action", action)
		resolved = true
		return s.afterChange(ctx)
	})
	return resolved, err
}

// Deadline returns the current actor's deadline, zero when nobody is to act
func (s *Session) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.handActive() || s.hand.ActorSeat == 0 {
		return time.Time{}
	}
	return s.deadline
}

// afterChange writes through whatever the hand just did and publishes it
func (s *Session) afterChange(ctx context.Context) error {
	h := s.hand
	now := s.opts.Clock.Now()

	if len(h.Log) > s.logged {
		records := make([]protocol.ActionRecord, 0, len(h.Log)-s.logged)
		for i := s.logged; i < len(h.Log); i++ {
			r := h.Log[i]
			records = append(records, protocol.ActionRecord{
				HandID: s.handID, Sequence: i + 1, Seat: r.Seat,
				Action: r.Action, Amount: r.Amount, Phase: r.Phase, At: now,
			})
			if st, ok := s.seats[r.Seat]; ok {
				st.lastAction = string(r.Action)
			}
		}
		if err := s.opts.Store.AppendActions(ctx, records); err != nil {
			return fmt.Errorf("append actions: %w", err)
		}
		s.logged = len(h.Log)
	}

	if h.Complete() {
		return s.settle(ctx)
	}

	if h.ActorSeat != 0 {
		s.deadline = now.Add(s.opts.ActionTimeout)
	} else {
		s.deadline = time.Time{}
	}
	s.version++
	if err := s.saveHand(ctx, nil); err != nil {
		return err
	}
	s.emit(protocol.TypeGameState, s.snapshot(""))

	if h.RunoutPending() {
		return s.scheduleRunout(ctx)
	}
	return nil
}

// scheduleRunout deals the next all-in street, paced by RunoutDelay
func (s *Session) scheduleRunout(ctx context.Context) error {
	if s.opts.RunoutDelay <= 0 {
		s.hand.AdvanceRunout()
		return s.afterChange(ctx)
	}
	s.stopRunout()
	handID := s.handID
	s.runout = s.opts.Clock.AfterFunc(s.opts.RunoutDelay, func() {
		err := s.do(context.Background(), func() error {
			if !s.handActive() || s.handID != handID || !s.hand.RunoutPending() {
				return nil
			}
			s.hand.AdvanceRunout()
			return s.afterChange(context.Background())
		})
		if err != nil {
			s.logger.Error("Runout failed", "hand", handID, "error", err)
		}
	}, "runout")
	return nil
}

func (s *Session) stopRunout() {
	if s.runout != nil {
		s.runout.Stop()
		s.runout = nil
	}
}

// settle pays out a completed hand and reveals its seed
func (s *Session) settle(ctx context.Context) error {
	h := s.hand
	s.stopRunout()
	s.deadline = time.Time{}

	for _, p := range h.Players {
		st, ok := s.seats[p.Seat]
		if !ok || st.playerID != p.ID {
			continue
		}
		st.stack = p.Stack
		if st.stack == 0 && st.status == protocol.SeatActive {
			st.status = protocol.SeatSittingOut
		}
		if err := s.saveSeat(ctx, st); err != nil {
			return err
		}
	}

	now := s.opts.Clock.Now()
	s.status = protocol.TableWaiting
	s.version++
	if err := s.saveHand(ctx, &now); err != nil {
		return err
	}
	if err := s.saveTable(ctx); err != nil {
		return err
	}

	result := protocol.HandResult{
		HandID: s.handID, HandNumber: s.handNumber,
		Board: append([]deck.Card{}, h.Board...), Pots: publicPots(h.Result),
		Winners: h.Result.Winners, Reveals: h.Result.Reveals, Commitment: s.commitment,
	}
	s.emit(protocol.TypeGameState, s.snapshot(""))
	s.emit(protocol.TypeHandResult, result)
	result.Seed = s.seed.String()
	s.emit(protocol.TypeHandComplete, result)

	for _, w := range h.Result.Winners {
		s.logger.Info("Pot awarded", "hand", s.handID, "seat", w.Seat, "amount", w.Amount, "hand_name", w.HandName)
	}
	if len(s.funded()) < 2 {
		s.logger.Info("Game over", "hand", s.handID)
	}
	return nil
}

func (s *Session) saveHand(ctx context.Context, completedAt *time.Time) error {
	h := s.hand
	row := store.Hand{
		ID: s.handID, TableID: s.cfg.ID, Number: s.handNumber,
		DealerSeat: h.DealerSeat, SmallBlindSeat: h.SmallBlindSeat, BigBlindSeat: h.BigBlindSeat,
		SmallBlind: h.SmallBlind, BigBlind: h.BigBlind, Ante: h.Ante,
		Phase: h.Phase, Board: append([]deck.Card{}, h.Board...), Commitment: s.commitment,
		Seed: s.seed.String(), Version: s.version, Result: h.Result,
		StartedAt: s.startedAt, CompletedAt: completedAt,
	}
	if err := s.opts.Store.UpdateHand(ctx, row); err != nil {
		return fmt.Errorf("update hand %s: %w", s.handID, err)
	}
	return nil
}

// MyCards returns playerID's hole cards for handID, or the current hand when
// handID is empty. Cards is empty when the player was not dealt in.
func (s *Session) MyCards(ctx context.Context, playerID, handID string) (protocol.MyCards, error) {
	s.mu.Lock()
	if handID == "" {
		handID = s.handID
	}
	out := protocol.MyCards{HandID: handID, Cards: []deck.Card{}}
	if handID == "" {
		s.mu.Unlock()
		return out, nil
	}
	if s.hand != nil && handID == s.handID {
		for _, p := range s.hand.Players {
			if p.ID == playerID {
				out.Seat = p.Seat
				out.Cards = append(out.Cards, p.HoleCards...)
				break
			}
		}
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	holes, err := s.opts.Store.HoleCards(ctx, handID, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("load hole cards: %w", err)
	}
	out.Seat = holes.Seat
	out.Cards = append(out.Cards, holes.Cards...)
	return out, nil
}

// Actions returns the action log of handID
func (s *Session) Actions(ctx context.Context, handID string) ([]protocol.ActionRecord, error) {
	h, err := s.opts.Store.GetHand(ctx, handID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && h.TableID != s.cfg.ID) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load hand: %w", err)
	}
	return s.opts.Store.Actions(ctx, handID)
}

// Result returns the settled result of handID with its seed revealed
func (s *Session) Result(ctx context.Context, handID string) (protocol.HandResult, error) {
	h, err := s.opts.Store.GetHand(ctx, handID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && h.TableID != s.cfg.ID) {
		return protocol.HandResult{}, ErrNotFound
	}
	if err != nil {
		return protocol.HandResult{}, fmt.Errorf("load hand: %w", err)
	}
	if h.Phase != game.PhaseComplete || h.Result == nil {
		return protocol.HandResult{}, ErrHandInProgress
	}
	return protocol.HandResult{
		HandID: h.ID, HandNumber: h.Number, Board: h.Board, Pots: publicPots(h.Result),
		Winners: h.Result.Winners, Reveals: h.Result.Reveals, Commitment: h.Commitment, Seed: h.Seed,
	}, nil
}
