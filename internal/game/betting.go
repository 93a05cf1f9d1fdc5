package game

import (
	"fmt"

	"github.com/Silozo17/homeholdem-sub001/internal/deck"
)

// ToCall returns the chips seat needs to add to match the current bet
func (h *Hand) ToCall(seat int) int {
	p := h.Player(seat)
	if p == nil {
		return 0
	}
	return min(max(h.CurrentBet-p.Bet, 0), p.Stack)
}

// MinRaiseTo returns the smallest legal raise-to amount for seat. A player who
// cannot afford a full raise may only raise all-in.
func (h *Hand) MinRaiseTo(seat int) int {
	p := h.Player(seat)
	if p == nil {
		return 0
	}
	return min(h.CurrentBet+h.MinRaise, p.Bet+p.Stack)
}

// MaxRaiseTo returns the all-in raise-to amount for seat
func (h *Hand) MaxRaiseTo(seat int) int {
	p := h.Player(seat)
	if p == nil {
		return 0
	}
	return p.Bet + p.Stack
}

// LegalActions returns the actions seat may take now
func (h *Hand) LegalActions(seat int) []Action {
	p := h.Actor()
	if p == nil || p.Seat != seat || !h.Phase.Betting() || h.runout {
		return nil
	}

	owed := h.CurrentBet - p.Bet
	actions := []Action{Fold}
	if owed <= 0 {
		actions = append(actions, Check)
	} else {
		actions = append(actions, Call)
	}
	if p.Stack > owed {
		actions = append(actions, Raise)
	}
	if p.Stack > 0 {
		actions = append(actions, AllIn)
	}
	return actions
}

// Act applies a decision from the seat to act. Raise amounts are raise-to
// totals for the current round. Nothing is mutated when an error is returned.
func (h *Hand) Act(seat int, action Action, amount int) error {
	if !h.Phase.Betting() || h.runout {
		return ErrNotBetting
	}
	p := h.Actor()
	if p == nil || p.Seat != seat {
		return ErrNotYourTurn
	}

	owed := h.CurrentBet - p.Bet
	before := p.Stack

	switch action {
	case Fold:
		p.Folded = true

	case Check:
		if owed > 0 {
			return fmt.Errorf("%w: cannot check facing %d", ErrIllegalAction, owed)
		}

	case Call:
		if owed <= 0 {
			return fmt.Errorf("%w: nothing to call", ErrIllegalAction)
		}
		h.commit(p, min(owed, p.Stack))

	case Raise:
		allIn := p.Bet + p.Stack
		if p.Stack <= owed {
			return fmt.Errorf("%w: cannot raise with %d behind facing %d", ErrIllegalAction, p.Stack, owed)
		}
		if amount <= h.CurrentBet || amount > allIn {
			return fmt.Errorf("%w: raise to %d outside (%d, %d]", ErrIllegalAmount, amount, h.CurrentBet, allIn)
		}
		if amount < h.CurrentBet+h.MinRaise && amount != allIn {
			return fmt.Errorf("%w: raise to %d below minimum %d", ErrIllegalAmount, amount, h.CurrentBet+h.MinRaise)
		}
		h.raiseTo(p, amount)

	case AllIn:
		if p.Stack == 0 {
			return fmt.Errorf("%w: no chips behind", ErrIllegalAction)
		}
		h.raiseTo(p, p.Bet+p.Stack)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	p.acted = true
	h.Log = append(h.Log, Record{Seat: p.Seat, Action: action, Amount: before - p.Stack, To: p.Bet, Phase: h.Phase})
	h.ActorSeat = h.findActor(h.nextIndex(h.index(p.Seat)))
	h.settle()
	return nil
}

// Fold folds seat regardless of turn order, for players who leave or are
// removed mid-hand. Folding a seat that already folded is a no-op.
func (h *Hand) Fold(seat int) error {
	p := h.Player(seat)
	if p == nil {
		return ErrUnknownSeat
	}
	if p.Folded || h.Complete() {
		return nil
	}

	p.Folded = true
	p.acted = true
	h.Log = append(h.Log, Record{Seat: p.Seat, Action: Fold, To: p.Bet, Phase: h.Phase})
	if h.ActorSeat == seat {
		h.ActorSeat = h.findActor(h.nextIndex(h.index(seat)))
	}
	h.settle()
	return nil
}

// ForceResolve makes the decision for a stalled actor: check when free,
// otherwise fold.
func (h *Hand) ForceResolve(seat int) (Action, error) {
	action := Fold
	if p := h.Actor(); p != nil && p.Seat == seat && h.CurrentBet <= p.Bet {
		action = Check
	}
	return action, h.Act(seat, action, 0)
}

func (h *Hand) commit(p *Player, amount int) {
	p.Stack -= amount
	p.Bet += amount
	p.Committed += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
}

func (h *Hand) raiseTo(p *Player, to int) {
	h.commit(p, to-p.Bet)
	if to <= h.CurrentBet {
		return
	}

	// A short all-in raises the bet without changing the raise size.
	if increase := to - h.CurrentBet; increase >= h.MinRaise {
		h.MinRaise = increase
	}
	h.CurrentBet = to
	h.LastRaiser = p.Seat
	for _, other := range h.Players {
		if other != p {
			other.acted = false
		}
	}
}

// findActor returns the first seat from index start that still owes a decision
func (h *Hand) findActor(start int) int {
	for i := range len(h.Players) {
		p := h.Players[(start+i)%len(h.Players)]
		if p.CanAct() && (!p.acted || p.Bet < h.CurrentBet) {
			return p.Seat
		}
	}
	return 0
}

func (h *Hand) roundComplete() bool {
	var acting []*Player
	for _, p := range h.Players {
		if p.CanAct() {
			acting = append(acting, p)
		}
	}

	switch len(acting) {
	case 0:
		return true
	case 1:
		// Nobody is left to bet against once the last actor covers the bet.
		if acting[0].Bet >= h.CurrentBet {
			return true
		}
	}

	for _, p := range acting {
		if !p.acted || p.Bet != h.CurrentBet {
			return false
		}
	}
	return true
}

// settle advances the hand after any change to betting state
func (h *Hand) settle() {
	if h.Complete() {
		return
	}
	if h.countLive() == 1 {
		h.award(false)
		return
	}
	if h.runout || !h.roundComplete() {
		return
	}
	h.endRound()
}

func (h *Hand) endRound() {
	for _, p := range h.Players {
		p.Bet = 0
		p.acted = false
	}
	h.CurrentBet = 0
	h.MinRaise = h.BigBlind
	h.LastRaiser = 0
	h.ActorSeat = 0

	if h.Phase == PhaseRiver {
		h.showdown()
		return
	}
	if h.countActing() <= 1 {
		h.runout = true
		return
	}

	h.dealStreet()
	h.ActorSeat = h.findActor(h.nextIndex(h.index(h.DealerSeat)))
}

func (h *Hand) dealStreet() []deck.Card {
	n := 1
	if h.Phase == PhasePreflop {
		n = 3
	}
	cards, err := h.deck.Deal(n)
	if err != nil {
		panic(fmt.Sprintf("game: dealing %s: %v", h.Phase.next(), err))
	}
	h.Phase = h.Phase.next()
	h.Board = append(h.Board, cards...)
	return cards
}
