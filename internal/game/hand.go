package game

import (
	"fmt"
	"slices"
	"sort"

	"github.com/Silozo17/homeholdem-sub001/internal/deck"
)

// Player is one seat's participation in a hand
type Player struct {
	Seat      int
	ID        string
	Stack     int
	Bet       int // this round
	Committed int // this hand, including Bet
	Folded    bool
	AllIn     bool
	HoleCards []deck.Card

	acted bool
}

// Live reports whether the player can still win a pot
func (p *Player) Live() bool { return !p.Folded }

// CanAct reports whether the player can still make decisions
func (p *Player) CanAct() bool { return !p.Folded && !p.AllIn }

// Seating is a player entering a hand
type Seating struct {
	Seat  int
	ID    string
	Stack int
}

// Config describes a hand to deal
type Config struct {
	Players    []Seating
	Dealer     int
	SmallBlind int
	BigBlind   int
	Ante       int
	Deck       *deck.Deck
}

// Record is one entry in a hand's action log
type Record struct {
	Seat   int
	Action Action
	// Amount is the chips moved from the stack by this entry
	Amount int
	// To is the seat's round bet after this entry
	To    int
	Phase Phase
}

// Hand is the state of one hand of hold'em
type Hand struct {
	Players []*Player
	Phase   Phase
	Board   []deck.Card

	DealerSeat     int
	SmallBlindSeat int
	BigBlindSeat   int
	SmallBlind     int
	BigBlind       int
	Ante           int

	CurrentBet int
	MinRaise   int
	// LastRaiser is the seat that last increased the bet this round, 0 if none
	LastRaiser int
	// ActorSeat is the seat to act, 0 when nobody is to act
	ActorSeat int

	Log    []Record
	Result *Result

	deck   *deck.Deck
	runout bool
}

// NewHand posts forced bets, deals hole cards and sets the first actor
func NewHand(cfg Config) (*Hand, error) {
	if cfg.Deck == nil {
		return nil, fmt.Errorf("game: deck is required")
	}
	if cfg.BigBlind <= 0 || cfg.SmallBlind < 0 || cfg.Ante < 0 {
		return nil, fmt.Errorf("game: invalid blinds %d/%d ante %d", cfg.SmallBlind, cfg.BigBlind, cfg.Ante)
	}

	players := make([]*Player, 0, len(cfg.Players))
	for _, s := range cfg.Players {
		if s.Stack <= 0 {
			continue
		}
		if slices.ContainsFunc(players, func(p *Player) bool { return p.Seat == s.Seat }) {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateSeat, s.Seat)
		}
		players = append(players, &Player{Seat: s.Seat, ID: s.ID, Stack: s.Stack})
	}
	if len(players) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Seat < players[j].Seat })

	h := &Hand{
		Players:    players,
		Phase:      PhasePreflop,
		DealerSeat: cfg.Dealer,
		SmallBlind: cfg.SmallBlind,
		BigBlind:   cfg.BigBlind,
		Ante:       cfg.Ante,
		MinRaise:   cfg.BigBlind,
		deck:       cfg.Deck,
	}

	dealer := h.index(cfg.Dealer)
	if dealer < 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadDealer, cfg.Dealer)
	}

	// Heads-up the dealer posts the small blind and acts first preflop.
	sb := h.nextIndex(dealer)
	if len(players) == 2 {
		sb = dealer
	}
	bb := h.nextIndex(sb)
	h.SmallBlindSeat = players[sb].Seat
	h.BigBlindSeat = players[bb].Seat

	if cfg.Ante > 0 {
		for _, p := range players {
			h.post(p, PostAnte, cfg.Ante)
		}
		// Antes are dead money, not part of the round bet.
		for _, p := range players {
			p.Bet = 0
		}
	}
	h.post(players[sb], PostSmallBlind, cfg.SmallBlind)
	h.post(players[bb], PostBigBlind, cfg.BigBlind)
	h.CurrentBet = cfg.BigBlind

	for range 2 {
		for _, p := range players {
			cards, err := h.deck.Deal(1)
			if err != nil {
				return nil, err
			}
			p.HoleCards = append(p.HoleCards, cards...)
		}
	}

	first := h.nextIndex(bb)
	if len(players) == 2 {
		first = sb
	}
	h.ActorSeat = h.findActor(first)
	h.settle()
	return h, nil
}

func (h *Hand) post(p *Player, action Action, amount int) {
	amount = min(amount, p.Stack)
	if amount <= 0 {
		return
	}
	p.Stack -= amount
	p.Bet += amount
	p.Committed += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
	h.Log = append(h.Log, Record{Seat: p.Seat, Action: action, Amount: amount, To: p.Bet, Phase: h.Phase})
}

// Player returns the player in seat, or nil
func (h *Hand) Player(seat int) *Player {
	if i := h.index(seat); i >= 0 {
		return h.Players[i]
	}
	return nil
}

// Actor returns the player to act, or nil
func (h *Hand) Actor() *Player {
	if h.ActorSeat == 0 {
		return nil
	}
	return h.Player(h.ActorSeat)
}

// Pot is the total of all chips committed so far
func (h *Hand) Pot() int {
	total := 0
	for _, p := range h.Players {
		total += p.Committed
	}
	return total
}

// Complete reports whether the hand has been settled
func (h *Hand) Complete() bool { return h.Phase == PhaseComplete }

// RunoutPending reports whether streets remain to be dealt without action
func (h *Hand) RunoutPending() bool { return h.runout && !h.Complete() }

// AdvanceRunout deals the next street of an all-in runout, settling the hand
// after the river. It returns the cards dealt.
func (h *Hand) AdvanceRunout() []deck.Card {
	if !h.RunoutPending() {
		return nil
	}
	if h.Phase == PhaseRiver {
		h.showdown()
		return nil
	}
	return h.dealStreet()
}

func (h *Hand) index(seat int) int {
	for i, p := range h.Players {
		if p.Seat == seat {
			return i
		}
	}
	return -1
}

func (h *Hand) nextIndex(i int) int {
	return (i + 1) % len(h.Players)
}

// Order returns seats starting left of the dealer
func (h *Hand) Order() []int {
	d := h.index(h.DealerSeat)
	order := make([]int, 0, len(h.Players))
	for i := 1; i <= len(h.Players); i++ {
		order = append(order, h.Players[(d+i)%len(h.Players)].Seat)
	}
	return order
}

func (h *Hand) countLive() int {
	n := 0
	for _, p := range h.Players {
		if p.Live() {
			n++
		}
	}
	return n
}

func (h *Hand) countActing() int {
	n := 0
	for _, p := range h.Players {
		if p.CanAct() {
			n++
		}
	}
	return n
}
