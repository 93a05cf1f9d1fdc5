package game

import (
	"errors"
	"slices"
	"testing"

	"github.com/Silozo17/homeholdem-sub001/internal/deck"
	"github.com/Silozo17/homeholdem-sub001/internal/randutil"
)

func seated(stacks ...int) []Seating {
	out := make([]Seating, len(stacks))
	for i, s := range stacks {
		out[i] = Seating{Seat: i + 1, ID: string(rune('a' + i)), Stack: s}
	}
	return out
}

func newHand(t *testing.T, cfg Config) *Hand {
	t.Helper()
	if cfg.Deck == nil {
		cfg.Deck = deck.Shuffled(randutil.SeedFrom(1))
	}
	h, err := NewHand(cfg)
	if err != nil {
		t.Fatalf("NewHand: %v", err)
	}
	return h
}

func mustAct(t *testing.T, h *Hand, seat int, action Action, amount int) {
	t.Helper()
	if err := h.Act(seat, action, amount); err != nil {
		t.Fatalf("seat %d %s %d: %v", seat, action, amount, err)
	}
}

func stackTotal(h *Hand) int {
	total := 0
	for _, p := range h.Players {
		total += p.Stack
	}
	return total
}

func TestFourPlayerRaiseCallScenario(t *testing.T) {
	t.Parallel()

	// Seat 1 deals, 2 and 3 post 50/100, seat 4 opens the action.
	h := newHand(t, Config{Players: seated(1000, 1000, 1000, 1000), Dealer: 1, SmallBlind: 50, BigBlind: 100})

	if h.SmallBlindSeat != 2 || h.BigBlindSeat != 3 || h.ActorSeat != 4 {
		t.Fatalf("positions sb=%d bb=%d actor=%d", h.SmallBlindSeat, h.BigBlindSeat, h.ActorSeat)
	}

	mustAct(t, h, 4, Fold, 0)
	mustAct(t, h, 1, Call, 0)
	mustAct(t, h, 2, Raise, 300)
	mustAct(t, h, 3, Fold, 0)
	mustAct(t, h, 1, Call, 0)

	if got := h.Pot(); got != 700 {
		t.Fatalf("pot = %d, want 700", got)
	}
	if h.Phase != PhaseFlop {
		t.Fatalf("phase = %s, want flop", h.Phase)
	}
	if len(h.Board) != 3 {
		t.Fatalf("board has %d cards, want 3", len(h.Board))
	}
	for _, p := range h.Players {
		if p.Bet != 0 {
			t.Errorf("seat %d bet %d after street change", p.Seat, p.Bet)
		}
	}
	if h.CurrentBet != 0 || h.MinRaise != 100 {
		t.Errorf("current bet %d min raise %d", h.CurrentBet, h.MinRaise)
	}
	// First live seat left of the dealer opens the flop.
	if h.ActorSeat != 2 {
		t.Errorf("flop actor = %d, want 2", h.ActorSeat)
	}
}

func TestHeadsUpDealerPostsSmallBlind(t *testing.T) {
	t.Parallel()

	h := newHand(t, Config{Players: []Seating{{Seat: 3, ID: "x", Stack: 500}, {Seat: 7, ID: "y", Stack: 500}}, Dealer: 7, SmallBlind: 5, BigBlind: 10})

	if h.SmallBlindSeat != 7 || h.BigBlindSeat != 3 {
		t.Fatalf("heads-up blinds sb=%d bb=%d", h.SmallBlindSeat, h.BigBlindSeat)
	}
	if h.ActorSeat != 7 {
		t.Fatalf("dealer should act first preflop, actor=%d", h.ActorSeat)
	}

	mustAct(t, h, 7, Call, 0)
	if h.Phase != PhasePreflop || h.ActorSeat != 3 {
		t.Fatalf("big blind should get the option, phase=%s actor=%d", h.Phase, h.ActorSeat)
	}
	mustAct(t, h, 3, Check, 0)

	if h.Phase != PhaseFlop {
		t.Fatalf("phase = %s, want flop", h.Phase)
	}
	if h.ActorSeat != 3 {
		t.Errorf("big blind acts first after the flop, actor=%d", h.ActorSeat)
	}
}

func TestBigBlindOptionAndCheckAround(t *testing.T) {
	t.Parallel()

	h := newHand(t, Config{Players: seated(1000, 1000, 1000), Dealer: 1, SmallBlind: 10, BigBlind: 20})

	mustAct(t, h, 1, Call, 0)
	mustAct(t, h, 2, Call, 0)
	if h.ActorSeat != 3 || h.Phase != PhasePreflop {
		t.Fatalf("big blind option skipped: actor=%d phase=%s", h.ActorSeat, h.Phase)
	}
	if got := h.LegalActions(3); !slices.Contains(got, Check) || slices.Contains(got, Call) {
		t.Fatalf("big blind legal actions = %v", got)
	}
	mustAct(t, h, 3, Check, 0)

	for _, want := range []Phase{PhaseTurn, PhaseRiver} {
		for _, seat := range []int{2, 3, 1} {
			mustAct(t, h, seat, Check, 0)
		}
		if h.Phase != want {
			t.Fatalf("phase = %s, want %s", h.Phase, want)
		}
	}
	for _, seat := range []int{2, 3, 1} {
		mustAct(t, h, seat, Check, 0)
	}
	if !h.Complete() || !h.Result.Showdown {
		t.Fatalf("river check-around should show down, phase=%s", h.Phase)
	}
	if stackTotal(h) != 3000 {
		t.Errorf("chips not conserved: %d", stackTotal(h))
	}
}

func TestRaiseSizing(t *testing.T) {
	t.Parallel()

	h := newHand(t, Config{Players: seated(1000, 350, 1000), Dealer: 1, SmallBlind: 50, BigBlind: 100})

	// Seat 1 is under the gun three-handed.
	if h.MinRaiseTo(1) != 200 {
		t.Fatalf("min raise to = %d, want 200", h.MinRaiseTo(1))
	}
	mustAct(t, h, 1, Raise, 300)
	if h.CurrentBet != 300 || h.MinRaise != 200 || h.LastRaiser != 1 {
		t.Fatalf("after raise: bet=%d minRaise=%d lastRaiser=%d", h.CurrentBet, h.MinRaise, h.LastRaiser)
	}

	// Seat 2 has 300 behind the small blind: an all-in to 350 is short of 500.
	if err := h.Act(2, Raise, 340); !errors.Is(err, ErrIllegalAmount) {
		t.Fatalf("short non-all-in raise: %v", err)
	}
	mustAct(t, h, 2, Raise, 350)
	if !h.Player(2).AllIn {
		t.Fatal("seat 2 should be all-in")
	}
	if h.CurrentBet != 350 || h.MinRaise != 200 {
		t.Fatalf("short all-in changed raise size: bet=%d minRaise=%d", h.CurrentBet, h.MinRaise)
	}
	if h.MinRaiseTo(3) != 550 {
		t.Errorf("next min raise to = %d, want 550", h.MinRaiseTo(3))
	}
}

func TestIllegalActionsDoNotMutate(t *testing.T) {
	t.Parallel()

	h := newHand(t, Config{Players: seated(1000, 1000, 1000), Dealer: 1, SmallBlind: 10, BigBlind: 20})
	stacks := []int{h.Player(1).Stack, h.Player(2).Stack, h.Player(3).Stack}
	logLen := len(h.Log)

	tests := []struct {
		name   string
		seat   int
		action Action
		amount int
		want   error
	}{
		{"out of turn", 2, Call, 0, ErrNotYourTurn},
		{"check facing bet", 1, Check, 0, ErrIllegalAction},
		{"raise below minimum", 1, Raise, 30, ErrIllegalAmount},
		{"raise beyond stack", 1, Raise, 5000, ErrIllegalAmount},
		{"raise not above bet", 1, Raise, 20, ErrIllegalAmount},
		{"unknown action", 1, Action("dance"), 0, ErrUnknownAction},
	}
	for _, tt := range tests {
		if err := h.Act(tt.seat, tt.action, tt.amount); !errors.Is(err, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, err, tt.want)
		}
	}

	for i, seat := range []int{1, 2, 3} {
		if h.Player(seat).Stack != stacks[i] {
			t.Errorf("seat %d stack changed to %d", seat, h.Player(seat).Stack)
		}
	}
	if len(h.Log) != logLen || h.ActorSeat != 1 {
		t.Errorf("rejected actions changed the hand: log=%d actor=%d", len(h.Log), h.ActorSeat)
	}
}

func TestFoldToBigBlind(t *testing.T) {
	t.Parallel()

	h := newHand(t, Config{Players: seated(1000, 1000, 1000), Dealer: 1, SmallBlind: 10, BigBlind: 20})
	mustAct(t, h, 1, Fold, 0)
	mustAct(t, h, 2, Fold, 0)

	if !h.Complete() {
		t.Fatal("hand should end when one player remains")
	}
	if h.Result.Showdown || len(h.Result.Reveals) != 0 {
		t.Error("uncontested hands reveal nothing")
	}
	if len(h.Board) != 0 {
		t.Errorf("no streets should be dealt, board=%v", h.Board)
	}
	if len(h.Result.Winners) != 1 || h.Result.Winners[0].Seat != 3 || h.Result.Winners[0].Amount != 30 {
		t.Fatalf("winners = %+v", h.Result.Winners)
	}
	if h.Player(3).Stack != 1010 {
		t.Errorf("big blind stack = %d", h.Player(3).Stack)
	}
}

func TestAntesAndShortBlinds(t *testing.T) {
	t.Parallel()

	h := newHand(t, Config{Players: seated(1000, 15, 1000), Dealer: 1, SmallBlind: 10, BigBlind: 20, Ante: 5})

	if got := h.Pot(); got != 5*3+10+20 {
		t.Fatalf("pot after forced bets = %d", got)
	}
	var antes int
	for _, r := range h.Log {
		if r.Action == PostAnte {
			antes++
		}
	}
	if antes != 3 {
		t.Errorf("ante records = %d", antes)
	}
	if !h.Player(2).AllIn || h.Player(2).Committed != 15 {
		t.Errorf("short small blind: %+v", h.Player(2))
	}
	if h.CurrentBet != 20 {
		t.Errorf("current bet = %d", h.CurrentBet)
	}
}

func TestThreeWayAllInBuildsThreePots(t *testing.T) {
	t.Parallel()

	stacked := deck.MustParseCards("As Ks Qs Ad Kd Qd 2c 7d 9h Js 3c")
	h := newHand(t, Config{Players: seated(100, 300, 900), Dealer: 1, SmallBlind: 5, BigBlind: 10, Deck: deck.FromCards(stacked)})

	mustAct(t, h, 1, AllIn, 0)
	mustAct(t, h, 2, AllIn, 0)
	mustAct(t, h, 3, Call, 0)

	if !h.RunoutPending() {
		t.Fatal("expected an all-in runout")
	}
	var dealt []int
	for h.RunoutPending() {
		dealt = append(dealt, len(h.AdvanceRunout()))
	}
	if !slices.Equal(dealt, []int{3, 1, 1, 0}) {
		t.Fatalf("runout dealt %v", dealt)
	}

	r := h.Result
	if len(r.Pots) != 3 {
		t.Fatalf("pots = %+v", r.Pots)
	}
	wantPots := []struct {
		amount   int
		eligible []int
	}{{300, []int{1, 2, 3}}, {400, []int{2, 3}}, {600, []int{3}}}
	for i, want := range wantPots {
		if r.Pots[i].Amount != want.amount || !slices.Equal(r.Pots[i].Eligible, want.eligible) {
			t.Errorf("pot %d = %+v", i, r.Pots[i])
		}
	}

	if h.Player(1).Stack != 300 || h.Player(2).Stack != 400 || h.Player(3).Stack != 600 {
		t.Errorf("stacks = %d/%d/%d", h.Player(1).Stack, h.Player(2).Stack, h.Player(3).Stack)
	}
	if len(r.Reveals) != 3 {
		t.Errorf("reveals = %+v", r.Reveals)
	}
	for _, w := range r.Winners {
		if w.Seat == 1 && w.HandName != "Pair of Aces" {
			t.Errorf("seat 1 hand name = %q", w.HandName)
		}
	}
}

func TestAllInReopenedActionReturnsToRaiser(t *testing.T) {
	t.Parallel()

	h := newHand(t, Config{Players: seated(1000, 600, 1000), Dealer: 1, SmallBlind: 10, BigBlind: 20})

	mustAct(t, h, 1, Raise, 100)
	mustAct(t, h, 2, AllIn, 0) // full raise to 600
	mustAct(t, h, 3, Call, 0)
	if h.ActorSeat != 1 || h.Phase != PhasePreflop {
		t.Fatalf("raiser must act again, actor=%d phase=%s", h.ActorSeat, h.Phase)
	}
	mustAct(t, h, 1, Call, 0)
	if h.Phase != PhaseFlop {
		t.Fatalf("phase = %s, want flop", h.Phase)
	}
	if h.ActorSeat != 3 {
		t.Errorf("flop actor = %d, want 3 (seat 2 is all-in)", h.ActorSeat)
	}
}

func TestShortAllInReopensWithoutChangingRaiseSize(t *testing.T) {
	t.Parallel()

	h := newHand(t, Config{Players: seated(1000, 130, 1000), Dealer: 1, SmallBlind: 10, BigBlind: 20})

	mustAct(t, h, 1, Raise, 100)
	mustAct(t, h, 2, AllIn, 0) // 30 more, short of a full raise
	mustAct(t, h, 3, Call, 0)
	if h.ActorSeat != 1 {
		t.Fatalf("actor = %d, want the original raiser", h.ActorSeat)
	}
	if !slices.Contains(h.LegalActions(1), Raise) {
		t.Errorf("raiser should be allowed to re-raise: %v", h.LegalActions(1))
	}
	if got := h.MinRaiseTo(1); got != 210 {
		t.Errorf("MinRaiseTo = %d, want 210", got)
	}
}

func TestForceResolve(t *testing.T) {
	t.Parallel()

	h := newHand(t, Config{Players: seated(1000, 1000), Dealer: 1, SmallBlind: 10, BigBlind: 20})

	if _, err := h.ForceResolve(2); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("resolving a non-actor: %v", err)
	}
	action, err := h.ForceResolve(1)
	if err != nil || action != Fold {
		t.Fatalf("facing a bet should fold: %s %v", action, err)
	}
	if !h.Complete() {
		t.Fatal("hand should be over")
	}

	h = newHand(t, Config{Players: seated(1000, 1000), Dealer: 1, SmallBlind: 10, BigBlind: 20})
	mustAct(t, h, 1, Call, 0)
	action, err = h.ForceResolve(2)
	if err != nil || action != Check {
		t.Fatalf("free option should check: %s %v", action, err)
	}
}

func TestFoldOutOfTurn(t *testing.T) {
	t.Parallel()

	h := newHand(t, Config{Players: seated(1000, 1000, 1000), Dealer: 1, SmallBlind: 10, BigBlind: 20})
	if err := h.Fold(3); err != nil {
		t.Fatal(err)
	}
	if h.ActorSeat != 1 {
		t.Fatalf("actor = %d", h.ActorSeat)
	}
	if err := h.Fold(1); err != nil {
		t.Fatal(err)
	}
	if !h.Complete() || h.Result.Winners[0].Seat != 2 {
		t.Fatalf("seat 2 should win uncontested: %+v", h.Result)
	}
	if err := h.Fold(1); err != nil {
		t.Errorf("repeat fold should be a no-op: %v", err)
	}
	if err := h.Fold(9); !errors.Is(err, ErrUnknownSeat) {
		t.Errorf("unknown seat: %v", err)
	}
}

func TestBlindsFoldLeavingUnfundedDealer(t *testing.T) {
	t.Parallel()

	h := newHand(t, Config{Players: seated(1000, 1000, 1000), Dealer: 1, SmallBlind: 50, BigBlind: 100})
	if h.ActorSeat != 1 {
		t.Fatalf("actor = %d", h.ActorSeat)
	}
	for _, seat := range []int{2, 3} {
		if err := h.Fold(seat); err != nil {
			t.Fatal(err)
		}
	}
	if !h.Complete() {
		t.Fatal("hand should be complete")
	}
	if got := stackTotal(h); got != 3000 {
		t.Errorf("chips not conserved: %d", got)
	}
	if len(h.Result.Winners) != 1 || h.Result.Winners[0].Seat != 1 || h.Result.Winners[0].Amount != 150 {
		t.Errorf("dealer should collect the blinds: %+v", h.Result.Winners)
	}
}

func TestNewHandValidation(t *testing.T) {
	t.Parallel()

	d := deck.Shuffled(randutil.SeedFrom(3))
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"one player", Config{Players: seated(100), Dealer: 1, SmallBlind: 1, BigBlind: 2, Deck: d}, ErrNotEnoughPlayers},
		{"busted players skipped", Config{Players: seated(100, 0), Dealer: 1, SmallBlind: 1, BigBlind: 2, Deck: d}, ErrNotEnoughPlayers},
		{"dealer missing", Config{Players: seated(100, 100), Dealer: 5, SmallBlind: 1, BigBlind: 2, Deck: d}, ErrBadDealer},
		{"duplicate seat", Config{Players: []Seating{{Seat: 1, Stack: 5}, {Seat: 1, Stack: 5}}, Dealer: 1, SmallBlind: 1, BigBlind: 2, Deck: d}, ErrDuplicateSeat},
	}
	for _, tt := range tests {
		if _, err := NewHand(tt.cfg); !errors.Is(err, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestHoleCardsDealtInSeatOrder(t *testing.T) {
	t.Parallel()

	stacked := deck.MustParseCards("2c 3c 4c 5c 6c 7c 8c 9c Tc")
	h := newHand(t, Config{Players: seated(100, 100, 100), Dealer: 2, SmallBlind: 1, BigBlind: 2, Deck: deck.FromCards(stacked)})

	want := map[int]string{1: "2c5c", 2: "3c6c", 3: "4c7c"}
	for seat, cards := range want {
		got := h.Player(seat).HoleCards
		if got[0].String()+got[1].String() != cards {
			t.Errorf("seat %d got %v, want %s", seat, got, cards)
		}
	}
}
