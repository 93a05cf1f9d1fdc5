package game

import (
	"sort"

	"github.com/Silozo17/homeholdem-sub001/internal/deck"
	"github.com/Silozo17/homeholdem-sub001/internal/evaluator"
	"github.com/Silozo17/homeholdem-sub001/internal/pot"
)

// Winner is a seat's total winnings from a hand
type Winner struct {
	Seat     int    `json:"seat"`
	PlayerID string `json:"player_id"`
	Amount   int    `json:"amount"`
	HandName string `json:"hand_name,omitempty"`
}

// Reveal is a hand shown at showdown
type Reveal struct {
	Seat      int         `json:"seat"`
	PlayerID  string      `json:"player_id"`
	HoleCards []deck.Card `json:"hole_cards"`
	HandName  string      `json:"hand_name"`
}

// Result is the settlement of a completed hand
type Result struct {
	Pots     []pot.Pot `json:"pots"`
	Winners  []Winner  `json:"winners"`
	Reveals  []Reveal  `json:"reveals,omitempty"`
	Showdown bool      `json:"showdown"`
}

func (h *Hand) showdown() {
	h.Phase = PhaseShowdown
	h.award(true)
}

// award settles every pot and completes the hand
func (h *Hand) award(showdown bool) {
	contribs := make([]pot.Contribution, 0, len(h.Players))
	for _, p := range h.Players {
		contribs = append(contribs, pot.Contribution{Seat: p.Seat, Amount: p.Committed, Folded: p.Folded})
	}
	pots := pot.Build(contribs)

	var scores map[int]int
	names := make(map[int]string)
	result := &Result{Pots: pots, Showdown: showdown}
	if showdown {
		scores = make(map[int]int)
		for _, p := range h.Players {
			if !p.Live() {
				continue
			}
			cards := append(append([]deck.Card{}, p.HoleCards...), h.Board...)
			best := evaluator.MustEvaluate(cards)
			scores[p.Seat] = best.Score
			names[p.Seat] = best.Name()
			result.Reveals = append(result.Reveals, Reveal{
				Seat:      p.Seat,
				PlayerID:  p.ID,
				HoleCards: p.HoleCards,
				HandName:  names[p.Seat],
			})
		}
	}

	won := pot.Winnings(pot.Distribute(pots, scores, h.Order()))
	for _, p := range h.Players {
		amount, ok := won[p.Seat]
		if !ok {
			continue
		}
		p.Stack += amount
		result.Winners = append(result.Winners, Winner{
			Seat:     p.Seat,
			PlayerID: p.ID,
			Amount:   amount,
			HandName: names[p.Seat],
		})
	}
	sort.SliceStable(result.Winners, func(i, j int) bool {
		return result.Winners[i].Amount > result.Winners[j].Amount
	})

	for _, p := range h.Players {
		p.Bet = 0
	}
	h.CurrentBet = 0
	h.ActorSeat = 0
	h.runout = false
	h.Result = result
	h.Phase = PhaseComplete
}
