package game

import "fmt"

// Decision is a player's choice, Amount is the raise-to total for raises
type Decision struct {
	Action Action
	Amount int
}

// DecideFunc chooses an action for the seat to act
type DecideFunc func(h *Hand, seat int) Decision

// maxSteps bounds RunHand; a hand that has not finished by then cannot finish.
const maxSteps = 1000

// RunHand plays a hand to completion with decide and returns its result. All-in
// runouts are dealt immediately.
func RunHand(h *Hand, decide DecideFunc) (*Result, error) {
	for step := 0; !h.Complete(); step++ {
		if step >= maxSteps {
			return nil, fmt.Errorf("game: hand stalled in %s after %d steps", h.Phase, step)
		}
		if h.RunoutPending() {
			h.AdvanceRunout()
			continue
		}

		seat := h.ActorSeat
		if seat == 0 {
			return nil, fmt.Errorf("game: no actor in %s", h.Phase)
		}
		d := decide(h, seat)
		if err := h.Act(seat, d.Action, d.Amount); err != nil {
			return nil, fmt.Errorf("seat %d %s %d: %w", seat, d.Action, d.Amount, err)
		}
	}
	return h.Result, nil
}

// Passive checks when possible and calls otherwise
func Passive(h *Hand, seat int) Decision {
	if h.ToCall(seat) == 0 {
		return Decision{Action: Check}
	}
	return Decision{Action: Call}
}
