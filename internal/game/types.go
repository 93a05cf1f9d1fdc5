package game

import "errors"

// Phase is the stage of a table's hand lifecycle
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseDealing  Phase = "dealing"
	PhasePreflop  Phase = "preflop"
	PhaseFlop     Phase = "flop"
	PhaseTurn     Phase = "turn"
	PhaseRiver    Phase = "river"
	PhaseShowdown Phase = "showdown"
	PhaseComplete Phase = "complete"
	PhaseGameOver Phase = "game_over"
)

// Betting reports whether players act during the phase
func (p Phase) Betting() bool {
	switch p {
	case PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver:
		return true
	}
	return false
}

func (p Phase) next() Phase {
	switch p {
	case PhasePreflop:
		return PhaseFlop
	case PhaseFlop:
		return PhaseTurn
	case PhaseTurn:
		return PhaseRiver
	default:
		return PhaseShowdown
	}
}

// Action is a player decision or a forced bet in the action log
type Action string

const (
	Fold  Action = "fold"
	Check Action = "check"
	Call  Action = "call"
	Raise Action = "raise"
	AllIn Action = "all_in"

	PostAnte       Action = "ante"
	PostSmallBlind Action = "small_blind"
	PostBigBlind   Action = "big_blind"
)

// ParseAction validates a player action name
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case Fold, Check, Call, Raise, AllIn:
		return a, nil
	}
	return "", ErrUnknownAction
}

var (
	ErrNotEnoughPlayers = errors.New("game: at least two players with chips are required")
	ErrBadDealer        = errors.New("game: dealer seat is not in the hand")
	ErrDuplicateSeat    = errors.New("game: duplicate seat")
	ErrNotBetting       = errors.New("game: hand is not accepting actions")
	ErrNotYourTurn      = errors.New("game: not your turn")
	ErrUnknownAction    = errors.New("game: unknown action")
	ErrIllegalAction    = errors.New("game: illegal action")
	ErrIllegalAmount    = errors.New("game: illegal amount")
	ErrUnknownSeat      = errors.New("game: seat not in hand")
)
