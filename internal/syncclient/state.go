package syncclient

import (
	"slices"

	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

// resultMemory bounds how many settled hand ids are remembered for dedupe
const resultMemory = 64

// State is a participant's mirror of one table. It is changed only through
// Apply and RecordResult.
type State struct {
	Table protocol.PublicState
	// Cards are the participant's own hole cards for Table.HandID
	Cards protocol.MyCards
	// Result is the most recent settlement
	Result *protocol.HandResult

	seen []string
}

// Apply merges an authoritative snapshot. It is applied when it belongs to a
// different hand or carries a newer version; duplicates and out-of-order
// deliveries are dropped. Versions are table-wide, so a different hand with an
// older version is a late delivery and is dropped too.
func (s *State) Apply(ps protocol.PublicState) bool {
	if ps.HandID == s.Table.HandID && ps.Version <= s.Table.Version {
		return false
	}
	if ps.HandID != s.Table.HandID && ps.Version < s.Table.Version {
		return false
	}
	if ps.HandID != s.Table.HandID {
		s.Cards = protocol.MyCards{}
	}
	s.Table = ps
	return true
}

// Reset replaces the mirror with a fetched snapshot regardless of version
func (s *State) Reset(ps protocol.PublicState) {
	if ps.HandID != s.Table.HandID {
		s.Cards = protocol.MyCards{}
	}
	s.Table = ps
}

// RecordResult stores a settlement once per hand. It reports whether the result
// is new. A repeat delivery may still fill in the revealed seed.
func (s *State) RecordResult(r protocol.HandResult) bool {
	if slices.Contains(s.seen, r.HandID) {
		if s.Result != nil && s.Result.HandID == r.HandID && s.Result.Seed == "" {
			s.Result.Seed = r.Seed
		}
		return false
	}
	s.seen = append(s.seen, r.HandID)
	if len(s.seen) > resultMemory {
		s.seen = s.seen[1:]
	}
	s.Result = &r
	return true
}

// MySeat returns the seat playerID occupies, or 0
func (s *State) MySeat(playerID string) int {
	return s.Table.SeatOf(playerID)
}

// IsMyTurn reports whether playerID is the seat to act
func (s *State) IsMyTurn(playerID string) bool {
	seat := s.MySeat(playerID)
	return seat != 0 && s.Table.ActorSeat == seat && s.Table.Phase.Betting()
}

// CallAmount is what playerID must add to stay in, capped by their stack
func (s *State) CallAmount(playerID string) int {
	seat := s.Table.Seat(s.MySeat(playerID))
	if seat == nil {
		return 0
	}
	return min(max(s.Table.CurrentBet-seat.Bet, 0), seat.Stack)
}
