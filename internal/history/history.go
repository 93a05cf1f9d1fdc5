// Package history exports settled hands in the Poker Hand History (PHH) TOML
// format so a hand can be audited or replayed outside the server.
package history

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Silozo17/homeholdem-sub001/internal/deck"
	"github.com/Silozo17/homeholdem-sub001/internal/game"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

// Hand is one hand in PHH form
type Hand struct {
	Variant           string         `toml:"variant"`
	Table             string         `toml:"table,omitempty"`
	SeatCount         int            `toml:"seat_count,omitempty"`
	Seats             []int          `toml:"seats,omitempty"`
	Antes             []int          `toml:"antes"`
	BlindsOrStraddles []int          `toml:"blinds_or_straddles"`
	MinBet            int            `toml:"min_bet"`
	Winnings          []int          `toml:"winnings,omitempty"`
	Actions           []string       `toml:"actions"`
	Players           []string       `toml:"players,omitempty"`
	HandID            string         `toml:"hand"`
	Time              string         `toml:"time,omitempty"`
	TimeZone          string         `toml:"time_zone,omitempty"`
	Day               int            `toml:"day,omitempty"`
	Month             int            `toml:"month,omitempty"`
	Year              int            `toml:"year,omitempty"`
	Metadata          map[string]any `toml:"metadata,omitempty"`
}

// Build assembles a settled hand from its result and action log. Players are
// numbered p1..pn in ascending seat order; unrevealed hole cards are written
// as ????.
func Build(tableID string, maxSeats int, result protocol.HandResult, records []protocol.ActionRecord) Hand {
	sort.Slice(records, func(i, j int) bool { return records[i].Sequence < records[j].Sequence })

	seatSet := make(map[int]bool)
	for _, r := range records {
		seatSet[r.Seat] = true
	}
	for _, w := range result.Winners {
		seatSet[w.Seat] = true
	}
	seats := make([]int, 0, len(seatSet))
	for s := range seatSet {
		seats = append(seats, s)
	}
	sort.Ints(seats)
	index := make(map[int]int, len(seats))
	for i, s := range seats {
		index[s] = i
	}

	names := make(map[int]string)
	holes := make(map[int][]deck.Card)
	for _, rv := range result.Reveals {
		names[rv.Seat] = rv.PlayerID
		holes[rv.Seat] = rv.HoleCards
	}
	for _, w := range result.Winners {
		names[w.Seat] = w.PlayerID
	}

	h := Hand{
		Variant:           "NT",
		Table:             tableID,
		SeatCount:         maxSeats,
		Seats:             seats,
		Antes:             make([]int, len(seats)),
		BlindsOrStraddles: make([]int, len(seats)),
		Winnings:          make([]int, len(seats)),
		Players:           make([]string, len(seats)),
		HandID:            result.HandID,
		Metadata: map[string]any{
			"hand_number": result.HandNumber,
			"commitment":  result.Commitment,
		},
	}
	if result.Seed != "" {
		h.Metadata["seed"] = result.Seed
	}
	for i, s := range seats {
		h.Players[i] = names[s]
		if h.Players[i] == "" {
			h.Players[i] = fmt.Sprintf("seat %d", s)
		}
		cards := "????"
		if c, ok := holes[s]; ok && len(c) == 2 {
			cards = c[0].String() + c[1].String()
		}
		h.Actions = append(h.Actions, fmt.Sprintf("d dh %s %s", player(i), cards))
	}
	for _, w := range result.Winners {
		h.Winnings[index[w.Seat]] += w.Amount
	}

	dealt := 0
	dealTo := func(n int) {
		if n > len(result.Board) {
			n = len(result.Board)
		}
		if n > dealt {
			h.Actions = append(h.Actions, "d db "+cardString(result.Board[dealt:n]))
			dealt = n
		}
	}
	// street totals per seat; cbr amounts are raise-to
	street := game.PhasePreflop
	committed := make(map[int]int)
	high := 0
	for _, r := range records {
		phase := r.Phase
		if !phase.Betting() {
			phase = game.PhasePreflop
		}
		if phase != street {
			street = phase
			clear(committed)
			high = 0
		}
		switch phase {
		case game.PhaseFlop:
			dealTo(3)
		case game.PhaseTurn:
			dealTo(4)
		case game.PhaseRiver:
			dealTo(5)
		}
		switch r.Action {
		case game.PostAnte:
			h.Antes[index[r.Seat]] = r.Amount
			continue
		case game.PostSmallBlind, game.PostBigBlind:
			committed[r.Seat] += r.Amount
			high = max(high, committed[r.Seat])
			h.BlindsOrStraddles[index[r.Seat]] = r.Amount
			if r.Action == game.PostBigBlind {
				h.MinBet = r.Amount
			}
			continue
		}
		committed[r.Seat] += r.Amount
		action := r.Action
		if action == game.AllIn && committed[r.Seat] <= high {
			action = game.Call
		}
		high = max(high, committed[r.Seat])
		if line, ok := FormatAction(index[r.Seat], action, committed[r.Seat]); ok {
			h.Actions = append(h.Actions, line)
		}
		if !r.At.IsZero() && h.Year == 0 {
			h.stamp(r.At)
		}
	}
	// all-in runouts deal the remaining streets after the last action
	dealTo(3)
	dealTo(4)
	dealTo(5)
	return h
}

func (h *Hand) stamp(t time.Time) {
	t = t.UTC()
	h.Time = t.Format("15:04:05")
	h.TimeZone = "UTC"
	h.Day, h.Month, h.Year = t.Day(), int(t.Month()), t.Year()
}

func player(i int) string { return fmt.Sprintf("p%d", i+1) }

func cardString(cards []deck.Card) string {
	var b strings.Builder
	for _, c := range cards {
		b.WriteString(c.String())
	}
	return b.String()
}

// FormatAction renders a betting action for player index i given the seat's
// street total after it. Forced bets report false; they live in the
// antes and blinds arrays instead.
func FormatAction(i int, action game.Action, amount int) (string, bool) {
	p := player(i)
	switch action {
	case game.Fold:
		return p + " f", true
	case game.Check, game.Call:
		return p + " cc", true
	case game.Raise, game.AllIn:
		if amount <= 0 {
			return "", false
		}
		return fmt.Sprintf("%s cbr %d", p, amount), true
	case game.PostAnte, game.PostSmallBlind, game.PostBigBlind:
		return "", false
	default:
		return fmt.Sprintf("# %s %s %d", p, action, amount), true
	}
}

// Encode writes the hand as PHH TOML
func Encode(w io.Writer, hand Hand) error {
	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(hand)
}
