// Package pot splits the chips committed to a hand into layered pots and pays
// them out.
//
// Build walks the distinct contribution levels in ascending order. Each level
// forms a layer worth (level - previous level) times the number of players who
// committed at least that much; only players who did not fold and reached the
// level are eligible to win it. Adjacent layers with the same eligible set are
// merged, and a layer nobody can win (everyone who reached it folded) is folded
// into the layer beneath it, so every chip lands in exactly one pot. When no
// live player reached any level, the whole amount forms one pot for the live
// players who committed nothing.
package pot

import (
	"fmt"
	"slices"
	"sort"
)

// Contribution is one participant's total commitment to a hand
type Contribution struct {
	Seat   int
	Amount int
	Folded bool
}

// Pot is a layer of the total pot
type Pot struct {
	Amount int
	// Level is the per-player commitment at the top of this pot
	Level    int
	Eligible []int
}

// Award is a payout of chips from a pot to a seat
type Award struct {
	Pot    int
	Seat   int
	Amount int
}

// Build partitions contributions into pots
func Build(contribs []Contribution) []Pot {
	levels := make([]int, 0, len(contribs))
	for _, c := range contribs {
		if c.Amount > 0 && !slices.Contains(levels, c.Amount) {
			levels = append(levels, c.Amount)
		}
	}
	sort.Ints(levels)

	var pots []Pot
	var orphaned int
	previous := 0
	for _, level := range levels {
		layer := Pot{Level: level}
		for _, c := range contribs {
			if c.Amount >= level {
				layer.Amount += level - previous
				if !c.Folded {
					layer.Eligible = append(layer.Eligible, c.Seat)
				}
			}
		}
		sort.Ints(layer.Eligible)
		previous = level

		switch {
		case len(layer.Eligible) == 0 && len(pots) == 0:
			// Nobody live has reached this layer yet; carry it up.
			orphaned += layer.Amount
		case len(layer.Eligible) == 0:
			pots[len(pots)-1].Amount += layer.Amount
		case len(pots) > 0 && slices.Equal(pots[len(pots)-1].Eligible, layer.Eligible):
			pots[len(pots)-1].Amount += layer.Amount
			pots[len(pots)-1].Level = level
		default:
			layer.Amount += orphaned
			orphaned = 0
			pots = append(pots, layer)
		}
	}

	switch {
	case orphaned > 0 && len(pots) > 0:
		pots[0].Amount += orphaned
	case orphaned > 0:
		// Only players who committed nothing are still live.
		last := Pot{Amount: orphaned, Level: previous}
		for _, c := range contribs {
			if !c.Folded {
				last.Eligible = append(last.Eligible, c.Seat)
			}
		}
		sort.Ints(last.Eligible)
		pots = append(pots, last)
	}

	if got, want := Total(pots), totalOf(contribs); got != want || (len(pots) > 0 && len(pots[len(pots)-1].Eligible) == 0) {
		panic(fmt.Sprintf("pot: built %d chips from %d contributed", got, want))
	}
	return pots
}

// Total returns the sum of all pot amounts
func Total(pots []Pot) int {
	total := 0
	for _, p := range pots {
		total += p.Amount
	}
	return total
}

func totalOf(contribs []Contribution) int {
	total := 0
	for _, c := range contribs {
		total += c.Amount
	}
	return total
}

// Distribute pays each pot to its best eligible hands. scores maps seat to hand
// score (higher wins); eligible seats without a score cannot win. order is the
// seat order starting left of the dealer; odd chips from a split go one at a time
// to winners in that order. A pot whose eligible seats all lack a score is paid
// to its eligible seats as if they tied, which covers uncontested pots.
func Distribute(pots []Pot, scores map[int]int, order []int) []Award {
	position := make(map[int]int, len(order))
	for i, seat := range order {
		position[seat] = i
	}

	var awards []Award
	for idx, p := range pots {
		if p.Amount == 0 || len(p.Eligible) == 0 {
			continue
		}

		var winners []int
		best := 0
		for _, seat := range p.Eligible {
			score, ok := scores[seat]
			if !ok {
				continue
			}
			switch {
			case len(winners) == 0 || score > best:
				winners = []int{seat}
				best = score
			case score == best:
				winners = append(winners, seat)
			}
		}
		if len(winners) == 0 {
			winners = append(winners, p.Eligible...)
		}

		sort.Slice(winners, func(i, j int) bool {
			pi, iok := position[winners[i]]
			pj, jok := position[winners[j]]
			if iok != jok {
				return iok
			}
			if pi != pj {
				return pi < pj
			}
			return winners[i] < winners[j]
		})

		share := p.Amount / len(winners)
		remainder := p.Amount % len(winners)
		for i, seat := range winners {
			amount := share
			if i < remainder {
				amount++
			}
			awards = append(awards, Award{Pot: idx, Seat: seat, Amount: amount})
		}
	}

	paid := 0
	for _, a := range awards {
		paid += a.Amount
	}
	if paid != Total(pots) {
		panic(fmt.Sprintf("pot: paid %d chips from %d in pots", paid, Total(pots)))
	}
	return awards
}

// Winnings sums awards per seat
func Winnings(awards []Award) map[int]int {
	out := make(map[int]int)
	for _, a := range awards {
		out[a.Seat] += a.Amount
	}
	return out
}
