// Package evaluator scores poker hands.
//
// Evaluate takes five to seven cards, enumerates every five-card subset (at most
// C(7,5) = 21) and keeps the highest scoring one. Scores are plain integers so
// two results compare with a single subtraction, and hands that differ only by
// suit score identically.
package evaluator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Silozo17/homeholdem-sub001/internal/deck"
)

// ErrCardCount is returned when fewer than 5 or more than 7 cards are supplied
var ErrCardCount = errors.New("evaluator: need between 5 and 7 cards")

// Evaluate returns the best five-card hand that can be made from cards
func Evaluate(cards []deck.Card) (Result, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return Result{}, fmt.Errorf("%w, got %d", ErrCardCount, len(cards))
	}
	seen := make(map[deck.Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return Result{}, fmt.Errorf("evaluator: invalid card %v", c)
		}
		if seen[c] {
			return Result{}, fmt.Errorf("evaluator: duplicate card %v", c)
		}
		seen[c] = true
	}

	var best Result
	found := false
	var five [5]deck.Card
	n := len(cards)
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						five = [5]deck.Card{cards[a], cards[b], cards[c], cards[d], cards[e]}
						r := evaluate5(five)
						if !found || r.Score > best.Score {
							best = r
							found = true
						}
					}
				}
			}
		}
	}
	return best, nil
}

// MustEvaluate is Evaluate for callers that have already validated their cards
func MustEvaluate(cards []deck.Card) Result {
	r, err := Evaluate(cards)
	if err != nil {
		panic(err)
	}
	return r
}

// Compare orders two results: -1 if a is weaker, 0 on a tie, 1 if a is stronger
func Compare(a, b Result) int {
	return a.Compare(b)
}

type rankGroup struct {
	rank  int
	count int
}

func evaluate5(cards [5]deck.Card) Result {
	sorted := cards
	sort.Slice(sorted[:], func(i, j int) bool {
		return sorted[i].Rank > sorted[j].Rank
	})

	flush := true
	for _, c := range sorted[1:] {
		if c.Suit != sorted[0].Suit {
			flush = false
			break
		}
	}

	high, straight := straightHigh(sorted)

	// Group duplicate ranks: larger groups first, then higher rank.
	counts := make(map[int]int, 5)
	for _, c := range sorted {
		counts[int(c.Rank)]++
	}
	groups := make([]rankGroup, 0, len(counts))
	for r, n := range counts {
		groups = append(groups, rankGroup{rank: r, count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})
	grouped := make([]int, len(groups))
	for i, g := range groups {
		grouped[i] = g.rank
	}

	var cat Category
	var tiebreak []int
	switch {
	case straight && flush && high == int(deck.Ace):
		cat, tiebreak = RoyalFlush, []int{high}
	case straight && flush:
		cat, tiebreak = StraightFlush, []int{high}
	case groups[0].count == 4:
		cat, tiebreak = FourOfAKind, grouped
	case groups[0].count == 3 && groups[1].count == 2:
		cat, tiebreak = FullHouse, grouped
	case flush:
		cat, tiebreak = Flush, ranksOf(sorted)
	case straight:
		cat, tiebreak = Straight, []int{high}
	case groups[0].count == 3:
		cat, tiebreak = ThreeOfAKind, grouped
	case groups[0].count == 2 && groups[1].count == 2:
		cat, tiebreak = TwoPair, grouped
	case groups[0].count == 2:
		cat, tiebreak = OnePair, grouped
	default:
		cat, tiebreak = HighCard, ranksOf(sorted)
	}

	return Result{
		Category: cat,
		Tiebreak: tiebreak,
		Score:    computeScore(cat, tiebreak),
		Cards:    sorted[:],
	}
}

// straightHigh reports whether the rank-descending cards form a straight and its
// high card. The wheel A-2-3-4-5 is a straight with high card 5.
func straightHigh(sorted [5]deck.Card) (int, bool) {
	for i := 1; i < 5; i++ {
		if sorted[i-1].Rank != sorted[i].Rank+1 {
			if i == 1 && sorted[0].Rank == deck.Ace && sorted[1].Rank == deck.Five &&
				sorted[2].Rank == deck.Four && sorted[3].Rank == deck.Three && sorted[4].Rank == deck.Two {
				return int(deck.Five), true
			}
			return 0, false
		}
	}
	return int(sorted[0].Rank), true
}

func ranksOf(cards [5]deck.Card) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = int(c.Rank)
	}
	return out
}
