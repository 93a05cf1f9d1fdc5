package evaluator

import (
	"fmt"

	"github.com/Silozo17/homeholdem-sub001/internal/deck"
)

// Category is the class of a five-card hand, 0 (high card) through 9 (royal flush)
type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns the readable name of the category
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case OnePair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// scoreBase is one more than the highest rank value, so tiebreak digits never carry
const scoreBase = 15

// Result is the best five-card hand found for a set of cards
type Result struct {
	Category Category
	// Tiebreak holds rank values in significance order: grouped ranks first
	// (quads, trips, pairs), then kickers descending. Straights carry only their
	// high card, with the wheel reported as 5.
	Tiebreak []int
	// Score orders any two results with a single integer comparison:
	// category*15^5 + Σ tiebreak[i]*15^(4-i).
	Score int
	Cards []deck.Card
}

// Compare returns -1 if r is weaker than other, 0 if equal, 1 if stronger
func (r Result) Compare(other Result) int {
	switch {
	case r.Score > other.Score:
		return 1
	case r.Score < other.Score:
		return -1
	default:
		return 0
	}
}

// Name describes the hand, e.g. "Full House, Kings full of Twos"
func (r Result) Name() string {
	if len(r.Tiebreak) == 0 {
		return r.Category.String()
	}
	top := rankName(r.Tiebreak[0])
	switch r.Category {
	case OnePair:
		return fmt.Sprintf("Pair of %s", plural(top))
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", plural(top), plural(rankName(r.Tiebreak[1])))
	case ThreeOfAKind:
		return fmt.Sprintf("Three of a Kind, %s", plural(top))
	case Straight:
		return fmt.Sprintf("Straight, %s high", top)
	case Flush:
		return fmt.Sprintf("Flush, %s high", top)
	case FullHouse:
		return fmt.Sprintf("Full House, %s full of %s", plural(top), plural(rankName(r.Tiebreak[1])))
	case FourOfAKind:
		return fmt.Sprintf("Four of a Kind, %s", plural(top))
	case StraightFlush:
		return fmt.Sprintf("Straight Flush, %s high", top)
	case RoyalFlush:
		return "Royal Flush"
	default:
		return fmt.Sprintf("High Card, %s", top)
	}
}

func computeScore(cat Category, tiebreak []int) int {
	score := int(cat)
	for i := 0; i < 5; i++ {
		score *= scoreBase
		if i < len(tiebreak) {
			score += tiebreak[i]
		}
	}
	return score
}

func rankName(v int) string {
	switch deck.Rank(v) {
	case deck.Ace:
		return "Ace"
	case deck.King:
		return "King"
	case deck.Queen:
		return "Queen"
	case deck.Jack:
		return "Jack"
	case deck.Ten:
		return "Ten"
	case deck.Nine:
		return "Nine"
	case deck.Eight:
		return "Eight"
	case deck.Seven:
		return "Seven"
	case deck.Six:
		return "Six"
	case deck.Five:
		return "Five"
	case deck.Four:
		return "Four"
	case deck.Three:
		return "Three"
	case deck.Two:
		return "Two"
	default:
		return "?"
	}
}

func plural(name string) string {
	if name == "Six" {
		return "Sixes"
	}
	return name + "s"
}
