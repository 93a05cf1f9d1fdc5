package evaluator

import (
	"testing"

	"github.com/Silozo17/homeholdem-sub001/internal/deck"
	"github.com/Silozo17/homeholdem-sub001/internal/randutil"
)

func TestCanonicalCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cards    string
		expected Category
	}{
		{"AsKsQsJsTs", RoyalFlush},
		{"9h8h7h6h5h", StraightFlush},
		{"AsAhAdAcKs", FourOfAKind},
		{"AsAhAdKsKh", FullHouse},
		{"AsKsQs9s7s", Flush},
		{"AsKhQdJsTs", Straight},
		{"AsAhAdKsQh", ThreeOfAKind},
		{"AsAhKdKsQh", TwoPair},
		{"AsAhKdQs9h", OnePair},
		{"AsKhQd9s7c", HighCard},
	}

	var previous Result
	for i, tt := range tests {
		r, err := Evaluate(deck.MustParseCards(tt.cards))
		if err != nil {
			t.Fatalf("%s: %v", tt.cards, err)
		}
		if r.Category != tt.expected {
			t.Errorf("%s: expected %s, got %s", tt.cards, tt.expected, r.Category)
		}
		if int(r.Category) != 9-i {
			t.Errorf("%s: expected numeric rank %d, got %d", tt.cards, 9-i, r.Category)
		}
		if i > 0 && r.Score >= previous.Score {
			t.Errorf("%s should score below %s", tt.cards, tests[i-1].cards)
		}
		previous = r
	}
}

func TestWheelStraightFlushBelowSixHigh(t *testing.T) {
	t.Parallel()

	wheel := MustEvaluate(deck.MustParseCards("Ah2h3h4h5h"))
	sixHigh := MustEvaluate(deck.MustParseCards("2h3h4h5h6h"))

	if wheel.Category != StraightFlush {
		t.Fatalf("wheel should be a straight flush, got %s", wheel.Category)
	}
	if wheel.Tiebreak[0] != 5 {
		t.Fatalf("wheel high card should be 5, got %d", wheel.Tiebreak[0])
	}
	if wheel.Score >= sixHigh.Score {
		t.Fatalf("wheel (%d) must score below 6-high straight flush (%d)", wheel.Score, sixHigh.Score)
	}
}

func TestWheelStraightBelowSixHigh(t *testing.T) {
	t.Parallel()

	wheel := MustEvaluate(deck.MustParseCards("Ah2c3d4s5h"))
	sixHigh := MustEvaluate(deck.MustParseCards("2c3d4s5h6h"))
	if wheel.Category != Straight || sixHigh.Category != Straight {
		t.Fatalf("expected straights, got %s and %s", wheel.Category, sixHigh.Category)
	}
	if Compare(wheel, sixHigh) >= 0 {
		t.Fatal("wheel must lose to a 6-high straight")
	}
}

func TestSuitsDoNotBreakTies(t *testing.T) {
	t.Parallel()

	a := MustEvaluate(deck.MustParseCards("AsKhQd9s7c"))
	b := MustEvaluate(deck.MustParseCards("AdKcQh9h7s"))
	if a.Score != b.Score {
		t.Fatalf("same ranks with different suits must tie: %d vs %d", a.Score, b.Score)
	}
}

func TestBestFiveOfSeven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cards    string
		expected Category
		tiebreak []int
	}{
		{"flush beats straight on same board", "9h8h7h6c5h2h3d", Flush, []int{9, 8, 7, 5, 2}},
		{"full house from two trips", "KsKhKdQsQhQd2c", FullHouse, []int{13, 12}},
		{"three pairs keep best two and kicker", "AsAhKsKhQsQh2c", TwoPair, []int{14, 13, 12}},
		{"wheel straight with ace", "As2d3c4h5s9dJc", Straight, []int{5}},
		{"seven card straight flush", "8s9sTsJsQs2h3h", StraightFlush, []int{12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := MustEvaluate(deck.MustParseCards(tt.cards))
			if r.Category != tt.expected {
				t.Fatalf("expected %s, got %s", tt.expected, r.Category)
			}
			if len(r.Tiebreak) != len(tt.tiebreak) {
				t.Fatalf("expected tiebreak %v, got %v", tt.tiebreak, r.Tiebreak)
			}
			for i := range tt.tiebreak {
				if r.Tiebreak[i] != tt.tiebreak[i] {
					t.Fatalf("expected tiebreak %v, got %v", tt.tiebreak, r.Tiebreak)
				}
			}
		})
	}
}

func TestPermutationInvariance(t *testing.T) {
	t.Parallel()

	rng := randutil.New(2024)
	for trial := 0; trial < 300; trial++ {
		all := deck.Canonical()
		rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
		n := 5 + trial%3
		cards := append([]deck.Card(nil), all[:n]...)

		base := MustEvaluate(cards)
		for p := 0; p < 5; p++ {
			perm := append([]deck.Card(nil), cards...)
			rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
			got := MustEvaluate(perm)
			if got.Score != base.Score || got.Category != base.Category {
				t.Fatalf("permutation changed result for %v: %d vs %d", cards, base.Score, got.Score)
			}
		}
	}
}

func TestInvalidInput(t *testing.T) {
	t.Parallel()

	if _, err := Evaluate(deck.MustParseCards("AsKs")); err == nil {
		t.Error("expected error for too few cards")
	}
	if _, err := Evaluate(deck.MustParseCards("AsKsQsJsTs9s8s7s")); err == nil {
		t.Error("expected error for too many cards")
	}
	if _, err := Evaluate(deck.MustParseCards("AsAsQsJsTs")); err == nil {
		t.Error("expected error for duplicate cards")
	}
}

func TestResultNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cards string
		name  string
	}{
		{"AsKsQsJsTs", "Royal Flush"},
		{"KsKhKdQsQh", "Full House, Kings full of Queens"},
		{"6s6hKdQs9h", "Pair of Sixes"},
		{"Ah2c3d4s5h", "Straight, Five high"},
	}
	for _, tt := range tests {
		if got := MustEvaluate(deck.MustParseCards(tt.cards)).Name(); got != tt.name {
			t.Errorf("%s: expected %q, got %q", tt.cards, tt.name, got)
		}
	}
}
