package deck

import (
	"encoding/json"
	"testing"
)

func TestParseCards(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []Card
		wantErr  bool
	}{
		{
			name:  "royal flush",
			input: "AsKsQsJsTs",
			expected: []Card{
				{Suit: Spades, Rank: Ace},
				{Suit: Spades, Rank: King},
				{Suit: Spades, Rank: Queen},
				{Suit: Spades, Rank: Jack},
				{Suit: Spades, Rank: Ten},
			},
		},
		{
			name:  "ten written as 10 with spaces",
			input: "10h 9h",
			expected: []Card{
				{Suit: Hearts, Rank: Ten},
				{Suit: Hearts, Rank: Nine},
			},
		},
		{
			name:  "case insensitive",
			input: "asKHqDjc",
			expected: []Card{
				{Suit: Spades, Rank: Ace},
				{Suit: Hearts, Rank: King},
				{Suit: Diamonds, Rank: Queen},
				{Suit: Clubs, Rank: Jack},
			},
		},
		{
			name:    "invalid rank",
			input:   "XsKs",
			wantErr: true,
		},
		{
			name:    "invalid suit",
			input:   "AxKs",
			wantErr: true,
		},
		{
			name:    "odd length",
			input:   "AsK",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseCards(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tc.expected) {
				t.Fatalf("expected %d cards, got %d", len(tc.expected), len(got))
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Errorf("card %d: expected %v, got %v", i, tc.expected[i], got[i])
				}
			}
		})
	}
}

func TestCardJSONRoundTrip(t *testing.T) {
	t.Parallel()

	cards := MustParseCards("AsTh2c")
	data, err := json.Marshal(cards)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["As","Th","2c"]` {
		t.Fatalf("unexpected encoding %s", data)
	}

	var decoded []Card
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for i := range cards {
		if decoded[i] != cards[i] {
			t.Errorf("card %d: expected %v, got %v", i, cards[i], decoded[i])
		}
	}
}

func TestCardIndexCoversDeck(t *testing.T) {
	t.Parallel()

	seen := make(map[int]bool)
	for _, c := range Canonical() {
		if !c.Valid() {
			t.Fatalf("invalid canonical card %v", c)
		}
		seen[c.Index()] = true
	}
	if len(seen) != Size {
		t.Fatalf("expected %d distinct indexes, got %d", Size, len(seen))
	}
}
