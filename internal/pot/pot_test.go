package pot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildThreeAllIns(t *testing.T) {
	t.Parallel()

	pots := Build([]Contribution{
		{Seat: 1, Amount: 100},
		{Seat: 2, Amount: 300},
		{Seat: 3, Amount: 900},
	})

	require.Len(t, pots, 3)
	assert.Equal(t, 300, pots[0].Amount)
	assert.Equal(t, []int{1, 2, 3}, pots[0].Eligible)
	assert.Equal(t, 400, pots[1].Amount)
	assert.Equal(t, []int{2, 3}, pots[1].Eligible)
	assert.Equal(t, 600, pots[2].Amount)
	assert.Equal(t, []int{3}, pots[2].Eligible)
	assert.Equal(t, 1300, Total(pots))
}

func TestBuildFoldedNeverEligible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contribs []Contribution
		want     []Pot
	}{
		{
			name: "folded caller below all-in",
			contribs: []Contribution{
				{Seat: 1, Amount: 50, Folded: true},
				{Seat: 2, Amount: 200},
				{Seat: 3, Amount: 200},
			},
			want: []Pot{{Amount: 450, Level: 200, Eligible: []int{2, 3}}},
		},
		{
			name: "folded overbet beyond live money",
			contribs: []Contribution{
				{Seat: 1, Amount: 500, Folded: true},
				{Seat: 2, Amount: 100},
				{Seat: 3, Amount: 300},
			},
			want: []Pot{
				{Amount: 300, Level: 100, Eligible: []int{2, 3}},
				{Amount: 600, Level: 300, Eligible: []int{3}},
			},
		},
		{
			name: "equal stacks collapse to one pot",
			contribs: []Contribution{
				{Seat: 4, Amount: 100},
				{Seat: 2, Amount: 100},
				{Seat: 6, Amount: 0},
			},
			want: []Pot{{Amount: 200, Level: 100, Eligible: []int{2, 4}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Build(tt.contribs)
			assert.Equal(t, tt.want, got)
			for _, p := range got {
				for _, c := range tt.contribs {
					if c.Folded {
						assert.NotContains(t, p.Eligible, c.Seat)
					}
				}
			}
		})
	}
}

func TestBuildEmpty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Build(nil))
	assert.Empty(t, Build([]Contribution{{Seat: 1}, {Seat: 2}}))
}

func TestBuildLiveSeatCommittedNothing(t *testing.T) {
	t.Parallel()

	pots := Build([]Contribution{
		{Seat: 1},
		{Seat: 2, Amount: 50, Folded: true},
		{Seat: 3, Amount: 100, Folded: true},
	})
	require.Len(t, pots, 1)
	assert.Equal(t, 150, pots[0].Amount)
	assert.Equal(t, []int{1}, pots[0].Eligible)
	assert.Equal(t, map[int]int{1: 150}, Winnings(Distribute(pots, nil, []int{2, 3, 1})))
}

func TestBuildPanicsWithoutLivePlayer(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		Build([]Contribution{
			{Seat: 1, Amount: 50, Folded: true},
			{Seat: 2, Amount: 100, Folded: true},
		})
	})
}

func TestDistribute(t *testing.T) {
	t.Parallel()

	pots := Build([]Contribution{
		{Seat: 1, Amount: 100},
		{Seat: 2, Amount: 300},
		{Seat: 3, Amount: 900},
	})

	// Short stack holds the best hand, middle stack the second best.
	awards := Distribute(pots, map[int]int{1: 900, 2: 500, 3: 100}, []int{1, 2, 3})
	won := Winnings(awards)
	assert.Equal(t, 300, won[1])
	assert.Equal(t, 400, won[2])
	assert.Equal(t, 600, won[3])
}

func TestDistributeOddChip(t *testing.T) {
	t.Parallel()

	pots := []Pot{{Amount: 101, Level: 50, Eligible: []int{2, 5, 7}}}

	tests := []struct {
		name  string
		order []int
		want  map[int]int
	}{
		{name: "first after dealer gets it", order: []int{5, 7, 2}, want: map[int]int{5: 51, 7: 50}},
		{name: "wrapped order", order: []int{7, 2, 5}, want: map[int]int{7: 51, 5: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			awards := Distribute(pots, map[int]int{2: 10, 5: 99, 7: 99}, tt.order)
			assert.Equal(t, tt.want, Winnings(awards))
		})
	}
}

func TestDistributeUncontested(t *testing.T) {
	t.Parallel()

	pots := Build([]Contribution{
		{Seat: 1, Amount: 10, Folded: true},
		{Seat: 2, Amount: 20, Folded: true},
		{Seat: 3, Amount: 40},
	})
	awards := Distribute(pots, nil, []int{1, 2, 3})
	assert.Equal(t, map[int]int{3: 70}, Winnings(awards))
}

func TestChipConservation(t *testing.T) {
	t.Parallel()

	contribs := []Contribution{
		{Seat: 1, Amount: 37},
		{Seat: 2, Amount: 250, Folded: true},
		{Seat: 3, Amount: 250},
		{Seat: 4, Amount: 1000},
		{Seat: 5, Amount: 13, Folded: true},
		{Seat: 6, Amount: 1000},
	}
	pots := Build(contribs)
	assert.Equal(t, 2550, Total(pots))

	awards := Distribute(pots, map[int]int{1: 7, 3: 7, 4: 3, 6: 7}, []int{4, 5, 6, 1, 2, 3})
	paid := 0
	for _, a := range awards {
		paid += a.Amount
	}
	assert.Equal(t, 2550, paid)
}
