package history

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Silozo17/homeholdem-sub001/internal/deck"
	"github.com/Silozo17/homeholdem-sub001/internal/game"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

func TestFormatAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		index  int
		action game.Action
		amount int
		want   string
		emit   bool
	}{
		{"fold", 0, game.Fold, 0, "p1 f", true},
		{"check", 1, game.Check, 0, "p2 cc", true},
		{"call", 3, game.Call, 50, "p4 cc", true},
		{"raise", 0, game.Raise, 120, "p1 cbr 120", true},
		{"all in", 0, game.AllIn, 350, "p1 cbr 350", true},
		{"zero raise", 2, game.Raise, 0, "", false},
		{"small blind", 0, game.PostSmallBlind, 5, "", false},
		{"ante", 1, game.PostAnte, 1, "", false},
		{"unknown", 2, game.Action("muck"), 10, "# p3 muck 10", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatAction(tt.index, tt.action, tt.amount)
			assert.Equal(t, tt.emit, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func settledHand() (protocol.HandResult, []protocol.ActionRecord) {
	at := time.Date(2025, time.November, 14, 15, 22, 0, 0, time.UTC)
	result := protocol.HandResult{
		HandID:     "h1",
		HandNumber: 7,
		Board:      deck.MustParseCards("AhKd2c7s9h"),
		Winners:    []game.Winner{{Seat: 4, PlayerID: "bob", Amount: 240, HandName: "Pair"}},
		Reveals: []game.Reveal{
			{Seat: 4, PlayerID: "bob", HoleCards: deck.MustParseCards("AsQs")},
			{Seat: 1, PlayerID: "alice", HoleCards: deck.MustParseCards("KhJh")},
		},
		Commitment: "c0ffee",
		Seed:       "5eed",
	}
	records := []protocol.ActionRecord{
		{Sequence: 1, Seat: 1, Action: game.PostSmallBlind, Amount: 5, Phase: game.PhasePreflop, At: at},
		{Sequence: 2, Seat: 4, Action: game.PostBigBlind, Amount: 10, Phase: game.PhasePreflop, At: at},
		{Sequence: 3, Seat: 6, Action: game.Fold, Phase: game.PhasePreflop, At: at},
		{Sequence: 4, Seat: 1, Action: game.Raise, Amount: 25, Phase: game.PhasePreflop, At: at},
		{Sequence: 5, Seat: 4, Action: game.Call, Amount: 20, Phase: game.PhasePreflop, At: at},
		{Sequence: 7, Seat: 4, Action: game.Raise, Amount: 40, Phase: game.PhaseFlop, At: at},
		{Sequence: 6, Seat: 1, Action: game.Check, Phase: game.PhaseFlop, At: at},
		{Sequence: 8, Seat: 1, Action: game.AllIn, Amount: 40, Phase: game.PhaseFlop, At: at},
	}
	return result, records
}

func TestBuild(t *testing.T) {
	t.Parallel()

	result, records := settledHand()
	h := Build("friday", 6, result, records)

	assert.Equal(t, []int{1, 4, 6}, h.Seats)
	assert.Equal(t, []string{"alice", "bob", "seat 6"}, h.Players)
	assert.Equal(t, []int{5, 10, 0}, h.BlindsOrStraddles)
	assert.Equal(t, 10, h.MinBet)
	assert.Equal(t, []int{0, 240, 0}, h.Winnings)
	assert.Equal(t, []string{
		"d dh p1 KhJh",
		"d dh p2 AsQs",
		"d dh p3 ????",
		"p3 f",
		"p1 cbr 30",
		"p2 cc",
		"d db AhKd2c",
		"p1 cc",
		"p2 cbr 40",
		"p1 cc",
		"d db 7s",
		"d db 9h",
	}, h.Actions, "the all-in for the amount owed is a call and the runout is dealt at the end")
	assert.Equal(t, "5eed", h.Metadata["seed"])
	assert.Equal(t, 2025, h.Year)
	assert.Equal(t, "15:22:00", h.Time)
}

func TestEncodeRoundTrips(t *testing.T) {
	t.Parallel()

	result, records := settledHand()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Build("friday", 6, result, records)))
	assert.Contains(t, buf.String(), "variant = \"NT\"\n")

	var decoded Hand
	_, err := toml.Decode(buf.String(), &decoded)
	require.NoError(t, err)
	assert.Equal(t, "h1", decoded.HandID)
	assert.Equal(t, "c0ffee", decoded.Metadata["commitment"])
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	result, records := settledHand()
	h := Build("friday", 6, result, records)

	single := filepath.Join(dir, "hand.phh")
	require.NoError(t, WriteFile(single, h))
	data, err := os.ReadFile(single)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hand = \"h1\"")

	session := filepath.Join(dir, "session.phhs")
	require.NoError(t, WriteFile(session, h, h))
	var hands map[string]Hand
	_, err = toml.DecodeFile(session, &hands)
	require.NoError(t, err)
	assert.Len(t, hands, 2)
	assert.Equal(t, "h1", hands["2"].HandID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files are left behind")
}
