// Package storetest is a conformance suite run against every store.Store.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Silozo17/homeholdem-sub001/internal/deck"
	"github.com/Silozo17/homeholdem-sub001/internal/game"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
	"github.com/Silozo17/homeholdem-sub001/internal/store"
)

// Run exercises s. tableID must not exist yet.
func Run(t *testing.T, s store.Store, tableID string) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	table := store.Table{
		ID: tableID, Name: "friday", HostID: "host", MaxSeats: 6,
		SmallBlind: 50, BigBlind: 100, BlindInterval: 10 * time.Minute,
		BuyInMin: 1000, BuyInMax: 5000, Status: protocol.TableWaiting,
		CurrentSmallBlind: 50, CurrentBigBlind: 100, BlindsRaisedAt: now, CreatedAt: now,
	}

	t.Run("tables", func(t *testing.T) {
		require.NoError(t, s.CreateTable(ctx, table))
		assert.ErrorIs(t, s.CreateTable(ctx, table), store.ErrConflict)

		got, err := s.GetTable(ctx, tableID)
		require.NoError(t, err)
		assert.Equal(t, table.BlindInterval, got.BlindInterval)
		assert.Equal(t, protocol.TableWaiting, got.Status)

		table.Status = protocol.TablePlaying
		table.BlindLevel = 1
		require.NoError(t, s.UpdateTable(ctx, table))
		got, err = s.GetTable(ctx, tableID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.BlindLevel)

		_, err = s.GetTable(ctx, tableID+"-missing")
		assert.ErrorIs(t, err, store.ErrNotFound)

		tables, err := s.ListTables(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, tables)
	})

	t.Run("seats", func(t *testing.T) {
		require.NoError(t, s.SaveSeat(ctx, store.Seat{TableID: tableID, Seat: 2, PlayerID: "bob", Stack: 1000, Status: protocol.SeatActive}))
		require.NoError(t, s.SaveSeat(ctx, store.Seat{TableID: tableID, Seat: 1, PlayerID: "amy", Stack: 1500, Status: protocol.SeatActive}))
		require.NoError(t, s.SaveSeat(ctx, store.Seat{TableID: tableID, Seat: 2, PlayerID: "bob", Stack: 800, Status: protocol.SeatDisconnected}))

		seats, err := s.Seats(ctx, tableID)
		require.NoError(t, err)
		require.Len(t, seats, 2)
		assert.Equal(t, "amy", seats[0].PlayerID)
		assert.Equal(t, 800, seats[1].Stack)
		assert.Equal(t, protocol.SeatDisconnected, seats[1].Status)

		require.NoError(t, s.DeleteSeat(ctx, tableID, 2))
		seats, err = s.Seats(ctx, tableID)
		require.NoError(t, err)
		assert.Len(t, seats, 1)
	})

	t.Run("hands", func(t *testing.T) {
		hand := store.Hand{
			ID: tableID + "-h1", TableID: tableID, Number: 1, DealerSeat: 1, SmallBlindSeat: 1,
			BigBlindSeat: 2, SmallBlind: 50, BigBlind: 100, Phase: game.PhasePreflop,
			Commitment: "c", Seed: "s", Version: 1, StartedAt: now,
		}
		holes := []store.HoleCards{{HandID: hand.ID, Seat: 1, PlayerID: "amy", Cards: deck.MustParseCards("As Kd")}}
		require.NoError(t, s.CreateHand(ctx, hand, holes))

		second := hand
		second.ID = tableID + "-h2"
		second.Number = 2
		assert.ErrorIs(t, s.CreateHand(ctx, second, nil), store.ErrConflict, "one unfinished hand per table")

		active, err := s.ActiveHand(ctx, tableID)
		require.NoError(t, err)
		assert.Equal(t, hand.ID, active.ID)

		hc, err := s.HoleCards(ctx, hand.ID, "amy")
		require.NoError(t, err)
		assert.Equal(t, "AsKd", hc.Cards[0].String()+hc.Cards[1].String())
		_, err = s.HoleCards(ctx, hand.ID, "bob")
		assert.ErrorIs(t, err, store.ErrNotFound)

		records := []protocol.ActionRecord{
			{HandID: hand.ID, Sequence: 1, Seat: 1, Action: game.PostSmallBlind, Amount: 50, Phase: game.PhasePreflop, At: now},
			{HandID: hand.ID, Sequence: 2, Seat: 2, Action: game.PostBigBlind, Amount: 100, Phase: game.PhasePreflop, At: now},
		}
		require.NoError(t, s.AppendActions(ctx, records))
		assert.ErrorIs(t, s.AppendActions(ctx, records[1:]), store.ErrConflict)
		log, err := s.Actions(ctx, hand.ID)
		require.NoError(t, err)
		require.Len(t, log, 2)
		assert.Equal(t, game.PostBigBlind, log[1].Action)

		completed := now.Add(time.Minute)
		hand.Phase = game.PhaseComplete
		hand.Board = deck.MustParseCards("2c 3d 4h 5s 6c")
		hand.Version = 9
		hand.CompletedAt = &completed
		hand.Result = &game.Result{Winners: []game.Winner{{Seat: 1, PlayerID: "amy", Amount: 150}}}
		require.NoError(t, s.UpdateHand(ctx, hand))

		got, err := s.GetHand(ctx, hand.ID)
		require.NoError(t, err)
		assert.Equal(t, game.PhaseComplete, got.Phase)
		assert.Len(t, got.Board, 5)
		require.NotNil(t, got.Result)
		assert.Equal(t, 150, got.Result.Winners[0].Amount)

		_, err = s.ActiveHand(ctx, tableID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		require.NoError(t, s.CreateHand(ctx, second, nil), "a new hand may start once the last completed")
	})
}
