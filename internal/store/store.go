// Package store persists tables, seats, hands, hole cards and the action log.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Silozo17/homeholdem-sub001/internal/deck"
	"github.com/Silozo17/homeholdem-sub001/internal/game"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

var (
	ErrNotFound = errors.New("store: not found")
	// ErrConflict reports a violated uniqueness rule: a second unfinished hand
	// on a table or a reused action sequence.
	ErrConflict = errors.New("store: conflict")
)

// Table is a table's configuration and runtime blind level
type Table struct {
	ID            string
	Name          string
	HostID        string
	TournamentID  string
	MaxSeats      int
	SmallBlind    int
	BigBlind      int
	Ante          int
	BlindInterval time.Duration
	BuyInMin      int
	BuyInMax      int

	Status            protocol.TableStatus
	CurrentSmallBlind int
	CurrentBigBlind   int
	CurrentAnte       int
	BlindLevel        int
	BlindsRaisedAt    time.Time
	HandNumber        int
	DealerSeat        int
	// Version is the last state version written with the table row
	Version           int64
	CreatedAt         time.Time
}

// Seat is an occupied seat
type Seat struct {
	TableID  string
	Seat     int
	PlayerID string
	Name     string
	Stack    int
	Status   protocol.SeatStatus
}

// Hand is one dealt hand
type Hand struct {
	ID             string
	TableID        string
	Number         int
	DealerSeat     int
	SmallBlindSeat int
	BigBlindSeat   int
	SmallBlind     int
	BigBlind       int
	Ante           int
	Phase          game.Phase
	Board          []deck.Card
	Commitment     string
	// Seed is stored at deal time and only exposed once the hand completes
	Seed        string
	Version     int64
	Result      *game.Result
	StartedAt   time.Time
	CompletedAt *time.Time
}

// HoleCards is one seat's private cards for a hand
type HoleCards struct {
	HandID   string
	Seat     int
	PlayerID string
	Cards    []deck.Card
}

// Store is the relational persistence the table session writes through
type Store interface {
	CreateTable(ctx context.Context, t Table) error
	UpdateTable(ctx context.Context, t Table) error
	GetTable(ctx context.Context, id string) (Table, error)
	ListTables(ctx context.Context) ([]Table, error)

	SaveSeat(ctx context.Context, s Seat) error
	DeleteSeat(ctx context.Context, tableID string, seat int) error
	Seats(ctx context.Context, tableID string) ([]Seat, error)

	// CreateHand inserts a hand with its hole cards; ErrConflict if the table
	// already has a hand that is not complete.
	CreateHand(ctx context.Context, h Hand, holes []HoleCards) error
	UpdateHand(ctx context.Context, h Hand) error
	GetHand(ctx context.Context, id string) (Hand, error)
	// ActiveHand returns the table's unfinished hand, or ErrNotFound
	ActiveHand(ctx context.Context, tableID string) (Hand, error)
	HoleCards(ctx context.Context, handID, playerID string) (HoleCards, error)

	// AppendActions appends to a hand's log; ErrConflict on a reused sequence
	AppendActions(ctx context.Context, records []protocol.ActionRecord) error
	Actions(ctx context.Context, handID string) ([]protocol.ActionRecord, error)
}
