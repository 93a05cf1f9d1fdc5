package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Silozo17/homeholdem-sub001/internal/deck"
	"github.com/Silozo17/homeholdem-sub001/internal/game"
)

// EventType identifies a broadcast event
type EventType string

const (
	TypeGameState    EventType = "game_state"
	TypeHandResult   EventType = "hand_result"
	TypeHandComplete EventType = "hand_complete"
	TypeSeatChange   EventType = "seat_change"
	TypeBlindsUp     EventType = "blinds_up"
	TypeChatEmoji    EventType = "chat_emoji"
	TypePresence     EventType = "presence"
)

// Event is the envelope for everything published on a table topic
type Event struct {
	Type    EventType `json:"type"`
	TableID string    `json:"table_id"`
	// Version is the table state version the event was produced at
	Version   int64           `json:"version"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent wraps data in an envelope
func NewEvent(eventType EventType, tableID string, version int64, data any, at time.Time) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return Event{Type: eventType, TableID: tableID, Version: version, Data: raw, Timestamp: at}, nil
}

// Decode unmarshals the event payload into v
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", e.Type, err)
	}
	return nil
}

// TableStatus is the lifecycle of a table
type TableStatus string

const (
	TableWaiting TableStatus = "waiting"
	TablePlaying TableStatus = "playing"
	TableClosed  TableStatus = "closed"
)

// SeatStatus is the occupancy state of a seat
type SeatStatus string

const (
	SeatEmpty        SeatStatus = "empty"
	SeatSittingOut   SeatStatus = "sitting_out"
	SeatActive       SeatStatus = "active"
	SeatDisconnected SeatStatus = "disconnected"
)

// SeatState is the public view of one seat
type SeatState struct {
	Seat       int        `json:"seat"`
	PlayerID   string     `json:"player_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	Stack      int        `json:"stack"`
	Status     SeatStatus `json:"status"`
	Bet        int        `json:"bet"`
	Committed  int        `json:"committed,omitempty"`
	InHand     bool       `json:"in_hand,omitempty"`
	Folded     bool       `json:"folded,omitempty"`
	AllIn      bool       `json:"all_in,omitempty"`
	LastAction string     `json:"last_action,omitempty"`
}

// Pot is a public pot layer
type Pot struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible"`
}

// PublicState is the hole-card-free snapshot published after every change
type PublicState struct {
	TableID    string      `json:"table_id"`
	Status     TableStatus `json:"status"`
	Version    int64       `json:"version"`
	HandID     string      `json:"hand_id,omitempty"`
	HandNumber int         `json:"hand_number"`
	Phase      game.Phase  `json:"phase"`

	DealerSeat     int `json:"dealer_seat,omitempty"`
	SmallBlindSeat int `json:"small_blind_seat,omitempty"`
	BigBlindSeat   int `json:"big_blind_seat,omitempty"`
	SmallBlind     int `json:"small_blind"`
	BigBlind       int `json:"big_blind"`
	Ante           int `json:"ante,omitempty"`

	Board      []deck.Card `json:"board"`
	Pots       []Pot       `json:"pots,omitempty"`
	PotTotal   int         `json:"pot_total"`
	CurrentBet int         `json:"current_bet"`
	MinRaise   int         `json:"min_raise"`
	ActorSeat  int         `json:"actor_seat,omitempty"`
	Deadline   *time.Time  `json:"deadline,omitempty"`
	Commitment string      `json:"commitment,omitempty"`

	Seats []SeatState `json:"seats"`
}

// Seat returns the state of seat n, or nil
func (s PublicState) Seat(n int) *SeatState {
	for i := range s.Seats {
		if s.Seats[i].Seat == n {
			return &s.Seats[i]
		}
	}
	return nil
}

// SeatOf returns the seat occupied by playerID, or 0
func (s PublicState) SeatOf(playerID string) int {
	for _, seat := range s.Seats {
		if seat.PlayerID == playerID && seat.Status != SeatEmpty {
			return seat.Seat
		}
	}
	return 0
}

// HandResult settles a hand. It is published twice, as hand_result when the
// pots are awarded and as hand_complete with the shuffle seed revealed.
type HandResult struct {
	HandID     string        `json:"hand_id"`
	HandNumber int           `json:"hand_number"`
	Board      []deck.Card   `json:"board"`
	Pots       []Pot         `json:"pots"`
	Winners    []game.Winner `json:"winners"`
	Reveals    []game.Reveal `json:"reveals,omitempty"`
	Commitment string        `json:"commitment"`
	Seed       string        `json:"seed,omitempty"`
}

// SeatChangeReason says why a seat changed
type SeatChangeReason string

const (
	SeatJoin         SeatChangeReason = "join"
	SeatLeave        SeatChangeReason = "leave"
	SeatKick         SeatChangeReason = "kick"
	SeatDisconnect   SeatChangeReason = "disconnect"
	SeatReconnect    SeatChangeReason = "reconnect"
	SeatRebuy        SeatChangeReason = "rebuy"
	SeatMoved        SeatChangeReason = "moved"
	SeatTableClosing SeatChangeReason = "table_closing"
)

// SeatChange reports a seat occupancy change
type SeatChange struct {
	Seat     int              `json:"seat"`
	PlayerID string           `json:"player_id"`
	Reason   SeatChangeReason `json:"reason"`
	Stack    int              `json:"stack"`
}

// BlindsUp reports one blind escalation level
type BlindsUp struct {
	Level      int `json:"level"`
	SmallBlind int `json:"small_blind"`
	BigBlind   int `json:"big_blind"`
	Ante       int `json:"ante,omitempty"`
}

// ChatEmoji is an ephemeral reaction
type ChatEmoji struct {
	Seat     int    `json:"seat"`
	PlayerID string `json:"player_id"`
	Emoji    string `json:"emoji"`
}

// Role distinguishes seated players from spectators in presence
type Role string

const (
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

// Presence is a participant's liveness beat on the presence topic
type Presence struct {
	Key      string    `json:"key"`
	PlayerID string    `json:"player_id"`
	Role     Role      `json:"role"`
	At       time.Time `json:"at"`
	Leave    bool      `json:"leave,omitempty"`
}

// ActionRequest submits a decision for the current actor
type ActionRequest struct {
	HandID string      `json:"hand_id"`
	Action game.Action `json:"action"`
	Amount int         `json:"amount,omitempty"`
}

// TimeoutRequest asks the server to resolve a stalled actor
type TimeoutRequest struct {
	HandID string `json:"hand_id,omitempty"`
}

// TimeoutResponse reports whether the server acted for the stalled seat
type TimeoutResponse struct {
	Resolved bool `json:"resolved"`
}

// JoinRequest takes a seat
type JoinRequest struct {
	Seat  int    `json:"seat"`
	Name  string `json:"name,omitempty"`
	BuyIn int    `json:"buy_in"`
}

// RebuyRequest adds chips to a seat between hands
type RebuyRequest struct {
	Amount int `json:"amount"`
}

// KickRequest removes another player's seat
type KickRequest struct {
	Seat int `json:"seat"`
}

// ChatRequest sends an emoji reaction
type ChatRequest struct {
	Emoji string `json:"emoji"`
}

// DealResponse answers a dealing command
type DealResponse struct {
	HandID string      `json:"hand_id"`
	State  PublicState `json:"state"`
}

// MyCards is the owner-only hole card fetch. Cards is empty when the seat was
// not dealt in yet.
type MyCards struct {
	HandID string      `json:"hand_id"`
	Seat   int         `json:"seat"`
	Cards  []deck.Card `json:"cards"`
}

// ActionRecord is one audit log entry of a hand
type ActionRecord struct {
	HandID   string      `json:"hand_id"`
	Sequence int         `json:"sequence"`
	Seat     int         `json:"seat"`
	Action   game.Action `json:"action"`
	Amount   int         `json:"amount"`
	Phase    game.Phase  `json:"phase"`
	At       time.Time   `json:"at"`
}

// ErrorResponse is the body of a rejected command
type ErrorResponse struct {
	Error *Error `json:"error"`
}

// SeatResponse answers seat commands
type SeatResponse struct {
	Seat  int `json:"seat,omitempty"`
	Stack int `json:"stack,omitempty"`
}

// CreateTableRequest opens a cash table hosted by the caller
type CreateTableRequest struct {
	Name          string `json:"name"`
	MaxSeats      int    `json:"max_seats"`
	SmallBlind    int    `json:"small_blind"`
	BigBlind      int    `json:"big_blind"`
	Ante          int    `json:"ante,omitempty"`
	BlindInterval string `json:"blind_interval,omitempty"`
	BuyInMin      int    `json:"buy_in_min,omitempty"`
	BuyInMax      int    `json:"buy_in_max,omitempty"`
}

// Frame carries one event over a websocket in either direction
type Frame struct {
	Topic string `json:"topic"`
	Event Event  `json:"event"`
}
