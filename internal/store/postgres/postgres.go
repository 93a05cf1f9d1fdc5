// Package postgres implements store.Store on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Silozo17/homeholdem-sub001/internal/deck"
	"github.com/Silozo17/homeholdem-sub001/internal/game"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
	"github.com/Silozo17/homeholdem-sub001/internal/store"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Store persists to PostgreSQL
type Store struct {
	db *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Connect opens a pool and verifies it with a ping
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// New returns a store on db
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Migrate creates the schema if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", what, store.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

const tableColumns = `id, name, host_id, tournament_id, max_seats, small_blind, big_blind, ante,
	blind_interval_ms, buy_in_min, buy_in_max, status, current_small_blind, current_big_blind,
	current_ante, blind_level, blinds_raised_at, hand_number, dealer_seat, version, created_at`

func (s *Store) CreateTable(ctx context.Context, t store.Table) error {
	_, err := s.db.Exec(ctx, `INSERT INTO poker_tables (`+tableColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		t.ID, t.Name, t.HostID, t.TournamentID, t.MaxSeats, t.SmallBlind, t.BigBlind, t.Ante,
		t.BlindInterval.Milliseconds(), t.BuyInMin, t.BuyInMax, string(t.Status), t.CurrentSmallBlind,
		t.CurrentBigBlind, t.CurrentAnte, t.BlindLevel, t.BlindsRaisedAt, t.HandNumber, t.DealerSeat, t.Version, t.CreatedAt)
	return translate(err, "create table")
}

func (s *Store) UpdateTable(ctx context.Context, t store.Table) error {
	tag, err := s.db.Exec(ctx, `UPDATE poker_tables SET
			name = $2, host_id = $3, tournament_id = $4, max_seats = $5, small_blind = $6,
			big_blind = $7, ante = $8, blind_interval_ms = $9, buy_in_min = $10, buy_in_max = $11,
			status = $12, current_small_blind = $13, current_big_blind = $14, current_ante = $15,
			blind_level = $16, blinds_raised_at = $17, hand_number = $18, dealer_seat = $19, version = $20
		WHERE id = $1`,
		t.ID, t.Name, t.HostID, t.TournamentID, t.MaxSeats, t.SmallBlind, t.BigBlind, t.Ante,
		t.BlindInterval.Milliseconds(), t.BuyInMin, t.BuyInMax, string(t.Status), t.CurrentSmallBlind,
		t.CurrentBigBlind, t.CurrentAnte, t.BlindLevel, t.BlindsRaisedAt, t.HandNumber, t.DealerSeat, t.Version)
	if err != nil {
		return translate(err, "update table")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update table %s: %w", t.ID, store.ErrNotFound)
	}
	return nil
}

func scanTable(row pgx.Row) (store.Table, error) {
	var (
		t          store.Table
		intervalMS int64
		status     string
	)
	err := row.Scan(&t.ID, &t.Name, &t.HostID, &t.TournamentID, &t.MaxSeats, &t.SmallBlind,
		&t.BigBlind, &t.Ante, &intervalMS, &t.BuyInMin, &t.BuyInMax, &status, &t.CurrentSmallBlind,
		&t.CurrentBigBlind, &t.CurrentAnte, &t.BlindLevel, &t.BlindsRaisedAt, &t.HandNumber,
		&t.DealerSeat, &t.Version, &t.CreatedAt)
	t.BlindInterval = time.Duration(intervalMS) * time.Millisecond
	t.Status = protocol.TableStatus(status)
	return t, err
}

func (s *Store) GetTable(ctx context.Context, id string) (store.Table, error) {
	t, err := scanTable(s.db.QueryRow(ctx, `SELECT `+tableColumns+` FROM poker_tables WHERE id = $1`, id))
	return t, translate(err, "get table")
}

func (s *Store) ListTables(ctx context.Context) ([]store.Table, error) {
	rows, err := s.db.Query(ctx, `SELECT `+tableColumns+` FROM poker_tables ORDER BY id`)
	if err != nil {
		return nil, translate(err, "list tables")
	}
	defer rows.Close()

	var out []store.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, translate(err, "scan table")
		}
		out = append(out, t)
	}
	return out, translate(rows.Err(), "list tables")
}

func (s *Store) SaveSeat(ctx context.Context, seat store.Seat) error {
	_, err := s.db.Exec(ctx, `INSERT INTO poker_seats (table_id, seat, player_id, name, stack, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (table_id, seat) DO UPDATE
		SET player_id = EXCLUDED.player_id, name = EXCLUDED.name,
			stack = EXCLUDED.stack, status = EXCLUDED.status`,
		seat.TableID, seat.Seat, seat.PlayerID, seat.Name, seat.Stack, string(seat.Status))
	return translate(err, "save seat")
}

func (s *Store) DeleteSeat(ctx context.Context, tableID string, seat int) error {
	_, err := s.db.Exec(ctx, `DELETE FROM poker_seats WHERE table_id = $1 AND seat = $2`, tableID, seat)
	return translate(err, "delete seat")
}

func (s *Store) Seats(ctx context.Context, tableID string) ([]store.Seat, error) {
	rows, err := s.db.Query(ctx, `SELECT table_id, seat, player_id, name, stack, status
		FROM poker_seats WHERE table_id = $1 ORDER BY seat`, tableID)
	if err != nil {
		return nil, translate(err, "list seats")
	}
	defer rows.Close()

	var out []store.Seat
	for rows.Next() {
		var (
			seat   store.Seat
			status string
		)
		if err := rows.Scan(&seat.TableID, &seat.Seat, &seat.PlayerID, &seat.Name, &seat.Stack, &status); err != nil {
			return nil, translate(err, "scan seat")
		}
		seat.Status = protocol.SeatStatus(status)
		out = append(out, seat)
	}
	return out, translate(rows.Err(), "list seats")
}

func marshalResult(r *game.Result) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// CreateHand inserts the hand and its hole cards in one transaction. The
// partial unique index rejects a second unfinished hand for the table.
func (s *Store) CreateHand(ctx context.Context, h store.Hand, holes []store.HoleCards) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := marshalResult(h.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = tx.Exec(ctx, `INSERT INTO poker_hands (id, table_id, hand_number, dealer_seat,
			small_blind_seat, big_blind_seat, small_blind, big_blind, ante, phase, board,
			commitment, seed, state_version, result, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		h.ID, h.TableID, h.Number, h.DealerSeat, h.SmallBlindSeat, h.BigBlindSeat, h.SmallBlind,
		h.BigBlind, h.Ante, string(h.Phase), deck.Strings(h.Board), h.Commitment, h.Seed, h.Version,
		result, h.StartedAt, h.CompletedAt)
	if err != nil {
		return translate(err, "create hand")
	}

	batch := &pgx.Batch{}
	for _, hc := range holes {
		batch.Queue(`INSERT INTO poker_hole_cards (hand_id, seat, player_id, cards) VALUES ($1, $2, $3, $4)`,
			hc.HandID, hc.Seat, hc.PlayerID, deck.Strings(hc.Cards))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return translate(err, "insert hole cards")
	}
	return tx.Commit(ctx)
}

func (s *Store) UpdateHand(ctx context.Context, h store.Hand) error {
	result, err := marshalResult(h.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	tag, err := s.db.Exec(ctx, `UPDATE poker_hands
		SET phase = $2, board = $3, state_version = $4, result = $5, completed_at = $6
		WHERE id = $1`,
		h.ID, string(h.Phase), deck.Strings(h.Board), h.Version, result, h.CompletedAt)
	if err != nil {
		return translate(err, "update hand")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update hand %s: %w", h.ID, store.ErrNotFound)
	}
	return nil
}

const handColumns = `id, table_id, hand_number, dealer_seat, small_blind_seat, big_blind_seat,
	small_blind, big_blind, ante, phase, board, commitment, seed, state_version, result,
	started_at, completed_at`

func scanHand(row pgx.Row) (store.Hand, error) {
	var (
		h      store.Hand
		phase  string
		board  []string
		result []byte
	)
	err := row.Scan(&h.ID, &h.TableID, &h.Number, &h.DealerSeat, &h.SmallBlindSeat, &h.BigBlindSeat,
		&h.SmallBlind, &h.BigBlind, &h.Ante, &phase, &board, &h.Commitment, &h.Seed, &h.Version,
		&result, &h.StartedAt, &h.CompletedAt)
	if err != nil {
		return h, err
	}
	h.Phase = game.Phase(phase)
	for _, c := range board {
		card, err := deck.ParseCard(c)
		if err != nil {
			return h, fmt.Errorf("hand %s board: %w", h.ID, err)
		}
		h.Board = append(h.Board, card)
	}
	if len(result) > 0 {
		h.Result = &game.Result{}
		if err := json.Unmarshal(result, h.Result); err != nil {
			return h, fmt.Errorf("hand %s result: %w", h.ID, err)
		}
	}
	return h, nil
}

func (s *Store) GetHand(ctx context.Context, id string) (store.Hand, error) {
	h, err := scanHand(s.db.QueryRow(ctx, `SELECT `+handColumns+` FROM poker_hands WHERE id = $1`, id))
	return h, translate(err, "get hand")
}

func (s *Store) ActiveHand(ctx context.Context, tableID string) (store.Hand, error) {
	h, err := scanHand(s.db.QueryRow(ctx, `SELECT `+handColumns+` FROM poker_hands
		WHERE table_id = $1 AND phase <> 'complete'`, tableID))
	return h, translate(err, "active hand")
}

func (s *Store) HoleCards(ctx context.Context, handID, playerID string) (store.HoleCards, error) {
	hc := store.HoleCards{HandID: handID, PlayerID: playerID}
	var cards []string
	err := s.db.QueryRow(ctx, `SELECT seat, cards FROM poker_hole_cards
		WHERE hand_id = $1 AND player_id = $2`, handID, playerID).Scan(&hc.Seat, &cards)
	if err != nil {
		return hc, translate(err, "hole cards")
	}
	for _, c := range cards {
		card, err := deck.ParseCard(c)
		if err != nil {
			return hc, fmt.Errorf("hole cards %s: %w", handID, err)
		}
		hc.Cards = append(hc.Cards, card)
	}
	return hc, nil
}

func (s *Store) AppendActions(ctx context.Context, records []protocol.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{r.HandID, r.Sequence, r.Seat, string(r.Action), r.Amount, string(r.Phase), r.At})
	}
	_, err := s.db.CopyFrom(ctx, pgx.Identifier{"poker_actions"},
		[]string{"hand_id", "sequence", "seat", "action", "amount", "phase", "at"},
		pgx.CopyFromRows(rows))
	return translate(err, "append actions")
}

func (s *Store) Actions(ctx context.Context, handID string) ([]protocol.ActionRecord, error) {
	rows, err := s.db.Query(ctx, `SELECT hand_id, sequence, seat, action, amount, phase, at
		FROM poker_actions WHERE hand_id = $1 ORDER BY sequence`, handID)
	if err != nil {
		return nil, translate(err, "list actions")
	}
	defer rows.Close()

	var out []protocol.ActionRecord
	for rows.Next() {
		var (
			r             protocol.ActionRecord
			action, phase string
		)
		if err := rows.Scan(&r.HandID, &r.Sequence, &r.Seat, &action, &r.Amount, &phase, &r.At); err != nil {
			return nil, translate(err, "scan action")
		}
		r.Action = game.Action(action)
		r.Phase = game.Phase(phase)
		out = append(out, r)
	}
	return out, translate(rows.Err(), "list actions")
}
