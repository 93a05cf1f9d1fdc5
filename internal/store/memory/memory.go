// Package memory is an in-process store used by tests and single-node runs.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/Silozo17/homeholdem-sub001/internal/game"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
	"github.com/Silozo17/homeholdem-sub001/internal/store"
)

type seatKey struct {
	table string
	seat  int
}

type holeKey struct {
	hand   string
	player string
}

// Store keeps everything in maps behind one mutex
type Store struct {
	mu      sync.RWMutex
	tables  map[string]store.Table
	seats   map[seatKey]store.Seat
	hands   map[string]store.Hand
	holes   map[holeKey]store.HoleCards
	actions map[string][]protocol.ActionRecord
}

var _ store.Store = (*Store)(nil)

// New returns an empty store
func New() *Store {
	return &Store{
		tables:  make(map[string]store.Table),
		seats:   make(map[seatKey]store.Seat),
		hands:   make(map[string]store.Hand),
		holes:   make(map[holeKey]store.HoleCards),
		actions: make(map[string][]protocol.ActionRecord),
	}
}

func (s *Store) CreateTable(_ context.Context, t store.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[t.ID]; ok {
		return store.ErrConflict
	}
	s.tables[t.ID] = t
	return nil
}

func (s *Store) UpdateTable(_ context.Context, t store.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[t.ID]; !ok {
		return store.ErrNotFound
	}
	s.tables[t.ID] = t
	return nil
}

func (s *Store) GetTable(_ context.Context, id string) (store.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[id]
	if !ok {
		return store.Table{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTables(_ context.Context) ([]store.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveSeat(_ context.Context, seat store.Seat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[seat.TableID]; !ok {
		return store.ErrNotFound
	}
	s.seats[seatKey{seat.TableID, seat.Seat}] = seat
	return nil
}

func (s *Store) DeleteSeat(_ context.Context, tableID string, seat int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seats, seatKey{tableID, seat})
	return nil
}

func (s *Store) Seats(_ context.Context, tableID string) ([]store.Seat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Seat
	for k, seat := range s.seats {
		if k.table == tableID {
			out = append(out, seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out, nil
}

func (s *Store) CreateHand(_ context.Context, h store.Hand, holes []store.HoleCards) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hands[h.ID]; ok {
		return store.ErrConflict
	}
	for _, other := range s.hands {
		if other.TableID == h.TableID && other.Phase != game.PhaseComplete {
			return store.ErrConflict
		}
	}
	s.hands[h.ID] = h
	for _, hc := range holes {
		hc.Cards = slices.Clone(hc.Cards)
		s.holes[holeKey{hc.HandID, hc.PlayerID}] = hc
	}
	return nil
}

func (s *Store) UpdateHand(_ context.Context, h store.Hand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hands[h.ID]; !ok {
		return store.ErrNotFound
	}
	h.Board = slices.Clone(h.Board)
	s.hands[h.ID] = h
	return nil
}

func (s *Store) GetHand(_ context.Context, id string) (store.Hand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hands[id]
	if !ok {
		return store.Hand{}, store.ErrNotFound
	}
	return h, nil
}

func (s *Store) ActiveHand(_ context.Context, tableID string) (store.Hand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.hands {
		if h.TableID == tableID && h.Phase != game.PhaseComplete {
			return h, nil
		}
	}
	return store.Hand{}, store.ErrNotFound
}

func (s *Store) HoleCards(_ context.Context, handID, playerID string) (store.HoleCards, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hc, ok := s.holes[holeKey{handID, playerID}]
	if !ok {
		return store.HoleCards{}, store.ErrNotFound
	}
	return hc, nil
}

func (s *Store) AppendActions(_ context.Context, records []protocol.ActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		for _, existing := range s.actions[r.HandID] {
			if existing.Sequence == r.Sequence {
				return store.ErrConflict
			}
		}
	}
	for _, r := range records {
		s.actions[r.HandID] = append(s.actions[r.HandID], r)
	}
	return nil
}

func (s *Store) Actions(_ context.Context, handID string) ([]protocol.ActionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.actions[handID])
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}
