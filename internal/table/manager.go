package table

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Silozo17/homeholdem-sub001/internal/gameid"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

// Summary holds lightweight table metadata for lobby listings.
type Summary struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	TournamentID string               `json:"tournament_id,omitempty"`
	SmallBlind   int                  `json:"small_blind"`
	BigBlind     int                  `json:"big_blind"`
	MaxSeats     int                  `json:"max_seats"`
	Seated       int                  `json:"seated"`
	Status       protocol.TableStatus `json:"status"`
	HandNumber   int                  `json:"hand_number"`
}

// Manager tracks the sessions running in this process.
type Manager struct {
	opts   Options
	logger *log.Logger
	mu     sync.RWMutex
	tables map[string]*Session
}

// NewManager constructs an empty manager. Every session it creates shares opts.
func NewManager(opts Options) *Manager {
	opts.applyDefaults()
	return &Manager{
		opts:   opts,
		logger: opts.Logger.WithPrefix("tables"),
		tables: make(map[string]*Session),
	}
}

// Create starts a new session. An empty cfg.ID is assigned one.
func (m *Manager) Create(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.ID == "" {
		cfg.ID = gameid.New()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[cfg.ID]; ok {
		return nil, fmt.Errorf("%w: table %s exists", ErrBadRequest, cfg.ID)
	}
	s, err := NewSession(ctx, cfg, m.opts)
	if err != nil {
		return nil, err
	}
	m.tables[cfg.ID] = s
	return s, nil
}

// Get retrieves a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.tables[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Tables returns a snapshot of the open tables ordered by id.
func (m *Manager) Tables() []Summary {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.tables))
	for _, s := range m.tables {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		st := s.Snapshot()
		seated := 0
		for _, seat := range st.Seats {
			if seat.Status != protocol.SeatEmpty {
				seated++
			}
		}
		out = append(out, Summary{
			ID: st.TableID, Name: s.cfg.Name, TournamentID: s.cfg.TournamentID,
			SmallBlind: st.SmallBlind, BigBlind: st.BigBlind, MaxSeats: s.cfg.MaxSeats,
			Seated: seated, Status: st.Status, HandNumber: st.HandNumber,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Restore loads every table that is not closed from the store.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	rows, err := m.opts.Store.ListTables(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tables: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	restored := 0
	for _, row := range rows {
		if row.Status == protocol.TableClosed {
			continue
		}
		if _, ok := m.tables[row.ID]; ok {
			continue
		}
		s, err := Restore(ctx, row, m.opts)
		if err != nil {
			return restored, err
		}
		m.tables[row.ID] = s
		restored++
	}
	if restored > 0 {
		m.logger.Info("Restored tables", "count", restored)
	}
	return restored, nil
}

// Close shuts a table and forgets it.
func (m *Manager) Close(ctx context.Context, id, requester string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	if err := s.Close(ctx, requester); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.tables, id)
	m.mu.Unlock()
	return nil
}

// Sweep marks silent seats as disconnected on every table.
func (m *Manager) Sweep(ctx context.Context) {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.tables))
	for _, s := range m.tables {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		if _, err := s.Sweep(ctx, m.opts.SilenceTimeout); err != nil {
			m.logger.Warn("Sweep failed", "table", s.ID(), "error", err)
		}
	}
}
