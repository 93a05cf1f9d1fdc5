// Package tournament runs scheduled multi-table tournaments on top of the
// table manager. A Controller is driven by a periodic Tick: it seats
// registrants shortly before the start, starts play, raises blinds by level,
// removes busted players, keeps tables balanced, breaks tables as the field
// shrinks and pays out once a single player holds every chip.
package tournament

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
	"github.com/Silozo17/homeholdem-sub001/internal/table"
)

// Status is a tournament's lifecycle stage
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusSeated    Status = "seated"
	StatusRunning   Status = "running"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
)

var (
	ErrNotFound           = protocol.NewError(protocol.CodeNotFound, "tournament: not found")
	ErrRegistrationClosed = protocol.NewError(protocol.CodeConflict, "tournament: registration closed")
	ErrBadRequest         = protocol.NewError(protocol.CodeBadRequest, "tournament: bad request")
)

// maxLevel bounds the doubling schedule
const maxLevel = 30

// Config describes one tournament
type Config struct {
	ID            string
	Name          string
	Start         time.Time
	TableSize     int
	StartingStack int
	SmallBlind    int
	BigBlind      int
	LevelDuration time.Duration
	BuyIn         decimal.Decimal
	// Payouts are percentages of the prize pool by finishing place
	Payouts []decimal.Decimal
}

func (c Config) validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("%w: id is required", ErrBadRequest)
	case c.TableSize < 2 || c.TableSize > 10:
		return fmt.Errorf("%w: table size %d", ErrBadRequest, c.TableSize)
	case c.StartingStack <= 0:
		return fmt.Errorf("%w: starting stack %d", ErrBadRequest, c.StartingStack)
	case c.SmallBlind <= 0 || c.BigBlind < c.SmallBlind:
		return fmt.Errorf("%w: blinds %d/%d", ErrBadRequest, c.SmallBlind, c.BigBlind)
	case c.LevelDuration <= 0:
		return fmt.Errorf("%w: level duration %s", ErrBadRequest, c.LevelDuration)
	case len(c.Payouts) == 0:
		return fmt.Errorf("%w: no payouts", ErrBadRequest)
	}
	return nil
}

// Options configures a Controller
type Options struct {
	Clock  quartz.Clock
	Logger *log.Logger
	// SeatLead is how long before the start tables are created
	SeatLead time.Duration
	// AutoDeal starts the next hand on idle tables every tick
	AutoDeal bool
}

// Standing is a finished player's place and prize
type Standing struct {
	PlayerID string          `json:"player_id"`
	Place    int             `json:"place"`
	Payout   decimal.Decimal `json:"payout"`
}

// Info is a read-only view of a tournament
type Info struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    Status     `json:"status"`
	Start     time.Time  `json:"start"`
	Level     int        `json:"level"`
	Entrants  int        `json:"entrants"`
	Tables    []string   `json:"tables"`
	Standings []Standing `json:"standings,omitempty"`
}

type tournament struct {
	mu        sync.Mutex
	cfg       Config
	status    Status
	players   []string
	tables    []string
	level     int
	busted    []string
	standings []Standing
}

// Controller owns every scheduled tournament in the process
type Controller struct {
	manager *table.Manager
	opts    Options
	logger  *log.Logger

	mu          sync.Mutex
	tournaments map[string]*tournament
}

// NewController creates a controller that seats players through manager
func NewController(manager *table.Manager, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.SeatLead == 0 {
		opts.SeatLead = 5 * time.Minute
	}
	return &Controller{
		manager:     manager,
		opts:        opts,
		logger:      opts.Logger.WithPrefix("tournament"),
		tournaments: make(map[string]*tournament),
	}
}

// Schedule adds a tournament
func (c *Controller) Schedule(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tournaments[cfg.ID]; ok {
		return fmt.Errorf("%w: tournament %s exists", ErrBadRequest, cfg.ID)
	}
	c.tournaments[cfg.ID] = &tournament{cfg: cfg, status: StatusScheduled}
	c.logger.Info("Scheduled", "tournament", cfg.ID, "start", cfg.Start)
	return nil
}

// Register enters playerID while the tournament has not been seated
func (c *Controller) Register(id, playerID string) error {
	t, err := c.get(id)
	if err != nil {
		return err
	}
	if playerID == "" {
		return fmt.Errorf("%w: player id is required", ErrBadRequest)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusScheduled {
		return ErrRegistrationClosed
	}
	for _, p := range t.players {
		if p == playerID {
			return nil
		}
	}
	t.players = append(t.players, playerID)
	return nil
}

// Info describes tournament id
func (c *Controller) Info(id string) (Info, error) {
	t, err := c.get(id)
	if err != nil {
		return Info{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return Info{
		ID: t.cfg.ID, Name: t.cfg.Name, Status: t.status, Start: t.cfg.Start,
		Level: t.level, Entrants: len(t.players),
		Tables:    append([]string(nil), t.tables...),
		Standings: append([]Standing(nil), t.standings...),
	}, nil
}

// List returns every tournament ordered by start time
func (c *Controller) List() []Info {
	c.mu.Lock()
	ids := make([]string, 0, len(c.tournaments))
	for id := range c.tournaments {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	out := make([]Info, 0, len(ids))
	for _, id := range ids {
		if info, err := c.Info(id); err == nil {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (c *Controller) get(id string) (*tournament, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tournaments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// Run ticks every interval until ctx is done
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	err := c.opts.Clock.TickerFunc(ctx, interval, func() error {
		if err := c.Tick(ctx); err != nil {
			c.logger.Error("Tick failed", "error", err)
		}
		return nil
	}, "tournament").Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Tick advances every tournament once. Tournaments own disjoint tables, so
// they are processed in parallel.
func (c *Controller) Tick(ctx context.Context) error {
	c.mu.Lock()
	active := make([]*tournament, 0, len(c.tournaments))
	for _, t := range c.tournaments {
		active = append(active, t)
	}
	c.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, t := range active {
		g.Go(func() error {
			t.mu.Lock()
			defer t.mu.Unlock()
			if err := c.advance(ctx, t); err != nil {
				return fmt.Errorf("tournament %s: %w", t.cfg.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *Controller) advance(ctx context.Context, t *tournament) error {
	now := c.opts.Clock.Now()
	switch t.status {
	case StatusScheduled:
		if now.Before(t.cfg.Start.Add(-c.opts.SeatLead)) {
			return nil
		}
		if err := c.seat(ctx, t); err != nil {
			return err
		}
		if t.status != StatusSeated {
			return nil
		}
		fallthrough
	case StatusSeated:
		if now.Before(t.cfg.Start) {
			return nil
		}
		t.status = StatusRunning
		c.logger.Info("Started", "tournament", t.cfg.ID, "entrants", len(t.players), "tables", len(t.tables))
		fallthrough
	case StatusRunning:
		return c.play(ctx, t, now)
	}
	return nil
}

// seat creates the tables and deals registrants round-robin across them.
// Tables that already exist for the tournament, such as after a restart, are
// adopted instead.
func (c *Controller) seat(ctx context.Context, t *tournament) error {
	var existing []string
	for _, s := range c.manager.Tables() {
		if s.TournamentID == t.cfg.ID {
			existing = append(existing, s.ID)
		}
	}
	if len(existing) > 0 {
		t.tables = existing
		t.status = StatusSeated
		c.logger.Info("Adopted tables", "tournament", t.cfg.ID, "tables", len(existing))
		return nil
	}

	if len(t.players) < 2 {
		t.status = StatusCancelled
		c.logger.Warn("Cancelled for lack of entrants", "tournament", t.cfg.ID, "entrants", len(t.players))
		return nil
	}

	n := (len(t.players) + t.cfg.TableSize - 1) / t.cfg.TableSize
	sessions := make([]*table.Session, n)
	for i := range sessions {
		s, err := c.manager.Create(ctx, table.Config{
			ID:           fmt.Sprintf("%s-%d", t.cfg.ID, i+1),
			Name:         fmt.Sprintf("%s table %d", t.cfg.Name, i+1),
			HostID:       table.System,
			TournamentID: t.cfg.ID,
			MaxSeats:     t.cfg.TableSize,
			SmallBlind:   t.cfg.SmallBlind,
			BigBlind:     t.cfg.BigBlind,
		})
		if err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		sessions[i] = s
		t.tables = append(t.tables, s.ID())
	}
	for i, p := range t.players {
		if _, err := sessions[i%n].Place(ctx, p, p, t.cfg.StartingStack); err != nil {
			return fmt.Errorf("seat %s: %w", p, err)
		}
	}
	t.level = 1
	t.status = StatusSeated
	c.logger.Info("Seated", "tournament", t.cfg.ID, "entrants", len(t.players), "tables", n)
	return nil
}

// play runs one maintenance pass over a running tournament
func (c *Controller) play(ctx context.Context, t *tournament, now time.Time) error {
	sessions := c.sessions(t)

	if err := c.raiseBlinds(ctx, t, sessions, now); err != nil {
		return err
	}
	if err := c.eliminate(ctx, t, sessions); err != nil {
		return err
	}
	if done, err := c.finish(ctx, t, sessions); done || err != nil {
		return err
	}
	if err := c.breakTables(ctx, t, sessions); err != nil {
		return err
	}
	sessions = c.sessions(t)
	if err := c.balance(ctx, sessions); err != nil {
		return err
	}
	if c.opts.AutoDeal {
		c.deal(ctx, sessions)
	}
	return nil
}

func (c *Controller) sessions(t *tournament) []*table.Session {
	out := make([]*table.Session, 0, len(t.tables))
	for _, id := range t.tables {
		s, err := c.manager.Get(id)
		if err != nil {
			c.logger.Warn("Table missing", "tournament", t.cfg.ID, "table", id)
			continue
		}
		out = append(out, s)
	}
	return out
}

// Level returns the blind level in effect at elapsed time since the start
func Level(elapsed, duration time.Duration) int {
	if elapsed < 0 || duration <= 0 {
		return 1
	}
	return min(int(elapsed/duration)+1, maxLevel)
}

// Blinds returns the blinds for level on a doubling schedule
func Blinds(level, smallBlind, bigBlind int) (int, int) {
	shift := max(level-1, 0)
	return smallBlind << shift, bigBlind << shift
}

func (c *Controller) raiseBlinds(ctx context.Context, t *tournament, sessions []*table.Session, now time.Time) error {
	level := Level(now.Sub(t.cfg.Start), t.cfg.LevelDuration)
	if level <= t.level {
		return nil
	}
	t.level = level
	sb, bb := Blinds(level, t.cfg.SmallBlind, t.cfg.BigBlind)
	for _, s := range sessions {
		if err := s.SetBlinds(ctx, level, sb, bb, 0); err != nil {
			return fmt.Errorf("set blinds on %s: %w", s.ID(), err)
		}
	}
	c.logger.Info("Blinds up", "tournament", t.cfg.ID, "level", level, "small_blind", sb, "big_blind", bb)
	return nil
}

type occupant struct {
	id    string
	name  string
	seat  int
	stack int
}

func occupants(s *table.Session) []occupant {
	var out []occupant
	for _, seat := range s.Snapshot().Seats {
		if seat.Status == protocol.SeatEmpty {
			continue
		}
		out = append(out, occupant{id: seat.PlayerID, name: seat.Name, seat: seat.Seat, stack: seat.Stack})
	}
	return out
}

// eliminate removes players left without chips from idle tables
func (c *Controller) eliminate(ctx context.Context, t *tournament, sessions []*table.Session) error {
	for _, s := range sessions {
		if s.Busy() {
			continue
		}
		for _, o := range occupants(s) {
			if o.stack > 0 {
				continue
			}
			if _, err := s.Remove(ctx, o.id); err != nil {
				if errors.Is(err, table.ErrHandInProgress) {
					break
				}
				return fmt.Errorf("remove %s: %w", o.id, err)
			}
			t.busted = append(t.busted, o.id)
			c.logger.Info("Eliminated", "tournament", t.cfg.ID, "player", o.id, "remaining", len(t.players)-len(t.busted))
		}
	}
	return nil
}

// finish completes the tournament once one player is left
func (c *Controller) finish(ctx context.Context, t *tournament, sessions []*table.Session) (bool, error) {
	var alive []string
	for _, s := range sessions {
		if s.Busy() {
			return false, nil
		}
		for _, o := range occupants(s) {
			if o.stack > 0 {
				alive = append(alive, o.id)
			}
		}
	}
	if len(alive) > 1 {
		return false, nil
	}

	order := append([]string(nil), alive...)
	for i := len(t.busted) - 1; i >= 0; i-- {
		order = append(order, t.busted[i])
	}
	pool := t.cfg.BuyIn.Mul(decimal.NewFromInt(int64(len(t.players))))
	prizes := Payouts(pool, t.cfg.Payouts, len(order))
	t.standings = t.standings[:0]
	for i, p := range order {
		st := Standing{PlayerID: p, Place: i + 1, Payout: decimal.Zero}
		if i < len(prizes) {
			st.Payout = prizes[i]
		}
		t.standings = append(t.standings, st)
	}

	for _, s := range sessions {
		if err := c.manager.Close(ctx, s.ID(), table.System); err != nil {
			return true, fmt.Errorf("close %s: %w", s.ID(), err)
		}
	}
	t.tables = nil
	t.status = StatusComplete
	winner := ""
	if len(alive) == 1 {
		winner = alive[0]
	}
	c.logger.Info("Complete", "tournament", t.cfg.ID, "winner", winner, "pool", pool.StringFixed(2))
	return true, nil
}

// Payouts splits pool by the percentage table across n finishers. When fewer
// players finish than there are paid places the used percentages are scaled
// up. Amounts are rounded down to cents and the remainder goes to first place,
// so the prizes always sum to pool.
func Payouts(pool decimal.Decimal, percents []decimal.Decimal, n int) []decimal.Decimal {
	paid := min(n, len(percents))
	if paid == 0 {
		return nil
	}
	total := decimal.Zero
	for _, p := range percents[:paid] {
		total = total.Add(p)
	}
	out := make([]decimal.Decimal, paid)
	sum := decimal.Zero
	for i, p := range percents[:paid] {
		out[i] = pool.Mul(p).Div(total).RoundDown(2)
		sum = sum.Add(out[i])
	}
	out[0] = out[0].Add(pool.Sub(sum))
	return out
}

// breakTables closes the smallest idle tables while the field fits on fewer,
// moving their players to the tables with the most room
func (c *Controller) breakTables(ctx context.Context, t *tournament, sessions []*table.Session) error {
	for len(sessions) > 1 {
		counts := make([]int, len(sessions))
		total := 0
		for i, s := range sessions {
			counts[i] = s.Occupied()
			total += counts[i]
		}
		needed := max((total+t.cfg.TableSize-1)/t.cfg.TableSize, 1)
		if needed >= len(sessions) {
			return nil
		}

		victim := -1
		for i, s := range sessions {
			if s.Busy() {
				continue
			}
			if victim < 0 || counts[i] < counts[victim] {
				victim = i
			}
		}
		if victim < 0 {
			return nil
		}
		src := sessions[victim]
		rest := append(append([]*table.Session(nil), sessions[:victim]...), sessions[victim+1:]...)
		for _, o := range occupants(src) {
			dst := emptiest(rest)
			if err := move(ctx, src, dst, o); err != nil {
				return err
			}
		}
		if err := c.manager.Close(ctx, src.ID(), table.System); err != nil {
			return fmt.Errorf("close %s: %w", src.ID(), err)
		}
		t.tables = ids(rest)
		sessions = rest
		c.logger.Info("Broke table", "tournament", t.cfg.ID, "table", src.ID(), "tables", len(rest))
	}
	return nil
}

// balance moves players from the fullest idle table to the emptiest until
// counts differ by less than two
func (c *Controller) balance(ctx context.Context, sessions []*table.Session) error {
	if len(sessions) < 2 {
		return nil
	}
	for range 100 {
		src, dst := fullest(sessions), emptiest(sessions)
		if src.Occupied()-dst.Occupied() < 2 || src.Busy() {
			return nil
		}
		occ := occupants(src)
		o := occ[len(occ)-1]
		if err := move(ctx, src, dst, o); err != nil {
			if errors.Is(err, table.ErrHandInProgress) {
				return nil
			}
			return err
		}
		c.logger.Info("Moved player", "player", o.id, "from", src.ID(), "to", dst.ID())
	}
	return nil
}

// move reseats o on dst, putting them back on src if dst refuses
func move(ctx context.Context, src, dst *table.Session, o occupant) error {
	stack, err := src.Remove(ctx, o.id)
	if err != nil {
		return err
	}
	if _, err := dst.Place(ctx, o.id, o.name, stack); err != nil {
		if _, back := src.Place(ctx, o.id, o.name, stack); back != nil {
			return errors.Join(err, back)
		}
		return fmt.Errorf("move %s to %s: %w", o.id, dst.ID(), err)
	}
	return nil
}

func (c *Controller) deal(ctx context.Context, sessions []*table.Session) {
	for _, s := range sessions {
		if s.Busy() {
			continue
		}
		_, _, err := s.Deal(ctx, table.System)
		if err != nil && !errors.Is(err, table.ErrInsufficientPlayers) && !errors.Is(err, table.ErrHandInProgress) {
			c.logger.Warn("Deal failed", "table", s.ID(), "error", err)
		}
	}
}

func fullest(sessions []*table.Session) *table.Session {
	best := sessions[0]
	for _, s := range sessions[1:] {
		if s.Occupied() > best.Occupied() {
			best = s
		}
	}
	return best
}

func emptiest(sessions []*table.Session) *table.Session {
	best := sessions[0]
	for _, s := range sessions[1:] {
		if s.Occupied() < best.Occupied() {
			best = s
		}
	}
	return best
}

func ids(sessions []*table.Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID()
	}
	return out
}
