// Package config loads server configuration from an HCL file, then applies
// .env and environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the complete server configuration
type Config struct {
	Server      ServerSettings     `hcl:"server,block"`
	Database    *DatabaseSettings  `hcl:"database,block"`
	NATS        *NATSSettings      `hcl:"nats,block"`
	Auth        *AuthSettings      `hcl:"auth,block"`
	Timing      *TimingSettings    `hcl:"timing,block"`
	Tables      []TableConfig      `hcl:"table,block"`
	Tournaments []TournamentConfig `hcl:"tournament,block"`
}

// ServerSettings contains listener and logging settings
type ServerSettings struct {
	Address        string   `hcl:"address,optional"`
	Port           int      `hcl:"port,optional"`
	LogLevel       string   `hcl:"log_level,optional"`
	AllowedOrigins []string `hcl:"allowed_origins,optional"`
	// RateLimit is requests per minute per client IP
	RateLimit int `hcl:"rate_limit,optional"`
}

// DatabaseSettings selects PostgreSQL; without it state is kept in memory
type DatabaseSettings struct {
	URL string `hcl:"url,optional"`
}

// NATSSettings selects NATS as the broadcast channel; without it events stay
// in process
type NATSSettings struct {
	URL   string `hcl:"url,optional"`
	Token string `hcl:"token,optional"`
	Name  string `hcl:"name,optional"`
}

// AuthSettings holds the HS256 signing secret for bearer tokens
type AuthSettings struct {
	JWTSecret string `hcl:"jwt_secret,optional"`
}

// TimingSettings holds durations written as Go duration strings
type TimingSettings struct {
	ActionTimeout     string `hcl:"action_timeout,optional"`
	RunoutDelay       string `hcl:"runout_delay,optional"`
	HeartbeatInterval string `hcl:"heartbeat_interval,optional"`
	TournamentTick    string `hcl:"tournament_tick,optional"`
}

// TableConfig defines a table created at startup
type TableConfig struct {
	Name          string `hcl:"name,label"`
	MaxSeats      int    `hcl:"max_seats,optional"`
	SmallBlind    int    `hcl:"small_blind"`
	BigBlind      int    `hcl:"big_blind"`
	Ante          int    `hcl:"ante,optional"`
	BlindInterval string `hcl:"blind_interval,optional"`
	BuyInMin      int    `hcl:"buy_in_min,optional"`
	BuyInMax      int    `hcl:"buy_in_max,optional"`
}

// TournamentConfig schedules a tournament
type TournamentConfig struct {
	Name          string   `hcl:"name,label"`
	Start         string   `hcl:"start"`
	TableSize     int      `hcl:"table_size,optional"`
	StartingStack int      `hcl:"starting_stack,optional"`
	SmallBlind    int      `hcl:"small_blind,optional"`
	BigBlind      int      `hcl:"big_blind,optional"`
	LevelDuration string   `hcl:"level_duration,optional"`
	BuyIn         string   `hcl:"buy_in,optional"`
	Payouts       []string `hcl:"payouts,optional"`
	Players       []string `hcl:"players,optional"`
}

// Timing is TimingSettings parsed
type Timing struct {
	ActionTimeout     time.Duration
	RunoutDelay       time.Duration
	HeartbeatInterval time.Duration
	TournamentTick    time.Duration
}

// Default returns the configuration used when no file exists
func Default() *Config {
	c := &Config{
		Tables: []TableConfig{{Name: "main", SmallBlind: 50, BigBlind: 100}},
	}
	c.applyDefaults()
	return c
}

// Load reads filename, falling back to defaults when it does not exist, then
// applies environment overrides and validates.
func Load(filename string) (*Config, error) {
	var c *Config
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		c = Default()
	} else {
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCLFile(filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
		}
		c = &Config{}
		if diags := gohcl.DecodeBody(file.Body, nil, c); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
		}
		c.applyDefaults()
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadDotEnv loads .env files into the process environment when present;
// variables already set win.
func LoadDotEnv(files ...string) error {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 600
	}
	if c.Database == nil {
		c.Database = &DatabaseSettings{}
	}
	if c.NATS == nil {
		c.NATS = &NATSSettings{}
	}
	if c.NATS.Name == "" {
		c.NATS.Name = "holdem"
	}
	if c.Auth == nil {
		c.Auth = &AuthSettings{}
	}
	if c.Timing == nil {
		c.Timing = &TimingSettings{}
	}
	if c.Timing.ActionTimeout == "" {
		c.Timing.ActionTimeout = "30s"
	}
	if c.Timing.RunoutDelay == "" {
		c.Timing.RunoutDelay = "1500ms"
	}
	if c.Timing.HeartbeatInterval == "" {
		c.Timing.HeartbeatInterval = "10s"
	}
	if c.Timing.TournamentTick == "" {
		c.Timing.TournamentTick = "15s"
	}

	for i := range c.Tables {
		t := &c.Tables[i]
		if t.MaxSeats == 0 {
			t.MaxSeats = 9
		}
		if t.BuyInMin == 0 {
			t.BuyInMin = t.BigBlind * 20
		}
		if t.BuyInMax == 0 {
			t.BuyInMax = t.BigBlind * 200
		}
	}

	for i := range c.Tournaments {
		t := &c.Tournaments[i]
		if t.TableSize == 0 {
			t.TableSize = 9
		}
		if t.StartingStack == 0 {
			t.StartingStack = 10000
		}
		if t.SmallBlind == 0 {
			t.SmallBlind = 25
		}
		if t.BigBlind == 0 {
			t.BigBlind = t.SmallBlind * 2
		}
		if t.LevelDuration == "" {
			t.LevelDuration = "15m"
		}
		if len(t.Payouts) == 0 {
			t.Payouts = []string{"50", "30", "20"}
		}
		if t.BuyIn == "" {
			t.BuyIn = "0"
		}
	}
}

// applyEnv overrides file values with DATABASE_URL, NATS_URL, NATS_TOKEN,
// JWT_SECRET and LOG_LEVEL
func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("NATS_TOKEN"); v != "" {
		c.NATS.Token = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := c.ParsedTiming(); err != nil {
		return err
	}

	for _, t := range c.Tables {
		if t.SmallBlind <= 0 {
			return fmt.Errorf("table %s: small blind must be positive", t.Name)
		}
		if t.BigBlind <= t.SmallBlind {
			return fmt.Errorf("table %s: big blind must be greater than small blind", t.Name)
		}
		if t.MaxSeats < 2 || t.MaxSeats > 10 {
			return fmt.Errorf("table %s: max seats must be between 2 and 10", t.Name)
		}
		if t.BuyInMin >= t.BuyInMax {
			return fmt.Errorf("table %s: buy-in minimum must be less than maximum", t.Name)
		}
		if _, err := t.Interval(); err != nil {
			return err
		}
	}

	for _, t := range c.Tournaments {
		if _, err := time.Parse(time.RFC3339, t.Start); err != nil {
			return fmt.Errorf("tournament %s: start must be RFC3339: %w", t.Name, err)
		}
		if t.TableSize < 2 || t.TableSize > 10 {
			return fmt.Errorf("tournament %s: table size must be between 2 and 10", t.Name)
		}
		if _, err := time.ParseDuration(t.LevelDuration); err != nil {
			return fmt.Errorf("tournament %s: level_duration: %w", t.Name, err)
		}
		if _, err := t.PayoutTable(); err != nil {
			return err
		}
		if _, err := t.BuyInAmount(); err != nil {
			return err
		}
	}
	return nil
}

// Address returns host:port for the listener
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// ParsedTiming converts the timing block to durations
func (c *Config) ParsedTiming() (Timing, error) {
	var t Timing
	for _, f := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"action_timeout", c.Timing.ActionTimeout, &t.ActionTimeout},
		{"runout_delay", c.Timing.RunoutDelay, &t.RunoutDelay},
		{"heartbeat_interval", c.Timing.HeartbeatInterval, &t.HeartbeatInterval},
		{"tournament_tick", c.Timing.TournamentTick, &t.TournamentTick},
	} {
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return t, fmt.Errorf("timing %s: %w", f.name, err)
		}
		*f.dst = d
	}
	return t, nil
}

// Interval parses the blind escalation interval; zero disables escalation
func (t TableConfig) Interval() (time.Duration, error) {
	if t.BlindInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(t.BlindInterval)
	if err != nil {
		return 0, fmt.Errorf("table %s: blind_interval: %w", t.Name, err)
	}
	return d, nil
}

// PayoutTable parses payout percentages, which must total 100
func (t TournamentConfig) PayoutTable() ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, 0, len(t.Payouts))
	total := decimal.Zero
	for _, p := range t.Payouts {
		d, err := decimal.NewFromString(p)
		if err != nil {
			return nil, fmt.Errorf("tournament %s: payout %q: %w", t.Name, p, err)
		}
		if !d.IsPositive() {
			return nil, fmt.Errorf("tournament %s: payout %s must be positive", t.Name, p)
		}
		out = append(out, d)
		total = total.Add(d)
	}
	if !total.Equal(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("tournament %s: payouts total %s, want 100", t.Name, total)
	}
	return out, nil
}

// BuyInAmount parses the entry fee; the prize pool is entrants times this
func (t TournamentConfig) BuyInAmount() (decimal.Decimal, error) {
	if t.BuyIn == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(t.BuyIn)
	if err != nil {
		return decimal.Zero, fmt.Errorf("tournament %s: buy_in %q: %w", t.Name, t.BuyIn, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("tournament %s: buy_in must not be negative", t.Name)
	}
	return d, nil
}
