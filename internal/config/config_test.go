package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", c.Address())
	require.Len(t, c.Tables, 1)
	assert.Equal(t, 2000, c.Tables[0].BuyInMin)

	timing, err := c.ParsedTiming()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timing.ActionTimeout)
	assert.Equal(t, 1500*time.Millisecond, timing.RunoutDelay)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "holdem.hcl", `
server {
  port      = 9090
  log_level = "debug"
}

nats {
  url = "nats://broker:4222"
}

timing {
  action_timeout = "20s"
}

table "friday" {
  max_seats      = 6
  small_blind    = 25
  big_blind      = 50
  ante           = 5
  blind_interval = "10m"
}

tournament "sunday" {
  start      = "2025-06-01T18:00:00Z"
  table_size = 6
  buy_in     = "20.50"
  payouts    = ["65", "35"]
}
`)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("NATS_URL", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("JWT_SECRET", "from-env")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "debug", c.Server.LogLevel)
	assert.Equal(t, "nats://broker:4222", c.NATS.URL)
	assert.Equal(t, "from-env", c.Auth.JWTSecret)

	interval, err := c.Tables[0].Interval()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, interval)
	assert.Equal(t, 1000, c.Tables[0].BuyInMin)

	payouts, err := c.Tournaments[0].PayoutTable()
	require.NoError(t, err)
	assert.Equal(t, "65", payouts[0].String())
	assert.Equal(t, 10000, c.Tournaments[0].StartingStack)
	buyIn, err := c.Tournaments[0].BuyInAmount()
	require.NoError(t, err)
	assert.Equal(t, "20.5", buyIn.String())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/holdem")
	t.Setenv("NATS_URL", "nats://env:4222")
	t.Setenv("NATS_TOKEN", "secret")
	t.Setenv("LOG_LEVEL", "warn")

	c, err := Load(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/holdem", c.Database.URL)
	assert.Equal(t, "nats://env:4222", c.NATS.URL)
	assert.Equal(t, "secret", c.NATS.Token)
	assert.Equal(t, "warn", c.Server.LogLevel)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "HOLDEM_TEST_DOTENV=loaded\n")
	t.Setenv("HOLDEM_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("HOLDEM_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("HOLDEM_TEST_DOTENV"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid port"},
		{"blinds inverted", func(c *Config) { c.Tables[0].BigBlind = 10; c.Tables[0].SmallBlind = 20 }, "big blind must be greater"},
		{"too many seats", func(c *Config) { c.Tables[0].MaxSeats = 11 }, "max seats"},
		{"bad interval", func(c *Config) { c.Tables[0].BlindInterval = "soon" }, "blind_interval"},
		{"bad timing", func(c *Config) { c.Timing.RunoutDelay = "x" }, "runout_delay"},
		{"payouts not 100", func(c *Config) {
			c.Tournaments = []TournamentConfig{{Name: "t", Start: "2025-01-01T00:00:00Z", TableSize: 9, LevelDuration: "1m", Payouts: []string{"50", "40"}}}
		}, "payouts total"},
		{"negative buy-in", func(c *Config) {
			c.Tournaments = []TournamentConfig{{Name: "t", Start: "2025-01-01T00:00:00Z", TableSize: 9, LevelDuration: "1m", BuyIn: "-5", Payouts: []string{"100"}}}
		}, "buy_in must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
