package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version    kong.VersionFlag `short:"v" help:"Show version"`
	Debug      bool             `help:"Enable debug logging"`
	Serve      ServeCmd         `cmd:"" help:"Run the authoritative table server"`
	Watch      WatchCmd         `cmd:"" help:"Follow a table and enforce turn timeouts"`
	Act        ActCmd           `cmd:"" help:"Send a command to a table"`
	Token      TokenCmd         `cmd:"" help:"Mint a bearer token for a participant"`
	History    HistoryCmd       `cmd:"" help:"Export settled hands as PHH hand histories"`
	VerifyDeck VerifyDeckCmd    `cmd:"verify-deck" help:"Check a revealed shuffle seed against its commitment"`
}

func newLogger(debug bool, level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if lvl, err := log.ParseLevel(level); err == nil && level != "" {
		logger.SetLevel(lvl)
	}
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("holdem"),
		kong.Description("Authoritative multiplayer hold'em tables and tournaments"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
