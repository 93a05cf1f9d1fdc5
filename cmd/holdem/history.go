package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Silozo17/homeholdem-sub001/internal/client"
	"github.com/Silozo17/homeholdem-sub001/internal/history"
)

// HistoryCmd exports settled hands as PHH for auditing
type HistoryCmd struct {
	Server string   `default:"http://localhost:8080" help:"Server base URL"`
	Token  string   `env:"HOLDEM_TOKEN" help:"Bearer token"`
	Table  string   `arg:"" help:"Table ID"`
	Hands  []string `arg:"" help:"Hand IDs to export"`
	Output string   `short:"o" help:"Write to this file instead of stdout"`
}

func (c *HistoryCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	api := client.NewAPI(c.Server, c.Token)

	state, err := api.State(ctx, c.Table)
	if err != nil {
		return err
	}
	hands := make([]history.Hand, 0, len(c.Hands))
	for _, id := range c.Hands {
		result, err := api.Result(ctx, c.Table, id)
		if err != nil {
			return fmt.Errorf("hand %s: %w", id, err)
		}
		records, err := api.Actions(ctx, c.Table, id)
		if err != nil {
			return fmt.Errorf("hand %s: %w", id, err)
		}
		hands = append(hands, history.Build(c.Table, len(state.Seats), result, records))
	}

	if c.Output != "" {
		return history.WriteFile(c.Output, hands...)
	}
	for _, h := range hands {
		if err := history.Encode(os.Stdout, h); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}
