package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Silozo17/homeholdem-sub001/internal/client"
	"github.com/Silozo17/homeholdem-sub001/internal/game"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
)

// ActCmd sends one command to a table and prints the response as JSON
type ActCmd struct {
	Server string `default:"http://localhost:8080" help:"Server base URL"`
	Token  string `env:"HOLDEM_TOKEN" required:"" help:"Bearer token"`
	Table  string `arg:"" help:"Table ID"`
	Action string `arg:"" enum:"join,leave,deal,fold,check,call,raise,all_in,timeout" help:"join, leave, deal, fold, check, call, raise, all_in or timeout"`
	Amount int    `short:"a" help:"Raise-to amount, or the buy-in for join"`
	Seat   int    `help:"Seat to take on join; 0 picks the lowest free seat"`
	Name   string `help:"Display name on join"`
}

func (c *ActCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	api := client.NewAPI(c.Server, c.Token)

	var out any
	var err error
	switch c.Action {
	case "join":
		out, err = api.Join(ctx, c.Table, protocol.JoinRequest{Seat: c.Seat, Name: c.Name, BuyIn: c.Amount})
	case "leave":
		out, err = api.Leave(ctx, c.Table)
	case "deal":
		out, err = api.Deal(ctx, c.Table)
	case "timeout":
		var ps protocol.PublicState
		if ps, err = api.State(ctx, c.Table); err == nil {
			var resolved bool
			resolved, err = api.ResolveTimeout(ctx, c.Table, ps.HandID)
			out = protocol.TimeoutResponse{Resolved: resolved}
		}
	default:
		var ps protocol.PublicState
		if ps, err = api.State(ctx, c.Table); err != nil {
			break
		}
		err = api.Act(ctx, c.Table, protocol.ActionRequest{HandID: ps.HandID, Action: game.Action(c.Action), Amount: c.Amount})
		if err == nil {
			out, err = api.State(ctx, c.Table)
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", c.Action, err)
	}
	if out == nil {
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
