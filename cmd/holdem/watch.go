package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/Silozo17/homeholdem-sub001/internal/client"
	"github.com/Silozo17/homeholdem-sub001/internal/deck"
	"github.com/Silozo17/homeholdem-sub001/internal/protocol"
	"github.com/Silozo17/homeholdem-sub001/internal/syncclient"
	"github.com/Silozo17/homeholdem-sub001/internal/watchdog"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true)
	actorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	foldStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	redCard     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
)

// WatchCmd mirrors a table in the terminal. With a token it also heartbeats
// the caller's seat and takes part in timeout enforcement.
type WatchCmd struct {
	Server string `default:"http://localhost:8080" help:"Server base URL"`
	Table  string `arg:"" help:"Table ID"`
	Token  string `env:"HOLDEM_TOKEN" help:"Bearer token; omit to watch as a spectator"`
	Player string `help:"Participant ID the token was minted for"`
}

func (c *WatchCmd) Run(cli *CLI) error {
	logger := newLogger(cli.Debug, "warn")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	role := protocol.RolePlayer
	if c.Token == "" || c.Player == "" {
		role = protocol.RoleSpectator
	}

	api := client.NewAPI(c.Server, c.Token)
	var mirror *syncclient.Client
	stream, err := client.Dial(ctx, client.StreamOptions{
		BaseURL: c.Server,
		TableID: c.Table,
		Token:   c.Token,
		Logger:  logger,
		OnDrop: func() {
			mirror.Disconnect(ctx)
		},
		OnRestore: func() {
			if err := mirror.Connect(ctx); err != nil {
				logger.Warn("Reconnect failed", "error", err)
			}
		},
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	mirror = syncclient.New(syncclient.Options{
		TableID:  c.Table,
		PlayerID: c.Player,
		Role:     role,
		API:      api,
		Channel:  stream,
		Logger:   logger,
		OnChange: func(v syncclient.View) {
			fmt.Fprint(os.Stdout, "\033[H\033[2J", render(v, c.Player))
		},
	})
	if err := mirror.Connect(ctx); err != nil {
		return err
	}
	defer mirror.Disconnect(context.Background())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mirror.Run(ctx) })
	if role == protocol.RolePlayer {
		dog := watchdog.New(watchdog.Config{PlayerID: c.Player}, mirror, mirror, quartz.NewReal(), logger)
		g.Go(func() error { return dog.Run(ctx) })
	}
	return g.Wait()
}

func renderCards(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, card := range cards {
		parts[i] = card.Pretty()
		if card.Suit.IsRed() {
			parts[i] = redCard.Render(parts[i])
		}
	}
	return strings.Join(parts, " ")
}

func render(v syncclient.View, me string) string {
	ps := v.State
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render(fmt.Sprintf(" %s  hand #%d  %s ", ps.TableID, ps.HandNumber, ps.Phase)))
	fmt.Fprintf(&b, "Blinds %d/%d", ps.SmallBlind, ps.BigBlind)
	if ps.Ante > 0 {
		fmt.Fprintf(&b, " ante %d", ps.Ante)
	}
	fmt.Fprintf(&b, "   Pot %d\n", ps.PotTotal)
	fmt.Fprintf(&b, "Board  %s\n\n", renderCards(v.Board))

	for _, seat := range ps.Seats {
		if seat.Status == protocol.SeatEmpty {
			continue
		}
		marker := "  "
		if seat.Seat == ps.DealerSeat {
			marker = "D "
		}
		line := fmt.Sprintf("%s%d. %-16s %6d", marker, seat.Seat, seat.Name, seat.Stack)
		if seat.Bet > 0 {
			line += fmt.Sprintf("  bet %d", seat.Bet)
		}
		if seat.LastAction != "" {
			line += "  " + seat.LastAction
		}
		if seat.PlayerID == me && len(v.Cards) > 0 {
			line += "  [" + renderCards(v.Cards) + "]"
		}
		switch {
		case seat.Seat == ps.ActorSeat:
			line = actorStyle.Render(line)
		case seat.Folded || seat.Status != protocol.SeatActive:
			line = foldStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	if v.Announced != nil {
		for _, w := range v.Announced.Winners {
			msg := fmt.Sprintf("%s wins %d", w.PlayerID, w.Amount)
			if w.HandName != "" {
				msg += " with " + w.HandName
			}
			b.WriteString("\n" + resultStyle.Render(msg))
		}
		b.WriteString("\n")
	}
	if v.MyTurn {
		fmt.Fprintf(&b, "\nYour turn, %d to call\n", v.CallAmount)
	}
	if v.Pending {
		b.WriteString("\nAction sent...\n")
	}
	fmt.Fprintf(&b, "\n%d online, %d watching\n", len(v.Online), v.Spectators)
	return b.String()
}
