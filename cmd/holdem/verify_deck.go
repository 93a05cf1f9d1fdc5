package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/Silozo17/homeholdem-sub001/internal/deck"
)

var (
	okStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	badStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)
)

var errCommitmentMismatch = errors.New("seed does not match commitment")

// VerifyDeckCmd replays a settled hand's shuffle from its revealed seed
type VerifyDeckCmd struct {
	Seed       string `arg:"" help:"Revealed seed (hex)"`
	Commitment string `arg:"" optional:"" help:"Commitment published when the hand was dealt"`
}

func (c *VerifyDeckCmd) Run() error {
	seed, err := deck.ParseSeed(c.Seed)
	if err != nil {
		return err
	}
	cards := deck.Shuffled(seed).Cards()
	for i := 0; i < len(cards); i += 13 {
		fmt.Println(renderCards(cards[i:min(i+13, len(cards))]))
	}
	if c.Commitment == "" {
		fmt.Printf("\ncommitment %s\n", deck.Commit(seed))
		return nil
	}
	if !deck.VerifyCommitment(seed, c.Commitment) {
		fmt.Println("\n" + badStyle.Render("MISMATCH"))
		return errCommitmentMismatch
	}
	fmt.Println("\n" + okStyle.Render("commitment verified"))
	return nil
}
