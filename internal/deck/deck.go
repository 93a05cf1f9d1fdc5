package deck

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	rand "math/rand/v2"

	"github.com/Silozo17/homeholdem-sub001/internal/randutil"
)

// Size is the number of cards in a standard deck
const Size = 52

// Seed is the secret from which a hand's shuffle is derived
type Seed [32]byte

// ErrExhausted is returned when more cards are requested than remain
var ErrExhausted = errors.New("deck: not enough cards remaining")

// String returns the hex encoding of the seed
func (s Seed) String() string {
	return hex.EncodeToString(s[:])
}

// ParseSeed decodes a hex encoded 32-byte seed
func ParseSeed(s string) (Seed, error) {
	var seed Seed
	raw, err := hex.DecodeString(s)
	if err != nil {
		return seed, fmt.Errorf("decode seed: %w", err)
	}
	if len(raw) != len(seed) {
		return seed, fmt.Errorf("seed must be %d bytes, got %d", len(seed), len(raw))
	}
	copy(seed[:], raw)
	return seed, nil
}

// NewSeed draws a fresh seed from the operating system's CSPRNG
func NewSeed() (Seed, error) {
	b, err := randutil.SeedBytes()
	if err != nil {
		return Seed{}, err
	}
	return Seed(b), nil
}

// Commit returns the hex SHA-256 of the seed. It is published before any card is used.
func Commit(seed Seed) string {
	sum := sha256.Sum256(seed[:])
	return hex.EncodeToString(sum[:])
}

// VerifyCommitment reports whether seed hashes to the published commitment
func VerifyCommitment(seed Seed, commitment string) bool {
	return subtle.ConstantTimeCompare([]byte(Commit(seed)), []byte(commitment)) == 1
}

// Canonical returns the 52 cards in canonical order: hearts, diamonds, clubs, spades,
// each from two to ace.
func Canonical() []Card {
	cards := make([]Card, 0, Size)
	for _, suit := range Suits {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(rank, suit))
		}
	}
	return cards
}

// Deck represents an ordered deck of cards dealt from the top
type Deck struct {
	cards []Card
	next  int
}

// Shuffled returns the canonical deck permuted by a Fisher-Yates shuffle driven by a
// ChaCha8 stream keyed with seed. The same seed always yields the same order.
func Shuffled(seed Seed) *Deck {
	rng := rand.New(rand.NewChaCha8(seed))
	cards := Canonical()
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return &Deck{cards: cards}
}

// FromCards builds a stacked deck; used for scripted hands and tests
func FromCards(cards []Card) *Deck {
	c := make([]Card, len(cards))
	copy(c, cards)
	return &Deck{cards: c}
}

// Deal deals n cards from the top of the deck
func (d *Deck) Deal(n int) ([]Card, error) {
	if d.next+n > len(d.cards) {
		return nil, ErrExhausted
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards, nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}

// Cards returns a copy of the full deck order, dealt cards included
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
