package stealth

import (
	"context"

	"github/chapool/go-keyring/internal/sea"
)

// Ephemeral is the sender's one-time keypair. Only Epub is ever published.
type Ephemeral struct {
	Epub  string
	Epriv string
}

// Result is what a sender publishes for a payment. It holds no private material.
type Result struct {
	StealthAddress     string `json:"stealthAddress"`
	EphemeralPublicKey string `json:"ephemeralPublicKey"`
	RecipientPublicKey string `json:"recipientPublicKey"`
}

// Opened is the wallet a recipient recovers from a Result.
type Opened struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
}

// Primitives are the collaborator calls the protocol needs. sea.Provider
// satisfies it.
type Primitives interface {
	Pair(ctx context.Context) (*sea.KeyPair, error)
	Secret(ctx context.Context, peerEpub string, pair *sea.KeyPair) ([]byte, error)
}

// Service implements both halves of the stealth address protocol.
type Service interface {
	// NewEphemeral generates a fresh sender keypair.
	NewEphemeral(ctx context.Context) (*Ephemeral, error)

	// Generate derives a one-time address for the recipient owning recipientEpub.
	Generate(ctx context.Context, recipientEpub string, recipientPub string) (*Result, error)

	// GenerateWithEphemeral is Generate with a caller supplied ephemeral pair.
	GenerateWithEphemeral(ctx context.Context, recipientEpub string, recipientPub string, eph *Ephemeral) (*Result, error)

	// Open re-derives the one-time wallet with the recipient's stealth keys.
	// A derived address different from stealthAddress is an error.
	Open(ctx context.Context, keys *sea.KeyPair, stealthAddress string, ephemeralPub string) (*Opened, error)
}
