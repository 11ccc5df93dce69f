package address

import (
	"context"

	"github/chapool/go-keyring/internal/sea"
)

// Mode names the way a wallet was derived.
type Mode string

const (
	ModeSalt   Mode = "salt"
	ModeIndex  Mode = "index"
	ModeLegacy Mode = "legacy"
)

// Derived is the output of a derivation: an Ethereum keypair plus the entropy
// it was derived from. PrivateKey is "0x" followed by 64 hex characters.
type Derived struct {
	Address    string
	PrivateKey string
	Entropy    string
	Index      *int
	Mode       Mode
}

// KDF is the password-hardening primitive derivation is built on.
// sea.Provider satisfies it.
type KDF interface {
	Work(ctx context.Context, data string, pair *sea.KeyPair) ([]byte, error)
}

// Service derives Ethereum wallets from an identity keypair.
// Equal inputs always produce identical wallets.
type Service interface {
	// DeriveFromSalt derives a wallet from an arbitrary salt.
	DeriveFromSalt(ctx context.Context, pair *sea.KeyPair, salt string) (*Derived, error)

	// DeriveFromIndex derives the wallet at m/44'/60'/0'/0/{index}.
	DeriveFromIndex(ctx context.Context, pair *sea.KeyPair, index int) (*Derived, error)

	// DeriveFromEntropy re-derives a stored wallet. BIP44 paths are treated
	// as index mode, anything else as a salt.
	DeriveFromEntropy(ctx context.Context, pair *sea.KeyPair, entropy string) (*Derived, error)

	// DeriveLegacy reinterprets the identity's signing key as the one wallet.
	DeriveLegacy(ctx context.Context, pair *sea.KeyPair) (*Derived, error)

	// GetBIP44Path returns the path used as entropy for index.
	GetBIP44Path(index int) string

	// NextIndex returns max(existing)+1, or 0 when existing is empty.
	NextIndex(existing []int) int
}
