package seed

import (
	"errors"

	"github/chapool/go-keyring/internal/sea"
)

var (
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
	ErrNotInitialized  = errors.New("seed manager not initialized")
)

// Manager provides seed management functionality
type Manager interface {
	// Initialize validates mnemonic and derives the BIP39 seed (called at unlock)
	Initialize(mnemonic string, password string) error

	// GetSeed gets the seed (from memory)
	GetSeed() []byte

	// KeyPair derives the identity keypair from the seed
	KeyPair() (*sea.KeyPair, error)

	// IsInitialized checks if seed is initialized
	IsInitialized() bool

	// Clear clears the seed from memory
	Clear()
}
