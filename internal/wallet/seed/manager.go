package seed

import (
	"io"
	"strings"
	"sync"

	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/wallet/address"
	"golang.org/x/crypto/hkdf"
)

const (
	// IdentityPath is the BIP44 path of the identity signing key.
	IdentityPath = "m/44'/60'/0'/0/0"

	encryptionKeyInfo = "keyring/identity/x25519"
	entropyBits       = 128
)

// NewMnemonic generates a fresh 12-word BIP39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate entropy")
	}
	return bip39.NewMnemonic(entropy)
}

// ValidateMnemonic normalizes whitespace and checks the BIP39 word list and checksum.
func ValidateMnemonic(mnemonic string) (string, error) {
	normalized := strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(normalized) {
		return "", ErrInvalidMnemonic
	}
	return normalized, nil
}

// manager implements seed management with thread-safe access
type manager struct {
	seed        []byte
	mu          sync.RWMutex
	initialized bool
}

// NewManager creates a new SeedManager
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewManager() Manager {
	return &manager{
		seed:        nil,
		initialized: false,
	}
}

// Initialize initializes the seed manager with mnemonic and password
// BIP39: seed = PBKDF2(mnemonic, "mnemonic" + password, 2048, 64, SHA512)
func (m *manager) Initialize(mnemonic string, password string) error {
	normalized, err := ValidateMnemonic(mnemonic)
	if err != nil {
		return err
	}

	seed, err := bip39.NewSeedWithErrorChecking(normalized, password)
	if err != nil {
		return errors.Wrap(err, "failed to derive seed")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	zero(m.seed)
	m.seed = seed
	m.initialized = true

	return nil
}

// GetSeed gets the seed (returns a copy to prevent external modification)
func (m *manager) GetSeed() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.initialized || m.seed == nil {
		return nil
	}

	seedCopy := make([]byte, len(m.seed))
	copy(seedCopy, m.seed)
	return seedCopy
}

// KeyPair derives the signing key at IdentityPath and the encryption key
// with HKDF over the seed.
func (m *manager) KeyPair() (*sea.KeyPair, error) {
	seed := m.GetSeed()
	if seed == nil {
		return nil, ErrNotInitialized
	}
	defer zero(seed)

	signingKey, err := address.DeriveHDPrivateKey(seed, IdentityPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive signing key")
	}
	defer zero(signingKey)

	encryptionKey := make([]byte, 32) //nolint:mnd // X25519 scalar size
	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, nil, []byte(encryptionKeyInfo)), encryptionKey); err != nil {
		return nil, errors.Wrap(err, "failed to derive encryption key")
	}
	defer zero(encryptionKey)

	return sea.PairFromKeys(signingKey, encryptionKey)
}

// IsInitialized checks if seed is initialized
func (m *manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.initialized
}

// Clear clears the seed from memory
func (m *manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	zero(m.seed)
	m.seed = nil
	m.initialized = false
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
