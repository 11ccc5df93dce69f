package address

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/minio/sha256-simd"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/util"
)

const privateKeySize = 32

type service struct {
	kdf KDF
}

// NewService creates a new derivation Service on top of kdf.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(kdf KDF) (Service, error) {
	if kdf == nil {
		return nil, errs.Wrapf(errs.ErrMissingParameters, nil, "kdf is required")
	}
	return &service{
		kdf: kdf,
	}, nil
}

func (s *service) DeriveFromSalt(ctx context.Context, pair *sea.KeyPair, salt string) (*Derived, error) {
	if strings.TrimSpace(salt) == "" {
		return nil, errs.ErrInvalidSalt
	}

	d, err := s.derive(ctx, pair, salt)
	if err != nil {
		return nil, err
	}
	d.Mode = ModeSalt
	return d, nil
}

func (s *service) DeriveFromIndex(ctx context.Context, pair *sea.KeyPair, index int) (*Derived, error) {
	if index < 0 {
		return nil, errs.ErrInvalidIndex
	}

	d, err := s.derive(ctx, pair, s.GetBIP44Path(index))
	if err != nil {
		return nil, err
	}
	d.Index = &index
	d.Mode = ModeIndex
	return d, nil
}

func (s *service) DeriveFromEntropy(ctx context.Context, pair *sea.KeyPair, entropy string) (*Derived, error) {
	if index, err := ParseBIP44Index(entropy); err == nil {
		return s.DeriveFromIndex(ctx, pair, index)
	}
	return s.DeriveFromSalt(ctx, pair, entropy)
}

func (s *service) DeriveLegacy(_ context.Context, pair *sea.KeyPair) (*Derived, error) {
	if pair == nil || pair.Priv == "" {
		return nil, errs.ErrKeysNotFound
	}

	key, err := sea.Decode(pair.Priv)
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidDerivedKey, err)
	}
	defer zero(key)

	if len(key) != privateKeySize {
		return nil, errs.Wrapf(errs.ErrInvalidKeyLength, nil, "private key must be exactly 32 bytes, got %d", len(key))
	}

	d, err := fromPrivateKey(key)
	if err != nil {
		return nil, err
	}
	d.Mode = ModeLegacy
	return d, nil
}

// GetBIP44Path gets BIP44 path (fixed format for EVM chains)
// Format: m/44'/60'/0'/0/{index}
func (s *service) GetBIP44Path(index int) string {
	return BIP44Path(index)
}

func (s *service) NextIndex(existing []int) int {
	next := 0
	for _, i := range existing {
		if i >= next {
			next = i + 1
		}
	}
	return next
}

// derive runs KDF(entropy, pair) -> SHA-256 -> secp256k1 scalar.
func (s *service) derive(ctx context.Context, pair *sea.KeyPair, entropy string) (*Derived, error) {
	if pair == nil {
		return nil, errs.ErrKeysNotFound
	}

	material, err := s.kdf.Work(ctx, entropy, pair)
	if err != nil {
		util.LogFromContext(ctx).Debug().Err(err).Msg("KDF failed")
		return nil, errs.Wrap(errs.ErrKdfFailure, err)
	}
	if len(material) == 0 {
		return nil, errs.ErrKdfFailure
	}

	// material belongs to the kdf; only the derived copy is wiped
	hash := sha256.Sum256(material)
	defer zero(hash[:])

	d, err := fromPrivateKey(hash[:])
	if err != nil {
		return nil, err
	}
	d.Entropy = entropy
	return d, nil
}

func fromPrivateKey(key []byte) (*Derived, error) {
	privateKey := "0x" + hex.EncodeToString(key)
	if err := ValidatePrivateKey(privateKey); err != nil {
		return nil, err
	}

	addr, err := AddressFromPrivateKey(key)
	if err != nil {
		return nil, err
	}

	return &Derived{
		Address:    addr,
		PrivateKey: privateKey,
	}, nil
}

// AddressFromPrivateKey returns the checksummed address of a raw 32-byte key.
func AddressFromPrivateKey(key []byte) (string, error) {
	ecdsaKey, err := crypto.ToECDSA(key)
	if err != nil {
		return "", errs.Wrap(errs.ErrInvalidDerivedKey, err)
	}

	addr := crypto.PubkeyToAddress(ecdsaKey.PublicKey).Hex()
	if err := ValidateAddress(addr); err != nil {
		return "", errs.Wrap(errs.ErrAddressFormat, err)
	}
	return addr, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
