package wallet

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-keyring/internal/wallet/address"
	"github/chapool/go-keyring/internal/wallet/keystore"
	"github/chapool/go-keyring/internal/wallet/seed"
)

const (
	// VerificationAddressIndex is the address index used for password verification
	VerificationAddressIndex = 0
)

// DeriveVerificationAddress derives the BIP44 address at VerificationAddressIndex
// from the unlocked seed. It is also the address of the identity signing key.
func DeriveVerificationAddress(seedManager seed.Manager) (string, error) {
	seedBytes := seedManager.GetSeed()
	if seedBytes == nil {
		return "", seed.ErrNotInitialized
	}
	defer clear(seedBytes)

	key, err := address.DeriveHDPrivateKey(seedBytes, address.BIP44Path(VerificationAddressIndex))
	if err != nil {
		return "", errors.Wrap(err, "failed to derive verification key")
	}
	defer clear(key)

	return address.AddressFromPrivateKey(key)
}

// VerifyPasswordByAddress compares the address derived from the unlocked seed
// with the verification address stored in the keystore. A keystore without
// one passes.
func VerifyPasswordByAddress(_ context.Context, seedManager seed.Manager, ks *keystore.Keystore) (bool, error) {
	log := log.With().Str("component", "password_verification").Logger()

	derivedAddress, err := DeriveVerificationAddress(seedManager)
	if err != nil {
		log.Error().Err(err).Msg("Failed to derive verification address")
		return false, err
	}

	if ks.Data.Address == "" {
		log.Info().Msg("No verification address found in keystore")
		return true, nil
	}

	if !address.SameAddress(derivedAddress, ks.Data.Address) {
		log.Warn().
			Str("derived", derivedAddress).
			Str("stored", ks.Data.Address).
			Msg("Password verification failed: addresses do not match")
		return false, nil
	}

	log.Debug().Msg("Password verification successful")
	return true, nil
}
