package wallet

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/wallet/keystore"
	"github/chapool/go-keyring/internal/wallet/seed"
	"golang.org/x/term"
)

// MinPasswordLength is the shortest keystore password accepted.
const MinPasswordLength = 8

var (
	ErrPasswordTooShort     = errors.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrVerificationMismatch = errors.New("password verification failed: derived address does not match stored verification address")
)

// PasswordFunc reads a password after showing prompt.
type PasswordFunc func(prompt string) (string, error)

// CreateIdentity writes mnemonic into a new keystore encrypted with password
// and returns the identity keypair derived from it.
func CreateIdentity(ctx context.Context, seedManager seed.Manager, keystoreService keystore.Service, mnemonic string, password string) (*sea.KeyPair, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	normalized, err := seed.ValidateMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}

	if err := seedManager.Initialize(normalized, ""); err != nil {
		return nil, errors.Wrap(err, "failed to initialize seed manager")
	}

	verificationAddress, err := DeriveVerificationAddress(seedManager)
	if err != nil {
		return nil, err
	}

	if _, err := keystoreService.CreateKeystore(ctx, normalized, password, verificationAddress); err != nil {
		return nil, errors.Wrap(err, "failed to create keystore")
	}

	log.Info().Str("verification_address", verificationAddress).Msg("Keystore created successfully")
	return seedManager.KeyPair()
}

// UnlockIdentity decrypts the keystore with password, checks it against the
// stored verification address and returns the identity keypair.
func UnlockIdentity(ctx context.Context, seedManager seed.Manager, keystoreService keystore.Service, password string) (*sea.KeyPair, error) {
	//nolint:varnamelen // ks is a common abbreviation for keystore
	ks, err := keystoreService.GetKeystore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get keystore")
	}

	mnemonic, err := keystoreService.DecryptMnemonic(ctx, ks, password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrypt keystore (invalid password?)")
	}

	if err := seedManager.Initialize(mnemonic, ""); err != nil {
		return nil, errors.Wrap(err, "failed to initialize seed manager")
	}

	valid, err := VerifyPasswordByAddress(ctx, seedManager, ks)
	if err != nil {
		return nil, errors.Wrap(err, "failed to verify password")
	}
	if !valid {
		seedManager.Clear()
		return nil, ErrVerificationMismatch
	}

	return seedManager.KeyPair()
}

// InitializeKeystore unlocks the identity at server startup. Without a
// keystore a new mnemonic is generated, shown once and encrypted with a
// password read twice.
func InitializeKeystore(ctx context.Context, seedManager seed.Manager, keystoreService keystore.Service, readPassword PasswordFunc) (*sea.KeyPair, error) {
	log := log.With().Str("component", "wallet_init").Logger()

	exists, err := keystoreService.Exists(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check keystore existence")
	}

	if exists {
		log.Info().Msg("Keystore found. Please enter password to unlock...")

		password, err := readPassword("Enter keystore password: ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to read password")
		}

		pair, err := UnlockIdentity(ctx, seedManager, keystoreService, password)
		if err != nil {
			return nil, err
		}

		log.Info().Msg("Password verification successful")
		return pair, nil
	}

	log.Info().Msg("Keystore not found. Generating new mnemonic...")

	mnemonic, err := seed.NewMnemonic()
	if err != nil {
		return nil, err
	}

	password, err := ReadNewPassword(readPassword)
	if err != nil {
		return nil, err
	}

	pair, err := CreateIdentity(ctx, seedManager, keystoreService, mnemonic, password)
	if err != nil {
		return nil, err
	}

	//nolint:forbidigo // The mnemonic is shown once on the terminal, never logged
	fmt.Fprintf(os.Stderr, "\nWrite down your recovery phrase:\n\n  %s\n\n", mnemonic)

	return pair, nil
}

// ReadNewPassword reads a password and its confirmation.
func ReadNewPassword(readPassword PasswordFunc) (string, error) {
	password, err := readPassword(fmt.Sprintf("Enter password for keystore (min %d characters): ", MinPasswordLength))
	if err != nil {
		return "", errors.Wrap(err, "failed to read password")
	}
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	passwordConfirm, err := readPassword("Confirm password: ")
	if err != nil {
		return "", errors.Wrap(err, "failed to read password confirmation")
	}
	if password != passwordConfirm {
		return "", ErrPasswordMismatch
	}

	return password, nil
}

// PromptPassword prompts for password input (hides input)
//
//nolint:forbidigo // Password input requires direct terminal I/O
func PromptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", errors.Wrap(err, "failed to read password from terminal")
	}

	fmt.Fprintln(os.Stderr)

	return string(passwordBytes), nil
}
