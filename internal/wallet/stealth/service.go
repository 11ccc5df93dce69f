// Package stealth derives one-time payment addresses from an ECDH secret
// between a sender's ephemeral key and a recipient's stealth key.
package stealth

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/util"
	"github/chapool/go-keyring/internal/wallet/address"
)

type service struct {
	primitives Primitives
}

// NewService creates a new stealth Service.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(primitives Primitives) (Service, error) {
	if primitives == nil {
		return nil, errs.Wrapf(errs.ErrMissingParameters, nil, "stealth primitives are required")
	}
	return &service{
		primitives: primitives,
	}, nil
}

func (s *service) NewEphemeral(ctx context.Context) (*Ephemeral, error) {
	pair, err := s.primitives.Pair(ctx)
	if err != nil {
		return nil, errs.Unknown(err)
	}
	return &Ephemeral{Epub: pair.Epub, Epriv: pair.Epriv}, nil
}

func (s *service) Generate(ctx context.Context, recipientEpub string, recipientPub string) (*Result, error) {
	if strings.TrimSpace(recipientEpub) == "" {
		return nil, errs.Wrapf(errs.ErrMissingParameters, nil, "recipient stealth key is required")
	}

	eph, err := s.NewEphemeral(ctx)
	if err != nil {
		return nil, err
	}
	return s.GenerateWithEphemeral(ctx, recipientEpub, recipientPub, eph)
}

func (s *service) GenerateWithEphemeral(ctx context.Context, recipientEpub string, recipientPub string, eph *Ephemeral) (*Result, error) {
	if strings.TrimSpace(recipientEpub) == "" || eph == nil || eph.Epriv == "" || eph.Epub == "" {
		return nil, errs.ErrMissingParameters
	}

	wallet, err := s.derive(ctx, recipientEpub, &sea.KeyPair{Epub: eph.Epub, Epriv: eph.Epriv})
	if err != nil {
		return nil, err
	}

	util.LogFromContext(ctx).Debug().Str("stealthAddress", wallet.Address).Msg("Generated stealth address")

	return &Result{
		StealthAddress:     wallet.Address,
		EphemeralPublicKey: eph.Epub,
		RecipientPublicKey: recipientPub,
	}, nil
}

func (s *service) Open(ctx context.Context, keys *sea.KeyPair, stealthAddress string, ephemeralPub string) (*Opened, error) {
	if strings.TrimSpace(stealthAddress) == "" || strings.TrimSpace(ephemeralPub) == "" {
		return nil, errs.ErrMissingParameters
	}
	if keys == nil || keys.Epriv == "" {
		return nil, errs.ErrKeysNotFound
	}
	if err := address.ValidateAddress(stealthAddress); err != nil {
		return nil, err
	}

	wallet, err := s.derive(ctx, ephemeralPub, &sea.KeyPair{Epub: keys.Epub, Epriv: keys.Epriv})
	if err != nil {
		return nil, err
	}

	if !address.SameAddress(wallet.Address, stealthAddress) {
		util.LogFromContext(ctx).Warn().
			Str("expected", stealthAddress).
			Str("derived", wallet.Address).
			Msg("Stealth address mismatch")
		return nil, errs.Wrapf(errs.ErrAddressMismatch, nil, "derived %s, expected %s", wallet.Address, stealthAddress)
	}

	return wallet, nil
}

// derive computes ECDH(peerEpub, own.Epriv) -> Keccak256 -> wallet.
func (s *service) derive(ctx context.Context, peerEpub string, own *sea.KeyPair) (*Opened, error) {
	secret, err := s.primitives.Secret(ctx, peerEpub, own)
	if err != nil {
		return nil, errs.Wrap(errs.ErrSharedSecretFailure, err)
	}
	if len(secret) == 0 {
		return nil, errs.ErrSharedSecretFailure
	}

	key := crypto.Keccak256(secret)
	defer zero(key)

	addr, err := address.AddressFromPrivateKey(key)
	if err != nil {
		return nil, err
	}

	return &Opened{
		Address:    addr,
		PrivateKey: "0x" + hex.EncodeToString(key),
	}, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
