package stealth_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-keyring/internal/config"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/wallet/address"
	"github/chapool/go-keyring/internal/wallet/stealth"
)

// mockECDH pairs epriv "eN" with epub "EN" and hashes both public keys in a
// fixed order, so Secret(E1, e2) == Secret(E2, e1).
type mockECDH struct{}

func (mockECDH) Pair(_ context.Context) (*sea.KeyPair, error) {
	return &sea.KeyPair{Pub: "P9", Priv: "p9", Epub: "E9", Epriv: "e9"}, nil
}

func (mockECDH) Secret(_ context.Context, peerEpub string, pair *sea.KeyPair) ([]byte, error) {
	if !strings.HasPrefix(peerEpub, "E") {
		return nil, nil
	}
	own := strings.ToUpper(pair.Epriv)
	lo, hi := own, peerEpub
	if hi < lo {
		lo, hi = hi, lo
	}
	sum := sha256.Sum256([]byte(lo + "|" + hi))
	return sum[:], nil
}

func realService(t *testing.T) (stealth.Service, sea.Provider) {
	t.Helper()
	provider := sea.NewProvider(config.Sea{WorkIterations: 1})
	s, err := stealth.NewService(provider)
	require.NoError(t, err)
	return s, provider
}

func TestMockECDHIsSymmetric(t *testing.T) {
	ctx := t.Context()
	m := mockECDH{}

	a, err := m.Secret(ctx, "E1", &sea.KeyPair{Epub: "E2", Epriv: "e2"})
	require.NoError(t, err)
	b, err := m.Secret(ctx, "E2", &sea.KeyPair{Epub: "E1", Epriv: "e1"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRoundTripWithMockECDH(t *testing.T) {
	s, err := stealth.NewService(mockECDH{})
	require.NoError(t, err)
	recipient := &sea.KeyPair{Pub: "P1", Priv: "p1", Epub: "E1", Epriv: "e1"}

	res, err := s.GenerateWithEphemeral(t.Context(), recipient.Epub, recipient.Pub, &stealth.Ephemeral{Epub: "E2", Epriv: "e2"})
	require.NoError(t, err)
	assert.Equal(t, "E2", res.EphemeralPublicKey)
	assert.Equal(t, "P1", res.RecipientPublicKey)

	opened, err := s.Open(t.Context(), recipient, res.StealthAddress, res.EphemeralPublicKey)
	require.NoError(t, err)
	assert.Equal(t, res.StealthAddress, opened.Address)
}

func TestRoundTrip(t *testing.T) {
	s, provider := realService(t)
	ctx := t.Context()

	recipient, err := provider.Pair(ctx)
	require.NoError(t, err)

	res, err := s.Generate(ctx, recipient.Epub, recipient.Pub)
	require.NoError(t, err)
	require.NoError(t, address.ValidateAddress(res.StealthAddress))

	opened, err := s.Open(ctx, recipient, res.StealthAddress, res.EphemeralPublicKey)
	require.NoError(t, err)
	assert.Equal(t, res.StealthAddress, opened.Address)

	_, err = address.ToECDSA(opened.PrivateKey)
	require.NoError(t, err)

	lower, err := s.Open(ctx, recipient, strings.ToLower(res.StealthAddress), res.EphemeralPublicKey)
	require.NoError(t, err)
	assert.Equal(t, opened, lower)

	again, err := s.Generate(ctx, recipient.Epub, recipient.Pub)
	require.NoError(t, err)
	assert.NotEqual(t, res.StealthAddress, again.StealthAddress)
	assert.NotEqual(t, res.EphemeralPublicKey, again.EphemeralPublicKey)
}

func TestOpenWithWrongKeysIsMismatch(t *testing.T) {
	s, provider := realService(t)
	ctx := t.Context()

	recipient, err := provider.Pair(ctx)
	require.NoError(t, err)
	intruder, err := provider.Pair(ctx)
	require.NoError(t, err)

	res, err := s.Generate(ctx, recipient.Epub, recipient.Pub)
	require.NoError(t, err)

	_, err = s.Open(ctx, intruder, res.StealthAddress, res.EphemeralPublicKey)
	require.ErrorIs(t, err, errs.ErrAddressMismatch)
	assert.False(t, errs.Retryable(err))
}

func TestParameterErrors(t *testing.T) {
	s, provider := realService(t)
	ctx := t.Context()
	keys, err := provider.Pair(ctx)
	require.NoError(t, err)

	_, err = s.Generate(ctx, "", keys.Pub)
	require.ErrorIs(t, err, errs.ErrMissingParameters)

	_, err = s.Open(ctx, keys, "", keys.Epub)
	require.ErrorIs(t, err, errs.ErrMissingParameters)

	_, err = s.Open(ctx, keys, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", " ")
	require.ErrorIs(t, err, errs.ErrMissingParameters)

	_, err = s.Open(ctx, nil, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", keys.Epub)
	require.ErrorIs(t, err, errs.ErrKeysNotFound)

	_, err = s.Open(ctx, keys, "0x1234", keys.Epub)
	require.ErrorIs(t, err, errs.ErrInvalidAddress)
}

func TestSharedSecretFailure(t *testing.T) {
	s, _ := realService(t)
	_, err := s.Generate(t.Context(), "not*a*key", "pub")
	require.ErrorIs(t, err, errs.ErrSharedSecretFailure)

	mock, err := stealth.NewService(mockECDH{})
	require.NoError(t, err)
	_, err = mock.GenerateWithEphemeral(t.Context(), "X1", "pub", &stealth.Ephemeral{Epub: "E2", Epriv: "e2"})
	require.ErrorIs(t, err, errs.ErrSharedSecretFailure)
}

// cachedECDH returns one shared secret buffer for every peer.
type cachedECDH struct {
	mockECDH
	secret []byte
}

func (c *cachedECDH) Secret(_ context.Context, _ string, _ *sea.KeyPair) ([]byte, error) {
	return c.secret, nil
}

func TestDeriveLeavesSharedSecretIntact(t *testing.T) {
	primitives := &cachedECDH{secret: bytes.Repeat([]byte{0x07}, 32)}
	s, err := stealth.NewService(primitives)
	require.NoError(t, err)
	recipient := &sea.KeyPair{Pub: "P1", Priv: "p1", Epub: "E1", Epriv: "e1"}

	res, err := s.GenerateWithEphemeral(t.Context(), recipient.Epub, recipient.Pub, &stealth.Ephemeral{Epub: "E2", Epriv: "e2"})
	require.NoError(t, err)

	opened, err := s.Open(t.Context(), recipient, res.StealthAddress, res.EphemeralPublicKey)
	require.NoError(t, err)
	assert.Equal(t, res.StealthAddress, opened.Address)
	assert.Equal(t, bytes.Repeat([]byte{0x07}, 32), primitives.secret)
}
