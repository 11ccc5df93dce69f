package address_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-keyring/internal/config"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/wallet/address"
)

type fixedKDF struct {
	out   []byte
	err   error
	calls []string
}

func (k *fixedKDF) Work(_ context.Context, data string, _ *sea.KeyPair) ([]byte, error) {
	k.calls = append(k.calls, data)
	if k.err != nil {
		return nil, k.err
	}
	return bytes.Clone(k.out), nil
}

func newService(t *testing.T, kdf address.KDF) address.Service {
	t.Helper()
	s, err := address.NewService(kdf)
	require.NoError(t, err)
	return s
}

func TestDeriveFromSaltGoldenVector(t *testing.T) {
	kdf := &fixedKDF{out: bytes.Repeat([]byte{0x11}, 32)}
	s := newService(t, kdf)
	pair := &sea.KeyPair{Pub: "AbC123", Epriv: "x"}

	d, err := s.DeriveFromSalt(t.Context(), pair, "AbC123_0")
	require.NoError(t, err)

	assert.Equal(t, "0x02d449a31fbb267c8f352e9968a79e3e5fc95c1bbeaa502fd6454ebde5a4bedc", d.PrivateKey)
	assert.Equal(t, "0x45b6669DF6294Aa6F920a2a94b21C462c2423674", d.Address)
	assert.Equal(t, "AbC123_0", d.Entropy)
	assert.Equal(t, address.ModeSalt, d.Mode)
	assert.Nil(t, d.Index)
	assert.Equal(t, []string{"AbC123_0"}, kdf.calls)
}

func TestDeriveFromIndexUsesPathAsEntropy(t *testing.T) {
	kdf := &fixedKDF{out: bytes.Repeat([]byte{0x11}, 32)}
	s := newService(t, kdf)

	d, err := s.DeriveFromIndex(t.Context(), &sea.KeyPair{Pub: "AbC123"}, 7)
	require.NoError(t, err)

	assert.Equal(t, "m/44'/60'/0'/0/7", d.Entropy)
	require.NotNil(t, d.Index)
	assert.Equal(t, 7, *d.Index)
	assert.Equal(t, address.ModeIndex, d.Mode)
	assert.Equal(t, []string{"m/44'/60'/0'/0/7"}, kdf.calls)
}

func TestDerivationIsDeterministic(t *testing.T) {
	provider := sea.NewProvider(config.Sea{WorkIterations: 10})
	pair, err := provider.Pair(t.Context())
	require.NoError(t, err)
	s := newService(t, provider)
	ctx := t.Context()

	first, err := s.DeriveFromSalt(ctx, pair, pair.Pub+"_0")
	require.NoError(t, err)
	second, err := s.DeriveFromSalt(ctx, pair, pair.Pub+"_0")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := s.DeriveFromSalt(ctx, pair, pair.Pub+"_1")
	require.NoError(t, err)
	assert.NotEqual(t, first.Address, other.Address)

	byIndex, err := s.DeriveFromIndex(ctx, pair, 3)
	require.NoError(t, err)
	byEntropy, err := s.DeriveFromEntropy(ctx, pair, byIndex.Entropy)
	require.NoError(t, err)
	assert.Equal(t, byIndex, byEntropy)

	bySalt, err := s.DeriveFromEntropy(ctx, pair, pair.Pub+"_0")
	require.NoError(t, err)
	assert.Equal(t, first, bySalt)

	require.NoError(t, address.ValidateAddress(first.Address))
	require.NoError(t, address.ValidatePrivateKey(first.PrivateKey))
}

func TestDeriveLegacy(t *testing.T) {
	s := newService(t, &fixedKDF{})

	d, err := s.DeriveLegacy(t.Context(), &sea.KeyPair{Priv: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAE"})
	require.NoError(t, err)

	assert.Equal(t, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", d.Address)
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", d.PrivateKey)
	assert.Equal(t, address.ModeLegacy, d.Mode)
	assert.Empty(t, d.Entropy)
}

func TestDeriveLegacyRejectsShortKey(t *testing.T) {
	s := newService(t, &fixedKDF{})

	_, err := s.DeriveLegacy(t.Context(), &sea.KeyPair{Priv: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"})
	require.ErrorIs(t, err, errs.ErrInvalidKeyLength)
	assert.Equal(t, errs.KindDerivation, errs.KindOf(err))

	_, err = s.DeriveLegacy(t.Context(), &sea.KeyPair{})
	require.ErrorIs(t, err, errs.ErrKeysNotFound)
}

func TestDeriveValidation(t *testing.T) {
	kdf := &fixedKDF{out: bytes.Repeat([]byte{0x11}, 32)}
	s := newService(t, kdf)
	pair := &sea.KeyPair{Pub: "p"}

	_, err := s.DeriveFromSalt(t.Context(), pair, "  ")
	require.ErrorIs(t, err, errs.ErrInvalidSalt)

	_, err = s.DeriveFromIndex(t.Context(), pair, -1)
	require.ErrorIs(t, err, errs.ErrInvalidIndex)

	assert.Empty(t, kdf.calls)
}

func TestDeriveKdfFailures(t *testing.T) {
	pair := &sea.KeyPair{Pub: "p"}

	_, err := newService(t, &fixedKDF{err: errors.New("boom")}).DeriveFromSalt(t.Context(), pair, "s")
	require.ErrorIs(t, err, errs.ErrKdfFailure)

	_, err = newService(t, &fixedKDF{out: nil}).DeriveFromSalt(t.Context(), pair, "s")
	require.ErrorIs(t, err, errs.ErrKdfFailure)

	_, err = address.NewService(nil)
	require.ErrorIs(t, err, errs.ErrMissingParameters)
}

// cachedKDF hands out the same buffer on every call.
type cachedKDF struct {
	out []byte
}

func (k *cachedKDF) Work(_ context.Context, _ string, _ *sea.KeyPair) ([]byte, error) {
	return k.out, nil
}

func TestDeriveLeavesKdfOutputIntact(t *testing.T) {
	kdf := &cachedKDF{out: bytes.Repeat([]byte{0x42}, 32)}
	s := newService(t, kdf)
	pair := &sea.KeyPair{Pub: "p"}

	first, err := s.DeriveFromSalt(t.Context(), pair, "s")
	require.NoError(t, err)
	second, err := s.DeriveFromSalt(t.Context(), pair, "s")
	require.NoError(t, err)

	assert.Equal(t, first.Address, second.Address)
	assert.Equal(t, bytes.Repeat([]byte{0x42}, 32), kdf.out)
}

func TestNextIndex(t *testing.T) {
	s := newService(t, &fixedKDF{})

	assert.Equal(t, 0, s.NextIndex(nil))
	assert.Equal(t, 3, s.NextIndex([]int{0, 1, 2}))
	assert.Equal(t, 6, s.NextIndex([]int{5, 1}))
	assert.Equal(t, "m/44'/60'/0'/0/12", s.GetBIP44Path(12))
}
