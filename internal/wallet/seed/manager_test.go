package seed_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/wallet/address"
	"github/chapool/go-keyring/internal/wallet/seed"
)

//nolint:dupword // well-known test mnemonic
const mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestKeyPairFromKnownMnemonic(t *testing.T) {
	m := seed.NewManager()
	require.False(t, m.IsInitialized())

	_, err := m.KeyPair()
	require.ErrorIs(t, err, seed.ErrNotInitialized)

	require.NoError(t, m.Initialize("  "+mnemonic+"\n", ""))
	require.True(t, m.IsInitialized())
	assert.Len(t, m.GetSeed(), 64)

	pair, err := m.KeyPair()
	require.NoError(t, err)
	require.True(t, pair.Complete())

	priv, err := sea.Decode(pair.Priv)
	require.NoError(t, err)
	addr, err := address.AddressFromPrivateKey(priv)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", addr)

	again, err := m.KeyPair()
	require.NoError(t, err)
	assert.True(t, sea.Equal(pair, again))
}

func TestPassphraseChangesIdentity(t *testing.T) {
	plain := seed.NewManager()
	require.NoError(t, plain.Initialize(mnemonic, ""))
	salted := seed.NewManager()
	require.NoError(t, salted.Initialize(mnemonic, "TREZOR"))

	a, err := plain.KeyPair()
	require.NoError(t, err)
	b, err := salted.KeyPair()
	require.NoError(t, err)
	assert.NotEqual(t, a.Pub, b.Pub)
	assert.NotEqual(t, a.Epub, b.Epub)
}

func TestInvalidMnemonic(t *testing.T) {
	m := seed.NewManager()
	err := m.Initialize("abandon abandon abandon", "")
	require.ErrorIs(t, err, seed.ErrInvalidMnemonic)
	assert.False(t, m.IsInitialized())
}

func TestNewMnemonicRoundTrip(t *testing.T) {
	words, err := seed.NewMnemonic()
	require.NoError(t, err)

	normalized, err := seed.ValidateMnemonic(words)
	require.NoError(t, err)
	assert.Equal(t, words, normalized)
}

func TestClear(t *testing.T) {
	m := seed.NewManager()
	require.NoError(t, m.Initialize(mnemonic, ""))
	m.Clear()
	assert.False(t, m.IsInitialized())
	assert.Nil(t, m.GetSeed())
}
