package wallet_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/graph"
	"github/chapool/go-keyring/internal/test"
	"github/chapool/go-keyring/internal/wallet"
	"github/chapool/go-keyring/internal/wallet/address"
)

func intPtr(i int) *int { return &i }

func TestCreateWalletIndexMonotonic(t *testing.T) {
	test.WithTestWallet(t, func(f *test.Fixture) {
		ctx := t.Context()

		addresses, err := address.NewService(f.Provider)
		require.NoError(t, err)

		for want := range 3 {
			w, err := f.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{})
			require.NoError(t, err)
			require.NotNil(t, w.Index)
			assert.Equal(t, want, *w.Index)
			assert.Equal(t, address.ModeIndex, w.Mode)
			assert.Equal(t, address.BIP44Path(want), w.Entropy)

			derived, err := addresses.DeriveFromIndex(ctx, f.Pair, want)
			require.NoError(t, err)
			assert.Equal(t, derived.Address, w.Address)
			assert.Equal(t, derived.PrivateKey, w.PrivateKey)
		}

		list, err := f.Wallet.ListWallets(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i, w := range list {
			assert.Equal(t, i, *w.Index)
		}
	})
}

func TestCreateWalletExplicitIndexAndSalt(t *testing.T) {
	test.WithTestWallet(t, func(f *test.Fixture) {
		ctx := t.Context()

		indexed, err := f.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{Index: intPtr(7), Name: "savings"})
		require.NoError(t, err)
		assert.Equal(t, 7, *indexed.Index)

		next, err := f.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{})
		require.NoError(t, err)
		assert.Equal(t, 8, *next.Index)

		salted, err := f.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{Salt: f.Pair.Pub + "_shop"})
		require.NoError(t, err)
		assert.Nil(t, salted.Index)
		assert.Equal(t, address.ModeSalt, salted.Mode)

		again, err := f.Wallet.GetWallet(ctx, salted.Address)
		require.NoError(t, err)
		assert.Equal(t, salted.PrivateKey, again.PrivateKey)

		got, err := f.Wallet.GetWallet(ctx, strings.ToLower(indexed.Address))
		require.NoError(t, err)
		assert.Equal(t, "savings", got.Name)

		list, err := f.Wallet.ListWallets(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, indexed.Address, list[0].Address)
		assert.Equal(t, next.Address, list[1].Address)
		assert.Equal(t, salted.Address, list[2].Address)
	})
}

func TestRecreateWalletWithoutName(t *testing.T) {
	test.WithTestWallet(t, func(f *test.Fixture) {
		ctx := t.Context()

		named, err := f.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{Index: intPtr(0), Name: "savings"})
		require.NoError(t, err)

		unnamed, err := f.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{Index: intPtr(0)})
		require.NoError(t, err)
		assert.Equal(t, named.Address, unnamed.Address)

		got, err := f.Wallet.GetWallet(ctx, named.Address)
		require.NoError(t, err)
		assert.Empty(t, got.Name)
		assert.Equal(t, named.PrivateKey, got.PrivateKey)
	})
}

func TestPrivateKeysAreSealed(t *testing.T) {
	test.WithTestWallet(t, func(f *test.Fixture) {
		ctx := t.Context()

		w, err := f.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{})
		require.NoError(t, err)

		path := graph.Join("~"+f.Pair.Pub, "private/keyring/wallets", strings.ToLower(w.Address))
		raw, found, err := f.Store.Get(ctx, path)
		require.NoError(t, err)
		require.True(t, found)

		record, ok := raw.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, record["sealed"])
		assert.NotEqual(t, w.PrivateKey, record["privateKey"])
		assert.True(t, strings.HasPrefix(record["privateKey"].(string), "sea1."))
	})
}

func TestCreateWalletValidation(t *testing.T) {
	test.WithTestWallet(t, func(f *test.Fixture) {
		ctx := t.Context()

		_, err := f.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{Salt: "x", Index: intPtr(1)})
		require.ErrorIs(t, err, errs.ErrInvalidRequest)

		_, err = f.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{Index: intPtr(-1)})
		require.ErrorIs(t, err, errs.ErrInvalidIndex)

		_, err = f.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{Salt: "   "})
		require.ErrorIs(t, err, errs.ErrInvalidSalt)

		_, err = f.Wallet.GetWallet(ctx, "0x1234")
		require.ErrorIs(t, err, errs.ErrInvalidAddress)

		assert.Zero(t, f.Graph.Len())
	})
}

func TestNotAuthenticated(t *testing.T) {
	test.WithTestWallet(t, func(f *test.Fixture) {
		ctx := t.Context()
		f.Session.Logout()

		_, err := f.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{})
		require.ErrorIs(t, err, errs.ErrNotAuthenticated)

		_, err = f.Wallet.ListWallets(ctx)
		require.ErrorIs(t, err, errs.ErrNotAuthenticated)

		_, err = f.Wallet.CreateStealthAccount(ctx)
		require.ErrorIs(t, err, errs.ErrNotAuthenticated)

		_, err = f.Wallet.GenerateStealthAddress(ctx, "someone")
		require.ErrorIs(t, err, errs.ErrNotAuthenticated)

		_, err = f.Wallet.GetMainWallet(ctx)
		require.ErrorIs(t, err, errs.ErrNotAuthenticated)
	})
}

func TestDeleteWallet(t *testing.T) {
	test.WithTestWallet(t, func(f *test.Fixture) {
		ctx := t.Context()

		first, err := f.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{})
		require.NoError(t, err)
		second, err := f.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{})
		require.NoError(t, err)

		require.NoError(t, f.Wallet.DeleteWallet(ctx, first.Address))

		_, err = f.Wallet.GetWallet(ctx, first.Address)
		require.ErrorIs(t, err, errs.ErrWalletNotFound)

		err = f.Wallet.DeleteWallet(ctx, first.Address)
		require.ErrorIs(t, err, errs.ErrWalletNotFound)

		list, err := f.Wallet.ListWallets(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, second.Address, list[0].Address)
	})
}

func TestTwoFacadesShareIndex(t *testing.T) {
	first := test.NewFixture(t)
	second := test.NewFixtureOn(t, first.Config, first.Graph, first.Pair)
	ctx := t.Context()

	a, err := first.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{})
	require.NoError(t, err)
	b, err := second.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{})
	require.NoError(t, err)

	assert.Equal(t, 0, *a.Index)
	assert.Equal(t, 1, *b.Index)

	list, err := first.Wallet.ListWallets(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestConcurrentCreateWalletUniqueIndices(t *testing.T) {
	f := test.NewFixture(t)
	ctx := t.Context()

	const n = 5
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		indices = map[int]bool{}
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := f.Wallet.CreateWallet(ctx, wallet.CreateWalletRequest{})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			indices[*w.Index] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, indices, n)
	for i := range n {
		assert.True(t, indices[i], "index %d missing", i)
	}
}

func TestGetMainWalletIsNotPersisted(t *testing.T) {
	test.WithTestWallet(t, func(f *test.Fixture) {
		ctx := t.Context()

		main, err := f.Wallet.GetMainWallet(ctx)
		require.NoError(t, err)
		assert.Equal(t, address.ModeLegacy, main.Mode)
		assert.Nil(t, main.Index)

		again, err := f.Wallet.GetMainWallet(ctx)
		require.NoError(t, err)
		assert.Equal(t, main.Address, again.Address)

		list, err := f.Wallet.ListWallets(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
