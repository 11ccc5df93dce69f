// Package test holds fixtures shared by package tests.
package test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github/chapool/go-keyring/internal/auth"
	"github/chapool/go-keyring/internal/config"
	"github/chapool/go-keyring/internal/graph"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/storage"
	"github/chapool/go-keyring/internal/wallet"
	"github/chapool/go-keyring/internal/wallet/address"
	"github/chapool/go-keyring/internal/wallet/signer"
	"github/chapool/go-keyring/internal/wallet/stealth"
)

// Fixture is a ready facade for one logged in identity over a memory graph.
type Fixture struct {
	Config   config.Server
	Graph    *graph.Memory
	Provider sea.Provider
	Pair     *sea.KeyPair
	Session  *auth.Session
	Store    *storage.Adapter
	Wallet   wallet.Service
}

// StorageConfig keeps verify loops and backoff in the millisecond range.
func StorageConfig() config.Storage {
	return config.Storage{
		VerifyAttempts:   3,
		VerifyInterval:   5 * time.Millisecond,
		PutRetries:       3,
		GetRetries:       2,
		ReadTimeout:      50 * time.Millisecond,
		AckTimeout:       500 * time.Millisecond,
		OperationTimeout: 5 * time.Second,
		BackoffInitial:   time.Millisecond,
		BackoffMax:       5 * time.Millisecond,
		ArrayEncoding:    true,
	}
}

// ServerConfig is the default config with fast storage and cheap KDF work.
func ServerConfig() config.Server {
	cfg := config.DefaultServiceConfigFromEnv()
	cfg.Graph = config.Graph{Backend: "memory"}
	cfg.Storage = StorageConfig()
	cfg.Sea.WorkIterations = 1000
	cfg.Wallet.AppPrefix = "keyring"
	cfg.Wallet.SealPrivateRecords = true
	cfg.Wallet.EnableSigning = true
	cfg.Wallet.ListConcurrency = 4
	return cfg
}

// NewFixture creates a fresh identity with its own memory graph.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()

	cfg := ServerConfig()
	g := graph.NewMemory(cfg.Graph)
	t.Cleanup(func() { _ = g.Close() })

	return NewFixtureOn(t, cfg, g, nil)
}

// NewFixtureOn creates a facade on g. A nil pair generates a new identity,
// so two fixtures sharing g and pair act like two tabs of one user.
func NewFixtureOn(t *testing.T, cfg config.Server, g *graph.Memory, pair *sea.KeyPair) *Fixture {
	t.Helper()

	provider := sea.NewProvider(cfg.Sea)
	if pair == nil {
		var err error
		pair, err = provider.Pair(t.Context())
		require.NoError(t, err)
	}

	session := auth.NewSession(pair, provider)
	require.NoError(t, session.Login(t.Context()))

	store := storage.New(g, session, cfg.Storage, storage.WithArrayEncoding(cfg.Storage.ArrayEncoding))

	addressService, err := address.NewService(provider)
	require.NoError(t, err)
	stealthService, err := stealth.NewService(provider)
	require.NoError(t, err)
	signerService, err := signer.NewService()
	require.NoError(t, err)

	walletService, err := wallet.NewService(cfg.Wallet, session, store, provider, addressService, stealthService, signerService, nil)
	require.NoError(t, err)

	return &Fixture{
		Config:   cfg,
		Graph:    g,
		Provider: provider,
		Pair:     pair,
		Session:  session,
		Store:    store,
		Wallet:   walletService,
	}
}

// WithTestWallet runs closure with a fresh fixture.
func WithTestWallet(t *testing.T, closure func(f *Fixture)) {
	t.Helper()
	closure(NewFixture(t))
}
