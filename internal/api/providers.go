package api

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/go-keyring/internal/auth"
	"github/chapool/go-keyring/internal/config"
	"github/chapool/go-keyring/internal/graph"
	"github/chapool/go-keyring/internal/metrics"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/storage"
	"github/chapool/go-keyring/internal/wallet"
	"github/chapool/go-keyring/internal/wallet/address"
	"github/chapool/go-keyring/internal/wallet/signer"
	"github/chapool/go-keyring/internal/wallet/stealth"
)

// NewGraph opens the configured backend. SQL backends report their pool
// statistics to m.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewGraph(cfg config.Server, m *metrics.Service) (graph.Graph, error) {
	g, err := graph.Open(context.Background(), cfg.Graph)
	if err != nil {
		return nil, err
	}

	if sqlGraph, ok := g.(*graph.SQL); ok {
		if err := m.Register(sqlGraph.StatsCollector()); err != nil {
			log.Warn().Err(err).Msg("Failed to register graph pool metrics")
		}
	}

	return g, nil
}

//nolint:ireturn // Returning interface is intentional for dependency injection
func NewProvider(cfg config.Server) sea.Provider {
	return sea.NewProvider(cfg.Sea)
}

// NewSession logs pair in. The server only serves an unlocked identity.
func NewSession(pair *sea.KeyPair, provider sea.Provider) (*auth.Session, error) {
	if pair == nil {
		return nil, errors.New("identity keypair is required")
	}

	session := auth.NewSession(pair, provider)
	if err := session.Login(context.Background()); err != nil {
		return nil, errors.Wrap(err, "failed to log in identity")
	}
	return session, nil
}

func NewStore(cfg config.Server, g graph.Graph, session *auth.Session, m *metrics.Service) *storage.Adapter {
	return storage.New(g, session, cfg.Storage,
		storage.WithArrayEncoding(cfg.Storage.ArrayEncoding),
		storage.WithRecorder(m),
	)
}

//nolint:ireturn // Returning interface is intentional for dependency injection
func NewAddressService(provider sea.Provider) (address.Service, error) {
	return address.NewService(provider)
}

//nolint:ireturn // Returning interface is intentional for dependency injection
func NewStealthService(provider sea.Provider) (stealth.Service, error) {
	return stealth.NewService(provider)
}

//nolint:ireturn // Returning interface is intentional for dependency injection
func NewSignerService() (signer.Service, error) {
	return signer.NewService()
}

//nolint:ireturn // Returning interface is intentional for dependency injection
func NewWalletService(
	cfg config.Server,
	session *auth.Session,
	store *storage.Adapter,
	provider sea.Provider,
	addressService address.Service,
	stealthService stealth.Service,
	signerService signer.Service,
	m *metrics.Service,
) (wallet.Service, error) {
	return wallet.NewService(cfg.Wallet, session, store, provider, addressService, stealthService, signerService, m)
}
