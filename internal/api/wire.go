//go:build wireinject

package api

import (
	"github.com/google/wire"
	"github/chapool/go-keyring/internal/config"
	"github/chapool/go-keyring/internal/metrics"
	"github/chapool/go-keyring/internal/sea"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

// serviceSet groups the default set of providers that are required for initing a server
var serviceSet = wire.NewSet(
	newServerWithComponents,
	metrics.New,
	NewProvider,
	NewSession,
	NewStore,
	walletServiceSet,
)

var walletServiceSet = wire.NewSet(
	NewAddressService,
	NewStealthService,
	NewSignerService,
	NewWalletService,
)

// InitNewServer returns a new Server instance serving the identity of pair.
func InitNewServer(
	_ config.Server,
	_ *sea.KeyPair,
) (*Server, error) {
	wire.Build(serviceSet, NewGraph)
	return new(Server), nil
}
