package wallet

import (
	"context"

	"github/chapool/go-keyring/internal/util"
)

// WatchWallets sends the current wallet list, then a fresh list after every
// change of the address index. The channel is closed once ctx is done.
func (s *service) WatchWallets(ctx context.Context) (<-chan []*Wallet, error) {
	pair, err := s.identity.Pair()
	if err != nil {
		return nil, err
	}

	updates, err := s.scope(pair.Pub).Subscribe(ctx, s.indexPath())
	if err != nil {
		return nil, err
	}

	initial, err := s.ListWallets(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan []*Wallet, 1)
	out <- initial

	go func() {
		defer close(out)
		log := util.LogFromContext(ctx)

		for range updates {
			wallets, err := s.ListWallets(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Msg("Failed to list wallets after index change")
				continue
			}

			select {
			case out <- wallets:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
