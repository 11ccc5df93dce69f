package wallet

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/util/command"
)

func newList() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Lists stored wallets ordered by index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return command.WithIdentity(cmd, func(ctx context.Context, s *api.Server) error {
				wallets, err := s.Wallet.ListWallets(ctx)
				if err != nil {
					return err
				}
				return printWallets(cmd, wallets...)
			})
		},
	}

	addRevealFlag(cmd)

	return cmd
}
