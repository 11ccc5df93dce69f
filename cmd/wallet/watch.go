package wallet

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/util/command"
)

func newWatch() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Prints the wallet list now and after every change until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return command.WithIdentity(cmd, func(ctx context.Context, s *api.Server) error {
				lists, err := s.Wallet.WatchWallets(ctx)
				if err != nil {
					return err
				}
				for wallets := range lists {
					if err := printWalletList(cmd, wallets); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	addRevealFlag(cmd)

	return cmd
}
