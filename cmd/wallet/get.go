package wallet

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/util/command"
)

func newGet() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <address>",
		Short: "Prints a stored wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.WithIdentity(cmd, func(ctx context.Context, s *api.Server) error {
				w, err := s.Wallet.GetWallet(ctx, args[0])
				if err != nil {
					return err
				}
				return printWallets(cmd, w)
			})
		},
	}

	addRevealFlag(cmd)

	return cmd
}
