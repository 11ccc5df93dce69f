package wallet

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/util/command"
)

func newMain() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "main",
		Short: "Prints the wallet backed by the identity signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return command.WithIdentity(cmd, func(ctx context.Context, s *api.Server) error {
				w, err := s.Wallet.GetMainWallet(ctx)
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
