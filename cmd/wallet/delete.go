package wallet

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/util/command"
)

func newDelete() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <address>",
		Short: "Removes a stored wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.WithIdentity(cmd, func(ctx context.Context, s *api.Server) error {
				if err := s.Wallet.DeleteWallet(ctx, args[0]); err != nil {
					return err
				}
				log.Info().Str("address", args[0]).Msg("Wallet deleted")
				return nil
			})
		},
	}
}
