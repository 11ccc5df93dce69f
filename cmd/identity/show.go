package identity

import (
	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/util/command"
	"github/chapool/go-keyring/internal/wallet/keystore"
)

func newShow() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Unlocks the keystore and prints the public identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := command.Config(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			pair, err := command.Unlock(ctx, cfg.Keystore)
			if err != nil {
				return err
			}

			keystoreService, err := keystore.NewService(cfg.Keystore)
			if err != nil {
				return err
			}

			//nolint:varnamelen // ks is a common abbreviation for keystore
			ks, err := keystoreService.GetKeystore(ctx)
			if err != nil {
				return err
			}

			return command.PrintJSON(cmd.OutOrStdout(), info(pair, ks.Data.Address, ks.Path))
		},
	}
}
