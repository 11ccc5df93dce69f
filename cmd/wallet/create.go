package wallet

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/util/command"
	"github/chapool/go-keyring/internal/wallet"
)

const (
	indexFlag = "index"
	saltFlag  = "salt"
	nameFlag  = "name"
)

func newCreate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Derives and stores a new wallet",
		Long: `Derives and stores a new wallet.

Without flags the next free BIP44 index is used. --index picks an explicit
index and --salt derives a wallet from the identity and the salt instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req wallet.CreateWalletRequest

			if cmd.Flags().Changed(indexFlag) {
				index, _ := cmd.Flags().GetInt(indexFlag)
				req.Index = &index
			}
			if cmd.Flags().Changed(saltFlag) {
				req.Salt, _ = cmd.Flags().GetString(saltFlag)
			}
			req.Name, _ = cmd.Flags().GetString(nameFlag)

			return command.WithIdentity(cmd, func(ctx context.Context, s *api.Server) error {
				w, err := s.Wallet.CreateWallet(ctx, req)
				if err != nil {
					return err
				}
				return printWallets(cmd, w)
			})
		},
	}

	cmd.Flags().Int(indexFlag, 0, "BIP44 address index")
	cmd.Flags().String(saltFlag, "", "salt for a salted wallet")
	cmd.Flags().String(nameFlag, "", "display name")
	cmd.MarkFlagsMutuallyExclusive(indexFlag, saltFlag)
	addRevealFlag(cmd)

	return cmd
}
