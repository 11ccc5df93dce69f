package wallet

import (
	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/util/command"
	"github/chapool/go-keyring/internal/wallet"
)

const revealFlag = "reveal"

func New() *cobra.Command {
	return command.NewSubcommandGroup("wallet",
		newCreate(),
		newList(),
		newGet(),
		newDelete(),
		newMain(),
		newWatch(),
	)
}

func addRevealFlag(cmd *cobra.Command) {
	cmd.Flags().Bool(revealFlag, false, "include private keys in the output")
}

func printWallets(cmd *cobra.Command, wallets ...*wallet.Wallet) error {
	if len(wallets) == 1 && cmd.Name() != "list" {
		return command.PrintJSON(cmd.OutOrStdout(), visible(cmd, wallets)[0])
	}
	return printWalletList(cmd, wallets)
}

func printWalletList(cmd *cobra.Command, wallets []*wallet.Wallet) error {
	return command.PrintJSON(cmd.OutOrStdout(), visible(cmd, wallets))
}

// visible strips private keys unless --reveal is set.
func visible(cmd *cobra.Command, wallets []*wallet.Wallet) []*wallet.Wallet {
	reveal, _ := cmd.Flags().GetBool(revealFlag)

	out := make([]*wallet.Wallet, 0, len(wallets))
	for _, w := range wallets {
		if !reveal {
			w = w.Public()
		}
		out = append(out, w)
	}
	return out
}
