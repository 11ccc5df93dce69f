package identity

import (
	"os"

	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/wallet"
)

const (
	mnemonicEnv = "KEYRING_MNEMONIC"
)

func newImport() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Writes a new keystore for an existing recovery phrase",
		Long: `Writes a new keystore for an existing recovery phrase.

The phrase is read from KEYRING_MNEMONIC or prompted on the terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mnemonic, ok := os.LookupEnv(mnemonicEnv)
			if !ok {
				var err error
				mnemonic, err = wallet.PromptPassword("Enter recovery phrase: ")
				if err != nil {
					return err
				}
			}

			return create(cmd, mnemonic)
		},
	}
}
