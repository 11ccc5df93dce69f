package identity

import (
	"fmt"

	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/util/command"
	"github/chapool/go-keyring/internal/wallet"
	"github/chapool/go-keyring/internal/wallet/keystore"
	"github/chapool/go-keyring/internal/wallet/seed"
)

func newNew() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Generates a recovery phrase and writes a new keystore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mnemonic, err := seed.NewMnemonic()
			if err != nil {
				return err
			}

			if err := create(cmd, mnemonic); err != nil {
				return err
			}

			//nolint:forbidigo // The mnemonic is shown once on the terminal, never logged
			fmt.Fprintf(cmd.ErrOrStderr(), "\nWrite down your recovery phrase:\n\n  %s\n\n", mnemonic)

			return nil
		},
	}
}

func create(cmd *cobra.Command, mnemonic string) error {
	cfg, err := command.Config(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	keystoreService, err := keystore.NewService(cfg.Keystore)
	if err != nil {
		return err
	}

	exists, err := keystoreService.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return keystore.ErrKeystoreExists
	}

	password, err := wallet.ReadNewPassword(command.ReadPassword)
	if err != nil {
		return err
	}

	seedManager := seed.NewManager()
	defer seedManager.Clear()

	pair, err := wallet.CreateIdentity(ctx, seedManager, keystoreService, mnemonic, password)
	if err != nil {
		return err
	}

	verificationAddress, err := wallet.DeriveVerificationAddress(seedManager)
	if err != nil {
		return err
	}

	return command.PrintJSON(cmd.OutOrStdout(), info(pair, verificationAddress, cfg.Keystore.Path))
}
