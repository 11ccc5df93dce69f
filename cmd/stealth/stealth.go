package stealth

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/util/command"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("stealth",
		newInit(),
		newGenerate(),
		newOpen(),
	)
}

func newInit() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Creates the stealth keys of the identity once and prints their public half",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return command.WithIdentity(cmd, func(ctx context.Context, s *api.Server) error {
				keys, err := s.Wallet.CreateStealthAccount(ctx)
				if err != nil {
					return err
				}
				return command.PrintJSON(cmd.OutOrStdout(), map[string]string{"pub": keys.Pub, "epub": keys.Epub})
			})
		},
	}
}

func newGenerate() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <recipient-pub>",
		Short: "Derives a one-time address paying the given identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.WithIdentity(cmd, func(ctx context.Context, s *api.Server) error {
				res, err := s.Wallet.GenerateStealthAddress(ctx, args[0])
				if err != nil {
					return err
				}
				return command.PrintJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newOpen() *cobra.Command {
	return &cobra.Command{
		Use:   "open <stealth-address> <ephemeral-pub>",
		Short: "Recovers the private key behind a stealth address sent to this identity",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.WithIdentity(cmd, func(ctx context.Context, s *api.Server) error {
				opened, err := s.Wallet.OpenStealthAddress(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return command.PrintJSON(cmd.OutOrStdout(), opened)
			})
		},
	}
}
