package identity

import (
	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/util/command"
)

// Info is what the identity subcommands print. It never carries private keys.
type Info struct {
	Pub                 string `json:"pub"`
	Epub                string `json:"epub"`
	VerificationAddress string `json:"verificationAddress,omitempty"`
	Keystore            string `json:"keystore"`
}

func New() *cobra.Command {
	return command.NewSubcommandGroup("identity",
		newNew(),
		newImport(),
		newShow(),
	)
}

func info(pair *sea.KeyPair, verificationAddress string, path string) Info {
	return Info{
		Pub:                 pair.Pub,
		Epub:                pair.Epub,
		VerificationAddress: verificationAddress,
		Keystore:            path,
	}
}
