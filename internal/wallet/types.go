package wallet

import (
	"context"

	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/wallet/address"
	"github/chapool/go-keyring/internal/wallet/signer"
	"github/chapool/go-keyring/internal/wallet/stealth"
)

// Service is the single entry point of an authenticated identity. Every call
// requires the identity to be logged in.
type Service interface {
	// CreateWallet derives and persists a new wallet
	CreateWallet(ctx context.Context, req CreateWalletRequest) (*Wallet, error)

	// ListWallets lists all stored wallets ordered by index
	ListWallets(ctx context.Context) ([]*Wallet, error)

	// GetWallet gets a stored wallet by address
	GetWallet(ctx context.Context, addr string) (*Wallet, error)

	// WatchWallets streams the wallet list whenever the address index changes
	WatchWallets(ctx context.Context) (<-chan []*Wallet, error)

	// DeleteWallet removes a stored wallet and its index entry
	DeleteWallet(ctx context.Context, addr string) error

	// GetMainWallet returns the legacy wallet backed by the identity's signing key
	GetMainWallet(ctx context.Context) (*Wallet, error)

	// CreateStealthAccount returns the identity's stealth keys, creating them once
	CreateStealthAccount(ctx context.Context) (*sea.KeyPair, error)

	// GetStealthKeys loads the identity's stealth keys
	GetStealthKeys(ctx context.Context) (*sea.KeyPair, error)

	// GetPublicStealthKey reads the published stealth epub of any identity
	GetPublicStealthKey(ctx context.Context, pub string) (string, error)

	// GenerateStealthAddress derives a one-time address paying recipientPub
	GenerateStealthAddress(ctx context.Context, recipientPub string) (*stealth.Result, error)

	// OpenStealthAddress recovers the wallet behind a stealth address sent to this identity
	OpenStealthAddress(ctx context.Context, stealthAddress string, ephemeralPub string) (*stealth.Opened, error)

	// SignMessage signs an EIP-191 message with a stored wallet or the main wallet
	SignMessage(ctx context.Context, addr string, message []byte) (string, error)

	// SignTransaction signs an EIP-1559 transaction with the wallet named by req.FromAddress
	SignTransaction(ctx context.Context, req *signer.SignEVMRequest) (*signer.SignEVMResponse, error)
}

// Identity is the authenticated session the facade acts for. *auth.Session
// satisfies it.
type Identity interface {
	IsAuthenticated() bool
	Pair() (*sea.KeyPair, error)
}

// DerivationRecorder counts wallet derivations by mode.
type DerivationRecorder interface {
	IncDerivation(mode string)
}

// CreateWalletRequest selects the derivation mode. Salt and Index are
// mutually exclusive; with neither set the next free index is used.
type CreateWalletRequest struct {
	Index *int   `json:"index,omitempty"`
	Salt  string `json:"salt,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Wallet represents a derived wallet
type Wallet struct {
	Address    string       `json:"address"`
	PrivateKey string       `json:"privateKey,omitempty"`
	Entropy    string       `json:"entropy,omitempty"`
	Index      *int         `json:"index,omitempty"`
	Name       string       `json:"name,omitempty"`
	Mode       address.Mode `json:"mode"`
	Timestamp  int64        `json:"timestamp,omitempty"`
}

// Public returns a copy without the private key.
func (w *Wallet) Public() *Wallet {
	c := *w
	c.PrivateKey = ""
	return &c
}
