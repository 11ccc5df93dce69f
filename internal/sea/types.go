// Package sea provides the asymmetric key primitives an identity is built on:
// keypair generation, the password-hardening work function, ECDH shared
// secrets and symmetric sealing of private records.
//
// A KeyPair bundles a secp256k1 signing pair (pub/priv) with an X25519
// encryption pair (epub/epriv). All key material is base64url encoded
// without padding; pub is "x.y" (both coordinates, 32 bytes each).
package sea

import (
	"context"
	"errors"
)

var (
	ErrIncompletePair = errors.New("sea: keypair is incomplete")
	ErrInvalidKey     = errors.New("sea: invalid key encoding")
	ErrPairMismatch   = errors.New("sea: public keys do not match private keys")
	ErrSealedData     = errors.New("sea: sealed data is invalid")
	ErrOpenFailed     = errors.New("sea: unable to open sealed data")
)

// KeyPair is an identity's asymmetric material.
type KeyPair struct {
	Pub   string `json:"pub" toml:"pub"`
	Priv  string `json:"priv" toml:"priv"`
	Epub  string `json:"epub" toml:"epub"`
	Epriv string `json:"epriv" toml:"epriv"`
}

// Public strips the private halves.
func (p *KeyPair) Public() *KeyPair {
	return &KeyPair{Pub: p.Pub, Epub: p.Epub}
}

// Complete reports whether all four fields are present.
func (p *KeyPair) Complete() bool {
	return p != nil && p.Pub != "" && p.Priv != "" && p.Epub != "" && p.Epriv != ""
}

// Provider is the set of primitives the wallet and stealth engines consume.
//
// Implementations must be deterministic for Work and Secret: equal inputs
// produce equal bytes on every call.
type Provider interface {
	// Pair generates a fresh keypair.
	Pair(ctx context.Context) (*KeyPair, error)

	// Work hardens data with key material of pair.
	Work(ctx context.Context, data string, pair *KeyPair) ([]byte, error)

	// Secret computes the ECDH shared secret between peerEpub and pair.Epriv.
	Secret(ctx context.Context, peerEpub string, pair *KeyPair) ([]byte, error)

	// Encrypt seals plaintext so that only pair can open it.
	Encrypt(ctx context.Context, plaintext []byte, pair *KeyPair) (string, error)

	// Decrypt opens data produced by Encrypt with the same pair.
	Decrypt(ctx context.Context, sealed string, pair *KeyPair) ([]byte, error)

	// Verify checks that the public halves of pair belong to its private halves.
	Verify(ctx context.Context, pair *KeyPair) error
}
