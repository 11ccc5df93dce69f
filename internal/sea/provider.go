package sea

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	"github/chapool/go-keyring/internal/config"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

const (
	workKeyLength      = 32
	defaultIterations  = 100000
	sealPrefix         = "sea1."
	hkdfInfoRecordSeal = "keyring/record/seal/v1"
)

type provider struct {
	iterations int
	random     io.Reader
}

// NewProvider creates the default Provider.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewProvider(cfg config.Sea) Provider {
	iterations := cfg.WorkIterations
	if iterations <= 0 {
		iterations = defaultIterations
	}

	return &provider{
		iterations: iterations,
		random:     rand.Reader,
	}
}

func (p *provider) Pair(_ context.Context) (*KeyPair, error) {
	signing, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate signing key")
	}
	signingBytes := crypto.FromECDSA(signing)
	defer zeroBytes(signingBytes)

	encryption := make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(p.random, encryption); err != nil {
		return nil, errors.Wrap(err, "failed to generate encryption key")
	}
	defer zeroBytes(encryption)

	return PairFromKeys(signingBytes, encryption)
}

// PairFromKeys builds a KeyPair from a raw 32-byte secp256k1 scalar and a raw
// 32-byte X25519 scalar.
func PairFromKeys(signingKey []byte, encryptionKey []byte) (*KeyPair, error) {
	signing, err := crypto.ToECDSA(signingKey)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKey, err.Error())
	}
	if len(encryptionKey) != curve25519.ScalarSize {
		return nil, ErrInvalidKey
	}

	epub, err := curve25519.X25519(encryptionKey, curve25519.Basepoint)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKey, err.Error())
	}

	return &KeyPair{
		Pub:   encodePub(&signing.PublicKey),
		Priv:  Encode(crypto.FromECDSA(signing)),
		Epub:  Encode(epub),
		Epriv: Encode(encryptionKey),
	}, nil
}

// Work runs PBKDF2-HMAC-SHA256 over data, salted with the pair's private
// encryption key so the output cannot be reproduced from public material.
func (p *provider) Work(_ context.Context, data string, pair *KeyPair) ([]byte, error) {
	if pair == nil || pair.Epriv == "" {
		return nil, ErrIncompletePair
	}

	salt, err := Decode(pair.Epriv)
	if err != nil {
		return nil, err
	}

	return pbkdf2.Key([]byte(data), salt, p.iterations, workKeyLength, sha256.New), nil
}

func (p *provider) Secret(_ context.Context, peerEpub string, pair *KeyPair) ([]byte, error) {
	if pair == nil || pair.Epriv == "" {
		return nil, ErrIncompletePair
	}

	peer, err := Decode(peerEpub)
	if err != nil {
		return nil, err
	}
	if len(peer) != curve25519.PointSize {
		return nil, ErrInvalidKey
	}

	priv, err := Decode(pair.Epriv)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(priv)

	secret, err := curve25519.X25519(priv, peer)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKey, err.Error())
	}
	return secret, nil
}

func (p *provider) Encrypt(_ context.Context, plaintext []byte, pair *KeyPair) (string, error) {
	key, err := sealKey(pair)
	if err != nil {
		return "", err
	}
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", errors.Wrap(err, "failed to create cipher")
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(p.random, nonce); err != nil {
		return "", errors.Wrap(err, "failed to generate nonce")
	}

	sealed := aead.Seal(nonce, nonce, plaintext, []byte(pair.Epub))
	return sealPrefix + Encode(sealed), nil
}

func (p *provider) Decrypt(_ context.Context, sealed string, pair *KeyPair) ([]byte, error) {
	if !strings.HasPrefix(sealed, sealPrefix) {
		return nil, ErrSealedData
	}

	raw, err := Decode(strings.TrimPrefix(sealed, sealPrefix))
	if err != nil || len(raw) < chacha20poly1305.NonceSizeX {
		return nil, ErrSealedData
	}

	key, err := sealKey(pair)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}

	plaintext, err := aead.Open(nil, raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:], []byte(pair.Epub))
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}

func (p *provider) Verify(_ context.Context, pair *KeyPair) error {
	if !pair.Complete() {
		return ErrIncompletePair
	}

	priv, err := Decode(pair.Priv)
	if err != nil {
		return err
	}
	defer zeroBytes(priv)

	epriv, err := Decode(pair.Epriv)
	if err != nil {
		return err
	}
	defer zeroBytes(epriv)

	derived, err := PairFromKeys(priv, epriv)
	if err != nil {
		return err
	}

	if derived.Pub != pair.Pub || derived.Epub != pair.Epub {
		return ErrPairMismatch
	}
	return nil
}

func sealKey(pair *KeyPair) ([]byte, error) {
	if pair == nil || pair.Epriv == "" {
		return nil, ErrIncompletePair
	}

	epriv, err := Decode(pair.Epriv)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(epriv)

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, epriv, nil, []byte(hkdfInfoRecordSeal)), key); err != nil {
		return nil, errors.Wrap(err, "failed to derive seal key")
	}
	return key, nil
}

// Equal compares two pairs field by field in constant time.
func Equal(a, b *KeyPair) bool {
	if a == nil || b == nil {
		return a == b
	}
	eq := func(x, y string) bool { return subtle.ConstantTimeCompare([]byte(x), []byte(y)) == 1 }
	return eq(a.Pub, b.Pub) && eq(a.Priv, b.Priv) && eq(a.Epub, b.Epub) && eq(a.Epriv, b.Epriv)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
