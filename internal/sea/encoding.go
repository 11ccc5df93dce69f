package sea

import (
	"crypto/ecdsa"
	"encoding/base64"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const coordinateSize = 32

// Encode returns the unpadded base64url form of b.
func Encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode accepts base64url with or without padding.
func Decode(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(s), "="))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKey, err.Error())
	}
	return b, nil
}

func encodePub(pub *ecdsa.PublicKey) string {
	x := pub.X.FillBytes(make([]byte, coordinateSize))
	y := pub.Y.FillBytes(make([]byte, coordinateSize))
	return Encode(x) + "." + Encode(y)
}

// DecodePub parses an "x.y" signing public key.
func DecodePub(s string) (*ecdsa.PublicKey, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return nil, ErrInvalidKey
	}

	x, err := Decode(parts[0])
	if err != nil {
		return nil, err
	}
	y, err := Decode(parts[1])
	if err != nil {
		return nil, err
	}
	if len(x) != coordinateSize || len(y) != coordinateSize {
		return nil, ErrInvalidKey
	}

	raw := make([]byte, 0, 1+2*coordinateSize)
	raw = append(raw, 0x04)
	raw = append(raw, x...)
	raw = append(raw, y...)

	pub, err := crypto.UnmarshalPubkey(raw)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKey, err.Error())
	}
	return pub, nil
}
