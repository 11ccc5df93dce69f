package address

import (
	"crypto/ecdsa"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github/chapool/go-keyring/internal/errs"
)

var (
	privateKeyPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	addressPattern    = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// ValidatePrivateKey checks the "0x" + 64 hex form.
func ValidatePrivateKey(privateKey string) error {
	if !privateKeyPattern.MatchString(privateKey) {
		return errs.ErrInvalidDerivedKey
	}
	return nil
}

// ValidateAddress checks the "0x" + 40 hex form. Mixed case must carry a
// valid EIP-55 checksum.
func ValidateAddress(addr string) error {
	if !addressPattern.MatchString(addr) {
		return errs.Wrapf(errs.ErrInvalidAddress, nil, "invalid ethereum address: %s", addr)
	}

	body := addr[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return nil
	}
	if common.HexToAddress(addr).Hex() != addr {
		return errs.Wrapf(errs.ErrInvalidAddress, nil, "bad address checksum: %s", addr)
	}
	return nil
}

// Normalize returns the checksummed form of a valid address.
func Normalize(addr string) (string, error) {
	if err := ValidateAddress(addr); err != nil {
		return "", err
	}
	return common.HexToAddress(addr).Hex(), nil
}

// SameAddress compares two addresses case-insensitively.
func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ToECDSA parses a "0x" + 64 hex private key.
func ToECDSA(privateKey string) (*ecdsa.PrivateKey, error) {
	if err := ValidatePrivateKey(privateKey); err != nil {
		return nil, err
	}

	raw, err := hex.DecodeString(privateKey[2:])
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidDerivedKey, err)
	}
	defer zero(raw)

	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidDerivedKey, err)
	}
	return key, nil
}
