package address

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
	"github/chapool/go-keyring/internal/errs"
)

const (
	hardenedOffset = 0x80000000
	bip44Prefix    = "m/44'/60'/0'/0/"
)

// DeriveHDPrivateKey derives a private key from a BIP-32 seed and path.
// WARNING: Caller must clear the private key after use
func DeriveHDPrivateKey(seed []byte, path string) ([]byte, error) {
	indices, err := ParseBIP44Path(path)
	if err != nil {
		return nil, err
	}

	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create master key")
	}

	key := masterKey
	for _, index := range indices {
		key, err = key.NewChildKey(index)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive child key at index %d", index)
		}
	}

	out := make([]byte, len(key.Key))
	copy(out, key.Key)
	return out, nil
}

// ParseBIP44Path parses a BIP44 path string into indices
// Example: "m/44'/60'/0'/0/0" -> [2147483692, 2147483708, 2147483648, 0, 0]
func ParseBIP44Path(path string) ([]uint32, error) {
	if path != "m" && !strings.HasPrefix(path, "m/") {
		return nil, errs.Wrapf(errs.ErrInvalidPath, nil, "invalid BIP44 path: %s", path)
	}

	parts := strings.Split(strings.TrimPrefix(path, "m"), "/")
	indices := make([]uint32, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}

		hardened := strings.HasSuffix(part, "'")
		part = strings.TrimSuffix(part, "'")

		index, err := strconv.ParseUint(part, 10, 31)
		if err != nil {
			return nil, errs.Wrapf(errs.ErrInvalidPath, err, "invalid path segment: %s", part)
		}

		// Add hardened flag (0x80000000)
		if hardened {
			index += hardenedOffset
		}
		indices = append(indices, uint32(index))
	}

	return indices, nil
}

// ParseBIP44Index recovers the account index from an index-mode entropy path.
func ParseBIP44Index(path string) (int, error) {
	if !strings.HasPrefix(path, bip44Prefix) {
		return 0, errs.Wrapf(errs.ErrInvalidPath, nil, "not an index path: %s", path)
	}

	index, err := strconv.ParseUint(strings.TrimPrefix(path, bip44Prefix), 10, 31)
	if err != nil {
		return 0, errs.Wrapf(errs.ErrInvalidPath, err, "invalid index in path: %s", path)
	}
	return int(index), nil
}

// BIP44Path returns m/44'/60'/0'/0/{index}.
func BIP44Path(index int) string {
	return bip44Prefix + strconv.Itoa(index)
}
