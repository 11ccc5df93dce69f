package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/wallet/address"
)

const (
	signatureLength = 65
	recoveryOffset  = 27
)

type service struct{}

// NewService creates a new SignerService
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService() (Service, error) {
	return &service{}, nil
}

// SignTransaction signs an EVM transaction (EIP-1559)
func (s *service) SignTransaction(ctx context.Context, req *SignEVMRequest, privateKey string) (*SignEVMResponse, error) {
	if req == nil {
		return nil, errs.ErrMissingParameters
	}

	key, err := address.ToECDSA(privateKey)
	if err != nil {
		return nil, err
	}

	return s.signEIP1559Transaction(ctx, req, key)
}

func (s *service) SignMessage(_ context.Context, message []byte, privateKey string) (string, error) {
	key, err := address.ToECDSA(privateKey)
	if err != nil {
		return "", err
	}

	sig, err := crypto.Sign(accounts.TextHash(message), key)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign message")
	}
	sig[crypto.RecoveryIDOffset] += recoveryOffset

	return hexutil.Encode(sig), nil
}

// RecoverMessageSigner returns the address that produced signature over
// message with SignMessage.
func RecoverMessageSigner(message []byte, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != signatureLength {
		return "", errs.Wrapf(errs.ErrInvalidRequest, err, "malformed signature")
	}
	if sig[crypto.RecoveryIDOffset] >= recoveryOffset {
		sig[crypto.RecoveryIDOffset] -= recoveryOffset
	}

	pub, err := crypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return "", errs.Wrapf(errs.ErrInvalidRequest, err, "unrecoverable signature")
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// SameSigner reports whether signature over message was made by addr.
func SameSigner(message []byte, signature string, addr string) bool {
	signer, err := RecoverMessageSigner(message, signature)
	if err != nil {
		return false
	}
	return common.HexToAddress(signer) == common.HexToAddress(addr)
}
