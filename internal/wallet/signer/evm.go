package signer

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/wallet/address"
)

const base10 = 10

// signEIP1559Transaction signs an EIP-1559 transaction
func (s *service) signEIP1559Transaction(_ context.Context, req *SignEVMRequest, key *ecdsa.PrivateKey) (*SignEVMResponse, error) {
	if err := address.ValidateAddress(req.To); err != nil {
		return nil, err
	}
	if err := address.ValidateAddress(req.FromAddress); err != nil {
		return nil, err
	}

	toAddress := common.HexToAddress(req.To)
	fromAddress := common.HexToAddress(req.FromAddress)

	// Verify from address matches private key
	if crypto.PubkeyToAddress(key.PublicKey) != fromAddress {
		return nil, errs.Wrapf(errs.ErrAddressMismatch, nil, "from address does not match private key")
	}

	value, err := parseWei(req.Value, "value")
	if err != nil {
		return nil, err
	}
	maxFeePerGas, err := parseWei(req.MaxFeePerGas, "maxFeePerGas")
	if err != nil {
		return nil, err
	}
	maxPriorityFeePerGas, err := parseWei(req.MaxPriorityFeePerGas, "maxPriorityFeePerGas")
	if err != nil {
		return nil, err
	}
	if req.ChainID <= 0 {
		return nil, errs.Wrapf(errs.ErrInvalidRequest, nil, "invalid chain id %d", req.ChainID)
	}

	//nolint:varnamelen // tx is a common abbreviation for transaction
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(req.ChainID),
		Nonce:     req.Nonce,
		GasTipCap: maxPriorityFeePerGas,
		GasFeeCap: maxFeePerGas,
		Gas:       req.GasLimit,
		To:        &toAddress,
		Value:     value,
		Data:      req.Data,
	})

	signedTx, err := types.SignTx(tx, types.NewLondonSigner(big.NewInt(req.ChainID)), key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	txBytes, err := signedTx.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal transaction")
	}

	return &SignEVMResponse{
		RawTransaction: txBytes,
		TxHash:         signedTx.Hash().Hex(),
	}, nil
}

func parseWei(s string, field string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, base10)
	if !ok || v.Sign() < 0 {
		return nil, errs.Wrapf(errs.ErrInvalidRequest, nil, "invalid %s format", field)
	}
	return v, nil
}
