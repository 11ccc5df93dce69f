package wallet

import (
	"context"

	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/wallet/address"
	"github/chapool/go-keyring/internal/wallet/signer"
)

func (s *service) SignMessage(ctx context.Context, addr string, message []byte) (string, error) {
	if !s.cfg.EnableSigning {
		return "", errs.ErrSigningDisabled
	}

	w, err := s.signingWallet(ctx, addr)
	if err != nil {
		return "", err
	}

	return s.signerService.SignMessage(ctx, message, w.PrivateKey)
}

func (s *service) SignTransaction(ctx context.Context, req *signer.SignEVMRequest) (*signer.SignEVMResponse, error) {
	if !s.cfg.EnableSigning {
		return nil, errs.ErrSigningDisabled
	}
	if req == nil || req.FromAddress == "" {
		return nil, errs.ErrMissingParameters
	}

	w, err := s.signingWallet(ctx, req.FromAddress)
	if err != nil {
		return nil, err
	}

	return s.signerService.SignTransaction(ctx, req, w.PrivateKey)
}

// signingWallet resolves addr to the main wallet or a stored one.
func (s *service) signingWallet(ctx context.Context, addr string) (*Wallet, error) {
	if err := address.ValidateAddress(addr); err != nil {
		return nil, err
	}

	main, err := s.GetMainWallet(ctx)
	if err != nil {
		return nil, err
	}
	if address.SameAddress(main.Address, addr) {
		return main, nil
	}

	return s.GetWallet(ctx, addr)
}
