package wallet

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/util"
	"github/chapool/go-keyring/internal/wallet/stealth"
)

// CreateStealthAccount is idempotent: existing keys are returned unchanged.
// Concurrent calls for one identity share a single setup.
func (s *service) CreateStealthAccount(ctx context.Context) (*sea.KeyPair, error) {
	pair, err := s.identity.Pair()
	if err != nil {
		return nil, err
	}

	// the shared setup must not die with whichever caller happened to start it
	setup := s.stealthSetup.DoChan(pair.Pub, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.store.OperationTimeout())
		defer cancel()
		return s.setupStealth(ctx, pair)
	})

	select {
	case res := <-setup:
		if res.Err != nil {
			return nil, res.Err
		}
		keys := *res.Val.(*sea.KeyPair) //nolint:forcetypeassert // setupStealth returns *sea.KeyPair
		return &keys, nil
	case <-ctx.Done():
		return nil, errs.Wrap(errs.ErrStorageTimeout, ctx.Err())
	}
}

func (s *service) GetStealthKeys(ctx context.Context) (*sea.KeyPair, error) {
	pair, err := s.identity.Pair()
	if err != nil {
		return nil, err
	}
	return s.loadStealthKeys(ctx, pair)
}

func (s *service) GetPublicStealthKey(ctx context.Context, pub string) (string, error) {
	pub = strings.TrimSpace(pub)
	if pub == "" {
		return "", errs.Wrapf(errs.ErrMissingParameters, nil, "recipient public key is required")
	}

	var record stealthPublicRecord
	found, err := s.scope(pub).GetInto(ctx, s.stealthPublicPath(), &record)
	if err != nil {
		return "", err
	}
	if !found || record.Epub == "" {
		return "", errs.Wrapf(errs.ErrKeysNotFound, nil, "no stealth keys published for %s", pub)
	}
	return record.Epub, nil
}

func (s *service) GenerateStealthAddress(ctx context.Context, recipientPub string) (*stealth.Result, error) {
	if strings.TrimSpace(recipientPub) == "" {
		return nil, errs.Wrapf(errs.ErrMissingParameters, nil, "recipient public key is required")
	}
	if !s.identity.IsAuthenticated() {
		return nil, errs.ErrNotAuthenticated
	}

	epub, err := s.GetPublicStealthKey(ctx, recipientPub)
	if err != nil {
		return nil, err
	}

	return s.stealthService.Generate(ctx, epub, recipientPub)
}

func (s *service) OpenStealthAddress(ctx context.Context, stealthAddress string, ephemeralPub string) (*stealth.Opened, error) {
	if stealthAddress == "" || ephemeralPub == "" {
		return nil, errs.ErrMissingParameters
	}

	pair, err := s.identity.Pair()
	if err != nil {
		return nil, err
	}

	keys, err := s.loadStealthKeys(ctx, pair)
	if err != nil {
		return nil, err
	}

	opened, err := s.stealthService.Open(ctx, keys, stealthAddress, ephemeralPub)
	if err != nil {
		util.LogFromContext(ctx).Warn().Err(err).Str("address", stealthAddress).Msg("Failed to open stealth address")
		return nil, err
	}
	return opened, nil
}

func (s *service) setupStealth(ctx context.Context, pair *sea.KeyPair) (*sea.KeyPair, error) {
	log := util.LogFromContext(ctx).With().Str("component", "stealth").Logger()

	unlock, err := lockIdentity(ctx, pair.Pub)
	if err != nil {
		return nil, err
	}
	defer unlock()

	store := s.scope(pair.Pub)

	keys, err := s.loadStealthKeys(ctx, pair)
	switch {
	case err == nil:
		// heal a missing or stale public record
		var published stealthPublicRecord
		found, err := store.GetInto(ctx, s.stealthPublicPath(), &published)
		if err != nil {
			return nil, err
		}
		if !found || published.Epub != keys.Epub {
			if err := store.Put(ctx, s.stealthPublicPath(), stealthPublicRecord{Epub: keys.Epub}); err != nil {
				return nil, errors.Wrap(err, "failed to publish stealth key")
			}
			log.Info().Msg("Republished stealth public key")
		}
		return keys, nil
	case !errors.Is(err, errs.ErrKeysNotFound):
		return nil, err
	}

	keys, err = s.provider.Pair(ctx)
	if err != nil {
		return nil, errs.Unknown(err)
	}

	priv, err := s.seal(ctx, pair, keys.Priv)
	if err != nil {
		return nil, err
	}
	epriv, err := s.seal(ctx, pair, keys.Epriv)
	if err != nil {
		return nil, err
	}

	record := stealthRecord{
		Pub:    keys.Pub,
		Priv:   priv,
		Epub:   keys.Epub,
		Epriv:  epriv,
		Sealed: s.cfg.SealPrivateRecords,
	}
	if err := store.Put(ctx, s.stealthPrivatePath(), record); err != nil {
		return nil, errors.Wrap(err, "failed to store stealth keys")
	}
	if err := store.Put(ctx, s.stealthPublicPath(), stealthPublicRecord{Epub: keys.Epub}); err != nil {
		return nil, errors.Wrap(err, "failed to publish stealth key")
	}

	log.Info().Msg("Stealth account created")
	return keys, nil
}

func (s *service) loadStealthKeys(ctx context.Context, pair *sea.KeyPair) (*sea.KeyPair, error) {
	var record stealthRecord
	found, err := s.scope(pair.Pub).GetInto(ctx, s.stealthPrivatePath(), &record)
	if err != nil {
		return nil, err
	}
	if !found || record.Epub == "" || record.Epriv == "" {
		return nil, errs.ErrKeysNotFound
	}

	priv, err := s.unseal(ctx, pair, record.Priv, record.Sealed)
	if err != nil {
		return nil, err
	}
	epriv, err := s.unseal(ctx, pair, record.Epriv, record.Sealed)
	if err != nil {
		return nil, err
	}

	return &sea.KeyPair{
		Pub:   record.Pub,
		Priv:  priv,
		Epub:  record.Epub,
		Epriv: epriv,
	}, nil
}
