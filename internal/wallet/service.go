package wallet

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/go-keyring/internal/config"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/storage"
	"github/chapool/go-keyring/internal/util"
	"github/chapool/go-keyring/internal/wallet/address"
	"github/chapool/go-keyring/internal/wallet/signer"
	"github/chapool/go-keyring/internal/wallet/stealth"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const defaultAppPrefix = "keyring"

type service struct {
	cfg      config.Wallet
	prefix   string
	identity Identity
	store    *storage.Adapter
	provider sea.Provider
	recorder DerivationRecorder

	addressService address.Service
	stealthService stealth.Service
	signerService  signer.Service

	stealthSetup singleflight.Group
}

// NewService creates a new WalletService for identity. recorder may be nil.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(
	cfg config.Wallet,
	identity Identity,
	store *storage.Adapter,
	provider sea.Provider,
	addressService address.Service,
	stealthService stealth.Service,
	signerService signer.Service,
	recorder DerivationRecorder,
) (Service, error) {
	if identity == nil || store == nil || provider == nil || addressService == nil || stealthService == nil || signerService == nil {
		return nil, errors.New("wallet service requires identity, store, provider, address, stealth and signer services")
	}

	prefix := strings.Trim(cfg.AppPrefix, "/")
	if prefix == "" {
		prefix = defaultAppPrefix
	}

	return &service{
		cfg:            cfg,
		prefix:         prefix,
		identity:       identity,
		store:          store,
		provider:       provider,
		recorder:       recorder,
		addressService: addressService,
		stealthService: stealthService,
		signerService:  signerService,
	}, nil
}

// CreateWallet derives a wallet in salt mode when req.Salt is set, at
// req.Index when set, and at the next free index otherwise.
func (s *service) CreateWallet(ctx context.Context, req CreateWalletRequest) (*Wallet, error) {
	if req.Salt != "" && req.Index != nil {
		return nil, errs.Wrapf(errs.ErrInvalidRequest, nil, "salt and index are mutually exclusive")
	}
	if req.Salt != "" && strings.TrimSpace(req.Salt) == "" {
		return nil, errs.ErrInvalidSalt
	}
	if req.Index != nil && *req.Index < 0 {
		return nil, errs.ErrInvalidIndex
	}

	pair, err := s.identity.Pair()
	if err != nil {
		return nil, err
	}

	log := util.LogFromContext(ctx).With().Str("component", "wallet").Logger()

	unlock, err := lockIdentity(ctx, pair.Pub)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var derived *address.Derived
	switch {
	case req.Salt != "":
		derived, err = s.addressService.DeriveFromSalt(ctx, pair, req.Salt)
	case req.Index != nil:
		derived, err = s.addressService.DeriveFromIndex(ctx, pair, *req.Index)
	default:
		var indices []int
		indices, err = s.indices(ctx, pair.Pub)
		if err != nil {
			return nil, err
		}
		derived, err = s.addressService.DeriveFromIndex(ctx, pair, s.addressService.NextIndex(indices))
	}
	if err != nil {
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.IncDerivation(string(derived.Mode))
	}

	w := &Wallet{
		Address:    derived.Address,
		PrivateKey: derived.PrivateKey,
		Entropy:    derived.Entropy,
		Index:      derived.Index,
		Name:       req.Name,
		Mode:       derived.Mode,
		Timestamp:  time.Now().UnixMilli(),
	}

	record, err := s.toRecord(ctx, pair, w)
	if err != nil {
		return nil, err
	}

	store := s.scope(pair.Pub)
	if err := store.Put(ctx, s.walletPath(w.Address), record); err != nil {
		log.Error().Err(err).Str("address", w.Address).Msg("Failed to store wallet")
		return nil, errors.Wrap(err, "failed to store wallet")
	}
	entry := indexEntry{Index: w.Index, Timestamp: w.Timestamp}
	if err := store.Put(ctx, s.indexEntryPath(w.Address), entry); err != nil {
		log.Error().Err(err).Str("address", w.Address).Msg("Failed to store wallet index")
		return nil, errors.Wrap(err, "failed to store wallet index")
	}

	ev := log.Info().Str("address", w.Address).Str("mode", string(w.Mode))
	if w.Index != nil {
		ev = ev.Int("index", *w.Index)
	}
	ev.Msg("Wallet created")

	return w, nil
}

// ListWallets reads the address index fresh from the store and loads every
// wallet it names. Entries whose record is gone are skipped.
func (s *service) ListWallets(ctx context.Context) ([]*Wallet, error) {
	pair, err := s.identity.Pair()
	if err != nil {
		return nil, err
	}

	entries, err := s.index(ctx, pair.Pub)
	if err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(entries))
	for addr := range entries {
		addrs = append(addrs, addr)
	}

	wallets := make([]*Wallet, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.ListConcurrency, 1))

	for i, addr := range addrs {
		g.Go(func() error {
			w, err := s.load(gctx, pair, addr)
			if errors.Is(err, errs.ErrWalletNotFound) {
				util.LogFromContext(ctx).Debug().Str("address", addr).Msg("Indexed wallet has no record")
				return nil
			}
			if err != nil {
				return err
			}
			wallets[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	wallets = slices.DeleteFunc(wallets, func(w *Wallet) bool { return w == nil })
	slices.SortFunc(wallets, compareWallets)
	return wallets, nil
}

func (s *service) GetWallet(ctx context.Context, addr string) (*Wallet, error) {
	if err := address.ValidateAddress(addr); err != nil {
		return nil, err
	}

	pair, err := s.identity.Pair()
	if err != nil {
		return nil, err
	}

	return s.load(ctx, pair, addr)
}

func (s *service) DeleteWallet(ctx context.Context, addr string) error {
	if err := address.ValidateAddress(addr); err != nil {
		return err
	}

	pair, err := s.identity.Pair()
	if err != nil {
		return err
	}

	unlock, err := lockIdentity(ctx, pair.Pub)
	if err != nil {
		return err
	}
	defer unlock()

	store := s.scope(pair.Pub)
	_, found, err := store.Get(ctx, s.walletPath(addr))
	if err != nil {
		return err
	}
	if !found {
		return errs.Wrapf(errs.ErrWalletNotFound, nil, "wallet not found: %s", addr)
	}

	if err := store.Delete(ctx, s.indexEntryPath(addr)); err != nil {
		return errors.Wrap(err, "failed to delete wallet index")
	}
	if err := store.Delete(ctx, s.walletPath(addr)); err != nil {
		return errors.Wrap(err, "failed to delete wallet")
	}

	util.LogFromContext(ctx).Info().Str("address", addr).Msg("Wallet deleted")
	return nil
}

func (s *service) GetMainWallet(ctx context.Context) (*Wallet, error) {
	pair, err := s.identity.Pair()
	if err != nil {
		return nil, err
	}

	derived, err := s.addressService.DeriveLegacy(ctx, pair)
	if err != nil {
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.IncDerivation(string(derived.Mode))
	}

	return &Wallet{
		Address:    derived.Address,
		PrivateKey: derived.PrivateKey,
		Mode:       derived.Mode,
	}, nil
}

// load reads and unseals one wallet record. The stored key must still
// produce the stored address.
func (s *service) load(ctx context.Context, pair *sea.KeyPair, addr string) (*Wallet, error) {
	var record walletRecord
	found, err := s.scope(pair.Pub).GetInto(ctx, s.walletPath(addr), &record)
	if err != nil {
		return nil, err
	}
	if !found || record.Address == "" {
		return nil, errs.Wrapf(errs.ErrWalletNotFound, nil, "wallet not found: %s", addr)
	}

	w, err := s.fromRecord(ctx, pair, &record)
	if err != nil {
		return nil, err
	}

	key, err := address.ToECDSA(w.PrivateKey)
	if err != nil {
		return nil, err
	}
	if !address.SameAddress(crypto.PubkeyToAddress(key.PublicKey).Hex(), w.Address) {
		return nil, errs.Wrapf(errs.ErrAddressMismatch, nil, "stored key does not match wallet %s", w.Address)
	}

	return w, nil
}

// index reads the address index. A missing index is an empty one.
func (s *service) index(ctx context.Context, pub string) (map[string]indexEntry, error) {
	entries := map[string]indexEntry{}
	if _, err := s.scope(pub).GetInto(ctx, s.indexPath(), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *service) indices(ctx context.Context, pub string) ([]int, error) {
	entries, err := s.index(ctx, pub)
	if err != nil {
		return nil, err
	}

	out := make([]int, 0, len(entries))
	for _, e := range entries {
		if e.Index != nil {
			out = append(out, *e.Index)
		}
	}
	return out, nil
}

// compareWallets orders indexed wallets first by index, then the rest by
// creation time.
func compareWallets(a, b *Wallet) int {
	switch {
	case a.Index != nil && b.Index != nil:
		if c := cmp.Compare(*a.Index, *b.Index); c != 0 {
			return c
		}
	case a.Index != nil:
		return -1
	case b.Index != nil:
		return 1
	}
	if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
		return c
	}
	return strings.Compare(strings.ToLower(a.Address), strings.ToLower(b.Address))
}
