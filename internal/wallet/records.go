package wallet

import (
	"context"
	"strings"
	"sync"

	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/graph"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/storage"
	"github/chapool/go-keyring/internal/wallet/address"
)

const (
	namespacePrivate = "private"
	namespacePublic  = "public"

	segmentWallets   = "wallets"
	segmentAddresses = "addresses"
	segmentStealth   = "stealth"
)

// walletRecord is the persisted form of a Wallet.
type walletRecord struct {
	Address    string       `json:"address"`
	PrivateKey string       `json:"privateKey"`
	Sealed     bool         `json:"sealed,omitempty"`
	Entropy    string       `json:"entropy"`
	Index      *int         `json:"index,omitempty"`
	Name       string       `json:"name,omitempty"`
	Mode       address.Mode `json:"mode"`
	Timestamp  int64        `json:"timestamp"`
}

// indexEntry is the per-address metadata used to find the next free index.
type indexEntry struct {
	Index     *int  `json:"index,omitempty"`
	Timestamp int64 `json:"timestamp"`
}

// stealthRecord holds the full stealth keypair. Priv and Epriv are sealed
// when Sealed is set.
type stealthRecord struct {
	Pub    string `json:"pub"`
	Priv   string `json:"priv"`
	Epub   string `json:"epub"`
	Epriv  string `json:"epriv"`
	Sealed bool   `json:"sealed,omitempty"`
}

type stealthPublicRecord struct {
	Epub string `json:"epub"`
}

// scope returns the adapter rooted at the identity namespace of pub.
func (s *service) scope(pub string) *storage.Adapter {
	return s.store.With(storage.WithPrefix("~" + pub))
}

func (s *service) walletsPath() string {
	return graph.Join(namespacePrivate, s.prefix, segmentWallets)
}

func (s *service) walletPath(addr string) string {
	return graph.Join(s.walletsPath(), strings.ToLower(addr))
}

func (s *service) indexPath() string {
	return graph.Join(s.walletsPath(), segmentAddresses)
}

func (s *service) indexEntryPath(addr string) string {
	return graph.Join(s.indexPath(), strings.ToLower(addr))
}

func (s *service) stealthPrivatePath() string {
	return graph.Join(namespacePrivate, s.prefix, segmentStealth)
}

func (s *service) stealthPublicPath() string {
	return graph.Join(namespacePublic, s.prefix, segmentStealth)
}

// seal encrypts secret for pair when record sealing is enabled.
func (s *service) seal(ctx context.Context, pair *sea.KeyPair, secret string) (string, error) {
	if !s.cfg.SealPrivateRecords {
		return secret, nil
	}
	sealed, err := s.provider.Encrypt(ctx, []byte(secret), pair)
	if err != nil {
		return "", errs.Unknown(err)
	}
	return sealed, nil
}

func (s *service) unseal(ctx context.Context, pair *sea.KeyPair, value string, sealed bool) (string, error) {
	if !sealed {
		return value, nil
	}
	plain, err := s.provider.Decrypt(ctx, value, pair)
	if err != nil {
		return "", errs.Unknown(err)
	}
	return string(plain), nil
}

func (s *service) toRecord(ctx context.Context, pair *sea.KeyPair, w *Wallet) (*walletRecord, error) {
	key, err := s.seal(ctx, pair, w.PrivateKey)
	if err != nil {
		return nil, err
	}
	return &walletRecord{
		Address:    w.Address,
		PrivateKey: key,
		Sealed:     s.cfg.SealPrivateRecords,
		Entropy:    w.Entropy,
		Index:      w.Index,
		Name:       w.Name,
		Mode:       w.Mode,
		Timestamp:  w.Timestamp,
	}, nil
}

func (s *service) fromRecord(ctx context.Context, pair *sea.KeyPair, r *walletRecord) (*Wallet, error) {
	key, err := s.unseal(ctx, pair, r.PrivateKey, r.Sealed)
	if err != nil {
		return nil, err
	}

	return &Wallet{
		Address:    r.Address,
		PrivateKey: key,
		Entropy:    r.Entropy,
		Index:      r.Index,
		Name:       r.Name,
		Mode:       r.Mode,
		Timestamp:  r.Timestamp,
	}, nil
}

// identityLocks serialises index allocation per identity across all facades
// of the process.
var identityLocks sync.Map

func lockIdentity(ctx context.Context, pub string) (func(), error) {
	v, _ := identityLocks.LoadOrStore(pub, make(chan struct{}, 1))
	sem := v.(chan struct{}) //nolint:forcetypeassert // only channels are stored

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, errs.Wrap(errs.ErrStorageTimeout, ctx.Err())
	}
}
