package storage_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-keyring/internal/config"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/graph"
	"github/chapool/go-keyring/internal/graph/graphtest"
	"github/chapool/go-keyring/internal/storage"
)

type fakeSession struct {
	authenticated atomic.Bool
	reauths       atomic.Int32
}

func (s *fakeSession) IsAuthenticated() bool { return s.authenticated.Load() }

func (s *fakeSession) Reauthenticate(_ context.Context) error {
	s.reauths.Add(1)
	return nil
}

func fastConfig() config.Storage {
	return config.Storage{
		VerifyAttempts:   3,
		VerifyInterval:   5 * time.Millisecond,
		PutRetries:       3,
		GetRetries:       3,
		ReadTimeout:      100 * time.Millisecond,
		AckTimeout:       500 * time.Millisecond,
		OperationTimeout: 5 * time.Second,
		BackoffInitial:   time.Millisecond,
		BackoffMax:       5 * time.Millisecond,
	}
}

func newAdapter(t *testing.T, cfg config.Graph) (*storage.Adapter, *graph.Memory, *fakeSession) {
	t.Helper()

	g := graph.NewMemory(cfg)
	t.Cleanup(func() { _ = g.Close() })

	session := &fakeSession{}
	session.authenticated.Store(true)

	return storage.New(g, session, fastConfig()), g, session
}

func TestPutGetRoundTrip(t *testing.T) {
	a, _, _ := newAdapter(t, config.Graph{})
	ctx := t.Context()

	require.NoError(t, a.Put(ctx, "~pub/private/app/wallets/0xabc", map[string]any{
		"address": "0xabc",
		"index":   2,
	}))

	v, found, err := a.Get(ctx, "~pub/private/app/wallets/0xabc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, map[string]any{"address": "0xabc", "index": 2.0}, v)
}

func TestArrayRoundTrip(t *testing.T) {
	a, g, _ := newAdapter(t, config.Graph{})
	ctx := t.Context()

	require.NoError(t, a.Put(ctx, "list", []string{"a", "b", "c"}))

	raw, ok := graphtest.Once(t, g, "list").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, raw["_isArray"])
	assert.InDelta(t, 3.0, raw["length"], 0)

	v, found, err := a.Get(ctx, "list")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []any{"a", "b", "c"}, v)

	var out []string
	found, err = a.GetInto(ctx, "list", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"a", "b", "c"}, out)
}

func TestArrayEncodingDisabled(t *testing.T) {
	_, g, session := newAdapter(t, config.Graph{})
	a := storage.New(g, session, fastConfig(), storage.WithArrayEncoding(false))
	ctx := t.Context()

	require.NoError(t, a.Put(ctx, "plain", []string{"a", "b"}))
	assert.Equal(t, []any{"a", "b"}, graphtest.Once(t, g, "plain"))

	v, found, err := a.Get(ctx, "plain")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []any{"a", "b"}, v)
}

func TestShorterArrayOverwriteVerifies(t *testing.T) {
	a, _, _ := newAdapter(t, config.Graph{})
	ctx := t.Context()

	require.NoError(t, a.Put(ctx, "list", []string{"a", "b", "c"}))
	require.NoError(t, a.Put(ctx, "list", []string{"z"}))

	v, _, err := a.Get(ctx, "list")
	require.NoError(t, err)
	assert.Equal(t, []any{"z"}, v)
}

func TestOverwriteDropsStaleFields(t *testing.T) {
	a, g, _ := newAdapter(t, config.Graph{})
	ctx := t.Context()

	require.NoError(t, a.Put(ctx, "~pub/private/app/wallets/0xabc", map[string]any{
		"index": 0,
		"name":  "savings",
	}))
	require.NoError(t, a.Put(ctx, "~pub/private/app/wallets/0xabc", map[string]any{
		"index": 0,
	}))

	v, found, err := a.Get(ctx, "~pub/private/app/wallets/0xabc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, map[string]any{"index": 0.0}, v)

	raw, ok := graphtest.Once(t, g, "~pub/private/app/wallets/0xabc").(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, raw, "name")
}

func TestOperationsRequireAuthentication(t *testing.T) {
	a, g, session := newAdapter(t, config.Graph{})
	session.authenticated.Store(false)
	ctx := t.Context()

	require.ErrorIs(t, a.Put(ctx, "x", "y"), errs.ErrNotAuthenticated)
	require.ErrorIs(t, a.Delete(ctx, "x"), errs.ErrNotAuthenticated)

	_, _, err := a.Get(ctx, "x")
	require.ErrorIs(t, err, errs.ErrNotAuthenticated)

	_, err = a.Subscribe(ctx, "x")
	require.ErrorIs(t, err, errs.ErrNotAuthenticated)

	assert.Equal(t, 0, g.Len())
}

func TestConcurrentOverwriteFailsVerification(t *testing.T) {
	a, g, session := newAdapter(t, config.Graph{})
	g.SetWriteHook(func(path string, value any) any {
		if path == "contested" {
			return map[string]any{"owner": "someone else"}
		}
		return value
	})

	err := a.Put(t.Context(), "contested", map[string]any{"owner": "me"})
	require.ErrorIs(t, err, errs.ErrVerificationFailed)
	assert.Equal(t, errs.KindVerificationFailed, errs.KindOf(err))
	assert.Equal(t, int32(2), session.reauths.Load())
}

func TestDeleteVerifiesTombstone(t *testing.T) {
	a, _, _ := newAdapter(t, config.Graph{})
	ctx := t.Context()

	require.NoError(t, a.Put(ctx, "doomed", map[string]any{"v": 1}))
	require.NoError(t, a.Delete(ctx, "doomed"))

	_, found, err := a.Get(ctx, "doomed")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEmptyObjectCountsAsAbsent(t *testing.T) {
	a, _, _ := newAdapter(t, config.Graph{})
	ctx := t.Context()

	require.NoError(t, a.Put(ctx, "empty", map[string]any{}))

	_, found, err := a.Get(ctx, "empty")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetMissing(t *testing.T) {
	a, _, _ := newAdapter(t, config.Graph{})

	v, found, err := a.Get(t.Context(), "nothing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, v)
}

func TestGetTimesOutWhenReadsAreLost(t *testing.T) {
	a, _, _ := newAdapter(t, config.Graph{DropReads: 1})

	_, _, err := a.Get(t.Context(), "anything")
	require.ErrorIs(t, err, errs.ErrStorageTimeout)
}

func TestPutSurvivesWriteLag(t *testing.T) {
	a, _, _ := newAdapter(t, config.Graph{WriteLag: 20 * time.Millisecond})

	require.NoError(t, a.Put(t.Context(), "slow", "value"))
}

func TestOperationTimeout(t *testing.T) {
	g := graph.NewMemory(config.Graph{WriteLag: time.Second})
	t.Cleanup(func() { _ = g.Close() })
	session := &fakeSession{}
	session.authenticated.Store(true)

	cfg := fastConfig()
	cfg.OperationTimeout = 50 * time.Millisecond
	a := storage.New(g, session, cfg)

	err := a.Put(t.Context(), "slow", "value")
	require.Error(t, err)
	assert.True(t, errs.Retryable(err))
}

func TestWithPrefix(t *testing.T) {
	a, g, _ := newAdapter(t, config.Graph{})
	scoped := a.With(storage.WithPrefix("~pub/private/app"), storage.WithArrayEncoding(false))

	require.NoError(t, scoped.Put(t.Context(), "stealth", map[string]any{"epub": "E"}))
	assert.Equal(t, "~pub/private/app/stealth", scoped.Path("stealth"))

	raw, ok := graphtest.Once(t, g, "~pub/private/app/stealth").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "E", raw["epub"])
}

func TestInvalidPath(t *testing.T) {
	a, _, _ := newAdapter(t, config.Graph{})
	require.ErrorIs(t, a.Put(t.Context(), "a//b", "x"), errs.ErrInvalidPath)
}

func TestSubscribe(t *testing.T) {
	a, _, _ := newAdapter(t, config.Graph{})
	ctx, cancel := context.WithCancel(t.Context())

	ch, err := a.Subscribe(ctx, "feed")
	require.NoError(t, err)

	require.NoError(t, a.Put(t.Context(), "feed", map[string]any{"n": 1}))

	select {
	case v := <-ch:
		assert.Equal(t, map[string]any{"n": 1.0}, v)
	case <-time.After(5 * time.Second):
		t.Fatal("no update delivered")
	}

	cancel()
	require.Eventually(t, func() bool {
		for {
			select {
			case _, open := <-ch:
				if !open {
					return true
				}
			default:
				return false
			}
		}
	}, 5*time.Second, 10*time.Millisecond)
}
