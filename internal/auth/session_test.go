package auth_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-keyring/internal/auth"
	"github/chapool/go-keyring/internal/config"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/util"
)

func TestSessionLifecycle(t *testing.T) {
	provider := sea.NewProvider(config.Sea{WorkIterations: 1})
	pair, err := provider.Pair(t.Context())
	require.NoError(t, err)

	s := auth.NewSession(pair, provider)
	assert.False(t, s.IsAuthenticated())
	_, err = s.Pair()
	require.ErrorIs(t, err, errs.ErrNotAuthenticated)
	require.ErrorIs(t, s.Reauthenticate(t.Context()), errs.ErrNotAuthenticated)

	require.NoError(t, s.Login(t.Context()))
	assert.True(t, s.IsAuthenticated())
	assert.False(t, s.Since().IsZero())
	require.NoError(t, s.Reauthenticate(t.Context()))

	got, err := s.Pair()
	require.NoError(t, err)
	assert.Equal(t, pair, got)

	got.Priv = "tampered"
	again, err := s.Pair()
	require.NoError(t, err)
	assert.Equal(t, pair.Priv, again.Priv)

	s.Logout()
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, pair.Pub, s.Pub())
	require.ErrorIs(t, s.Reauthenticate(t.Context()), errs.ErrNotAuthenticated)
	require.Error(t, s.Login(t.Context()))
}

func TestLoginRejectsMismatchedPair(t *testing.T) {
	provider := sea.NewProvider(config.Sea{WorkIterations: 1})
	a, err := provider.Pair(t.Context())
	require.NoError(t, err)
	b, err := provider.Pair(t.Context())
	require.NoError(t, err)

	mixed := *a
	mixed.Pub = b.Pub

	err = auth.NewSession(&mixed, provider).Login(t.Context())
	require.ErrorIs(t, err, errs.ErrNotAuthenticated)
	require.ErrorIs(t, err, sea.ErrPairMismatch)
}

func TestSessionWithoutPair(t *testing.T) {
	provider := sea.NewProvider(config.Sea{WorkIterations: 1})
	s := auth.NewSession(nil, provider)

	assert.Empty(t, s.Pub())
	require.ErrorIs(t, s.Login(t.Context()), errs.ErrNotAuthenticated)
	assert.False(t, s.IsAuthenticated())

	_, err := s.Pair()
	require.ErrorIs(t, err, errs.ErrNotAuthenticated)
}

func TestLoginWithoutVerifier(t *testing.T) {
	provider := sea.NewProvider(config.Sea{WorkIterations: 1})
	pair, err := provider.Pair(t.Context())
	require.NoError(t, err)

	require.ErrorIs(t, auth.NewSession(pair, nil).Login(t.Context()), errs.ErrNotAuthenticated)
}

func TestLoginLogsToContextLogger(t *testing.T) {
	provider := sea.NewProvider(config.Sea{WorkIterations: 1})
	pair, err := provider.Pair(t.Context())
	require.NoError(t, err)

	var buf bytes.Buffer
	ctx := util.WithLogger(t.Context(), zerolog.New(&buf).Level(zerolog.DebugLevel))

	require.NoError(t, auth.NewSession(pair, provider).Login(ctx))
	assert.Contains(t, buf.String(), "Session authenticated")
	assert.Contains(t, buf.String(), pair.Pub)
}
