package util_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github/chapool/go-keyring/internal/util"
)

func TestLogFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).With().Str("component", "test").Logger()

	ctx := util.WithLogger(context.Background(), logger)
	util.LogFromContext(ctx).Info().Msg("hello")

	assert.Contains(t, buf.String(), `"component":"test"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestLogFromContextFallsBackToGlobal(t *testing.T) {
	l := util.LogFromContext(context.Background())
	assert.NotEqual(t, zerolog.Disabled, l.GetLevel())
}

func TestDisableLogger(t *testing.T) {
	ctx := util.DisableLogger(context.Background(), true)
	assert.True(t, util.ShouldDisableLogger(ctx))
	assert.Equal(t, zerolog.Disabled, util.LogFromContext(ctx).GetLevel())

	assert.False(t, util.ShouldDisableLogger(context.Background()))
}
