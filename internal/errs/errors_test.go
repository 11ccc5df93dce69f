package errs_test

import (
	stderrors "errors"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github/chapool/go-keyring/internal/errs"
)

func TestWrappedSentinelMatches(t *testing.T) {
	cause := stderrors.New("boom")
	err := errors.Wrap(errs.Wrap(errs.ErrKdfFailure, cause), "failed to derive wallet")

	assert.ErrorIs(t, err, errs.ErrKdfFailure)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, errs.ErrInvalidDerivedKey)
	assert.Equal(t, errs.KindDerivation, errs.KindOf(err))
	assert.True(t, errs.IsKind(err, errs.KindDerivation))
}

func TestUnknownKeepsTypedErrors(t *testing.T) {
	typed := errs.Wrap(errs.ErrStorageTimeout, nil)
	assert.Equal(t, typed, errs.Unknown(typed))

	wrapped := errs.Unknown(stderrors.New("driver exploded"))
	assert.Equal(t, errs.KindUnknown, errs.KindOf(wrapped))
	assert.Nil(t, errs.Unknown(nil))
}

func TestRetryable(t *testing.T) {
	assert.True(t, errs.Retryable(errs.ErrStorageTimeout))
	assert.True(t, errs.Retryable(errors.Wrap(errs.ErrVerificationFailed, "put")))
	assert.False(t, errs.Retryable(errs.ErrAddressMismatch))
	assert.False(t, errs.Retryable(stderrors.New("plain")))
}

func TestErrorMessage(t *testing.T) {
	err := errs.Wrapf(errs.ErrInvalidAddress, nil, "invalid ethereum address: %s", "0xnope")
	assert.Equal(t, "invalid ethereum address: 0xnope", err.Error())
	assert.ErrorIs(t, err, errs.ErrInvalidAddress)
}
