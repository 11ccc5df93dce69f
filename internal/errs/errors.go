// Package errs defines the typed errors returned by the keyring components.
//
// Callers branch on Kind (or match a sentinel with errors.Is) and never on
// the message text. Errors keep their type through github.com/pkg/errors
// wrapping, so errors.As works on anything a facade call returns.
package errs

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	KindNotAuthenticated   Kind = "NotAuthenticated"
	KindValidation         Kind = "ValidationError"
	KindKeysNotFound       Kind = "KeysNotFound"
	KindDerivation         Kind = "DerivationError"
	KindSharedSecret       Kind = "SharedSecretFailure"
	KindAddressMismatch    Kind = "AddressMismatch"
	KindStorageTimeout     Kind = "StorageTimeout"
	KindVerificationFailed Kind = "VerificationFailed"
	KindUnknown            Kind = "Unknown"
)

// Error is the structured error type shared by all packages.
//
// Code names the concrete failure inside a Kind (e.g. invalid_salt inside
// ValidationError). Message is meant for humans.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches sentinels by Kind and Code so that a wrapped copy created with
// Wrap still satisfies errors.Is(err, ErrX).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func newSentinel(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrNotAuthenticated = newSentinel(KindNotAuthenticated, "not_authenticated", "user not authenticated")

	ErrInvalidSalt       = newSentinel(KindValidation, "invalid_salt", "salt must be a non-empty string")
	ErrInvalidIndex      = newSentinel(KindValidation, "invalid_index", "wallet index must be non-negative")
	ErrInvalidAddress    = newSentinel(KindValidation, "invalid_address", "invalid ethereum address")
	ErrInvalidPath       = newSentinel(KindValidation, "invalid_path", "invalid derivation path")
	ErrMissingParameters = newSentinel(KindValidation, "missing_parameters", "missing required parameters")
	ErrSigningDisabled   = newSentinel(KindValidation, "signing_disabled", "signing is disabled")
	ErrInvalidRequest    = newSentinel(KindValidation, "invalid_request", "invalid request")

	ErrKdfFailure        = newSentinel(KindDerivation, "kdf_failure", "key derivation returned no material")
	ErrInvalidDerivedKey = newSentinel(KindDerivation, "invalid_derived_key", "derived private key is invalid")
	ErrAddressFormat     = newSentinel(KindDerivation, "address_format", "derived address is malformed")
	ErrInvalidKeyLength  = newSentinel(KindDerivation, "invalid_key_length", "private key must be exactly 32 bytes")

	ErrKeysNotFound   = newSentinel(KindKeysNotFound, "keys_not_found", "stealth keys not found")
	ErrWalletNotFound = newSentinel(KindKeysNotFound, "wallet_not_found", "wallet not found")

	ErrSharedSecretFailure = newSentinel(KindSharedSecret, "shared_secret_failure", "unable to compute shared secret")
	ErrAddressMismatch     = newSentinel(KindAddressMismatch, "address_mismatch", "derived stealth address does not match")

	ErrStorageTimeout     = newSentinel(KindStorageTimeout, "storage_timeout", "storage operation timed out")
	ErrVerificationFailed = newSentinel(KindVerificationFailed, "verification_failed", "write could not be verified")

	ErrUnknown = newSentinel(KindUnknown, "unknown", "unexpected collaborator failure")
)

// Wrap returns a copy of sentinel carrying cause.
func Wrap(sentinel *Error, cause error) error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, Message: sentinel.Message, Cause: cause}
}

// Wrapf returns a copy of sentinel with a more specific message.
func Wrapf(sentinel *Error, cause error, format string, args ...any) error {
	return &Error{Kind: sentinel.Kind, Code: sentinel.Code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Unknown wraps an untyped collaborator error. Typed errors pass through.
func Unknown(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Wrap(ErrUnknown, err)
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether err is a transient storage failure.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindStorageTimeout, KindVerificationFailed:
		return true
	default:
		return false
	}
}
