// Package auth holds the explicit session every keyring component is handed.
package auth

import (
	"context"
	"sync"
	"time"

	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/util"
)

// Verifier checks a keypair's internal consistency. sea.Provider satisfies it.
type Verifier interface {
	Verify(ctx context.Context, pair *sea.KeyPair) error
}

// Session is one authenticated identity. It is safe for concurrent use.
type Session struct {
	mu            sync.RWMutex
	pair          *sea.KeyPair
	verifier      Verifier
	authenticated bool
	since         time.Time
}

// NewSession creates a logged out session for pair. A session without a pair
// never logs in.
func NewSession(pair *sea.KeyPair, verifier Verifier) *Session {
	s := &Session{verifier: verifier}
	if pair != nil {
		p := *pair
		s.pair = &p
	}
	return s
}

// Login verifies the keypair and marks the session authenticated.
func (s *Session) Login(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pair == nil || !s.pair.Complete() {
		return errs.Wrapf(errs.ErrNotAuthenticated, sea.ErrIncompletePair, "login requires a complete keypair")
	}
	if s.verifier == nil {
		return errs.Wrapf(errs.ErrNotAuthenticated, nil, "login requires a verifier")
	}
	if err := s.verifier.Verify(ctx, s.pair); err != nil {
		return errs.Wrap(errs.ErrNotAuthenticated, err)
	}

	s.authenticated = true
	s.since = time.Now()
	util.LogFromContext(ctx).Debug().Str("pub", s.pair.Pub).Msg("Session authenticated")
	return nil
}

// Logout ends the session and forgets the private keys.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authenticated = false
	if s.pair != nil {
		s.pair = &sea.KeyPair{Pub: s.pair.Pub, Epub: s.pair.Epub}
	}
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Reauthenticate re-verifies the keypair of a live session. It fails for a
// session that was logged out.
func (s *Session) Reauthenticate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authenticated {
		return errs.ErrNotAuthenticated
	}
	if err := s.verifier.Verify(ctx, s.pair); err != nil {
		s.authenticated = false
		return errs.Wrap(errs.ErrNotAuthenticated, err)
	}

	s.since = time.Now()
	return nil
}

// Pair returns a copy of the identity keypair.
func (s *Session) Pair() (*sea.KeyPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.authenticated {
		return nil, errs.ErrNotAuthenticated
	}
	p := *s.pair
	return &p, nil
}

// Pub is the identity's public signing key. It stays readable after logout.
func (s *Session) Pub() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.pair == nil {
		return ""
	}
	return s.pair.Pub
}

// Since is the time of the last successful (re)authentication.
func (s *Session) Since() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.since
}
