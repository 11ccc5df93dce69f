// Package storage turns the fire-and-forget graph primitives into blocking
// operations with read-your-writes semantics for the caller's own writes.
//
// A Put is complete only once an independent read of the same path matches
// what was written. Failed writes or verifications are retried end to end
// with exponential backoff, re-authenticating before every retry.
package storage

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github/chapool/go-keyring/internal/config"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/graph"
	"github/chapool/go-keyring/internal/util"
	"golang.org/x/time/rate"
)

const (
	opPut    = "put"
	opGet    = "get"
	opDelete = "delete"

	subscriptionBuffer = 16
)

var errNoData = errors.New("storage: no data")

// Authenticator is the session every operation is checked against.
type Authenticator interface {
	IsAuthenticated() bool
	Reauthenticate(ctx context.Context) error
}

// Recorder receives operation telemetry.
type Recorder interface {
	ObserveOperation(op string, outcome string, elapsed time.Duration)
	IncRetry(op string)
	IncVerifyMiss()
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}
func (nopRecorder) IncRetry(string)                                {}
func (nopRecorder) IncVerifyMiss()                                 {}

// Adapter is the persistence port shared by all keyring features. Features
// derive their own view with With instead of wrapping it.
type Adapter struct {
	graph    graph.Graph
	auth     Authenticator
	cfg      config.Storage
	prefix   string
	arrays   bool
	limiter  *rate.Limiter
	recorder Recorder
}

type Option func(*Adapter)

// WithPrefix roots every path of the adapter under prefix.
func WithPrefix(prefix string) Option {
	return func(a *Adapter) {
		a.prefix = prefix
	}
}

// WithArrayEncoding toggles the tagged-array envelope for sequences.
func WithArrayEncoding(enabled bool) Option {
	return func(a *Adapter) {
		a.arrays = enabled
	}
}

func WithRecorder(r Recorder) Option {
	return func(a *Adapter) {
		if r != nil {
			a.recorder = r
		}
	}
}

func New(g graph.Graph, auth Authenticator, cfg config.Storage, opts ...Option) *Adapter {
	limit := rate.Inf
	if cfg.ReadsPerSecond > 0 {
		limit = rate.Limit(cfg.ReadsPerSecond)
	}
	burst := max(cfg.ReadBurst, 1)

	a := &Adapter{
		graph:    g,
		auth:     auth,
		cfg:      cfg,
		arrays:   true,
		limiter:  rate.NewLimiter(limit, burst),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// With returns a copy of the adapter with opts applied. The copy shares the
// graph, the session and the read limiter.
func (a *Adapter) With(opts ...Option) *Adapter {
	c := *a
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Path returns the full graph path for a path relative to the adapter prefix.
func (a *Adapter) Path(path string) string {
	return graph.Join(a.prefix, path)
}

// Put writes value to path and blocks until a read-back matches it.
func (a *Adapter) Put(ctx context.Context, path string, value any) error {
	return a.write(ctx, opPut, path, value)
}

// Delete tombstones path and blocks until a read-back is empty.
func (a *Adapter) Delete(ctx context.Context, path string) error {
	return a.write(ctx, opDelete, path, nil)
}

// Get reads path. A value that stays absent or empty across all retries is
// reported with found false and no error.
func (a *Adapter) Get(ctx context.Context, path string) (any, bool, error) {
	if err := a.ensureAuthenticated(); err != nil {
		return nil, false, err
	}
	full, err := a.resolve(path)
	if err != nil {
		return nil, false, err
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.cfg.OperationTimeout)
	defer cancel()
	log := a.logger(ctx, opGet, full)

	var result any
	operation := func() error {
		value, err := a.readOnce(ctx, full)
		if err != nil {
			return err
		}
		decoded := Decode(value)
		if Empty(decoded) {
			return errNoData
		}
		result = decoded
		return nil
	}

	notify := func(err error, next time.Duration) {
		a.recorder.IncRetry(opGet)
		log.Debug().Err(err).Dur("next", next).Msg("Retrying read")
	}

	err = backoff.RetryNotify(operation, a.policy(ctx, a.cfg.GetRetries), notify)
	switch {
	case err == nil:
		a.recorder.ObserveOperation(opGet, "found", time.Since(start))
		return result, true, nil
	case errors.Is(err, errNoData):
		a.recorder.ObserveOperation(opGet, "missing", time.Since(start))
		return nil, false, nil
	default:
		err = a.classify(err)
		a.recorder.ObserveOperation(opGet, outcome(err), time.Since(start))
		log.Warn().Err(err).Msg("Read failed")
		return nil, false, err
	}
}

// GetInto reads path and unmarshals the decoded value into out.
func (a *Adapter) GetInto(ctx context.Context, path string, out any) (bool, error) {
	value, found, err := a.Get(ctx, path)
	if err != nil || !found {
		return found, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return false, errs.Unknown(errors.Wrap(err, "failed to marshal stored value"))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, errs.Unknown(errors.Wrap(err, "failed to unmarshal stored value"))
	}
	return true, nil
}

// OperationTimeout bounds a single Put, Delete or Get.
func (a *Adapter) OperationTimeout() time.Duration {
	return a.cfg.OperationTimeout
}

// Subscribe streams decoded values of path until ctx is done. The channel is
// closed afterwards. Slow consumers miss intermediate values.
func (a *Adapter) Subscribe(ctx context.Context, path string) (<-chan any, error) {
	if err := a.ensureAuthenticated(); err != nil {
		return nil, err
	}
	full, err := a.resolve(path)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		closed bool
		ch     = make(chan any, subscriptionBuffer)
	)

	off := a.graph.On(full, func(value any) {
		decoded := Decode(value)
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- decoded:
		default:
		}
	})

	go func() {
		<-ctx.Done()
		off()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch, nil
}

func (a *Adapter) write(ctx context.Context, op string, path string, value any) error {
	if err := a.ensureAuthenticated(); err != nil {
		return err
	}
	full, err := a.resolve(path)
	if err != nil {
		return err
	}
	encoded, err := Encode(value, a.arrays)
	if err != nil {
		return errs.Unknown(errors.Wrap(err, "failed to encode value"))
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.cfg.OperationTimeout)
	defer cancel()
	log := a.logger(ctx, op, full)

	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			if err := a.auth.Reauthenticate(ctx); err != nil {
				return backoff.Permanent(errs.Wrap(errs.ErrNotAuthenticated, err))
			}
		}

		payload := a.withTombstones(ctx, full, encoded)
		if err := a.submit(ctx, full, payload); err != nil {
			return err
		}
		return a.verify(ctx, log, full, payload)
	}

	notify := func(err error, next time.Duration) {
		a.recorder.IncRetry(op)
		log.Warn().Err(err).Int("attempt", attempt).Dur("next", next).Msg("Retrying write")
	}

	err = backoff.RetryNotify(operation, a.policy(ctx, a.cfg.PutRetries), notify)
	if err != nil {
		err = a.classify(err)
		a.recorder.ObserveOperation(op, outcome(err), time.Since(start))
		log.Error().Err(err).Int("attempts", attempt).Msg("Write failed")
		return err
	}

	a.recorder.ObserveOperation(op, "ok", time.Since(start))
	log.Debug().Int("attempts", attempt).Dur("elapsed", time.Since(start)).Msg("Write verified")
	return nil
}

// withTombstones adds a nil field for every key the stored node has and value
// lacks, so a map write replaces the node instead of merging into it. The
// node is left as is when it cannot be read.
func (a *Adapter) withTombstones(ctx context.Context, path string, value any) any {
	fields, ok := value.(map[string]any)
	if !ok {
		return value
	}

	current, err := a.readOnce(ctx, path)
	if err != nil {
		return value
	}
	stored, ok := current.(map[string]any)
	if !ok {
		return value
	}

	var out map[string]any
	for key, v := range stored {
		if key == graph.MetaKey || v == nil {
			continue
		}
		if _, keep := fields[key]; keep {
			continue
		}
		if out == nil {
			out = maps.Clone(fields)
		}
		out[key] = nil
	}
	if out == nil {
		return value
	}
	return out
}

// submit issues the write and waits for its acknowledgement.
func (a *Adapter) submit(ctx context.Context, path string, value any) error {
	ack := make(chan error, 1)
	a.graph.Put(path, value, func(err error) {
		select {
		case ack <- err:
		default:
		}
	})

	timer := time.NewTimer(a.cfg.AckTimeout)
	defer timer.Stop()

	select {
	case err := <-ack:
		switch {
		case err == nil:
			return nil
		case errors.Is(err, graph.ErrInvalidPath):
			return backoff.Permanent(errs.Wrap(errs.ErrInvalidPath, err))
		case errors.Is(err, graph.ErrClosed):
			return backoff.Permanent(errs.Unknown(err))
		default:
			return errs.Unknown(errors.Wrap(err, "write rejected"))
		}
	case <-timer.C:
		return errs.Wrapf(errs.ErrStorageTimeout, nil, "write to %s was not acknowledged", path)
	case <-ctx.Done():
		return errs.Wrap(errs.ErrStorageTimeout, ctx.Err())
	}
}

// verify polls path until it matches want or the attempts run out.
func (a *Adapter) verify(ctx context.Context, log zerolog.Logger, path string, want any) error {
	attempts := max(a.cfg.VerifyAttempts, 1)

	for i := range attempts {
		if i > 0 {
			select {
			case <-time.After(a.cfg.VerifyInterval):
			case <-ctx.Done():
				return errs.Wrap(errs.ErrStorageTimeout, ctx.Err())
			}
		}

		got, err := a.readOnce(ctx, path)
		if err == nil && Equal(got, want) {
			return nil
		}
		if errs.IsKind(err, errs.KindStorageTimeout) && ctx.Err() != nil {
			return err
		}

		a.recorder.IncVerifyMiss()
		log.Debug().Int("check", i+1).Bool("answered", err == nil).Msg("Read-back does not match yet")
	}

	return errs.Wrapf(errs.ErrVerificationFailed, nil, "write to %s not visible after %d reads", path, attempts)
}

// readOnce issues a single paced read and waits up to the read timeout.
func (a *Adapter) readOnce(ctx context.Context, path string) (any, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, errs.Wrap(errs.ErrStorageTimeout, err)
	}

	result := make(chan any, 1)
	a.graph.Once(path, func(value any) {
		select {
		case result <- value:
		default:
		}
	})

	timer := time.NewTimer(a.cfg.ReadTimeout)
	defer timer.Stop()

	select {
	case value := <-result:
		return value, nil
	case <-timer.C:
		return nil, errs.Wrapf(errs.ErrStorageTimeout, nil, "read of %s timed out", path)
	case <-ctx.Done():
		return nil, errs.Wrap(errs.ErrStorageTimeout, ctx.Err())
	}
}

// policy allows attempts tries in total, bounded by ctx.
func (a *Adapter) policy(ctx context.Context, attempts int) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	if a.cfg.BackoffInitial > 0 {
		b.InitialInterval = a.cfg.BackoffInitial
	}
	if a.cfg.BackoffMax > 0 {
		b.MaxInterval = a.cfg.BackoffMax
	}
	b.MaxElapsedTime = 0
	b.Reset()

	retries := uint64(max(attempts, 1) - 1) //nolint:gosec // attempts is clamped above
	return backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)
}

func (a *Adapter) ensureAuthenticated() error {
	if a.auth == nil || !a.auth.IsAuthenticated() {
		return errs.ErrNotAuthenticated
	}
	return nil
}

func (a *Adapter) resolve(path string) (string, error) {
	full, err := graph.Clean(a.Path(path))
	if err != nil {
		return "", errs.Wrap(errs.ErrInvalidPath, err)
	}
	return full, nil
}

// classify maps bare context errors to StorageTimeout and anything untyped to Unknown.
func (a *Adapter) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		if errs.KindOf(err) == "" {
			return errs.Wrap(errs.ErrStorageTimeout, err)
		}
	}
	return errs.Unknown(err)
}

func (a *Adapter) logger(ctx context.Context, op string, path string) zerolog.Logger {
	return util.LogFromContext(ctx).With().Str("component", "storage").Str("op", op).Str("path", path).Logger()
}

func outcome(err error) string {
	if kind := errs.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
