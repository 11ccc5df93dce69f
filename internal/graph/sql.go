package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/dlmiddlecote/sqlstats"
	"github.com/google/uuid"
	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github/chapool/go-keyring/internal/config"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	statsDBName         = "graph"
)

// SQL keeps nodes in a graph_nodes table. Writes are applied on a background
// goroutine and acknowledged once committed. Subscriptions poll.
type SQL struct {
	db      *sql.DB
	dialect string
	poll    time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	subs    map[string]map[uint64]*subscription
	nextSub uint64
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Graph = (*SQL)(nil)

type subscription struct {
	mu   sync.Mutex
	cb   func(any)
	last string
}

// OpenSQL connects to cfg.DSN and applies pending migrations.
func OpenSQL(ctx context.Context, cfg config.Graph) (*SQL, error) {
	db, err := sql.Open(cfg.Backend, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if cfg.Backend == DialectSQLite {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConn > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConn)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	n, err := Migrate(db, cfg.Backend)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if n > 0 {
		log.Info().Int("count", n).Str("backend", cfg.Backend).Msg("Applied graph migrations")
	}

	return NewSQL(db, cfg.Backend), nil
}

// NewSQL wraps an already migrated database.
func NewSQL(db *sql.DB, dialect string) *SQL {
	ctx, cancel := context.WithCancel(context.Background())
	return &SQL{
		db:      db,
		dialect: dialect,
		poll:    defaultPollInterval,
		subs:    map[string]map[uint64]*subscription{},
		ctx:     ctx,
		cancel:  cancel,
	}
}

// DB exposes the pool for readiness probes.
func (s *SQL) DB() *sql.DB {
	return s.db
}

// StatsCollector reports connection pool statistics.
func (s *SQL) StatsCollector() prometheus.Collector {
	return sqlstats.NewStatsCollector(statsDBName, s.db)
}

func (s *SQL) Put(path string, value any, ack func(error)) {
	p, err := Clean(path)
	if err == nil {
		value, err = Normalize(value)
	}
	if err != nil {
		s.async(func() { ack(err) })
		return
	}
	if s.isClosed() {
		s.async(func() { ack(ErrClosed) })
		return
	}

	s.async(func() {
		err := s.write(s.ctx, p, value)
		ack(err)
		if err == nil {
			parent, _ := Parent(p)
			s.notify(p)
			if parent != "" {
				s.notify(parent)
			}
		}
	})
}

func (s *SQL) Once(path string, cb func(any)) {
	p, err := Clean(path)
	if err != nil {
		s.async(func() { cb(nil) })
		return
	}
	if s.isClosed() {
		return
	}

	s.async(func() {
		value, err := s.read(s.ctx, p)
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("Failed to read graph node")
			return
		}
		cb(value)
	})
}

func (s *SQL) On(path string, cb func(any)) func() {
	p, err := Clean(path)
	if err != nil {
		return func() {}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	s.nextSub++
	id := s.nextSub
	sub := &subscription{cb: cb}
	if s.subs[p] == nil {
		s.subs[p] = map[uint64]*subscription{}
	}
	s.subs[p][id] = sub
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(s.ctx)
	s.async(func() {
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		for {
			s.deliver(ctx, p, sub)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs[p], id)
			if len(s.subs[p]) == 0 {
				delete(s.subs, p)
			}
		})
	}
}

func (s *SQL) Close() error {
	s.mu.Lock()
	s.closed = true
	s.subs = map[string]map[uint64]*subscription{}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return s.db.Close()
}

func (s *SQL) write(ctx context.Context, path string, value any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT soul, value, states FROM graph_nodes WHERE path = $1`
	if s.dialect == DialectPostgres {
		query += ` FOR UPDATE`
	}

	r, err := scanRecord(tx.QueryRowContext(ctx, query, path))
	if errors.Is(err, sql.ErrNoRows) {
		r = &record{soul: uuid.NewString()}
	} else if err != nil {
		return err
	}

	now := time.Now()
	r.apply(value, float64(now.UnixMilli()))

	rawValue, rawStates, err := encodeRecord(r)
	if err != nil {
		return err
	}

	parent, _ := Parent(path)
	_, err = tx.ExecContext(ctx, `INSERT INTO graph_nodes (path, parent, soul, value, states, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (path) DO UPDATE SET value = excluded.value, states = excluded.states, updated_at = excluded.updated_at`,
		path, parent, r.soul, rawValue, rawStates, now.UTC())
	if err != nil {
		return errors.Wrap(err, "failed to upsert graph node")
	}

	return errors.Wrap(tx.Commit(), "failed to commit graph node")
}

func (s *SQL) read(ctx context.Context, path string) (any, error) {
	node, err := scanRecord(s.db.QueryRowContext(ctx, `SELECT soul, value, states FROM graph_nodes WHERE path = $1`, path))
	if errors.Is(err, sql.ErrNoRows) {
		node = nil
	} else if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path, soul, value, states FROM graph_nodes WHERE parent = $1`, path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query graph children")
	}
	defer rows.Close()

	children := map[string]*record{}
	for rows.Next() {
		var childPath string
		var soul string
		var rawValue sql.NullString
		var rawStates string
		if err := rows.Scan(&childPath, &soul, &rawValue, &rawStates); err != nil {
			return nil, errors.Wrap(err, "failed to scan graph child")
		}
		child, err := decodeRecord(soul, rawValue, rawStates)
		if err != nil {
			return nil, err
		}
		_, name := Parent(childPath)
		children[name] = child
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate graph children")
	}

	return view(node, children), nil
}

func (s *SQL) notify(path string) {
	s.mu.Lock()
	subs := make([]*subscription, 0, len(s.subs[path]))
	for _, sub := range s.subs[path] {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		s.deliver(s.ctx, path, sub)
	}
}

// deliver calls the subscriber if the node changed since its last delivery.
func (s *SQL) deliver(ctx context.Context, path string, sub *subscription) {
	value, err := s.read(ctx, path)
	if err != nil || value == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if string(raw) == sub.last {
		return
	}
	sub.last = string(raw)
	sub.cb(value)
}

func (s *SQL) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *SQL) async(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*record, error) {
	var soul string
	var rawValue sql.NullString
	var rawStates string
	if err := row.Scan(&soul, &rawValue, &rawStates); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan graph node")
	}
	return decodeRecord(soul, rawValue, rawStates)
}

func decodeRecord(soul string, rawValue sql.NullString, rawStates string) (*record, error) {
	r := &record{soul: soul}
	if rawValue.Valid {
		if err := json.Unmarshal([]byte(rawValue.String), &r.value); err != nil {
			return nil, errors.Wrap(err, "failed to decode graph node value")
		}
	}
	if err := json.Unmarshal([]byte(rawStates), &r.states); err != nil {
		return nil, errors.Wrap(err, "failed to decode graph node states")
	}
	return r, nil
}

func encodeRecord(r *record) (sql.NullString, string, error) {
	var value sql.NullString
	if r.value != nil {
		raw, err := json.Marshal(r.value)
		if err != nil {
			return value, "", errors.Wrap(err, "failed to encode graph node value")
		}
		value = sql.NullString{String: string(raw), Valid: true}
	}

	states := r.states
	if states == nil {
		states = map[string]float64{}
	}
	raw, err := json.Marshal(states)
	if err != nil {
		return value, "", errors.Wrap(err, "failed to encode graph node states")
	}
	return value, string(raw), nil
}
