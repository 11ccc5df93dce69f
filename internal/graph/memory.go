package graph

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github/chapool/go-keyring/internal/config"
)

// WriteHook may replace the value a write applies with. It runs on the store
// goroutine right before the value becomes visible.
type WriteHook func(path string, value any) any

// Memory is an in-process store that behaves like a lossy, eventually
// consistent peer: writes become visible after a lag, and writes or reads
// can be dropped at random while still being acknowledged.
type Memory struct {
	mu      sync.RWMutex
	nodes   map[string]*record
	subs    map[string]map[uint64]func(any)
	nextSub uint64
	closed  bool
	hook    WriteHook

	lag        time.Duration
	dropWrites float64
	dropReads  float64

	rndMu sync.Mutex
	rnd   *rand.Rand

	wg sync.WaitGroup
}

var _ Graph = (*Memory)(nil)

func NewMemory(cfg config.Graph) *Memory {
	return &Memory{
		nodes:      map[string]*record{},
		subs:       map[string]map[uint64]func(any){},
		lag:        cfg.WriteLag,
		dropWrites: cfg.DropWrites,
		dropReads:  cfg.DropReads,
		//nolint:gosec // simulation only
		rnd: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6b6579)),
	}
}

// SetWriteHook installs hook for all following writes. Pass nil to remove it.
func (m *Memory) SetWriteHook(hook WriteHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = hook
}

// SetDropRates changes the write and read loss probabilities.
func (m *Memory) SetDropRates(writes, reads float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropWrites = writes
	m.dropReads = reads
}

func (m *Memory) Put(path string, value any, ack func(error)) {
	p, err := Clean(path)
	if err == nil {
		value, err = Normalize(value)
	}
	if err != nil {
		m.async(func() { ack(err) })
		return
	}

	m.mu.RLock()
	closed, lag, drop := m.closed, m.lag, m.dropWrites
	m.mu.RUnlock()
	if closed {
		m.async(func() { ack(ErrClosed) })
		return
	}

	m.async(func() {
		// the peer accepted the write whether or not it ever lands
		ack(nil)

		if m.chance(drop) {
			return
		}
		if lag > 0 {
			time.Sleep(lag)
		}
		m.apply(p, value)
	})
}

func (m *Memory) Once(path string, cb func(any)) {
	p, err := Clean(path)
	if err != nil {
		m.async(func() { cb(nil) })
		return
	}

	m.mu.RLock()
	closed, drop := m.closed, m.dropReads
	m.mu.RUnlock()
	if closed || m.chance(drop) {
		return
	}

	m.async(func() { cb(m.read(p)) })
}

func (m *Memory) On(path string, cb func(any)) func() {
	p, err := Clean(path)
	if err != nil {
		return func() {}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return func() {}
	}
	m.nextSub++
	id := m.nextSub
	if m.subs[p] == nil {
		m.subs[p] = map[uint64]func(any){}
	}
	m.subs[p][id] = cb
	m.mu.Unlock()

	if current := m.read(p); current != nil {
		m.async(func() { cb(current) })
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs[p], id)
			if len(m.subs[p]) == 0 {
				delete(m.subs, p)
			}
		})
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.subs = map[string]map[uint64]func(any){}
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}

// Len returns the number of nodes ever written, tombstones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

func (m *Memory) apply(path string, value any) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.hook != nil {
		hook := m.hook
		m.mu.Unlock()
		replaced, err := Normalize(hook(path, value))
		if err == nil {
			value = replaced
		}
		m.mu.Lock()
	}

	r, ok := m.nodes[path]
	if !ok {
		r = &record{soul: uuid.NewString()}
		m.nodes[path] = r
	}
	r.apply(value, float64(time.Now().UnixMilli()))

	parent, _ := Parent(path)
	listeners := make([]func(), 0)
	for _, target := range []string{path, parent} {
		if target == "" {
			continue
		}
		for _, cb := range m.subs[target] {
			listeners = append(listeners, func() { cb(m.read(target)) })
		}
	}
	m.mu.Unlock()

	for _, l := range listeners {
		m.async(l)
	}
}

func (m *Memory) read(path string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readLocked(path)
}

func (m *Memory) readLocked(path string) any {
	children := map[string]*record{}
	prefix := path + separator
	for p, r := range m.nodes {
		if len(p) <= len(prefix) || p[:len(prefix)] != prefix {
			continue
		}
		parent, name := Parent(p)
		if parent == path {
			children[name] = r
		}
	}
	return view(m.nodes[path], children)
}

func (m *Memory) async(fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
}

func (m *Memory) chance(p float64) bool {
	if p <= 0 {
		return false
	}
	m.rndMu.Lock()
	defer m.rndMu.Unlock()
	return m.rnd.Float64() < p
}
