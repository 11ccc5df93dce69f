// Package graph provides the fire-and-forget primitives of the external
// graph store the keyring persists into.
//
// A path addresses a node. Reading a node yields its own value merged with
// the values of its direct children, the way a graph node exposes its edges.
// Writing a map merges into the existing node and a nil field removes that
// field. Writing nil tombstones the node. Map values carry store bookkeeping
// under the MetaKey field.
//
// None of the primitives block or report read-your-writes consistency. That
// discipline lives in package storage.
package graph

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github/chapool/go-keyring/internal/config"
)

const (
	// MetaKey holds the node's soul and field states.
	MetaKey = "_"
	// SoulKey is the node id inside MetaKey.
	SoulKey = "#"
	// StateKey maps field names to their last write time (unix ms) inside MetaKey.
	StateKey = ">"

	separator = "/"
)

var (
	ErrClosed         = errors.New("graph: store is closed")
	ErrInvalidPath    = errors.New("graph: invalid path")
	ErrUnknownBackend = errors.New("graph: unknown backend")
)

// Graph is the store primitive set. Callbacks run on store goroutines and may
// never fire (lost messages); callers impose their own timeouts.
type Graph interface {
	// Put issues a write and reports the store's acknowledgement to ack.
	// An ack only means the write was accepted, not that it is visible.
	Put(path string, value any, ack func(error))

	// Once delivers the current value of path to cb at most once.
	// A missing node is delivered as nil.
	Once(path string, cb func(any))

	// On delivers the value of path to cb now and after every change.
	On(path string, cb func(any)) (off func())

	// Close stops the store. Pending callbacks are dropped.
	Close() error
}

// Join builds a path from segments, ignoring empty ones.
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, separator)
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, separator)
}

// Clean validates path and strips surrounding separators.
func Clean(path string) (string, error) {
	p := strings.Trim(strings.TrimSpace(path), separator)
	if p == "" || strings.Contains(p, separator+separator) {
		return "", errors.Wrapf(ErrInvalidPath, "%q", path)
	}
	return p, nil
}

// Parent returns the parent path and the last segment of path.
func Parent(path string) (string, string) {
	i := strings.LastIndex(path, separator)
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// Open returns the backend selected by cfg.Backend.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func Open(ctx context.Context, cfg config.Graph) (Graph, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(cfg), nil
	case DialectPostgres, DialectSQLite:
		return OpenSQL(ctx, cfg)
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", cfg.Backend)
	}
}

// Normalize converts value into the JSON shape stored by every backend.
func Normalize(value any) (any, error) {
	switch value.(type) {
	case nil, bool, float64, string:
		return value, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal value")
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal value")
	}
	return out, nil
}

// record is a node as held by a backend: its own value plus field states.
type record struct {
	soul   string
	value  any
	states map[string]float64
}

// apply writes value into r the way the store merges writes.
func (r *record) apply(value any, now float64) {
	incoming, isMap := value.(map[string]any)
	current, wasMap := r.value.(map[string]any)

	if !isMap {
		r.value = value
		r.states = nil
		return
	}

	if !wasMap {
		current = make(map[string]any, len(incoming))
		r.states = make(map[string]float64, len(incoming))
	}
	if r.states == nil {
		r.states = make(map[string]float64, len(incoming))
	}

	for k, v := range incoming {
		if k == MetaKey {
			continue
		}
		if v == nil {
			delete(current, k)
		} else {
			current[k] = clone(v)
		}
		r.states[k] = now
	}
	r.value = current
}

// view renders the node's value merged with its children.
func view(r *record, children map[string]*record) any {
	if r != nil && r.value != nil {
		if _, ok := r.value.(map[string]any); !ok {
			return clone(r.value)
		}
	}

	out := map[string]any{}
	states := map[string]any{}
	soul := ""

	if r != nil {
		soul = r.soul
		if m, ok := r.value.(map[string]any); ok {
			for k, v := range m {
				out[k] = clone(v)
				states[k] = r.states[k]
			}
		}
	}

	for name, child := range children {
		if child.value == nil {
			continue
		}
		if _, exists := out[name]; exists {
			continue
		}
		out[name] = clone(child.value)
		states[name] = latest(child.states)
	}

	if len(out) == 0 {
		if r != nil && r.value != nil {
			return map[string]any{MetaKey: map[string]any{SoulKey: soul, StateKey: states}}
		}
		return nil
	}

	out[MetaKey] = map[string]any{SoulKey: soul, StateKey: states}
	return out
}

func latest(states map[string]float64) float64 {
	var m float64
	for _, s := range states {
		m = max(m, s)
	}
	return m
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = clone(val)
		}
		return out
	default:
		return v
	}
}
