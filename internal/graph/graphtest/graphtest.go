// Package graphtest holds the conformance suite every graph backend must pass.
package graphtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-keyring/internal/graph"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

// NewGraph constructs a fresh, empty store for a test. The store MUST be
// isolated from other tests and is closed by the suite.
type NewGraph func(t *testing.T) graph.Graph

// Run executes the conformance suite against newGraph.
func Run(t *testing.T, newGraph NewGraph) {
	t.Helper()

	t.Run("PutOnceScalar", func(t *testing.T) {
		g := open(t, newGraph)
		Put(t, g, "a/b", "hello")

		Await(t, g, "a/b", func(v any) bool { return v == "hello" })
	})

	t.Run("PutOnceMapCarriesMeta", func(t *testing.T) {
		g := open(t, newGraph)
		Put(t, g, "node", map[string]any{"x": 1, "y": "two"})

		v := Await(t, g, "node", func(v any) bool { return v != nil })
		m, ok := v.(map[string]any)
		require.True(t, ok)
		assert.InDelta(t, 1.0, m["x"], 0)
		assert.Equal(t, "two", m["y"])

		meta, ok := m[graph.MetaKey].(map[string]any)
		require.True(t, ok)
		assert.NotEmpty(t, meta[graph.SoulKey])
		assert.Contains(t, meta[graph.StateKey], "x")
	})

	t.Run("MapWritesMerge", func(t *testing.T) {
		g := open(t, newGraph)
		Put(t, g, "node", map[string]any{"x": 1.0, "y": 2.0})
		Await(t, g, "node", hasKey("y"))

		Put(t, g, "node", map[string]any{"y": nil, "z": 3.0})
		v := Await(t, g, "node", hasKey("z"))

		m := v.(map[string]any) //nolint:forcetypeassert
		assert.InDelta(t, 1.0, m["x"], 0)
		assert.NotContains(t, m, "y")
	})

	t.Run("NilTombstones", func(t *testing.T) {
		g := open(t, newGraph)
		Put(t, g, "gone", map[string]any{"x": 1.0})
		Await(t, g, "gone", hasKey("x"))

		Put(t, g, "gone", nil)
		Await(t, g, "gone", func(v any) bool { return v == nil })
	})

	t.Run("ChildrenMergeIntoParent", func(t *testing.T) {
		g := open(t, newGraph)
		Put(t, g, "list/a", map[string]any{"n": 1.0})
		Put(t, g, "list/b", map[string]any{"n": 2.0})
		Put(t, g, "list/b/deep", "ignored")

		v := Await(t, g, "list", func(v any) bool { return hasKey("a")(v) && hasKey("b")(v) })
		m := v.(map[string]any) //nolint:forcetypeassert
		assert.NotContains(t, m, "deep")

		b, ok := m["b"].(map[string]any)
		require.True(t, ok)
		assert.InDelta(t, 2.0, b["n"], 0)

		Put(t, g, "list/a", nil)
		Await(t, g, "list", func(v any) bool { return !hasKey("a")(v) && hasKey("b")(v) })
	})

	t.Run("MissingIsNil", func(t *testing.T) {
		g := open(t, newGraph)
		assert.Nil(t, Once(t, g, "nothing/here"))
	})

	t.Run("InvalidPathIsRejected", func(t *testing.T) {
		g := open(t, newGraph)
		done := make(chan error, 1)
		g.Put("a//b", "x", func(err error) { done <- err })

		select {
		case err := <-done:
			require.ErrorIs(t, err, graph.ErrInvalidPath)
		case <-time.After(waitFor):
			t.Fatal("no ack")
		}
	})

	t.Run("OnDeliversChanges", func(t *testing.T) {
		g := open(t, newGraph)
		seen := make(chan any, 16)
		off := g.On("watched", func(v any) { seen <- v })
		defer off()

		Put(t, g, "watched", map[string]any{"v": 1.0})
		Put(t, g, "watched", map[string]any{"v": 2.0})

		deadline := time.After(waitFor)
		for {
			select {
			case v := <-seen:
				if m, ok := v.(map[string]any); ok && m["v"] == 2.0 {
					return
				}
			case <-deadline:
				t.Fatal("subscriber never saw the second write")
			}
		}
	})
}

func open(t *testing.T, newGraph NewGraph) graph.Graph {
	t.Helper()
	g := newGraph(t)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

// Put writes value and waits for the acknowledgement.
func Put(t *testing.T, g graph.Graph, path string, value any) {
	t.Helper()

	done := make(chan error, 1)
	g.Put(path, value, func(err error) { done <- err })

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatalf("put %s was never acknowledged", path)
	}
}

// Once reads path, failing the test if nothing arrives in time.
func Once(t *testing.T, g graph.Graph, path string) any {
	t.Helper()

	done := make(chan any, 1)
	g.Once(path, func(v any) { done <- v })

	select {
	case v := <-done:
		return v
	case <-time.After(waitFor):
		t.Fatalf("read %s never completed", path)
		return nil
	}
}

// Await polls path until match accepts the value and returns it.
func Await(t *testing.T, g graph.Graph, path string, match func(any) bool) any {
	t.Helper()

	var last any
	require.Eventually(t, func() bool {
		done := make(chan any, 1)
		g.Once(path, func(v any) { done <- v })
		select {
		case last = <-done:
			return match(last)
		case <-time.After(time.Second):
			return false
		}
	}, waitFor, tick)
	return last
}

func hasKey(key string) func(any) bool {
	return func(v any) bool {
		m, ok := v.(map[string]any)
		if !ok {
			return false
		}
		_, ok = m[key]
		return ok
	}
}
