package graph_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-keyring/internal/config"
	"github/chapool/go-keyring/internal/graph"
	"github/chapool/go-keyring/internal/graph/graphtest"
)

func TestMemoryConformance(t *testing.T) {
	graphtest.Run(t, func(_ *testing.T) graph.Graph {
		return graph.NewMemory(config.Graph{})
	})
}

func TestMemoryDroppedWritesAreStillAcknowledged(t *testing.T) {
	m := graph.NewMemory(config.Graph{DropWrites: 1})
	t.Cleanup(func() { _ = m.Close() })

	graphtest.Put(t, m, "lost", "value")
	time.Sleep(20 * time.Millisecond)

	assert.Nil(t, graphtest.Once(t, m, "lost"))
	assert.Equal(t, 0, m.Len())
}

func TestMemoryDroppedReadsNeverAnswer(t *testing.T) {
	m := graph.NewMemory(config.Graph{})
	t.Cleanup(func() { _ = m.Close() })
	graphtest.Put(t, m, "here", "value")
	graphtest.Await(t, m, "here", func(v any) bool { return v == "value" })

	m.SetDropRates(0, 1)
	answered := make(chan any, 1)
	m.Once("here", func(v any) { answered <- v })

	select {
	case <-answered:
		t.Fatal("dropped read was answered")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryWriteLag(t *testing.T) {
	m := graph.NewMemory(config.Graph{WriteLag: 100 * time.Millisecond})
	t.Cleanup(func() { _ = m.Close() })

	graphtest.Put(t, m, "slow", "value")
	assert.Nil(t, graphtest.Once(t, m, "slow"))
	graphtest.Await(t, m, "slow", func(v any) bool { return v == "value" })
}

func TestMemoryWriteHookReplacesValue(t *testing.T) {
	m := graph.NewMemory(config.Graph{})
	t.Cleanup(func() { _ = m.Close() })

	m.SetWriteHook(func(path string, value any) any {
		if path == "contested" {
			return "someone else"
		}
		return value
	})

	graphtest.Put(t, m, "contested", "mine")
	graphtest.Put(t, m, "free", "mine")

	graphtest.Await(t, m, "free", func(v any) bool { return v == "mine" })
	assert.Equal(t, "someone else", graphtest.Once(t, m, "contested"))
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, "~pub/private/keyring/wallets", graph.Join("~pub", "private", "", "/keyring/", "wallets"))

	parent, name := graph.Parent("a/b/c")
	assert.Equal(t, "a/b", parent)
	assert.Equal(t, "c", name)

	parent, name = graph.Parent("root")
	assert.Empty(t, parent)
	assert.Equal(t, "root", name)

	p, err := graph.Clean(" /a/b/ ")
	require.NoError(t, err)
	assert.Equal(t, "a/b", p)

	_, err = graph.Clean("")
	require.ErrorIs(t, err, graph.ErrInvalidPath)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := graph.Open(t.Context(), config.Graph{Backend: "cassandra"})
	require.ErrorIs(t, err, graph.ErrUnknownBackend)
}
