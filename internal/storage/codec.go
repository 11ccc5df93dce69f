package storage

import (
	"math"
	"strconv"

	"github/chapool/go-keyring/internal/graph"
)

const (
	arrayTag    = "_isArray"
	arrayLength = "length"
)

// Encode converts value into the shape written to the graph. Numbers become
// float64 and structs become maps. With arrays set, every ordered sequence is
// replaced by a tagged map {_isArray: true, length: N, "0": v0, ...} because
// the graph has no ordered container.
func Encode(value any, arrays bool) (any, error) {
	normalized, err := graph.Normalize(value)
	if err != nil {
		return nil, err
	}
	if !arrays {
		return normalized, nil
	}
	return tagArrays(normalized), nil
}

func tagArrays(value any) any {
	switch v := value.(type) {
	case []any:
		out := make(map[string]any, len(v)+2)
		out[arrayTag] = true
		out[arrayLength] = float64(len(v))
		for i, item := range v {
			out[strconv.Itoa(i)] = tagArrays(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = tagArrays(item)
		}
		return out
	default:
		return value
	}
}

// Decode strips graph metadata and rebuilds tagged arrays. Indices missing
// from a tagged array decode as nil. A tag whose length is not a whole number
// between zero and the size of the map decodes as a plain map.
func Decode(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if n, ok := tagLength(v); ok {
			out := make([]any, n)
			for i := range n {
				out[i] = Decode(v[strconv.Itoa(i)])
			}
			return out
		}

		out := make(map[string]any, len(v))
		for k, item := range v {
			if k == graph.MetaKey || item == nil {
				continue
			}
			out[k] = Decode(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Decode(item)
		}
		return out
	default:
		return value
	}
}

// tagLength returns the length of a tagged array. The length is bounded by
// the number of entries so a foreign record cannot force a huge allocation.
func tagLength(m map[string]any) (int, bool) {
	if tag, ok := m[arrayTag].(bool); !ok || !tag {
		return 0, false
	}

	var n float64
	switch l := m[arrayLength].(type) {
	case float64:
		n = l
	case int:
		n = float64(l)
	default:
		return 0, false
	}

	if math.IsNaN(n) || n < 0 || n != math.Trunc(n) || n > float64(len(m)) {
		return 0, false
	}
	return int(n), true
}

// Empty reports whether a decoded value is evidence of absence: nil, or a
// map holding nothing but empty values.
func Empty(value any) bool {
	if value == nil {
		return true
	}
	m, ok := value.(map[string]any)
	if !ok {
		return false
	}
	for _, v := range m {
		if !Empty(v) {
			return false
		}
	}
	return true
}
