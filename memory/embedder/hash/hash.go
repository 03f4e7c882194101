// Package hash provides a deterministic, offline embedder. Texts sharing
// tokens land near each other, which is enough for demo runs and tests; it is
// not a semantic model.
package hash

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

const defaultDimensions = 128

// Embedder folds token hashes into a fixed-size vector and normalizes it.
type Embedder struct {
	dimensions int
}

// New creates a hash embedder with the default dimensionality.
func New() *Embedder {
	return &Embedder{dimensions: defaultDimensions}
}

// Embed produces a deterministic unit vector for the text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		h.Write([]byte(token))
		seed := h.Sum64()

		// Spread each token over a handful of components via an LCG walk.
		for i := 0; i < 4; i++ {
			seed = seed*6364136223846793005 + 1442695040888963407
			idx := int(seed % uint64(e.dimensions))
			sign := float32(1)
			if seed&(1<<63) != 0 {
				sign = -1
			}
			vec[idx] += sign
		}
	}
	return normalize(vec), nil
}

// Dimensions returns the vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	n := float32(math.Sqrt(norm))
	for i, v := range vec {
		vec[i] = v / n
	}
	return vec
}
