// Package dedupe collapses near-duplicate question/answer items before they
// enter permanent storage. Clustering is a heuristic over embedding
// similarity, not exact equivalence; recall is not guaranteed.
package dedupe

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"rasoi-ai/internal/contextutil"
)

// Embedder is the slice of the embeddings client the engine needs.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Candidate is one item considered for deduplication.
type Candidate struct {
	// Text is the content compared for semantic similarity (the question).
	Text string
	// Score is the quality signal (e.g. upvotes) used to pick a cluster winner.
	Score int
}

// Params holds the clustering parameters. Both are fixed per run so results
// are reproducible.
type Params struct {
	// SimilarityThreshold is the minimum pairwise cosine similarity for two
	// items to be considered duplicates.
	SimilarityThreshold float64
	// MinClusterSize is the smallest group treated as a duplicate cluster.
	MinClusterSize int
}

// DefaultParams returns the production clustering parameters.
func DefaultParams() Params {
	return Params{
		SimilarityThreshold: 0.85,
		MinClusterSize:      2,
	}
}

// Engine clusters semantically similar items and keeps one representative
// per cluster.
type Engine struct {
	embedder Embedder
	params   Params
	logger   *slog.Logger
}

// NewEngine creates a deduplication engine.
func NewEngine(embedder Embedder, params Params) *Engine {
	if params.SimilarityThreshold <= 0 {
		params.SimilarityThreshold = DefaultParams().SimilarityThreshold
	}
	if params.MinClusterSize < 2 {
		params.MinClusterSize = DefaultParams().MinClusterSize
	}
	return &Engine{
		embedder: embedder,
		params:   params,
		logger:   slog.Default(),
	}
}

// Deduplicate returns the indices of candidates to keep, in input order.
// Items not assigned to any cluster are kept unconditionally; for each
// cluster exactly one member survives: the one with the highest Score,
// ties broken by the first-encountered member so results are stable
// across runs.
//
// Pairwise similarity is O(n²) in the candidate count. That is acceptable
// for batches in the low thousands; larger corpora need a different
// clustering strategy, not a bigger timeout.
func (e *Engine) Deduplicate(ctx context.Context, candidates []Candidate) ([]int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(candidates) == 0 {
		return nil, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	embeddings, err := e.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed candidates: %w", err)
	}
	if len(embeddings) != len(candidates) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(candidates), len(embeddings))
	}

	normalized := make([][]float32, len(embeddings))
	for i, vec := range embeddings {
		normalized[i] = normalize(vec)
	}

	// Community detection: connected components over the similarity graph,
	// with an edge wherever pairwise cosine similarity meets the threshold.
	uf := newUnionFind(len(candidates))
	for i := 0; i < len(normalized); i++ {
		for j := i + 1; j < len(normalized); j++ {
			if dot(normalized[i], normalized[j]) >= e.params.SimilarityThreshold {
				uf.union(i, j)
			}
		}
	}

	components := make(map[int][]int)
	for i := range candidates {
		root := uf.find(i)
		components[root] = append(components[root], i)
	}

	kept := make([]int, 0, len(candidates))
	clusterCount := 0
	for _, members := range components {
		if len(members) < e.params.MinClusterSize {
			// Unique items (singleton components) are kept unconditionally.
			kept = append(kept, members...)
			continue
		}

		clusterCount++
		// Members are in ascending index order, so > keeps the first
		// encountered on ties.
		winner := members[0]
		for _, idx := range members[1:] {
			if candidates[idx].Score > candidates[winner].Score {
				winner = idx
			}
		}
		kept = append(kept, winner)
	}

	sort.Ints(kept)
	logger.InfoContext(ctx, "deduplication completed",
		"input", len(candidates),
		"clusters", clusterCount,
		"kept", len(kept),
	)
	return kept, nil
}

// normalize returns the unit-length copy of vec. Zero vectors are returned
// unchanged so they never match anything.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

// dot computes the dot product of two equal-length vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// unionFind is a standard disjoint-set structure with path compression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// Attach the larger root to the smaller so cluster roots stay
	// deterministic regardless of union order.
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
