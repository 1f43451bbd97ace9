package vector

import (
	"math"
	"sort"

	"github.com/kailas-cloud/gamedex/internal/domain"
	"github.com/kailas-cloud/gamedex/internal/domain/search/candidate"
)

// DefaultExactThreshold is the corpus size below which search always runs the
// exact scan. Approximate search only pays off on larger corpora.
const DefaultExactThreshold = 4096

// Entry is one game embedding handed to Build. Games without embeddings are
// simply not passed in and never appear in semantic results.
type Entry struct {
	ID     int
	Vector []float32
}

// Options tunes the approximate search path.
type Options struct {
	// ExactThreshold switches to brute-force scanning when the corpus is
	// smaller. Zero means DefaultExactThreshold.
	ExactThreshold int
	// Probes is how many nearest clusters a query inspects. Zero means a
	// size-derived default.
	Probes int
}

// Index holds L2-normalized embeddings for cosine scoring via dot product.
// Immutable after Build; safe for concurrent reads.
type Index struct {
	dim  int
	ids  []int
	vecs [][]float32

	exactThreshold int
	clusters       *clusterSet
}

// Build validates dimensions, normalizes every vector, and partitions the
// corpus for approximate search when it exceeds the exact threshold.
// A vector of the wrong dimension fails the whole build.
func Build(entries []Entry, dim int, opts Options) (*Index, error) {
	if dim <= 0 {
		return nil, domain.ErrDimensionMismatch
	}
	if opts.ExactThreshold <= 0 {
		opts.ExactThreshold = DefaultExactThreshold
	}

	ix := &Index{
		dim:            dim,
		ids:            make([]int, 0, len(entries)),
		vecs:           make([][]float32, 0, len(entries)),
		exactThreshold: opts.ExactThreshold,
	}
	for _, e := range entries {
		if len(e.Vector) != dim {
			return nil, domain.NewDimensionError(e.ID, len(e.Vector), dim)
		}
		v := normalize(e.Vector)
		if v == nil {
			// Zero vector carries no direction; treat as missing embedding.
			continue
		}
		ix.ids = append(ix.ids, e.ID)
		ix.vecs = append(ix.vecs, v)
	}

	if len(ix.ids) > ix.exactThreshold {
		ix.clusters = buildClusters(ix.vecs, opts.Probes)
	}
	return ix, nil
}

// Size returns the number of indexed embeddings.
func (ix *Index) Size() int { return len(ix.ids) }

// Dimension returns the embedding dimensionality.
func (ix *Index) Dimension() int { return ix.dim }

// Search returns the topK nearest embeddings by cosine similarity, ordered by
// score descending with ties broken by lower entity id. Below the exact
// threshold the scan is brute force; above it, only the nearest clusters are
// probed.
func (ix *Index) Search(queryVec []float32, topK int) ([]candidate.Candidate, error) {
	if len(queryVec) != ix.dim {
		return nil, domain.NewDimensionError(0, len(queryVec), ix.dim)
	}
	if topK <= 0 || len(ix.ids) == 0 {
		return nil, nil
	}
	q := normalize(queryVec)
	if q == nil {
		return nil, nil
	}

	var members []int
	if ix.clusters != nil {
		members = ix.clusters.probe(q)
	}
	return ix.scan(q, members, topK), nil
}

// scan scores either the given member subset or, when members is nil, the
// whole corpus.
func (ix *Index) scan(q []float32, members []int, topK int) []candidate.Candidate {
	n := len(ix.vecs)
	if members != nil {
		n = len(members)
	}
	scored := make([]candidate.Candidate, 0, n)
	for i := 0; i < n; i++ {
		idx := i
		if members != nil {
			idx = members[i]
		}
		score := dot(q, ix.vecs[idx])
		scored = append(scored, candidate.New(ix.ids[idx], score, 0))
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score() != scored[j].Score() {
			return scored[i].Score() > scored[j].Score()
		}
		return scored[i].ID() < scored[j].ID()
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// normalize returns the unit-length copy of v, or nil for a zero vector.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// dot computes the inner product of two equal-length vectors. On unit vectors
// this equals cosine similarity.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
