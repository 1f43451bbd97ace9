package vector

import "math"

const kmeansIterations = 8

// clusterSet is a flat IVF partition: vectors are assigned to their nearest
// centroid at build time, and a query scans only the members of its closest
// probes centroids.
type clusterSet struct {
	centroids [][]float32
	members   [][]int
	probes    int
}

// buildClusters partitions the normalized vectors with a few rounds of
// spherical k-means. Initial centroids are taken at an even stride over the
// corpus, which keeps builds deterministic for a given input order.
func buildClusters(vecs [][]float32, probes int) *clusterSet {
	k := int(math.Sqrt(float64(len(vecs))))
	if k < 2 {
		return nil
	}
	if probes <= 0 {
		probes = k / 8
		if probes < 2 {
			probes = 2
		}
	}
	if probes > k {
		probes = k
	}

	dim := len(vecs[0])
	stride := len(vecs) / k
	centroids := make([][]float32, k)
	for c := range centroids {
		centroids[c] = append([]float32(nil), vecs[c*stride]...)
	}

	assignments := make([]int, len(vecs))
	for iter := 0; iter < kmeansIterations; iter++ {
		changed := false
		for i, v := range vecs {
			best := nearestCentroid(centroids, v)
			if assignments[i] != best || iter == 0 {
				assignments[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, v := range vecs {
			c := assignments[i]
			counts[c]++
			for d, x := range v {
				sums[c][d] += float64(x)
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue // empty cluster keeps its previous centroid
			}
			var norm float64
			for _, s := range sums[c] {
				norm += s * s
			}
			if norm == 0 {
				continue
			}
			inv := 1 / math.Sqrt(norm)
			for d := range centroids[c] {
				centroids[c][d] = float32(sums[c][d] * inv)
			}
		}
	}

	members := make([][]int, k)
	for i, c := range assignments {
		members[c] = append(members[c], i)
	}
	return &clusterSet{centroids: centroids, members: members, probes: probes}
}

// probe returns the member indices of the probes clusters nearest to q.
func (cs *clusterSet) probe(q []float32) []int {
	type ranked struct {
		cluster int
		score   float64
	}
	order := make([]ranked, len(cs.centroids))
	for c, centroid := range cs.centroids {
		order[c] = ranked{cluster: c, score: dot(q, centroid)}
	}
	for i := 0; i < cs.probes; i++ {
		best := i
		for j := i + 1; j < len(order); j++ {
			if order[j].score > order[best].score {
				best = j
			}
		}
		order[i], order[best] = order[best], order[i]
	}

	var out []int
	for i := 0; i < cs.probes; i++ {
		out = append(out, cs.members[order[i].cluster]...)
	}
	return out
}

// nearestCentroid returns the index of the centroid with the highest inner
// product against v.
func nearestCentroid(centroids [][]float32, v []float32) int {
	best, bestScore := 0, math.Inf(-1)
	for c, centroid := range centroids {
		if s := dot(v, centroid); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}
