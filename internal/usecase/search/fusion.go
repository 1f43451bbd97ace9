package search

import (
	"sort"

	"github.com/kailas-cloud/gamedex/internal/domain/search/candidate"
	"github.com/kailas-cloud/gamedex/internal/domain/search/result"
)

// FusionWeights blends the two retrieval signals after per-list
// normalization. Weights must each be in [0, 1] and sum to 1.
type FusionWeights struct {
	Lexical  float64
	Semantic float64
}

// DefaultFusionWeights gives both signals equal say.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{Lexical: 0.5, Semantic: 0.5}
}

// fuse merges lexical and semantic candidates: each list is min-max
// normalized to [0, 1] on its own, then fused(d) = wLex*normLex(d) +
// wSem*normSem(d), with a missing signal contributing zero. Ordering is by
// fused score descending; ties put both-signal hits first, then lower id.
func fuse(lex, sem []candidate.Candidate, w FusionWeights) []result.Ranked {
	type entry struct {
		score      float64
		provenance candidate.Provenance
		fields     candidate.FieldSet
	}
	merged := make(map[int]*entry, len(lex)+len(sem))

	for i, norm := range normalize(lex) {
		c := lex[i]
		merged[c.ID()] = &entry{
			score:      w.Lexical * norm,
			provenance: candidate.Lexical,
			fields:     c.Fields(),
		}
	}
	for i, norm := range normalize(sem) {
		c := sem[i]
		if e, ok := merged[c.ID()]; ok {
			e.score += w.Semantic * norm
			e.provenance = candidate.Both
			e.fields = e.fields.Union(c.Fields())
			continue
		}
		merged[c.ID()] = &entry{
			score:      w.Semantic * norm,
			provenance: candidate.Semantic,
			fields:     c.Fields(),
		}
	}

	ranked := make([]result.Ranked, 0, len(merged))
	for id, e := range merged {
		ranked = append(ranked, result.New(id, e.score, e.provenance, e.fields))
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score() != ranked[j].Score() {
			return ranked[i].Score() > ranked[j].Score()
		}
		iBoth := ranked[i].Provenance() == candidate.Both
		jBoth := ranked[j].Provenance() == candidate.Both
		if iBoth != jBoth {
			return iBoth
		}
		return ranked[i].ID() < ranked[j].ID()
	})
	return ranked
}

// normalize min-max scales the list's scores to [0, 1]. When all scores are
// equal (including a single candidate) every score maps to 1, so presence in
// a list always counts for something.
func normalize(list []candidate.Candidate) []float64 {
	if len(list) == 0 {
		return nil
	}
	lo, hi := list[0].Score(), list[0].Score()
	for _, c := range list[1:] {
		if c.Score() < lo {
			lo = c.Score()
		}
		if c.Score() > hi {
			hi = c.Score()
		}
	}

	out := make([]float64, len(list))
	if hi == lo {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	for i, c := range list {
		out[i] = (c.Score() - lo) / (hi - lo)
	}
	return out
}
