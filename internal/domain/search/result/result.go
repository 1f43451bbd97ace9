package result

import "github.com/kailas-cloud/gamedex/internal/domain/search/candidate"

// Ranked is a single fused search hit. Ordering among Ranked values is the
// engine's primary output contract.
type Ranked struct {
	id         int
	score      float64
	provenance candidate.Provenance
	fields     candidate.FieldSet
}

// New creates a ranked result.
func New(id int, score float64, provenance candidate.Provenance, fields candidate.FieldSet) Ranked {
	return Ranked{id: id, score: score, provenance: provenance, fields: fields}
}

// ID returns the entity identifier.
func (r Ranked) ID() int { return r.id }

// Score returns the fused relevance score.
func (r Ranked) Score() float64 { return r.score }

// Provenance returns which retrieval method(s) contributed.
func (r Ranked) Provenance() candidate.Provenance { return r.provenance }

// Fields returns the union of matched fields across contributing sources.
func (r Ranked) Fields() candidate.FieldSet { return r.fields }
