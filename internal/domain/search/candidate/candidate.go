package candidate

// Provenance records which retrieval method produced a candidate.
type Provenance string

// Provenance values.
const (
	// Lexical marks candidates from keyword retrieval.
	Lexical Provenance = "lexical"
	// Semantic marks candidates from embedding-similarity retrieval.
	Semantic Provenance = "semantic"
	// Both marks fused results contributed by both methods.
	Both Provenance = "both"
)

// FieldSet is a bit set of entity fields matched by a query.
type FieldSet uint8

// Matched-field flags.
const (
	FieldTitle FieldSet = 1 << iota
	FieldDescription
	FieldGenres
)

// Has reports whether all flags in f are set.
func (f FieldSet) Has(flag FieldSet) bool { return f&flag == flag }

// Union combines two field sets.
func (f FieldSet) Union(other FieldSet) FieldSet { return f | other }

// Names returns the matched field names in a fixed order.
func (f FieldSet) Names() []string {
	names := make([]string, 0, 3)
	if f.Has(FieldTitle) {
		names = append(names, "title")
	}
	if f.Has(FieldDescription) {
		names = append(names, "description")
	}
	if f.Has(FieldGenres) {
		names = append(names, "genres")
	}
	return names
}

// Candidate is a transient retrieval hit: raw score on the producing index's
// own scale, plus the fields the query matched (lexical retrieval only).
type Candidate struct {
	id     int
	score  float64
	fields FieldSet
}

// New creates a candidate.
func New(id int, score float64, fields FieldSet) Candidate {
	return Candidate{id: id, score: score, fields: fields}
}

// ID returns the entity identifier.
func (c Candidate) ID() int { return c.id }

// Score returns the raw retrieval score.
func (c Candidate) Score() float64 { return c.score }

// Fields returns the matched-field set.
func (c Candidate) Fields() FieldSet { return c.fields }
