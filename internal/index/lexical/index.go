package lexical

import (
	"math"
	"sort"
	"strings"

	"github.com/kailas-cloud/gamedex/internal/domain"
	"github.com/kailas-cloud/gamedex/internal/domain/search/candidate"
)

// Params holds the BM25 tuning constants and per-field repetition weights.
type Params struct {
	// K1 controls diminishing returns from repeated term frequency.
	K1 float64
	// B controls document-length normalization.
	B float64
	// Field repetition weights bias scoring toward title/genre matches
	// without changing the scoring formula itself.
	TitleWeight       float64
	GenreWeight       float64
	DescriptionWeight float64
}

// DefaultParams returns the standard BM25 constants and 3x/2x/1x field weights.
func DefaultParams() Params {
	return Params{K1: 1.5, B: 0.75, TitleWeight: 3, GenreWeight: 2, DescriptionWeight: 1}
}

type posting struct {
	doc int     // index into docs
	tf  float64 // field-weighted term frequency
}

type document struct {
	id     int
	length float64 // field-weighted token count

	// Unweighted per-field term sets, used only for matched-field
	// annotation, never for scoring.
	title  map[string]struct{}
	desc   map[string]struct{}
	genres map[string]struct{}
}

// Index is an immutable inverted index over a corpus snapshot. Build once,
// then read from any number of goroutines.
type Index struct {
	params   Params
	docs     []document
	postings map[string][]posting
	avgLen   float64
}

// Build tokenizes every game into a field-weighted document and constructs
// the posting lists. Games are indexed in the given order.
func Build(games []*domain.Game, params Params, tok *Tokenizer) *Index {
	ix := &Index{
		params:   params,
		docs:     make([]document, 0, len(games)),
		postings: make(map[string][]posting),
	}

	var totalLen float64
	for _, g := range games {
		titleTokens := tok.Tokenize(g.Title)
		genreTokens := tok.Tokenize(strings.Join(g.Genres, " "))
		descTokens := tok.Tokenize(g.Description)

		terms := make(map[string]float64)
		countWeighted(terms, titleTokens, params.TitleWeight)
		countWeighted(terms, genreTokens, params.GenreWeight)
		countWeighted(terms, descTokens, params.DescriptionWeight)

		length := 0.0
		for _, tf := range terms {
			length += tf
		}
		totalLen += length

		docIdx := len(ix.docs)
		ix.docs = append(ix.docs, document{
			id:     g.ID,
			length: length,
			title:  toSet(titleTokens),
			desc:   toSet(descTokens),
			genres: toSet(genreTokens),
		})
		for term, tf := range terms {
			ix.postings[term] = append(ix.postings[term], posting{doc: docIdx, tf: tf})
		}
	}

	if len(ix.docs) > 0 {
		ix.avgLen = totalLen / float64(len(ix.docs))
	}
	if ix.avgLen == 0 {
		ix.avgLen = 1
	}
	return ix
}

// Size returns the number of indexed documents.
func (ix *Index) Size() int { return len(ix.docs) }

// Search scores documents against the query tokens with BM25 and returns the
// topK candidates ordered by score descending, ties broken by lower entity id.
// Documents must score strictly above zero to appear. Terms absent from the
// corpus contribute nothing.
func (ix *Index) Search(tokens []string, topK int) []candidate.Candidate {
	if topK <= 0 || len(tokens) == 0 || len(ix.docs) == 0 {
		return nil
	}

	n := float64(len(ix.docs))
	scores := make(map[int]float64)
	for _, term := range tokens {
		postings := ix.postings[term]
		if len(postings) == 0 {
			continue
		}
		df := float64(len(postings))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for _, p := range postings {
			tf := p.tf
			norm := ix.params.K1 * (1 - ix.params.B + ix.params.B*ix.docs[p.doc].length/ix.avgLen)
			scores[p.doc] += idf * tf * (ix.params.K1 + 1) / (tf + norm)
		}
	}

	candidates := make([]candidate.Candidate, 0, len(scores))
	for docIdx, score := range scores {
		if score <= 0 {
			continue
		}
		doc := &ix.docs[docIdx]
		candidates = append(candidates, candidate.New(doc.id, score, matchedFields(doc, tokens)))
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score() != candidates[j].Score() {
			return candidates[i].Score() > candidates[j].Score()
		}
		return candidates[i].ID() < candidates[j].ID()
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

// matchedFields reports which fields contain at least one query token,
// checked against the unweighted per-field tokenization.
func matchedFields(doc *document, tokens []string) candidate.FieldSet {
	var fields candidate.FieldSet
	for _, t := range tokens {
		if _, ok := doc.title[t]; ok {
			fields = fields.Union(candidate.FieldTitle)
		}
		if _, ok := doc.desc[t]; ok {
			fields = fields.Union(candidate.FieldDescription)
		}
		if _, ok := doc.genres[t]; ok {
			fields = fields.Union(candidate.FieldGenres)
		}
	}
	return fields
}

func countWeighted(terms map[string]float64, tokens []string, weight float64) {
	for _, t := range tokens {
		terms[t] += weight
	}
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
