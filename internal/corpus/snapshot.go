package corpus

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/gamedex/internal/domain"
	"github.com/kailas-cloud/gamedex/internal/index/lexical"
	"github.com/kailas-cloud/gamedex/internal/index/vector"
)

// BuildParams configures snapshot index construction.
type BuildParams struct {
	Lexical   lexical.Params
	Tokenizer *lexical.Tokenizer
	// Dimension of corpus embeddings. Zero means infer from the first
	// embedded record.
	Dimension int
	Vector    vector.Options
}

// Snapshot is an immutable view of the corpus with both indexes built over
// the same set of games. Queries read a snapshot without locks; rebuilds
// produce a new snapshot and swap it in whole.
type Snapshot struct {
	byID    map[int]*domain.Game
	games   []*domain.Game
	lex     *lexical.Index
	vec     *vector.Index
	builtAt time.Time
}

// BuildSnapshot validates records and constructs both indexes. Duplicate ids,
// an empty corpus, and embedding dimension mismatches all fail the build;
// the previous snapshot stays active in that case.
func BuildSnapshot(records []Record, p BuildParams) (*Snapshot, error) {
	if len(records) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	if p.Tokenizer == nil {
		p.Tokenizer = lexical.NewTokenizer(nil)
	}

	s := &Snapshot{
		byID:    make(map[int]*domain.Game, len(records)),
		games:   make([]*domain.Game, 0, len(records)),
		builtAt: time.Now(),
	}
	entries := make([]vector.Entry, 0, len(records))
	dim := p.Dimension
	for _, r := range records {
		if _, ok := s.byID[r.Game.ID]; ok {
			return nil, fmt.Errorf("%w: id %d", domain.ErrDuplicateID, r.Game.ID)
		}
		s.byID[r.Game.ID] = r.Game
		s.games = append(s.games, r.Game)

		if r.Embedding == nil {
			continue
		}
		if dim == 0 {
			dim = len(r.Embedding)
		}
		entries = append(entries, vector.Entry{ID: r.Game.ID, Vector: r.Embedding})
	}

	s.lex = lexical.Build(s.games, p.Lexical, p.Tokenizer)
	if len(entries) > 0 {
		vec, err := vector.Build(entries, dim, p.Vector)
		if err != nil {
			return nil, fmt.Errorf("build vector index: %w", err)
		}
		s.vec = vec
	}
	return s, nil
}

// Game looks up a game by id.
func (s *Snapshot) Game(id int) (*domain.Game, bool) {
	g, ok := s.byID[id]
	return g, ok
}

// Games returns all games in load order. Callers must not mutate the slice.
func (s *Snapshot) Games() []*domain.Game { return s.games }

// Size returns the number of games in the snapshot.
func (s *Snapshot) Size() int { return len(s.games) }

// Lexical returns the BM25 index.
func (s *Snapshot) Lexical() *lexical.Index { return s.lex }

// Vector returns the embedding index, or nil when no record carried an
// embedding.
func (s *Snapshot) Vector() *vector.Index { return s.vec }

// BuiltAt returns the snapshot construction time.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Store publishes the active snapshot. Swap is atomic: readers see either the
// old snapshot or the new one, never a partial rebuild.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates an empty store. Current returns ErrNotLoaded until the
// first Swap.
func NewStore() *Store { return &Store{} }

// Current returns the active snapshot.
func (st *Store) Current() (*Snapshot, error) {
	s := st.current.Load()
	if s == nil {
		return nil, domain.ErrNotLoaded
	}
	return s, nil
}

// Swap publishes a new snapshot.
func (st *Store) Swap(s *Snapshot) { st.current.Store(s) }
