package filter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/gamedex/internal/domain"
)

// MaxGenres is the maximum number of genre conditions per filter set.
const MaxGenres = 16

// Set is a conjunctive filter over game structured attributes. A nil optional
// field means "no constraint". Filters never influence ranking; they are
// applied after fusion so ordering is preserved within the filtered subset.
type Set struct {
	PriceMaxCents  *int64
	PriceMinCents  *int64
	Platform       domain.Platform // required flags, zero = any
	Coop           *domain.CoopMode
	Type           *domain.ContentType
	Genres         []string // game must carry all of them
	ReleasedAfter  *time.Time
	ReleasedBefore *time.Time
	MinReviews     *int
}

// Validate checks the filter set for internal consistency.
func (s Set) Validate() error {
	if len(s.Genres) > MaxGenres {
		return fmt.Errorf("too many genre filters (max %d)", MaxGenres)
	}
	if s.PriceMaxCents != nil && *s.PriceMaxCents < 0 {
		return fmt.Errorf("price_max must be non-negative")
	}
	if s.PriceMinCents != nil && *s.PriceMinCents < 0 {
		return fmt.Errorf("price_min must be non-negative")
	}
	if s.PriceMinCents != nil && s.PriceMaxCents != nil && *s.PriceMinCents > *s.PriceMaxCents {
		return fmt.Errorf("price_min exceeds price_max")
	}
	if s.MinReviews != nil && *s.MinReviews < 0 {
		return fmt.Errorf("min_reviews must be non-negative")
	}
	if s.ReleasedAfter != nil && s.ReleasedBefore != nil && s.ReleasedAfter.After(*s.ReleasedBefore) {
		return fmt.Errorf("released_after is later than released_before")
	}
	return nil
}

// IsEmpty reports whether the set constrains nothing.
func (s Set) IsEmpty() bool {
	return s.PriceMaxCents == nil && s.PriceMinCents == nil &&
		s.Platform == 0 && s.Coop == nil && s.Type == nil &&
		len(s.Genres) == 0 && s.ReleasedAfter == nil && s.ReleasedBefore == nil &&
		s.MinReviews == nil
}

// Matches evaluates the conjunction against a game.
func (s Set) Matches(g *domain.Game) bool {
	if s.PriceMaxCents != nil && g.PriceCents > *s.PriceMaxCents {
		return false
	}
	if s.PriceMinCents != nil && g.PriceCents < *s.PriceMinCents {
		return false
	}
	if s.Platform != 0 && !g.Platforms.Has(s.Platform) {
		return false
	}
	if s.Coop != nil && g.Coop != *s.Coop {
		return false
	}
	if s.Type != nil && g.Type != *s.Type {
		return false
	}
	for _, want := range s.Genres {
		if !hasGenre(g.Genres, want) {
			return false
		}
	}
	if s.ReleasedAfter != nil && g.ReleaseDate.Before(*s.ReleasedAfter) {
		return false
	}
	if s.ReleasedBefore != nil && g.ReleaseDate.After(*s.ReleasedBefore) {
		return false
	}
	if s.MinReviews != nil && g.TotalReviews < *s.MinReviews {
		return false
	}
	return true
}

func hasGenre(genres []string, want string) bool {
	for _, g := range genres {
		if strings.EqualFold(g, want) {
			return true
		}
	}
	return false
}

// Fingerprint returns a stable canonical representation of the set, used as
// part of result-cache keys. Equal sets always produce equal fingerprints.
func (s Set) Fingerprint() string {
	var b strings.Builder
	if s.PriceMaxCents != nil {
		fmt.Fprintf(&b, "pmax=%d;", *s.PriceMaxCents)
	}
	if s.PriceMinCents != nil {
		fmt.Fprintf(&b, "pmin=%d;", *s.PriceMinCents)
	}
	if s.Platform != 0 {
		fmt.Fprintf(&b, "plat=%d;", s.Platform)
	}
	if s.Coop != nil {
		fmt.Fprintf(&b, "coop=%s;", *s.Coop)
	}
	if s.Type != nil {
		fmt.Fprintf(&b, "type=%s;", *s.Type)
	}
	if len(s.Genres) > 0 {
		genres := make([]string, len(s.Genres))
		for i, g := range s.Genres {
			genres[i] = strings.ToLower(g)
		}
		sort.Strings(genres)
		fmt.Fprintf(&b, "genres=%s;", strings.Join(genres, ","))
	}
	if s.ReleasedAfter != nil {
		fmt.Fprintf(&b, "after=%d;", s.ReleasedAfter.Unix())
	}
	if s.ReleasedBefore != nil {
		fmt.Fprintf(&b, "before=%d;", s.ReleasedBefore.Unix())
	}
	if s.MinReviews != nil {
		fmt.Fprintf(&b, "rev=%d;", *s.MinReviews)
	}
	return b.String()
}
