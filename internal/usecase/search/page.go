package search

import (
	"github.com/kailas-cloud/gamedex/internal/corpus"
	"github.com/kailas-cloud/gamedex/internal/domain/search/filter"
	"github.com/kailas-cloud/gamedex/internal/domain/search/result"
)

// paginate drops ranked hits that fail the filters or vanished from the
// snapshot, then slices out one page. Total counts every filtered match, not
// just the page, so clients can render page controls. An offset past the end
// yields an empty page with the true total.
func paginate(
	ranked []result.Ranked, snap *corpus.Snapshot, f filter.Set, limit, offset int,
) ([]result.Ranked, int) {
	filtered := make([]result.Ranked, 0, len(ranked))
	for _, r := range ranked {
		g, ok := snap.Game(r.ID())
		if !ok {
			continue
		}
		if !f.Matches(g) {
			continue
		}
		filtered = append(filtered, r)
	}

	total := len(filtered)
	if offset >= total {
		return nil, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total
}
