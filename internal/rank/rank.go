package rank

import (
	"sort"
	"strings"

	"github.com/dveri-ekat/door-assistant/internal/model"
)

// DefaultLimit is the result size used when the caller does not ask for one.
const DefaultLimit = 7

// Score weights.
const (
	TitleWeight           = 10
	CategoryWeight        = 5
	BrandPropertiesWeight = 15
	PropertiesWeight      = 3
)

// Rank returns at most limit records matching f, best first.
//
// With a price bound the pool is first narrowed to records whose price parses
// and falls inside the bound. A query with a bound and no text takes the
// price-only path: linked records, cheapest first, no scoring. Otherwise every
// candidate is scored on title, category and properties, zero scores are
// dropped, and ties keep catalog order.
func Rank(ix *Index, f model.QueryFilter, limit int) []model.ScoredProduct {
	out := []model.ScoredProduct{}
	if ix == nil || limit <= 0 {
		return out
	}
	text := model.Fold(strings.TrimSpace(f.CleanedText))
	if f.IsBrandSearch && text == "" {
		return out
	}
	bounded := f.HasPriceBound()
	if text == "" && !bounded {
		return out
	}

	pool := ix.entries
	if bounded {
		pool = make([]entry, 0, len(ix.entries))
		for _, e := range ix.entries {
			if e.priced && f.InPriceRange(e.price) {
				pool = append(pool, e)
			}
		}
	}

	if text == "" {
		return priceOnly(pool, limit)
	}

	for _, e := range pool {
		if s := score(e, text, f.IsBrandSearch); s > 0 {
			out = append(out, model.ScoredProduct{ProductRecord: e.rec, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func priceOnly(pool []entry, limit int) []model.ScoredProduct {
	linked := make([]entry, 0, len(pool))
	for _, e := range pool {
		if e.rec.HasLink() {
			linked = append(linked, e)
		}
	}
	sort.SliceStable(linked, func(i, j int) bool { return linked[i].price < linked[j].price })
	if len(linked) > limit {
		linked = linked[:limit]
	}
	out := make([]model.ScoredProduct, 0, len(linked))
	for _, e := range linked {
		out = append(out, model.ScoredProduct{ProductRecord: e.rec})
	}
	return out
}

func score(e entry, text string, brand bool) int {
	s := 0
	if strings.Contains(e.title, text) {
		s += TitleWeight
	}
	if strings.Contains(e.category, text) {
		s += CategoryWeight
	}
	if e.props != "" && strings.Contains(e.props, text) {
		if brand {
			s += BrandPropertiesWeight
		} else {
			s += PropertiesWeight
		}
	}
	return s
}
