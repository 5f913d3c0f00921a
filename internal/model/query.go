package model

import "math"

// QueryFilter is the structured intent extracted from a free-text query.
type QueryFilter struct {
	MinPrice      float64 `json:"min_price"`
	MaxPrice      float64 `json:"max_price"`
	CleanedText   string  `json:"cleaned_text"`
	IsBrandSearch bool    `json:"is_brand_search"`
}

// DefaultQueryFilter returns a filter with open price bounds and no text.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{MaxPrice: math.Inf(1)}
}

// HasPriceBound reports whether either price bound narrows the catalog.
func (f QueryFilter) HasPriceBound() bool {
	return f.MinPrice > 0 || !math.IsInf(f.MaxPrice, 1)
}

// InPriceRange reports whether v lies within [MinPrice, MaxPrice].
func (f QueryFilter) InPriceRange(v float64) bool {
	return v >= f.MinPrice && v <= f.MaxPrice
}
