package model

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PriceOnRequest is stored when the feed row carries no price.
const PriceOnRequest = "по запросу"

// ProductRecord is the canonical unit of inventory produced by the normalizer.
type ProductRecord struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Price       string            `json:"price"`
	URL         string            `json:"url"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Properties  map[string]string `json:"properties"`
}

// HasLink reports whether the record points to a product page.
func (p ProductRecord) HasLink() bool {
	return strings.TrimSpace(p.URL) != ""
}

// AbsoluteURL resolves a relative product link against the store base URL.
// Absolute links and an empty base are returned unchanged.
func (p ProductRecord) AbsoluteURL(base string) string {
	link := strings.TrimSpace(p.URL)
	if link == "" || base == "" {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil || ref.IsAbs() {
		return link
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return link
	}
	return baseURL.ResolveReference(ref).String()
}

// NumericPrice parses the record price. See ParsePrice.
func (p ProductRecord) NumericPrice() (float64, bool) {
	return ParsePrice(p.Price)
}

var priceNoise = strings.NewReplacer(
	" ", "",
	"\u00a0", "",
	"\u202f", "",
	"₽", "",
	"руб.", "",
	"руб", "",
	"р.", "",
)

// ParsePrice extracts a number from a feed price cell such as "12 500", "12500,00 руб."
// or "9900₽". Text that is not a plain number (including PriceOnRequest) is rejected.
func ParsePrice(raw string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}
	s = priceNoise.Replace(s)
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Catalog is a complete, immutable snapshot of the normalized feed.
// It is replaced wholesale on every successful refresh.
type Catalog struct {
	Products    []ProductRecord `json:"products"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// Len returns the number of products, tolerating a nil catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Products)
}

// Age returns how long ago the catalog was refreshed.
func (c *Catalog) Age(now time.Time) time.Duration {
	return now.Sub(c.LastUpdated)
}

// ScoredProduct is a search hit. It is never persisted.
type ScoredProduct struct {
	ProductRecord
	Score int `json:"score"`
}
