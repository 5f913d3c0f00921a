package query

import (
	"math"
	"regexp"

	"github.com/dveri-ekat/door-assistant/internal/model"
)

// Go's \b is ASCII-only, so Cyrillic word edges are spelled out as explicit
// letter/digit classes.
const (
	leftEdge  = `(?:^|[^\p{L}\p{N}])`
	rightEdge = `(?:[^\p{L}\p{N}]|$)`
	// "15 000" groups only in threes, so a trailing count ("до 15000 2 шт") stays apart.
	number    = `((?:\d{1,3}(?:[ \x{00a0}\x{202f}]\d{3})+|\d+)(?:[.,]\d+)?)`
	unit      = `(?:\s*(тысяч[иа]?|тыс\.?|т\.\s?р\.?|k|к))?`
	currency  = `(?:\s*(?:рубл(?:ей|я|ь)\.?|руб\.?|р\.?|₽))?`
	amount    = number + unit + currency
)

var (
	// 10000-20000, от 10 до 20 тыс, 10к–20к
	rangeDashPattern = regexp.MustCompile(leftEdge + `(?:от\s*)?` + amount + `\s*[-–—]\s*(?:до\s*)?` + amount + rightEdge)
	rangeFromTo      = regexp.MustCompile(leftEdge + `от\s*` + amount + `\s+до\s*` + amount + rightEdge)
	lowerPattern     = regexp.MustCompile(leftEdge + `от\s*` + amount + rightEdge)
	upperPattern     = regexp.MustCompile(leftEdge + `до\s*` + amount + rightEdge)
)

const thousand = 1000

// priceBounds is the outcome of price extraction over folded query text.
type priceBounds struct {
	min, max float64
	rest     string
}

// extractPrice pulls price bounds out of s. A range takes precedence over
// independent lower/upper bounds. Matched text is replaced by a space.
func extractPrice(s string) priceBounds {
	b := priceBounds{min: 0, max: math.Inf(1), rest: s}

	for _, re := range []*regexp.Regexp{rangeDashPattern, rangeFromTo} {
		m := re.FindStringSubmatchIndex(s)
		if m == nil {
			continue
		}
		lo, okLo := model.ParsePrice(group(s, m, 1))
		hi, okHi := model.ParsePrice(group(s, m, 3))
		if !okLo || !okHi {
			continue
		}
		loUnit, hiUnit := group(s, m, 2) != "", group(s, m, 4) != ""
		// "10-20 тыс": the trailing unit covers both ends.
		if hiUnit && !loUnit && lo <= hi {
			loUnit = true
		}
		if loUnit {
			lo *= thousand
		}
		if hiUnit {
			hi *= thousand
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		b.min, b.max = lo, hi
		b.rest = cut(s, m)
		return b
	}

	if v, rest, ok := bound(lowerPattern, b.rest); ok {
		b.min, b.rest = v, rest
	}
	if v, rest, ok := bound(upperPattern, b.rest); ok {
		b.max, b.rest = v, rest
	}
	return b
}

func bound(re *regexp.Regexp, s string) (float64, string, bool) {
	m := re.FindStringSubmatchIndex(s)
	if m == nil {
		return 0, s, false
	}
	v, ok := model.ParsePrice(group(s, m, 1))
	if !ok {
		return 0, s, false
	}
	if group(s, m, 2) != "" {
		v *= thousand
	}
	return v, cut(s, m), true
}

func group(s string, m []int, i int) string {
	if 2*i+1 >= len(m) || m[2*i] < 0 {
		return ""
	}
	return s[m[2*i]:m[2*i+1]]
}

func cut(s string, m []int) string {
	return s[:m[0]] + " " + s[m[1]:]
}
