// Package query turns free-text shopper questions into typed search filters.
package query

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/dveri-ekat/door-assistant/internal/model"
)

type aliasRule struct {
	from []string
	to   []string
}

type wordSet map[string]struct{}

func newWordSet(words []string) wordSet {
	s := make(wordSet, len(words))
	for _, w := range words {
		for _, t := range tokenize(model.Fold(w)) {
			s[t] = struct{}{}
		}
	}
	return s
}

func (s wordSet) has(w string) bool {
	_, ok := s[w]
	return ok
}

// Parser applies a Vocabulary to raw queries. It is safe for concurrent use.
type Parser struct {
	aliases []aliasRule
	markers wordSet
	fillers wordSet
	stop    wordSet
}

// NewParser compiles v into a Parser.
func NewParser(v Vocabulary) *Parser {
	p := &Parser{
		markers: newWordSet(v.BrandMarkers),
		fillers: newWordSet(v.BrandFillers),
		stop:    newWordSet(v.StopWords),
	}
	for from, to := range v.Aliases {
		rule := aliasRule{from: tokenize(model.Fold(from)), to: tokenize(model.Fold(to))}
		if len(rule.from) == 0 {
			continue
		}
		p.aliases = append(p.aliases, rule)
	}
	// Longest phrase first; ties broken alphabetically so output is deterministic.
	sort.Slice(p.aliases, func(i, j int) bool {
		a, b := p.aliases[i].from, p.aliases[j].from
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		as, bs := strings.Join(a, " "), strings.Join(b, " ")
		if len(as) != len(bs) {
			return len(as) > len(bs)
		}
		return as < bs
	})
	return p
}

var defaultParser = sync.OnceValue(func() *Parser {
	return NewParser(DefaultVocabulary())
})

// Parse runs raw through the default vocabulary.
func Parse(raw string) model.QueryFilter {
	return defaultParser().Parse(raw)
}

// Parse extracts price bounds, drops stop words, substitutes aliases and detects
// brand intent, in that order. It never fails; unusable input yields the default
// filter with empty text.
func (p *Parser) Parse(raw string) model.QueryFilter {
	f := model.DefaultQueryFilter()

	text := strings.TrimSpace(model.Fold(raw))
	if text == "" {
		return f
	}

	b := extractPrice(text)
	f.MinPrice, f.MaxPrice = b.min, b.max

	tokens := tokenize(b.rest)
	tokens = drop(tokens, p.stop)
	tokens = p.substitute(tokens)

	for _, t := range tokens {
		if p.markers.has(t) {
			f.IsBrandSearch = true
			break
		}
	}
	if f.IsBrandSearch {
		tokens = drop(drop(tokens, p.markers), p.fillers)
	}

	f.CleanedText = strings.Join(tokens, " ")
	return f
}

// substitute replaces alias phrases in a single left-to-right pass. Replacement
// output is never rescanned.
func (p *Parser) substitute(tokens []string) []string {
	if len(p.aliases) == 0 {
		return tokens
	}
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		matched := false
		for _, rule := range p.aliases {
			if hasPrefix(tokens[i:], rule.from) {
				out = append(out, rule.to...)
				i += len(rule.from)
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, tokens[i])
			i++
		}
	}
	return out
}

func hasPrefix(tokens, phrase []string) bool {
	if len(phrase) > len(tokens) {
		return false
	}
	for i, w := range phrase {
		if tokens[i] != w {
			return false
		}
	}
	return true
}

func drop(tokens []string, set wordSet) []string {
	out := tokens[:0:0]
	for _, t := range tokens {
		if !set.has(t) {
			out = append(out, t)
		}
	}
	return out
}

// tokenize splits on anything but letters, digits, hyphens and dots, then trims
// hyphens and dots from the token edges ("сейф-двери" and "2.1" survive).
func tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '.'
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "-."); f != "" {
			out = append(out, f)
		}
	}
	return out
}
