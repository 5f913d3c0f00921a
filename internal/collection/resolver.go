// Package collection maps shopper phrases to store collection landing pages.
package collection

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"

	"github.com/dveri-ekat/door-assistant/internal/model"
)

// Entry is one collection landing page and the phrases that point to it.
type Entry struct {
	Title    string   `yaml:"title" json:"title"`
	URL      string   `yaml:"url" json:"url"`
	Keywords []string `yaml:"keywords" json:"-"`
}

// DefaultEntries returns the built-in collections of the storefront.
func DefaultEntries() []Entry {
	return []Entry{
		{Title: "Двери в ванную и санузел", URL: "/collection/dveri-v-vannuyu", Keywords: []string{"ванная", "санузел", "туалет"}},
		{Title: "Белые двери", URL: "/collection/belye-dveri", Keywords: []string{"белые"}},
		{Title: "Двери со стеклом", URL: "/collection/dveri-so-steklom", Keywords: []string{"стекло", "остекление"}},
		{Title: "Скрытые двери", URL: "/collection/skrytye-dveri", Keywords: []string{"скрытые", "инвиз", "инвизибл", "invisible"}},
		{Title: "Сейф-двери", URL: "/collection/seyf-dveri", Keywords: []string{"сейф"}},
		{Title: "Эмалированные двери", URL: "/collection/emalirovannye-dveri", Keywords: []string{"эмаль", "эмалированные"}},
		{Title: "Черный дуб", URL: "/collection/chernyy-dub", Keywords: []string{"черный дуб"}},
		{Title: "Двери с терморазрывом", URL: "/collection/dveri-s-termorazryvom", Keywords: []string{"терморазрыв"}},
	}
}

type phrase []string

type indexedEntry struct {
	Entry
	phrases []phrase
}

// Resolver finds the collection whose keywords best cover a query.
type Resolver struct {
	entries []indexedEntry
}

// NewResolver stems every keyword phrase of entries up front.
func NewResolver(entries []Entry) *Resolver {
	r := &Resolver{}
	for _, e := range entries {
		ie := indexedEntry{Entry: e}
		for _, kw := range e.Keywords {
			if p := stemAll(tokenize(kw)); len(p) > 0 {
				ie.phrases = append(ie.phrases, p)
			}
		}
		r.entries = append(r.entries, ie)
	}
	return r
}

// Resolve returns the entry with the most matched keyword stems. A keyword
// phrase counts only when every one of its stems occurs in the query. Ties go to
// the entry declared first.
func (r *Resolver) Resolve(query string) (Entry, bool) {
	stems := make(map[string]struct{})
	for _, s := range stemAll(tokenize(query)) {
		stems[s] = struct{}{}
	}
	if len(stems) == 0 {
		return Entry{}, false
	}

	best, bestScore := -1, 0
	for i, e := range r.entries {
		score := 0
		for _, p := range e.phrases {
			if containsAll(stems, p) {
				score += len(p)
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Entry{}, false
	}
	return r.entries[best].Entry, true
}

func containsAll(set map[string]struct{}, p phrase) bool {
	for _, s := range p {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}

func tokenize(s string) []string {
	return strings.FieldsFunc(model.Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func stemAll(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, stem(t))
	}
	return out
}

// stem holds no state, so a Resolver never grows with the queries it serves.
func stem(word string) string {
	stemmed, err := snowball.Stem(word, "russian", true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}
