// Package rank scores catalog records against a parsed query.
package rank

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/dveri-ekat/door-assistant/internal/model"
)

type entry struct {
	rec      model.ProductRecord
	title    string
	category string
	props    string
	price    float64
	priced   bool
}

// Index holds folded, precomputed match fields for one catalog snapshot. It is
// immutable after construction.
type Index struct {
	entries []entry
}

// NewIndex folds titles, categories and serialized properties once per
// snapshot. Products keep their catalog order.
func NewIndex(products []model.ProductRecord) *Index {
	ix := &Index{entries: make([]entry, 0, len(products))}
	for _, p := range products {
		e := entry{
			rec:      p,
			title:    model.Fold(p.Title),
			category: model.Fold(p.Category),
		}
		if props, ok := serializeProperties(p.Properties); ok {
			e.props = model.Fold(props)
		}
		e.price, e.priced = p.NumericPrice()
		ix.entries = append(ix.entries, e)
	}
	return ix
}

// Lookup returns the record with the given id.
func (ix *Index) Lookup(id string) (model.ProductRecord, bool) {
	if ix == nil {
		return model.ProductRecord{}, false
	}
	for _, e := range ix.entries {
		if e.rec.ID == id {
			return e.rec, true
		}
	}
	return model.ProductRecord{}, false
}

func serializeProperties(props map[string]string) (string, bool) {
	if len(props) == 0 {
		return "", false
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(props); err != nil {
		return "", false
	}
	return strings.TrimSpace(buf.String()), true
}
