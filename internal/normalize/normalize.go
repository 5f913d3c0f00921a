// Package normalize turns loosely-typed feed rows into canonical product records.
package normalize

import (
	"strings"

	"github.com/google/uuid"

	"github.com/dveri-ekat/door-assistant/internal/model"
)

// Row is one feed row keyed by its column header.
type Row map[string]string

// Schema lists, per canonical field, the column names used across feed revisions.
// Aliases are tried in order; the first one with a non-blank value wins.
type Schema struct {
	Title       []string `yaml:"title"`
	ID          []string `yaml:"id"`
	Price       []string `yaml:"price"`
	URL         []string `yaml:"url"`
	Description []string `yaml:"description"`
	Category    []string `yaml:"category"`

	// PropertyPrefixes mark "parameter" columns. The prefix is stripped to form the key.
	PropertyPrefixes []string `yaml:"property_prefixes"`
}

// DefaultSchema returns the aliases seen in the store's marketplace export so far.
func DefaultSchema() Schema {
	return Schema{
		Title:       []string{"Название товара или услуги", "Название товара", "Наименование", "Название", "Товар", "title", "name"},
		ID:          []string{"ID товара", "ID", "Идентификатор", "Артикул", "Код", "id", "sku"},
		Price:       []string{"Цена продажи", "Цена", "Цена, руб.", "Стоимость", "price"},
		URL:         []string{"URL", "Ссылка на товар", "Ссылка", "url", "link"},
		Description: []string{"Описание", "Дополнительное описание", "Краткое описание", "description"},
		Category:    []string{"Категория", "Категория товара", "Раздел", "category"},
		PropertyPrefixes: []string{
			"Параметр:",
			"Характеристика:",
			"Свойство:",
		},
	}
}

// Normalizer maps raw rows onto model.ProductRecord using a Schema.
type Normalizer struct {
	schema Schema
	newID  func() string
}

// New creates a Normalizer. Empty alias lists fall back to DefaultSchema.
func New(schema Schema) *Normalizer {
	def := DefaultSchema()
	fill := func(dst *[]string, src []string) {
		if len(*dst) == 0 {
			*dst = src
		}
	}
	fill(&schema.Title, def.Title)
	fill(&schema.ID, def.ID)
	fill(&schema.Price, def.Price)
	fill(&schema.URL, def.URL)
	fill(&schema.Description, def.Description)
	fill(&schema.Category, def.Category)
	fill(&schema.PropertyPrefixes, def.PropertyPrefixes)

	return &Normalizer{
		schema: schema,
		newID:  func() string { return "auto-" + uuid.NewString() },
	}
}

// Normalize converts rows into product records. Rows without a resolvable title
// are dropped; every other gap degrades to a fallback value.
func (n *Normalizer) Normalize(rows []Row) []model.ProductRecord {
	products := make([]model.ProductRecord, 0, len(rows))
	for _, row := range rows {
		p, ok := n.record(row)
		if !ok {
			continue
		}
		products = append(products, p)
	}
	return products
}

func (n *Normalizer) record(row Row) (model.ProductRecord, bool) {
	folded := foldKeys(row)

	title := lookup(folded, n.schema.Title)
	if title == "" {
		return model.ProductRecord{}, false
	}

	id := lookup(folded, n.schema.ID)
	if id == "" {
		id = n.newID()
	}
	price := lookup(folded, n.schema.Price)
	if price == "" {
		price = model.PriceOnRequest
	}

	return model.ProductRecord{
		ID:          id,
		Title:       title,
		Price:       price,
		URL:         lookup(folded, n.schema.URL),
		Description: lookup(folded, n.schema.Description),
		Category:    lookup(folded, n.schema.Category),
		Properties:  n.properties(row),
	}, true
}

func (n *Normalizer) properties(row Row) map[string]string {
	props := make(map[string]string)
	for col, val := range row {
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		name := strings.TrimSpace(col)
		for _, prefix := range n.schema.PropertyPrefixes {
			if len(name) < len(prefix) || !strings.EqualFold(name[:len(prefix)], prefix) {
				continue
			}
			key := strings.TrimSpace(name[len(prefix):])
			if key != "" {
				props[key] = val
			}
			break
		}
	}
	return props
}

// foldKeys indexes a row by trimmed, lower-cased header.
func foldKeys(row Row) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		key := strings.ToLower(strings.TrimSpace(k))
		if _, dup := out[key]; dup && strings.TrimSpace(v) == "" {
			continue
		}
		out[key] = v
	}
	return out
}

func lookup(folded map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v := strings.TrimSpace(folded[strings.ToLower(alias)]); v != "" {
			return v
		}
	}
	return ""
}

// RowsFromTable converts a decoded sheet into rows. The first non-blank row holds
// the headers; columns with a blank header and rows with no values are skipped.
func RowsFromTable(table [][]string) []Row {
	start := -1
	for i, r := range table {
		if !blank(r) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	headers := make([]string, len(table[start]))
	for i, h := range table[start] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(table)-start-1)
	for _, cells := range table[start+1:] {
		if blank(cells) {
			continue
		}
		row := make(Row, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(cells) {
				continue
			}
			// Duplicate headers: keep the first non-blank value.
			if prev, ok := row[h]; ok && strings.TrimSpace(prev) != "" {
				continue
			}
			row[h] = cells[i]
		}
		rows = append(rows, row)
	}
	return rows
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
