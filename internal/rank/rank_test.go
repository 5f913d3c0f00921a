package rank

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dveri-ekat/door-assistant/internal/model"
)

func filter(text string) model.QueryFilter {
	f := model.DefaultQueryFilter()
	f.CleanedText = text
	return f
}

func ids(results []model.ScoredProduct) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.ID)
	}
	return out
}

func TestRank_PriceOnlyPath(t *testing.T) {
	ix := NewIndex([]model.ProductRecord{
		{ID: "c", Title: "Дверь Люкс", Price: "25000", URL: "/c"},
		{ID: "b", Title: "Дверь Стандарт", Price: "18 000", URL: "/b"},
		{ID: "a", Title: "Дверь Эконом", Price: "12000", URL: "/a"},
		{ID: "nolink", Title: "Дверь Без ссылки", Price: "15000"},
		{ID: "onrequest", Title: "Дверь Под заказ", Price: model.PriceOnRequest, URL: "/r"},
	})
	f := model.DefaultQueryFilter()
	f.MinPrice, f.MaxPrice = 10000, 20000

	got := Rank(ix, f, DefaultLimit)
	assert.Equal(t, []string{"a", "b"}, ids(got))
	for _, r := range got {
		assert.Zero(t, r.Score)
	}
}

func TestRank_PriceOnlyTruncates(t *testing.T) {
	var products []model.ProductRecord
	for i := 20; i > 0; i-- {
		products = append(products, model.ProductRecord{
			ID: fmt.Sprint(i), Title: "Дверь", Price: fmt.Sprint(i * 1000), URL: "/p",
		})
	}
	f := model.DefaultQueryFilter()
	f.MaxPrice = 100000

	got := Rank(NewIndex(products), f, 3)
	assert.Equal(t, []string{"1", "2", "3"}, ids(got))
}

func TestRank_WeightsOrdering(t *testing.T) {
	ix := NewIndex([]model.ProductRecord{
		{ID: "props", Title: "Модель 1", Category: "Входные", Properties: map[string]string{"Цвет": "Венге"}},
		{ID: "category", Title: "Модель 2", Category: "Венге коллекция"},
		{ID: "title", Title: "Дверь Венге", Category: "Межкомнатные"},
		{ID: "none", Title: "Дверь Белая", Category: "Межкомнатные"},
	})

	got := Rank(ix, filter("венге"), DefaultLimit)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"title", "category", "props"}, ids(got))
	assert.Equal(t, TitleWeight, got[0].Score)
	assert.Equal(t, CategoryWeight, got[1].Score)
	assert.Equal(t, PropertiesWeight, got[2].Score)
}

func TestRank_ScoresAccumulate(t *testing.T) {
	ix := NewIndex([]model.ProductRecord{
		{ID: "1", Title: "Гранит", Category: "Гранит", Properties: map[string]string{"Серия": "Гранит"}},
	})
	got := Rank(ix, filter("гранит"), 1)
	require.Len(t, got, 1)
	assert.Equal(t, TitleWeight+CategoryWeight+PropertiesWeight, got[0].Score)
}

func TestRank_BrandBonus(t *testing.T) {
	ix := NewIndex([]model.ProductRecord{
		{ID: "title", Title: "Дверь Торекс-стиль"},
		{ID: "maker", Title: "Дверь Сталь", Properties: map[string]string{"Производитель": "Торекс"}},
	})

	plain := Rank(ix, filter("торекс"), DefaultLimit)
	assert.Equal(t, []string{"title", "maker"}, ids(plain))

	f := filter("торекс")
	f.IsBrandSearch = true
	brand := Rank(ix, f, DefaultLimit)
	assert.Equal(t, []string{"maker", "title"}, ids(brand))
	assert.Equal(t, BrandPropertiesWeight, brand[0].Score)
}

func TestRank_BrandWithoutTextIsEmpty(t *testing.T) {
	ix := NewIndex([]model.ProductRecord{{ID: "1", Title: "Дверь", Price: "100", URL: "/1"}})
	f := model.DefaultQueryFilter()
	f.IsBrandSearch = true
	f.MaxPrice = 1000

	assert.Empty(t, Rank(ix, f, DefaultLimit))
}

func TestRank_StableTies(t *testing.T) {
	var products []model.ProductRecord
	for i := range 10 {
		products = append(products, model.ProductRecord{ID: fmt.Sprint(i), Title: "Белая дверь"})
	}
	got := Rank(NewIndex(products), filter("белая"), 4)
	assert.Equal(t, []string{"0", "1", "2", "3"}, ids(got))
}

func TestRank_TextWithPriceBound(t *testing.T) {
	ix := NewIndex([]model.ProductRecord{
		{ID: "cheap", Title: "Белая дверь", Price: "9000"},
		{ID: "pricey", Title: "Белая дверь", Price: "40000"},
		{ID: "unknown", Title: "Белая дверь", Price: model.PriceOnRequest},
	})
	f := filter("белая")
	f.MaxPrice = 10000

	assert.Equal(t, []string{"cheap"}, ids(Rank(ix, f, DefaultLimit)))
}

func TestRank_EmptyInputs(t *testing.T) {
	ix := NewIndex([]model.ProductRecord{{ID: "1", Title: "Дверь", URL: "/1", Price: "1"}})

	assert.Empty(t, Rank(ix, filter(""), DefaultLimit))
	assert.Empty(t, Rank(ix, filter("   "), DefaultLimit))
	assert.Empty(t, Rank(nil, filter("дверь"), DefaultLimit))
	assert.Empty(t, Rank(NewIndex(nil), filter("дверь"), DefaultLimit))
	assert.NotNil(t, Rank(ix, filter("нет такого"), DefaultLimit))
}

func TestRank_LengthNeverExceedsLimit(t *testing.T) {
	var products []model.ProductRecord
	for i := range 50 {
		products = append(products, model.ProductRecord{
			ID: fmt.Sprint(i), Title: "Дверь", Category: "Дверь", Price: fmt.Sprint(i), URL: "/x",
		})
	}
	ix := NewIndex(products)
	priced := model.DefaultQueryFilter()
	priced.MaxPrice = math.MaxFloat64

	for _, limit := range []int{-1, 0, 1, 5, 7, 49, 50, 100} {
		for _, f := range []model.QueryFilter{filter("дверь"), priced} {
			got := Rank(ix, f, limit)
			if limit <= 0 {
				assert.Empty(t, got)
				continue
			}
			assert.LessOrEqual(t, len(got), limit)
		}
	}
}

func TestRank_CaseInsensitive(t *testing.T) {
	ix := NewIndex([]model.ProductRecord{{ID: "1", Title: "ДВЕРЬ ЁЛКА"}})
	got := Rank(ix, filter("Елка"), DefaultLimit)
	assert.Len(t, got, 1)
}

func TestIndex_Lookup(t *testing.T) {
	ix := NewIndex([]model.ProductRecord{{ID: "42", Title: "Дверь"}})

	p, ok := ix.Lookup("42")
	require.True(t, ok)
	assert.Equal(t, "Дверь", p.Title)

	_, ok = ix.Lookup("43")
	assert.False(t, ok)

	var nilIndex *Index
	_, ok = nilIndex.Lookup("42")
	assert.False(t, ok)
}

func TestSerializeProperties(t *testing.T) {
	s, ok := serializeProperties(map[string]string{"Размер": "<80x200>"})
	require.True(t, ok)
	assert.Equal(t, `{"Размер":"<80x200>"}`, s)

	_, ok = serializeProperties(nil)
	assert.False(t, ok)
}
