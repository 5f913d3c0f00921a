package query

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/dveri-ekat/door-assistant/internal/collection"
)

// Vocabulary is the data the parser runs on: colloquial aliases, brand intent
// markers and the filler words dropped from queries.
type Vocabulary struct {
	// Aliases maps a colloquial word or phrase to its canonical spelling.
	Aliases map[string]string `yaml:"aliases"`
	// BrandMarkers flag a manufacturer question ("какая фабрика").
	BrandMarkers []string `yaml:"brand_markers"`
	// BrandFillers are interrogatives dropped only from brand questions.
	BrandFillers []string `yaml:"brand_fillers"`
	// StopWords carry no matching value and are always dropped.
	StopWords   []string           `yaml:"stop_words"`
	Collections []collection.Entry `yaml:"collections"`
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Aliases: map[string]string{
			"профиль дорс": "profildoors",
			"профильдорс":  "profildoors",
			"пд":           "profildoors",
			"бульдорс":     "bulldors",
			"бульдоры":     "bulldors",
			"торекс":       "torex",
			"гардиан":      "guardian",
			"экошпон":      "эко шпон",
			"эко-шпон":     "эко шпон",
		},
		BrandMarkers: []string{
			"фабрика", "фабрики", "фабрику", "фабрикой", "фабрик",
			"производитель", "производителя", "производители", "производителей",
			"изготовитель", "изготовителя",
			"бренд", "бренда", "бренды", "брендов",
			"марка", "марки", "марку",
			"завод", "завода",
		},
		BrandFillers: []string{
			"какая", "какой", "какие", "каких", "какую", "каким",
			"чей", "чья", "чьи", "чье",
			"кто", "что", "за", "у", "вас", "есть", "это",
		},
		StopWords: []string{
			"двери", "дверь", "дверей", "дверки",
			"покажи", "покажите", "подбери", "подберите", "найди", "найдите",
			"хочу", "нужна", "нужны", "нужно", "нужен",
			"пожалуйста", "мне", "please",
			"цена", "ценой", "цене", "стоимость", "стоимостью",
			"руб", "рубль", "рублей", "рубля", "р",
		},
		Collections: collection.DefaultEntries(),
	}
}

// LoadVocabulary reads a vocabulary YAML file and merges it over the defaults.
// Aliases are added to the built-in table (file entries win); any list present in
// the file replaces the built-in list.
func LoadVocabulary(path string) (Vocabulary, error) {
	v := DefaultVocabulary()

	data, err := os.ReadFile(path)
	if err != nil {
		return v, eris.Wrapf(err, "vocabulary: read %s", path)
	}

	// The YAML has a top-level "vocabulary" key
	var wrapper struct {
		Vocabulary Vocabulary `yaml:"vocabulary"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return v, eris.Wrap(err, "vocabulary: parse")
	}

	file := wrapper.Vocabulary
	for k, val := range file.Aliases {
		v.Aliases[k] = val
	}
	if len(file.BrandMarkers) > 0 {
		v.BrandMarkers = file.BrandMarkers
	}
	if len(file.BrandFillers) > 0 {
		v.BrandFillers = file.BrandFillers
	}
	if len(file.StopWords) > 0 {
		v.StopWords = file.StopWords
	}
	if len(file.Collections) > 0 {
		v.Collections = file.Collections
	}
	return v, nil
}
