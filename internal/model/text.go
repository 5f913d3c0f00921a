package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var yoReplacer = strings.NewReplacer("ё", "е")

// Fold lower-cases s with Russian casing rules, maps ё to е and repairs
// invalid UTF-8. Query text and indexed fields go through the same fold so
// substring matching is case-insensitive.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, " ")
	// A Caser is stateful, so one is built per call.
	return yoReplacer.Replace(cases.Lower(language.Russian).String(s))
}
