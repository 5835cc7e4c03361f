package subtitle

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// Field selects the record text used for language detection
type Field int

const (
	FieldOriginal Field = iota
	FieldTranslated
)

// DetectLanguage returns the most common language among record texts,
// or language.Und when nothing can be detected.
func DetectLanguage(records []Record, field Field) language.Tag {
	langMap := make(map[string]int)

	for _, rec := range records {
		text := rec.Original
		if field == FieldTranslated {
			text = rec.Translated
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		info := whatlanggo.Detect(text)
		if info.Lang == -1 {
			continue
		}
		lang := info.Lang.Iso6391()
		if lang == "" {
			continue
		}
		langMap[lang]++
	}

	// Get top language, ties broken alphabetically for stable output
	var topLang string
	var topCount int
	for lang, count := range langMap {
		if count > topCount || (count == topCount && lang < topLang) {
			topLang = lang
			topCount = count
		}
	}
	if topLang == "" {
		return language.Und
	}

	tag, err := language.Parse(topLang)
	if err != nil {
		return language.Und
	}
	return tag
}
