package usage

import (
	"regexp"
	"strings"
)

// Locate returns every element of f that instantiates the component name,
// matching the tag against name and its kebab-case form case-insensitively.
//
// When the structural pass finds nothing, Locate falls back to scanning the
// raw markup for opening tags. Each textual hit yields a synthetic Element
// with no attributes and no inner markup: it records presence only, and every
// attribute-based rule evaluates false for it.
func Locate(f *Fragment, name string) []*Element {
	if f == nil || name == "" {
		return nil
	}
	kebab := Kebabize(name)

	var found []*Element
	for _, el := range f.elements {
		if strings.EqualFold(el.tag, name) || strings.EqualFold(el.tag, kebab) {
			found = append(found, el)
		}
	}
	if len(found) > 0 || f.raw == "" {
		return found
	}
	return scanOpeningTags(f.raw, name, kebab)
}

func scanOpeningTags(raw, name, kebab string) []*Element {
	pattern := `(?i)<(` + regexp.QuoteMeta(name) + `|` + regexp.QuoteMeta(kebab) + `)[\s>]`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	hits := re.FindAllStringIndex(raw, -1)
	if len(hits) == 0 {
		return nil
	}
	placeholders := make([]*Element, len(hits))
	for i := range hits {
		placeholders[i] = &Element{tag: templateSentinel, synthetic: true}
	}
	return placeholders
}
