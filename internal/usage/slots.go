package usage

import (
	"regexp"
	"strings"
)

const defaultSlot = "default"

func slotRules() []Rule[Slot] {
	return []Rule[Slot]{
		{Name: "shorthand", Match: func(el *Element, s Slot) bool {
			return anySpelling(s.Name, func(f string) bool {
				return strings.Contains(el.inner, "#"+f) ||
					strings.Contains(el.inner, "v-slot:"+f) ||
					el.hasDirective("#"+f) ||
					el.hasDirective("v-slot:"+f)
			})
		}},
		{Name: "object-binding", Match: func(el *Element, _ Slot) bool {
			return el.HasAttr("v-slot") ||
				strings.Contains(el.inner, "#[") ||
				strings.Contains(el.inner, "v-slot:[")
		}},
		{Name: "pattern", Match: func(el *Element, s Slot) bool {
			if el.inner == "" {
				return false
			}
			re := slotPattern(s.Name)
			return re != nil && re.MatchString(el.inner)
		}},
		{Name: "implicit-default", Match: func(el *Element, s Slot) bool {
			return s.Name == defaultSlot && el.defaultContent
		}},
	}
}

// slotPattern matches a <slot name="..."> declaration or a
// <template #name> / <template v-slot:name> block, optionally followed by a
// scoped binding, case-insensitively.
func slotPattern(name string) *regexp.Regexp {
	alts := make([]string, 0, 3)
	for _, f := range spellings(name) {
		alts = append(alts, regexp.QuoteMeta(f))
	}
	names := "(" + strings.Join(alts, "|") + ")"
	re, err := regexp.Compile(`(?i)<slot[^>]+name=["']` + names + `["']` +
		`|<(?:template|` + templateSentinel + `)\s+(?:#|v-slot:)` + names + `(\s*=\s*"\{[^}]*\}")?`)
	if err != nil {
		return nil
	}
	return re
}
