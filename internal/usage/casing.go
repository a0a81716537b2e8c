package usage

import "strings"

// Kebabize converts a PascalCase or camelCase identifier to kebab-case.
// Uppercase runs are treated as one word unless the last letter starts a
// lowercase word: "HTMLButton" becomes "html-button". Characters other than
// ASCII letters are kept, so "update:modelValue" becomes "update:model-value".
func Kebabize(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	write := func(word string, offset int) {
		if offset > 0 {
			b.WriteByte('-')
		}
		b.WriteString(strings.ToLower(word))
	}
	for i := 0; i < len(s); {
		if !isUpper(s[i]) {
			b.WriteByte(s[i])
			i++
			continue
		}
		j := i
		for j < len(s) && isUpper(s[j]) {
			j++
		}
		switch {
		case j == len(s) || !isLower(s[j]):
			write(s[i:j], i)
		case j-i > 1:
			write(s[i:j-1], i)
			write(s[j-1:j], j-1)
		default:
			write(s[i:j], i)
		}
		i = j
	}
	return b.String()
}

// Camelize converts a kebab-case identifier to camelCase.
func Camelize(s string) string {
	if !strings.Contains(s, "-") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '-' && i+1 < len(s) && isWord(s[i+1]) {
			b.WriteString(strings.ToUpper(s[i+1 : i+2]))
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// spellings returns the distinct spellings a template may use for name:
// as declared, kebab-cased and camelized.
func spellings(name string) []string {
	forms := []string{name}
	for _, f := range []string{Kebabize(name), Camelize(name)} {
		dup := false
		for _, seen := range forms {
			if seen == f {
				dup = true
				break
			}
		}
		if !dup {
			forms = append(forms, f)
		}
	}
	return forms
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

func isWord(c byte) bool {
	return isUpper(c) || isLower(c) || (c >= '0' && c <= '9') || c == '_'
}
