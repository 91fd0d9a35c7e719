package exercise

import (
	"strconv"
	"strings"
)

// Resolve renders every [expression] token in text against the variable
// table, replacing it with the rounded integer result. A token whose
// expression fails to evaluate stays in the text unchanged, brackets
// included, so a typo in a template degrades visibly instead of silently.
func Resolve(text string, vars map[string]float64) string {
	if !strings.ContainsRune(text, '[') {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for {
		open := strings.IndexByte(text, '[')
		if open < 0 {
			b.WriteString(text)
			return b.String()
		}
		end := strings.IndexByte(text[open:], ']')
		if end < 0 {
			b.WriteString(text)
			return b.String()
		}
		end += open
		b.WriteString(text[:open])
		token := text[open : end+1]
		if v, err := Eval(text[open+1:end], vars); err == nil {
			b.WriteString(strconv.Itoa(Round(v)))
		} else {
			b.WriteString(token)
		}
		text = text[end+1:]
	}
}

// ResolveAll renders a list of exercise lines.
func ResolveAll(lines []string, vars map[string]float64) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = Resolve(l, vars)
	}
	return out
}
