package dashboard

import (
	"html/template"
	"strings"
	"unicode/utf8"
)

// Matches reports whether any field contains term, ignoring case. An empty
// term matches everything.
func Matches(term string, fields ...string) bool {
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Filter keeps the items whose searchable fields match term.
func Filter[T any](items []T, term string, fields func(T) []string) []T {
	if term == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if Matches(term, fields(it)...) {
			out = append(out, it)
		}
	}
	return out
}

// Highlight escapes text and wraps every case-insensitive occurrence of term
// in <mark>. The term is matched literally.
func Highlight(text, term string) template.HTML {
	if term == "" {
		return template.HTML(template.HTMLEscapeString(text))
	}

	termLen := utf8.RuneCountInString(term)
	var b strings.Builder
	rest := text
	for rest != "" {
		end, ok := prefixFold(rest, term, termLen)
		if ok {
			b.WriteString("<mark>")
			b.WriteString(template.HTMLEscapeString(rest[:end]))
			b.WriteString("</mark>")
			rest = rest[end:]
			continue
		}
		_, size := utf8.DecodeRuneInString(rest)
		b.WriteString(template.HTMLEscapeString(rest[:size]))
		rest = rest[size:]
	}
	return template.HTML(b.String())
}

// prefixFold reports whether s starts with term under case folding and
// returns the byte length of the matching prefix of s.
func prefixFold(s, term string, termLen int) (int, bool) {
	end := 0
	for i := 0; i < termLen; i++ {
		if end >= len(s) {
			return 0, false
		}
		_, size := utf8.DecodeRuneInString(s[end:])
		end += size
	}
	return end, strings.EqualFold(s[:end], term)
}
