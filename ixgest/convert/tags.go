package convert

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/team-monumental/monuments-and-memorials-sub000/monument"
)

// CleanTagName trims name and upper-cases its first character. The rest of
// the name is left as written.
func CleanTagName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	first, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(first)) + name[size:]
}

// splitNames splits a comma separated cell into cleaned, non-empty names,
// dropping case-insensitive repeats.
func splitNames(cell string, into []string) []string {
	for _, part := range strings.Split(cell, ",") {
		name := CleanTagName(part)
		if name == "" {
			continue
		}
		into = monument.AddName(into, name)
	}
	return into
}
