package teams

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases, strips diacritics, collapses whitespace,
// then resolves through the given alias map. The result is the canonical
// key under which a team's rating state is stored, so every data source
// (odds feed, results feed, historical CSV) must pass through here before
// touching the ratings arena.
func Normalize(s string, aliases map[string]string) string {
	if s == "" {
		return ""
	}
	s = stripDiacritics(s)
	s = strings.ToLower(strings.TrimSpace(s))
	s = collapseWhitespace(s)
	if canonical, ok := aliases[s]; ok {
		return canonical
	}
	return s
}

// Key normalizes a raw team name against the sport's alias table.
func Key(sport, name string) string {
	return Normalize(name, AliasesFor(sport))
}

// AliasesFor returns the alias map for a sport; unknown sports get no aliases.
func AliasesFor(sport string) map[string]string {
	switch sport {
	case "soccer":
		return SoccerAliases
	case "basketball":
		return BasketballAliases
	default:
		return nil
	}
}

func stripDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) { // Mn = Mark, Nonspacing (combining accents)
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
