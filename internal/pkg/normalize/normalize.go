// Package normalize turns free-text club and provider names into lookup keys
// and resolves them to canonical entities.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Key is a case-folded, accent-free, suffix-free lookup key. Never shown to users.
type Key string

// legalSuffixes are stripped as whole words so "AFC Bournemouth FC" and "Bournemouth" share a key.
var legalSuffixes = map[string]struct{}{
	"fc": {}, "afc": {}, "as": {}, "bk": {}, "rcd": {}, "ac": {}, "bc": {}, "ss": {}, "us": {},
	"ogc": {}, "losc": {}, "krc": {}, "sc": {}, "rb": {}, "cf": {}, "ik": {}, "fk": {}, "sfc": {},
}

// letters NFD cannot decompose into base + mark.
var foldReplacer = strings.NewReplacer(
	"ø", "o", "æ", "ae", "œ", "oe", "ł", "l", "đ", "d", "ð", "d", "þ", "th", "ı", "i",
)

// separators that join words inside club names ("Saint-Germain", "A/S").
var separatorReplacer = strings.NewReplacer(
	"-", " ", "–", " ", "—", " ", "_", " ", "/", " ", "&", " & ",
)

var folder = cases.Fold()

// Normalize builds the lookup key for a raw name. It is pure and idempotent:
// Normalize(string(Normalize(x))) == Normalize(x).
func Normalize(raw string) Key {
	s := folder.String(raw)
	s = stripMarks(s)
	s = foldReplacer.Replace(s)
	s = separatorReplacer.Replace(s)

	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimRight(f, ".")
		if f == "" {
			continue
		}
		// dotted forms too: "f.c." is "fc"
		if _, ok := legalSuffixes[strings.ReplaceAll(f, ".", "")]; ok {
			continue
		}
		out = append(out, f)
	}
	return Key(strings.Join(out, " "))
}

// Slug is the key with spaces replaced by dashes, used as an entity ID.
func Slug(raw string) string {
	return strings.ReplaceAll(string(Normalize(raw)), " ", "-")
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
