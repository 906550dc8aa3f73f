package crash

import (
	"regexp"
	"strings"
)

var (
	bracketChars = regexp.MustCompile(`[{()}]`)
	wordBreak    = regexp.MustCompile(`[-\s]`)
)

// Cleanse normalizes an area name so that boundary names and crash record
// names compare equal: brackets are removed, underscores become spaces, and
// each word is title-cased. Hyphenated words are joined with a space.
func Cleanse(name string) string {
	s := bracketChars.ReplaceAllString(strings.TrimSpace(name), "")
	s = strings.ReplaceAll(s, "_", " ")
	return titleCase(s)
}

func titleCase(s string) string {
	if s == "" {
		return ""
	}
	words := wordBreak.Split(strings.ToLower(s), -1)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// areaSuffixes are designations that appear in crash records but not in the
// boundary data. Longer suffixes come first.
var areaSuffixes = []string{" Alpine Resort", " Uninc"}

// StripAreaSuffix removes a trailing designation such as " Uninc" from a
// cleansed area name.
func StripAreaSuffix(name string) string {
	for _, suffix := range areaSuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(name, suffix))
		}
	}
	return name
}
