package release

import (
	"regexp"
	"strings"
)

var (
	nonWordPattern    = regexp.MustCompile("[^A-Za-z0-9_]+")
	whitespacePattern = regexp.MustCompile(" +")
	skippedSymbols    = strings.NewReplacer(",", "", "'", "", "(", "", ")", "")
)

// ShowID maps a release category like "Show Title - 1080" to the show slug
// used by the show pages. The segment after the last dash is the resolution
// or episode and is dropped.
func ShowID(category string) (string, bool) {
	end := strings.LastIndex(category, "-")
	if end == -1 {
		return "", false
	}
	id := strings.ToLower(category[:end])
	id = skippedSymbols.Replace(id)
	id = nonWordPattern.ReplaceAllString(id, " ")
	id = whitespacePattern.ReplaceAllString(id, "-")
	id = strings.TrimPrefix(id, "-")
	id = strings.TrimSuffix(id, "-")
	return id, true
}
