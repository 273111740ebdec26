package routing

import (
	"strings"

	"github.com/samber/lo"
)

// processLines splits a newline separated list, trims every entry, drops
// blanks and keeps the first occurrence of duplicates.
func processLines(text string) []string {
	return splitList(text, func(r rune) bool { return r == '\n' || r == '\r' })
}

// processList is processLines that also splits on commas.
func processList(text string) []string {
	return splitList(text, func(r rune) bool { return r == '\n' || r == '\r' || r == ',' })
}

func splitList(text string, sep func(rune) bool) []string {
	parts := lo.FilterMap(strings.FieldsFunc(text, sep), func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	})
	if len(parts) == 0 {
		return nil
	}
	return lo.Uniq(parts)
}
