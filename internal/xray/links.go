package xray

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

var regexLink = regexp.MustCompile(`(?i)\b(vmess|vless|trojan|ss)://[a-zA-Z0-9_\-.:@?=&%#+/\[\]~!$*,;]+`)

// ExtractLinks finds share-links of the supported protocols in free text,
// in order of first appearance.
func ExtractLinks(text string) []string {
	var links []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		for _, match := range regexLink.FindAllString(line, -1) {
			if clean := strings.TrimRight(match, ".,;)\""); clean != "" {
				links = append(links, clean)
			}
		}
	}
	return lo.Uniq(links)
}
