package publishers

import (
	"encoding/base64"
	"fmt"
	"strings"

	"dray/internal/logger"
	"dray/internal/xray/parser"
)

// CountryFunc resolves a server address to an ISO country code, or "".
type CountryFunc func(host string) string

// GenerateSubscriptionPayload renders servers as a subscription body.
// Params: format ("uri" or "base64" links), base64 (wrap the whole body),
// flags (prefix names with the country flag, needs "_country").
func GenerateSubscriptionPayload(servers []*parser.Descriptor, params map[string]interface{}) (string, error) {
	format, _ := params["format"].(string)
	if format == "" {
		format = "uri"
	}
	if format != "uri" && format != "base64" {
		return "", fmt.Errorf("unknown link format %q", format)
	}
	flags, _ := params["flags"].(bool)
	country, _ := params["_country"].(CountryFunc)

	seen := make(map[string]bool, len(servers))
	lines := make([]string, 0, len(servers))
	for _, d := range servers {
		if d == nil || seen[d.ContentHash] {
			continue
		}
		seen[d.ContentHash] = true

		if flags && country != nil && d.Payload != nil {
			host, _ := d.Payload.Endpoint()
			d = d.Rename(fmt.Sprintf("%s %s", getFlagEmoji(country(host)), d.DisplayName))
		}

		var line string
		if format == "base64" {
			line = d.Base64URI()
		} else {
			line = d.URI()
		}
		if line == "" {
			logger.Log.Debugf("Publisher dropped server %q", d.DisplayName)
			continue
		}
		lines = append(lines, line)
	}

	finalText := strings.Join(lines, "\n")
	if useBase64, _ := params["base64"].(bool); useBase64 {
		return base64.StdEncoding.EncodeToString([]byte(finalText)), nil
	}
	return finalText, nil
}

func getFlagEmoji(countryCode string) string {
	if len(countryCode) != 2 {
		return "🌐"
	}
	countryCode = strings.ToUpper(countryCode)
	return string(rune(countryCode[0])+127397) + string(rune(countryCode[1])+127397)
}
