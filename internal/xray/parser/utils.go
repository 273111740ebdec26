package parser

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DecodeBase64 attempts to decode standard and URL-safe base64 strings,
// automatically fixing missing padding.
func DecodeBase64(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	s = strings.TrimRight(s, "=")
	if n := len(s) % 4; n != 0 {
		s += strings.Repeat("=", 4-n)
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return string(b), nil
	}
	b, err = base64.URLEncoding.DecodeString(s)
	if err == nil {
		return string(b), nil
	}
	return "", err
}

// decodeText is DecodeBase64 restricted to results that are valid UTF-8.
// Random strings often decode to binary garbage under the URL alphabet.
func decodeText(s string) (string, bool) {
	out, err := DecodeBase64(s)
	if err != nil || out == "" || !utf8.ValidString(out) {
		return "", false
	}
	return out, true
}

// EncodeBase64URL encodes s with the URL-safe alphabet and no padding.
func EncodeBase64URL(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

// PercentDecode unescapes %XX sequences, returning s unchanged if it is not
// validly escaped.
func PercentDecode(s string) string {
	out, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return out
}

// FixIllegalUrl cleans up common issues in scraped links.
func FixIllegalUrl(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}

// ParseJSON decodes a JSON object and returns nil for anything else.
// Numbers are kept as json.Number so string and numeric ports read alike.
func ParseJSON(s string) map[string]any {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil
	}
	return m
}

// jsonFields reads loosely typed values out of a share-link JSON body.
type jsonFields map[string]any

func (f jsonFields) str(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func (f jsonFields) int(key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(f.str(key)))
	if err != nil {
		return 0
	}
	return n
}

// parsePort resolves a port string; absent or out of range ports are 0.
func parsePort(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 65535 {
		return 0
	}
	return n
}

// queryBuilder writes query parameters in insertion order. url.Values
// sorts keys on Encode, which would break the fixed per-protocol order.
type queryBuilder struct {
	buf bytes.Buffer
}

func (q *queryBuilder) Add(key, value string) {
	if q.buf.Len() > 0 {
		q.buf.WriteByte('&')
	}
	q.buf.WriteString(url.QueryEscape(key))
	q.buf.WriteByte('=')
	q.buf.WriteString(url.QueryEscape(value))
}

func (q *queryBuilder) Encode() string {
	return q.buf.String()
}
