package publishers

import (
	"encoding/base64"
	"strings"
	"testing"

	"dray/internal/xray/parser"
)

func servers(t *testing.T, links ...string) []*parser.Descriptor {
	t.Helper()
	var out []*parser.Descriptor
	for _, l := range links {
		d, err := parser.Parse(l)
		if err != nil {
			t.Fatalf("Parse(%q): %v", l, err)
		}
		out = append(out, d)
	}
	return out
}

func TestGenerateSubscriptionPayload(t *testing.T) {
	list := servers(t,
		"trojan://pw@t.example:443#t",
		"vless://id@v.example:443#v",
		"trojan://pw@t.example:443#t-dup",
	)

	got, err := GenerateSubscriptionPayload(list, map[string]interface{}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "trojan://pw@t.example:443#t\nvless://id@v.example:443#v"; got != want {
		t.Fatalf("got=%q, want=%q", got, want)
	}

	wrapped, err := GenerateSubscriptionPayload(list, map[string]interface{}{"base64": true, "format": "base64"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		t.Fatalf("body is not base64: %v", err)
	}
	lines := strings.Split(string(body), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "trojan://") || strings.Contains(lines[0], "@") {
		t.Fatalf("lines=%q", lines)
	}

	if _, err := GenerateSubscriptionPayload(list, map[string]interface{}{"format": "yaml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestGenerateSubscriptionPayload_Flags(t *testing.T) {
	country := CountryFunc(func(host string) string {
		if host == "t.example" {
			return "de"
		}
		return ""
	})
	got, err := GenerateSubscriptionPayload(servers(t, "trojan://pw@t.example:443#t", "vless://id@v.example:443#v"),
		map[string]interface{}{"flags": true, "_country": country})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d0, _ := parser.Parse(strings.Split(got, "\n")[0])
	d1, _ := parser.Parse(strings.Split(got, "\n")[1])
	if d0.DisplayName != "🇩🇪 t" || d1.DisplayName != "🌐 v" {
		t.Fatalf("names=%q,%q", d0.DisplayName, d1.DisplayName)
	}
}
