package xray

import (
	"reflect"
	"testing"
)

func TestExtractLinks(t *testing.T) {
	text := "Fresh configs:\r\n" +
		"<p>vless://id@h.example:443?security=tls#Node%201</p>\n" +
		"trojan://pw@[2001:db8::1]:443, and vmess://eyJhZGQiOiJoIn0=.\n" +
		"dup: vless://id@h.example:443?security=tls#Node%201\n" +
		"not ours: hysteria2://x@h:1 http://example.com class://nope\n" +
		"SS://YWVzLTI1Ni1nY206cHc@s.example:8388"
	want := []string{
		"vless://id@h.example:443?security=tls#Node%201",
		"trojan://pw@[2001:db8::1]:443",
		"vmess://eyJhZGQiOiJoIn0=",
		"SS://YWVzLTI1Ni1nY206cHc@s.example:8388",
	}
	if got := ExtractLinks(text); !reflect.DeepEqual(got, want) {
		t.Fatalf("got=%q, want=%q", got, want)
	}
	if got := ExtractLinks(""); len(got) != 0 {
		t.Fatalf("got=%q, want empty", got)
	}
}
