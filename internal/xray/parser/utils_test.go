package parser

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeBase64(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"aGVsbG8=", "hello"},
		{"aGVsbG8", "hello"},
		{"aGVsbG8==", "hello"},
		{"Pz8_", "???"},
		{"Pz8/", "???"},
	}
	for _, tc := range cases {
		got, err := DecodeBase64(tc.in)
		if err != nil {
			t.Fatalf("DecodeBase64(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("DecodeBase64(%q)=%q, want=%q", tc.in, got, tc.want)
		}
	}
	if _, err := DecodeBase64("!!!"); err == nil {
		t.Fatalf("expected error for invalid input")
	}
}

func TestEncodeBase64URL(t *testing.T) {
	got := EncodeBase64URL("???")
	if got != "Pz8_" {
		t.Fatalf("got=%q, want=%q", got, "Pz8_")
	}
}

func TestPercentDecode(t *testing.T) {
	if got := PercentDecode("Node%201"); got != "Node 1" {
		t.Fatalf("got=%q, want=%q", got, "Node 1")
	}
	if got := PercentDecode("100%"); got != "100%" {
		t.Fatalf("got=%q, want input unchanged", got)
	}
}

func TestParseJSON(t *testing.T) {
	for _, bad := range []string{"", "nope", "[1,2]", `{"a":`, "null"} {
		if m := ParseJSON(bad); m != nil {
			t.Fatalf("ParseJSON(%q)=%v, want nil", bad, m)
		}
	}
	m := ParseJSON(`{"port":443,"aid":"7","tls":true}`)
	f := jsonFields(m)
	if f.int("port") != 443 || f.int("aid") != 7 {
		t.Fatalf("port=%d aid=%d", f.int("port"), f.int("aid"))
	}
	if f.str("tls") != "true" || f.str("missing") != "" {
		t.Fatalf("tls=%q missing=%q", f.str("tls"), f.str("missing"))
	}
}

func TestQueryBuilder_KeepsOrder(t *testing.T) {
	var q queryBuilder
	q.Add("z", "1")
	q.Add("a", "a b&c")
	if got, want := q.Encode(), "z=1&a=a+b%26c"; got != want {
		t.Fatalf("got=%q, want=%q", got, want)
	}
}

func TestValidate(t *testing.T) {
	ok := NewDescriptor("ok", &VlessPayload{Add: "h", Port: 443, ID: NewID()})
	if err := Validate(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := NewDescriptor("", &VmessPayload{Port: 70000, ID: strings.Repeat("x", 31)})
	err := Validate(bad)
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, frag := range []string{"display name", "address", "port", "id"} {
		if !strings.Contains(err.Error(), frag) {
			t.Fatalf("error %q does not mention %s", err, frag)
		}
	}

	ss := NewDescriptor("ss", &ShadowsocksPayload{Add: "h", Port: 1})
	if err := Validate(ss); err == nil || !strings.Contains(err.Error(), "password") {
		t.Fatalf("err=%v, want password complaint", err)
	}

	if err := Validate(&Descriptor{Protocol: "wireguard"}); !errors.Is(err, ErrUnknownProtocol) {
		t.Fatalf("err=%v, want ErrUnknownProtocol", err)
	}
}
