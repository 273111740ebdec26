package routing

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func testModes() RuleModeList {
	return RuleModeList{
		{
			Name: "m0",
			Rules: []RuleRow{
				{OutboundTag: OutboundBlock, RuleType: RuleTypeDomain, Domain: "ads.example\n\n ads.example \ntrack.example"},
				{OutboundTag: OutboundDirect, RuleType: RuleTypeIP, IP: "geoip:private\r\n10.0.0.0/8"},
				{
					OutboundTag: OutboundProxy,
					RuleType:    RuleTypeMulti,
					Port:        "80\n443\n80",
					SourcePort:  "1000-2000",
					Network:     " tcp,udp ",
					Protocol:    "http, tls\nbittorrent",
				},
			},
		},
	}
}

func tags(d *Document) []string {
	out := make([]string, len(d.Rules))
	for i, r := range d.Rules {
		out[i] = r.RuleTag
	}
	return out
}

func TestCompile_PriorityOrder(t *testing.T) {
	cfg := RuleConfig{DomainStrategy: StrategyIPIfNonMatch, UnmatchedStrategy: OutboundDirect}
	domain := RuleDomain{Proxy: "a.example", Direct: "b.example", Block: "c.example"}

	doc, err := Compile(cfg, domain, testModes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{TagProxyDomain, TagDirectDomain, TagBlockDomain, "1-block", "2-direct", "3-proxy", TagUnmatched}
	if got := tags(doc); !reflect.DeepEqual(got, want) {
		t.Fatalf("tags=%v, want=%v", got, want)
	}
	if doc.DomainStrategy != StrategyIPIfNonMatch {
		t.Fatalf("domainStrategy=%q", doc.DomainStrategy)
	}
	for _, r := range doc.Rules {
		if r.Type != "field" {
			t.Fatalf("rule %s type=%q", r.RuleTag, r.Type)
		}
	}

	if got, want := doc.Rules[3].Domain, []string{"ads.example", "track.example"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("domain=%v, want=%v", got, want)
	}
	if got, want := doc.Rules[4].IP, []string{"geoip:private", "10.0.0.0/8"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ip=%v, want=%v", got, want)
	}

	multi := doc.Rules[5]
	if multi.Port != "80,443" || multi.SourcePort != "1000-2000" || multi.Network != "tcp,udp" {
		t.Fatalf("multi=%+v", multi)
	}
	if want := []string{"http", "tls", "bittorrent"}; !reflect.DeepEqual(multi.Protocol, want) {
		t.Fatalf("protocol=%v, want=%v", multi.Protocol, want)
	}
	if multi.Domain != nil || multi.IP != nil {
		t.Fatalf("multi carries empty criteria: %+v", multi)
	}

	last := doc.Rules[len(doc.Rules)-1]
	if last.OutboundTag != OutboundDirect || last.Port != "1-65535" {
		t.Fatalf("unmatched=%+v", last)
	}
}

func TestCompile_SkipsEmptyDomainLists(t *testing.T) {
	doc, err := Compile(RuleConfig{}, RuleDomain{Proxy: "a.example", Direct: " \n "}, testModes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{TagProxyDomain, "1-block", "2-direct", "3-proxy"}
	if got := tags(doc); !reflect.DeepEqual(got, want) {
		t.Fatalf("tags=%v, want=%v", got, want)
	}
	if doc.DomainStrategy != StrategyAsIs {
		t.Fatalf("domainStrategy=%q, want=%q", doc.DomainStrategy, StrategyAsIs)
	}
}

func TestCompile_GlobalProxy(t *testing.T) {
	cfg := RuleConfig{GlobalProxy: true, UnmatchedStrategy: OutboundProxy, Mode: 42}
	doc, err := Compile(cfg, RuleDomain{Proxy: "a.example"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Rules) != 1 {
		t.Fatalf("len(rules)=%d, want=1", len(doc.Rules))
	}
	r := doc.Rules[0]
	if r.RuleTag != TagGlobalProxy || r.OutboundTag != OutboundDirect {
		t.Fatalf("rule=%+v", r)
	}
	if r.Domain[0] != "geosite:private" || r.IP[0] != "geoip:private" {
		t.Fatalf("rule=%+v", r)
	}
}

func TestCompile_Inconsistent(t *testing.T) {
	bad := func(mut func(*RuleModeRow)) RuleModeList {
		m := testModes()
		mut(&m[0])
		return m
	}
	cases := []struct {
		name  string
		cfg   RuleConfig
		modes RuleModeList
	}{
		{"empty mode list", RuleConfig{}, nil},
		{"mode out of range", RuleConfig{Mode: 1}, testModes()},
		{"negative mode", RuleConfig{Mode: -1}, testModes()},
		{"domain strategy", RuleConfig{DomainStrategy: "UseIP"}, testModes()},
		{"unmatched strategy", RuleConfig{UnmatchedStrategy: OutboundBlock}, testModes()},
		{"rule type", RuleConfig{}, bad(func(m *RuleModeRow) { m.Rules[0].RuleType = "geo" })},
		{"outbound tag", RuleConfig{}, bad(func(m *RuleModeRow) { m.Rules[1].OutboundTag = "tor" })},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.cfg, RuleDomain{}, tc.modes)
			if !errors.Is(err, ErrInconsistentInput) {
				t.Fatalf("err=%v, want ErrInconsistentInput", err)
			}
		})
	}
}

func TestCompile_SkipsRowsWithoutCriteria(t *testing.T) {
	modes := RuleModeList{{Rules: []RuleRow{
		{OutboundTag: OutboundProxy, RuleType: RuleTypeDomain, IP: "1.1.1.1"},
		{OutboundTag: OutboundProxy, RuleType: RuleTypeDomain, Domain: "x.example"},
	}}}
	doc, err := Compile(RuleConfig{}, RuleDomain{}, modes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tags(doc); !reflect.DeepEqual(got, []string{"2-proxy"}) {
		t.Fatalf("tags=%v", got)
	}
}

func TestCompile_DefaultModesHaveUniqueTags(t *testing.T) {
	modes := DefaultRuleModeList()
	domain := RuleDomain{Proxy: "p.example", Direct: "d.example", Block: "b.example"}
	for i := range modes {
		doc, err := Compile(RuleConfig{Mode: i, UnmatchedStrategy: OutboundProxy}, domain, modes)
		if err != nil {
			t.Fatalf("mode %d: %v", i, err)
		}
		seen := map[string]bool{}
		for _, tag := range tags(doc) {
			if seen[tag] {
				t.Fatalf("mode %d: duplicate tag %q", i, tag)
			}
			seen[tag] = true
		}
	}
}

func TestDocumentValidate(t *testing.T) {
	d := &Document{Rules: []Rule{fieldRule("a", OutboundProxy), fieldRule("a", OutboundDirect)}}
	if err := d.Validate(); err == nil || !strings.Contains(err.Error(), `"a"`) {
		t.Fatalf("err=%v, want duplicate tag error", err)
	}
}

func TestModeHash(t *testing.T) {
	modes := DefaultRuleModeList()
	if len(modes[0].Hash) != 32 {
		t.Fatalf("len(hash)=%d, want=32", len(modes[0].Hash))
	}
	if modes[0].Hash == modes[1].Hash {
		t.Fatalf("different modes share a hash")
	}
	renamed := modes[0]
	renamed.Name = "other"
	if ModeHash(renamed.Rules) != modes[0].Hash {
		t.Fatalf("name changed the hash")
	}
}

func TestProcessLines(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{" \n\r\n ", nil},
		{"a\r\nb\n a \n\nc", []string{"a", "b", "c"}},
	}
	for _, tc := range cases {
		if got := processLines(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("processLines(%q)=%v, want=%v", tc.in, got, tc.want)
		}
	}
	if got := processList("http,tls\n http "); !reflect.DeepEqual(got, []string{"http", "tls"}) {
		t.Fatalf("processList=%v", got)
	}
}
