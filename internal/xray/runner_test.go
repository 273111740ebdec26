package xray

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"dray/internal/config"
	"dray/internal/routing"
)

func TestAssemble(t *testing.T) {
	cfg := config.Default()
	cfg.Ray.SocksUDP = true
	cfg.Ray.HTTPEnable = false

	rules, err := routing.Compile(routing.RuleConfig{UnmatchedStrategy: routing.OutboundProxy}, routing.RuleDomain{Direct: "lan.example"}, routing.RuleModeList{{}})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	server := mustParse(t, "trojan://pw@t.example:443#t")

	doc, err := Assemble(server, cfg.App, cfg.Ray, rules, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Inbounds) != 1 || doc.Inbounds[0].Tag != "socks-in" || doc.Inbounds[0].Port != 1086 {
		t.Fatalf("inbounds=%+v", doc.Inbounds)
	}
	var tags []string
	for _, o := range doc.Outbounds {
		tags = append(tags, o.Tag)
	}
	if strings.Join(tags, ",") != "proxy,direct,block" {
		t.Fatalf("outbounds=%v", tags)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{
		`"log":{"loglevel":"warning"}`,
		`"settings":{"auth":"noauth","udp":true}`,
		`"sniffing":{"enabled":false,"destOverride":["http","tls"]}`,
		`{"tag":"direct","protocol":"freedom","settings":{}}`,
		`"ruleTag":"dray-direct-domain"`,
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("%s\ndoes not contain %s", s, want)
		}
	}
	if strings.Contains(s, `"dns"`) {
		t.Fatalf("dns block emitted while disabled")
	}

	if err := VerifyDocument(doc); err != nil {
		t.Fatalf("xray rejected the document: %v", err)
	}
}

func TestAssemble_NoServer(t *testing.T) {
	cfg := config.Default()
	if _, err := Assemble(nil, cfg.App, cfg.Ray, nil, nil); !errors.Is(err, ErrNoActiveServer) {
		t.Fatalf("err=%v, want ErrNoActiveServer", err)
	}
}
