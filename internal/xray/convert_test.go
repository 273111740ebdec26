package xray

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"dray/internal/config"
	"dray/internal/xray/parser"
)

func mustParse(t *testing.T, raw string) *parser.Descriptor {
	t.Helper()
	d, err := parser.Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q): %v", raw, err)
	}
	return d
}

func TestBuildOutbound_VlessReality(t *testing.T) {
	d := mustParse(t, "vless://id1@example.com:443?flow=xtls-rprx-vision&security=reality&type=grpc&serviceName=svc&mode=multi&sni=www.example.com&pbk=pk&sid=ab#r")
	common := config.Default().Ray
	common.OutboundsMux = true

	out, err := BuildOutbound(d, common)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Tag != "proxy" || out.Protocol != "vless" {
		t.Fatalf("out=%+v", out)
	}
	user := out.Settings.(VnextSettings).Vnext[0].Users[0]
	if user.ID != "id1" || user.Encryption != "none" || user.Flow != "xtls-rprx-vision" {
		t.Fatalf("user=%+v", user)
	}

	ss := out.StreamSettings
	if ss.Network != "grpc" || ss.Security != "reality" {
		t.Fatalf("stream=%+v", ss)
	}
	if ss.TLSSettings != nil {
		t.Fatalf("tlsSettings present for reality")
	}
	want := &RealitySettings{ServerName: "www.example.com", Fingerprint: "chrome", PublicKey: "pk", ShortID: "ab"}
	if !reflect.DeepEqual(ss.RealitySettings, want) {
		t.Fatalf("reality=%+v, want=%+v", ss.RealitySettings, want)
	}
	if ss.GRPCSettings.ServiceName != "svc" || !ss.GRPCSettings.MultiMode {
		t.Fatalf("grpc=%+v", ss.GRPCSettings)
	}
	if out.Mux.Enabled {
		t.Fatalf("mux enabled with an XTLS flow")
	}
}

func TestBuildOutbound_VmessWebSocketTLS(t *testing.T) {
	d := mustParse(t, "vmess://uuid@v.example:8443?aid=2&net=ws&host=cdn.example&path=%2Fws&tls=tls&alpn=h2")
	common := config.Default().Ray
	common.OutboundsMux = true
	common.OutboundsConcurrency = 16

	out, err := BuildOutbound(d, common)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	user := out.Settings.(VnextSettings).Vnext[0].Users[0]
	if *user.AlterID != 2 || user.Security != "auto" {
		t.Fatalf("user=%+v", user)
	}
	ss := out.StreamSettings
	if ss.Security != "tls" || ss.TLSSettings.ServerName != "cdn.example" {
		t.Fatalf("stream=%+v tls=%+v", ss, ss.TLSSettings)
	}
	if !reflect.DeepEqual(ss.TLSSettings.ALPN, []string{"h2"}) {
		t.Fatalf("alpn=%v", ss.TLSSettings.ALPN)
	}
	if ss.WSSettings.Path != "/ws" || ss.WSSettings.Host != "cdn.example" {
		t.Fatalf("ws=%+v", ss.WSSettings)
	}
	if !out.Mux.Enabled || out.Mux.Concurrency != 16 {
		t.Fatalf("mux=%+v", out.Mux)
	}
}

func TestBuildOutbound_TrojanDefaults(t *testing.T) {
	out, err := BuildOutbound(mustParse(t, "trojan://pw@t.example:443"), config.Default().Ray)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	srv := out.Settings.(ServerSettings).Servers[0]
	if srv.Password != "pw" || srv.Port != 443 {
		t.Fatalf("server=%+v", srv)
	}
	tls := out.StreamSettings.TLSSettings
	if tls == nil || tls.ServerName != "t.example" || !reflect.DeepEqual(tls.ALPN, []string{"h2", "http/1.1"}) {
		t.Fatalf("tls=%+v", tls)
	}
	if out.Mux.Enabled {
		t.Fatalf("mux enabled without the common switch")
	}
}

func TestBuildOutbound_Shadowsocks(t *testing.T) {
	out, err := BuildOutbound(mustParse(t, "ss://YWVzLTEyOC1nY206cHc@s.example:8388#s"), config.Default().Ray)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Protocol != "shadowsocks" || out.StreamSettings != nil {
		t.Fatalf("out=%+v", out)
	}
	srv := out.Settings.(ServerSettings).Servers[0]
	if srv.Method != "aes-128-gcm" || srv.Password != "pw" {
		t.Fatalf("server=%+v", srv)
	}
}

func TestBuildOutbound_SchemaNames(t *testing.T) {
	out, err := BuildOutbound(mustParse(t, "vless://id@h.example:443?security=tls&type=tcp&headerType=http&host=a.example&path=%2Fx"), config.Default().Ray)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{
		`"tag":"proxy"`,
		`"settings":{"vnext":[{"address":"h.example","port":443,"users":[{"id":"id","encryption":"none"}]}]}`,
		`"streamSettings":{"network":"tcp","security":"tls","tlsSettings":{`,
		`"tcpSettings":{"header":{"type":"http","request":{"path":["/x"],"headers":{"Host":["a.example"]}}}}`,
		`"mux":{"enabled":false,"concurrency":8}`,
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("%s\ndoes not contain %s", s, want)
		}
	}
}

func TestBuildOutbound_Transports(t *testing.T) {
	cases := []struct {
		uri   string
		check func(*StreamSettings) bool
	}{
		{"vless://id@h:1?type=httpupgrade&host=a&path=%2Fu", func(s *StreamSettings) bool {
			return s.HTTPUpgradeSettings != nil && s.HTTPUpgradeSettings.Path == "/u"
		}},
		{"vless://id@h:1?type=xhttp&path=%2Fx&mode=auto&extra=%7B%22xPaddingBytes%22%3A%22100-1000%22%7D", func(s *StreamSettings) bool {
			return s.XHTTPSettings != nil && s.XHTTPSettings.Mode == "auto" && s.XHTTPSettings.Extra != nil
		}},
		{"vless://id@h:1?type=h2&path=%2Fh", func(s *StreamSettings) bool {
			return s.Network == "xhttp" && s.XHTTPSettings.Path == "/h"
		}},
		{"vless://id@h:1?type=kcp&seed=s&headerType=wechat-video", func(s *StreamSettings) bool {
			return s.KCPSettings != nil && s.KCPSettings.Seed == "s" && s.KCPSettings.Header.Type == "wechat-video"
		}},
		{"trojan://pw@h:1?type=grpc&path=svc", func(s *StreamSettings) bool {
			return s.GRPCSettings != nil && s.GRPCSettings.ServiceName == "svc"
		}},
		{"vless://id@h:1", func(s *StreamSettings) bool {
			return s.Network == "tcp" && s.Security == "none" && s.TCPSettings == nil && s.TLSSettings == nil
		}},
	}
	for _, tc := range cases {
		out, err := BuildOutbound(mustParse(t, tc.uri), config.Default().Ray)
		if err != nil {
			t.Fatalf("%s: %v", tc.uri, err)
		}
		if !tc.check(out.StreamSettings) {
			t.Fatalf("%s: unexpected stream settings %+v", tc.uri, out.StreamSettings)
		}
	}
}

func TestBuildOutbound_Unknown(t *testing.T) {
	for _, d := range []*parser.Descriptor{
		nil,
		{Protocol: "wireguard"},
		{Protocol: parser.ProtocolVless, Payload: &parser.TrojanPayload{}},
	} {
		if _, err := BuildOutbound(d, config.Default().Ray); !errors.Is(err, parser.ErrUnknownProtocol) {
			t.Fatalf("err=%v, want ErrUnknownProtocol", err)
		}
	}
}

func TestVerifyOutbound(t *testing.T) {
	for _, uri := range []string{
		"vless://b831381d-6324-4d53-ad4f-8cda48b30811@v.example:443?security=tls&sni=v.example",
		"vmess://b831381d-6324-4d53-ad4f-8cda48b30811@v.example:443?net=ws&path=%2F",
		"trojan://secret@t.example:443",
		"ss://YWVzLTI1Ni1nY206c2VjcmV0@s.example:8388",
	} {
		out, err := BuildOutbound(mustParse(t, uri), config.Default().Ray)
		if err != nil {
			t.Fatalf("%s: %v", uri, err)
		}
		if err := VerifyOutbound(out); err != nil {
			t.Fatalf("%s: xray rejected the outbound: %v", uri, err)
		}
	}
}
