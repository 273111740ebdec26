package xray

import (
	"fmt"
	"strings"

	"dray/internal/config"
	"dray/internal/xray/parser"
)

// ProxyTag is the tag of the outbound built from the active server.
const ProxyTag = "proxy"

// Outbound is an Xray outbound object. Field names follow the Xray schema.
type Outbound struct {
	Tag            string          `json:"tag"`
	Protocol       string          `json:"protocol"`
	Settings       any             `json:"settings"`
	StreamSettings *StreamSettings `json:"streamSettings,omitempty"`
	Mux            *Mux            `json:"mux,omitempty"`
}

type Mux struct {
	Enabled     bool `json:"enabled"`
	Concurrency int  `json:"concurrency"`
}

// VnextSettings is the settings object of vmess and vless outbounds.
type VnextSettings struct {
	Vnext []VnextServer `json:"vnext"`
}

type VnextServer struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
	Users   []User `json:"users"`
}

type User struct {
	ID         string `json:"id"`
	AlterID    *int   `json:"alterId,omitempty"`
	Security   string `json:"security,omitempty"`
	Encryption string `json:"encryption,omitempty"`
	Flow       string `json:"flow,omitempty"`
}

// ServerSettings is the settings object of trojan and shadowsocks outbounds.
type ServerSettings struct {
	Servers []Server `json:"servers"`
}

type Server struct {
	Address  string `json:"address"`
	Port     int    `json:"port"`
	Method   string `json:"method,omitempty"`
	Password string `json:"password"`
}

type StreamSettings struct {
	Network             string               `json:"network"`
	Security            string               `json:"security"`
	TLSSettings         *TLSSettings         `json:"tlsSettings,omitempty"`
	RealitySettings     *RealitySettings     `json:"realitySettings,omitempty"`
	TCPSettings         *TCPSettings         `json:"tcpSettings,omitempty"`
	KCPSettings         *KCPSettings         `json:"kcpSettings,omitempty"`
	WSSettings          *WSSettings          `json:"wsSettings,omitempty"`
	GRPCSettings        *GRPCSettings        `json:"grpcSettings,omitempty"`
	HTTPUpgradeSettings *HTTPUpgradeSettings `json:"httpupgradeSettings,omitempty"`
	XHTTPSettings       *XHTTPSettings       `json:"xhttpSettings,omitempty"`
}

type TLSSettings struct {
	AllowInsecure bool     `json:"allowInsecure,omitempty"`
	ServerName    string   `json:"serverName,omitempty"`
	ALPN          []string `json:"alpn,omitempty"`
	Fingerprint   string   `json:"fingerprint,omitempty"`
}

type RealitySettings struct {
	Show        bool   `json:"show"`
	ServerName  string `json:"serverName,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	PublicKey   string `json:"publicKey"`
	ShortID     string `json:"shortId,omitempty"`
	SpiderX     string `json:"spiderX,omitempty"`
}

type TCPSettings struct {
	Header TCPHeader `json:"header"`
}

type TCPHeader struct {
	Type    string          `json:"type"`
	Request *TCPHTTPRequest `json:"request,omitempty"`
}

type TCPHTTPRequest struct {
	Path    []string            `json:"path"`
	Headers map[string][]string `json:"headers,omitempty"`
}

type KCPSettings struct {
	Seed   string     `json:"seed,omitempty"`
	Header *KCPHeader `json:"header,omitempty"`
}

type KCPHeader struct {
	Type string `json:"type"`
}

type WSSettings struct {
	Host string `json:"host,omitempty"`
	Path string `json:"path,omitempty"`
}

type GRPCSettings struct {
	Authority   string `json:"authority,omitempty"`
	ServiceName string `json:"serviceName"`
	MultiMode   bool   `json:"multiMode,omitempty"`
}

type HTTPUpgradeSettings struct {
	Host string `json:"host,omitempty"`
	Path string `json:"path,omitempty"`
}

type XHTTPSettings struct {
	Host  string `json:"host,omitempty"`
	Path  string `json:"path,omitempty"`
	Mode  string `json:"mode,omitempty"`
	Extra any    `json:"extra,omitempty"`
}

// transport is the protocol independent view of a payload's stream fields.
type transport struct {
	address     string
	network     string
	security    string
	host        string
	path        string
	headerType  string
	seed        string
	mode        string
	serviceName string
	extra       string
	sni         string
	alpn        string
	fp          string
	pbk         string
	sid         string
	spx         string
}

// BuildOutbound maps the descriptor of the active server to the "proxy"
// outbound. Mux settings come from common, never from the descriptor, and
// are forced off for XTLS flows.
func BuildOutbound(d *parser.Descriptor, common config.RayConfig) (*Outbound, error) {
	if d == nil || d.Payload == nil || d.Payload.Protocol() != d.Protocol {
		return nil, parser.ErrUnknownProtocol
	}

	out := &Outbound{Tag: ProxyTag}
	flow := ""

	switch p := d.Payload.(type) {
	case *parser.VmessPayload:
		aid := p.Aid
		out.Protocol = "vmess"
		out.Settings = vnext(p.Add, p.Port, User{
			ID:       p.ID,
			AlterID:  &aid,
			Security: or(p.Scy, parser.DefaultVmessSecurity),
		})
		sec := parser.DefaultVmessTLS
		if p.TLS == "tls" {
			sec = "tls"
		}
		out.StreamSettings = buildStreamSettings(transport{
			address: p.Add, network: p.Net, security: sec,
			host: p.Host, path: p.Path, headerType: p.Type, seed: p.Seed, mode: p.Mode,
			sni: p.SNI, alpn: p.ALPN, fp: p.FP,
		})
	case *parser.VlessPayload:
		flow = p.Flow
		out.Protocol = "vless"
		out.Settings = vnext(p.Add, p.Port, User{
			ID:         p.ID,
			Encryption: or(p.Encryption, parser.DefaultVlessEncryption),
			Flow:       p.Flow,
		})
		out.StreamSettings = buildStreamSettings(transport{
			address: p.Add, network: p.Net, security: or(p.Scy, parser.DefaultVlessSecurity),
			host: p.Host, path: p.Path, headerType: p.HeaderType, seed: p.Seed, mode: p.Mode,
			serviceName: p.ServiceName, extra: p.Extra,
			sni: p.SNI, alpn: p.ALPN, fp: p.FP, pbk: p.PBK, sid: p.SID, spx: p.SPX,
		})
	case *parser.TrojanPayload:
		out.Protocol = "trojan"
		out.Settings = ServerSettings{Servers: []Server{{Address: p.Add, Port: p.Port, Password: p.Password}}}
		out.StreamSettings = buildStreamSettings(transport{
			address: p.Add, network: p.Net, security: or(p.Scy, parser.DefaultTrojanSecurity),
			host: p.Host, path: p.Path, sni: p.SNI, alpn: p.ALPN, fp: p.FP,
		})
	case *parser.ShadowsocksPayload:
		out.Protocol = "shadowsocks"
		out.Settings = ServerSettings{Servers: []Server{{
			Address:  p.Add,
			Port:     p.Port,
			Method:   or(p.Method, parser.DefaultShadowsocksMethod),
			Password: p.Password,
		}}}
	default:
		return nil, fmt.Errorf("%w: %T", parser.ErrUnknownProtocol, d.Payload)
	}

	out.Mux = &Mux{
		Enabled:     common.OutboundsMux && flow == "",
		Concurrency: common.OutboundsConcurrency,
	}
	return out, nil
}

func vnext(addr string, port int, u User) VnextSettings {
	return VnextSettings{Vnext: []VnextServer{{Address: addr, Port: port, Users: []User{u}}}}
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func splitALPN(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func buildStreamSettings(t transport) *StreamSettings {
	network := strings.ToLower(or(t.network, parser.DefaultNetwork))
	switch network {
	case "raw":
		network = "tcp"
	case "mkcp":
		network = "kcp"
	case "splithttp", "h2", "http":
		// HTTP/2 transport was folded into XHTTP.
		network = "xhttp"
	}

	ss := &StreamSettings{Network: network, Security: t.security}
	sni := or(t.sni, t.host)
	fp := or(t.fp, parser.DefaultFingerprint)

	switch t.security {
	case "tls":
		alpn := splitALPN(t.alpn)
		if len(alpn) == 0 {
			alpn = []string{"h2", "http/1.1"}
		}
		ss.TLSSettings = &TLSSettings{ServerName: sni, ALPN: alpn, Fingerprint: fp}
	case "reality":
		ss.RealitySettings = &RealitySettings{
			ServerName:  sni,
			Fingerprint: fp,
			PublicKey:   t.pbk,
			ShortID:     t.sid,
			SpiderX:     t.spx,
		}
	default:
		ss.Security = "none"
	}

	host := or(t.host, t.address)
	switch network {
	case "tcp":
		if t.headerType == "http" {
			ss.TCPSettings = &TCPSettings{Header: TCPHeader{
				Type: "http",
				Request: &TCPHTTPRequest{
					Path:    []string{or(t.path, "/")},
					Headers: map[string][]string{"Host": strings.Split(host, ",")},
				},
			}}
		}
	case "kcp":
		kcp := &KCPSettings{Seed: t.seed}
		if t.headerType != "" && t.headerType != "none" {
			kcp.Header = &KCPHeader{Type: t.headerType}
		}
		ss.KCPSettings = kcp
	case "ws":
		ss.WSSettings = &WSSettings{Host: host, Path: t.path}
	case "grpc":
		ss.GRPCSettings = &GRPCSettings{
			Authority:   t.host,
			ServiceName: or(t.serviceName, t.path),
			MultiMode:   t.mode == "multi",
		}
	case "httpupgrade":
		ss.HTTPUpgradeSettings = &HTTPUpgradeSettings{Host: t.host, Path: t.path}
	case "xhttp":
		x := &XHTTPSettings{Host: t.host, Path: t.path, Mode: t.mode}
		if extra := parser.ParseJSON(t.extra); extra != nil {
			x.Extra = extra
		}
		ss.XHTTPSettings = x
	}
	return ss
}
