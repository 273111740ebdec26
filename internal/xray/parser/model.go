package parser

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
)

// Protocol is the share-link scheme of a server descriptor.
type Protocol string

const (
	ProtocolVmess       Protocol = "vmess"
	ProtocolVless       Protocol = "vless"
	ProtocolShadowsocks Protocol = "ss"
	ProtocolTrojan      Protocol = "trojan"
)

// Protocols lists the supported schemes in display order.
var Protocols = []Protocol{ProtocolVmess, ProtocolVless, ProtocolShadowsocks, ProtocolTrojan}

// Known reports whether p is one of the supported schemes.
func (p Protocol) Known() bool {
	switch p {
	case ProtocolVmess, ProtocolVless, ProtocolShadowsocks, ProtocolTrojan:
		return true
	}
	return false
}

// Payload is the protocol specific half of a Descriptor.
// It is implemented only by *VmessPayload, *VlessPayload,
// *ShadowsocksPayload and *TrojanPayload.
type Payload interface {
	Protocol() Protocol
	Endpoint() (address string, port int)
	SecurityLabel() string

	// fields returns the optional string fields with their defaults and
	// query keys, in query emission order.
	fields() []field
	setEndpoint(address string, port int)
}

// Descriptor is a normalized server entry as stored in the server list.
type Descriptor struct {
	DisplayName   string
	Protocol      Protocol
	HostSummary   string
	SecurityLabel string
	ContentHash   string
	Payload       Payload
}

// VmessPayload mirrors the vmess share-link JSON object.
// Field order is the canonical order used for hashing.
type VmessPayload struct {
	Add  string `json:"add"`
	Port int    `json:"port"`
	ID   string `json:"id"`
	Aid  int    `json:"aid"`
	Scy  string `json:"scy"`
	Net  string `json:"net"`
	Host string `json:"host"`
	Path string `json:"path"`
	Type string `json:"type"`
	Seed string `json:"seed"`
	Mode string `json:"mode"`
	TLS  string `json:"tls"`
	SNI  string `json:"sni"`
	ALPN string `json:"alpn"`
	FP   string `json:"fp"`
}

type VlessPayload struct {
	Add         string `json:"add"`
	Port        int    `json:"port"`
	ID          string `json:"id"`
	Flow        string `json:"flow"`
	Scy         string `json:"scy"`
	Encryption  string `json:"encryption"`
	Net         string `json:"net"`
	HeaderType  string `json:"headerType"`
	Host        string `json:"host"`
	Path        string `json:"path"`
	Seed        string `json:"seed"`
	Mode        string `json:"mode"`
	ServiceName string `json:"serviceName"`
	Extra       string `json:"extra"`
	SNI         string `json:"sni"`
	ALPN        string `json:"alpn"`
	FP          string `json:"fp"`
	PBK         string `json:"pbk"`
	SID         string `json:"sid"`
	SPX         string `json:"spx"`
}

type ShadowsocksPayload struct {
	Add      string `json:"add"`
	Port     int    `json:"port"`
	Method   string `json:"scy"`
	Password string `json:"pwd"`
}

type TrojanPayload struct {
	Add      string `json:"add"`
	Port     int    `json:"port"`
	Password string `json:"pwd"`
	Flow     string `json:"flow"`
	Scy      string `json:"scy"`
	Net      string `json:"net"`
	Host     string `json:"host"`
	Path     string `json:"path"`
	SNI      string `json:"sni"`
	ALPN     string `json:"alpn"`
	FP       string `json:"fp"`
}

func (*VmessPayload) Protocol() Protocol       { return ProtocolVmess }
func (*VlessPayload) Protocol() Protocol       { return ProtocolVless }
func (*ShadowsocksPayload) Protocol() Protocol { return ProtocolShadowsocks }
func (*TrojanPayload) Protocol() Protocol      { return ProtocolTrojan }

func (p *VmessPayload) Endpoint() (string, int)       { return p.Add, p.Port }
func (p *VlessPayload) Endpoint() (string, int)       { return p.Add, p.Port }
func (p *ShadowsocksPayload) Endpoint() (string, int) { return p.Add, p.Port }
func (p *TrojanPayload) Endpoint() (string, int)      { return p.Add, p.Port }

func (p *VmessPayload) setEndpoint(a string, port int)       { p.Add, p.Port = a, port }
func (p *VlessPayload) setEndpoint(a string, port int)       { p.Add, p.Port = a, port }
func (p *ShadowsocksPayload) setEndpoint(a string, port int) { p.Add, p.Port = a, port }
func (p *TrojanPayload) setEndpoint(a string, port int)      { p.Add, p.Port = a, port }

func (p *VmessPayload) SecurityLabel() string       { return p.Scy }
func (p *VlessPayload) SecurityLabel() string       { return p.Scy }
func (p *ShadowsocksPayload) SecurityLabel() string { return p.Method }
func (p *TrojanPayload) SecurityLabel() string      { return p.Scy }

// newPayload returns an empty payload for a known protocol, or nil.
func newPayload(proto Protocol) Payload {
	switch proto {
	case ProtocolVmess:
		return &VmessPayload{}
	case ProtocolVless:
		return &VlessPayload{}
	case ProtocolShadowsocks:
		return &ShadowsocksPayload{}
	case ProtocolTrojan:
		return &TrojanPayload{}
	}
	return nil
}

// HostSummary formats address and port the way the server list shows them.
func HostSummary(address string, port int) string {
	return net.JoinHostPort(address, strconv.Itoa(port))
}

// NewDescriptor resolves defaults on p and derives the envelope fields.
// It is the entry point for manually created servers.
func NewDescriptor(displayName string, p Payload) *Descriptor {
	applyDefaults(p)
	return newDescriptor(displayName, p)
}

func newDescriptor(displayName string, p Payload) *Descriptor {
	addr, port := p.Endpoint()
	return &Descriptor{
		DisplayName:   displayName,
		Protocol:      p.Protocol(),
		HostSummary:   HostSummary(addr, port),
		SecurityLabel: p.SecurityLabel(),
		ContentHash:   HashPayload(p),
		Payload:       p,
	}
}

// Rename returns a copy of d with a new display name. The hash is unchanged.
func (d *Descriptor) Rename(name string) *Descriptor {
	c := *d
	c.DisplayName = name
	return &c
}

type descriptorJSON struct {
	DisplayName   string          `json:"displayName"`
	ProtocolTag   Protocol        `json:"protocolTag"`
	HostSummary   string          `json:"hostSummary"`
	SecurityLabel string          `json:"securityLabel"`
	ContentHash   string          `json:"contentHash"`
	Payload       json.RawMessage `json:"payload"`
}

func (d Descriptor) MarshalJSON() ([]byte, error) {
	payload := json.RawMessage("null")
	if d.Payload != nil {
		b, err := json.Marshal(d.Payload)
		if err != nil {
			return nil, err
		}
		payload = b
	}
	return json.Marshal(descriptorJSON{
		DisplayName:   d.DisplayName,
		ProtocolTag:   d.Protocol,
		HostSummary:   d.HostSummary,
		SecurityLabel: d.SecurityLabel,
		ContentHash:   d.ContentHash,
		Payload:       payload,
	})
}

// UnmarshalJSON keeps records whose protocol tag is unknown; such records
// carry a nil payload and are rejected later by the serializer and builder.
func (d *Descriptor) UnmarshalJSON(b []byte) error {
	var raw descriptorJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*d = Descriptor{
		DisplayName:   raw.DisplayName,
		Protocol:      raw.ProtocolTag,
		HostSummary:   raw.HostSummary,
		SecurityLabel: raw.SecurityLabel,
		ContentHash:   raw.ContentHash,
	}
	p := newPayload(raw.ProtocolTag)
	if p == nil || len(raw.Payload) == 0 || string(raw.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw.Payload, p); err != nil {
		return fmt.Errorf("%s payload: %w", raw.ProtocolTag, err)
	}
	d.Payload = p
	return nil
}
