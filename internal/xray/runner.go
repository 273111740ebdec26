package xray

import (
	"encoding/json"
	"errors"
	"fmt"

	"dray/internal/config"
	"dray/internal/logger"
	"dray/internal/routing"
	"dray/internal/xray/parser"

	"github.com/xtls/xray-core/infra/conf"
)

var ErrNoActiveServer = errors.New("no active server")

// Document is a complete Xray configuration.
type Document struct {
	Log       LogSettings          `json:"log"`
	Inbounds  []Inbound            `json:"inbounds"`
	Outbounds []Outbound           `json:"outbounds"`
	Routing   *routing.Document    `json:"routing,omitempty"`
	DNS       *routing.DNSDocument `json:"dns,omitempty"`
}

type LogSettings struct {
	LogLevel string `json:"loglevel"`
}

type Inbound struct {
	Tag      string    `json:"tag"`
	Protocol string    `json:"protocol"`
	Listen   string    `json:"listen"`
	Port     int       `json:"port"`
	Settings any       `json:"settings,omitempty"`
	Sniffing *Sniffing `json:"sniffing,omitempty"`
}

type Sniffing struct {
	Enabled      bool     `json:"enabled"`
	DestOverride []string `json:"destOverride,omitempty"`
}

type socksInboundSettings struct {
	Auth string `json:"auth"`
	UDP  bool   `json:"udp"`
}

// Assemble builds the full document around the active server. Inbounds are
// created for the enabled local listeners; the proxy outbound comes first so
// it is the default route.
func Assemble(server *parser.Descriptor, app config.AppConfig, ray config.RayConfig, rules *routing.Document, dns *routing.DNSDocument) (*Document, error) {
	if server == nil {
		return nil, ErrNoActiveServer
	}
	proxy, err := BuildOutbound(server, ray)
	if err != nil {
		return nil, fmt.Errorf("server %q: %w", server.DisplayName, err)
	}

	doc := &Document{
		Log:      LogSettings{LogLevel: ray.LogLevel},
		Inbounds: []Inbound{},
		Outbounds: []Outbound{
			*proxy,
			{Tag: routing.OutboundDirect, Protocol: "freedom", Settings: struct{}{}},
			{Tag: routing.OutboundBlock, Protocol: "blackhole", Settings: struct{}{}},
		},
		Routing: rules,
		DNS:     dns,
	}

	if ray.SocksEnable {
		doc.Inbounds = append(doc.Inbounds, Inbound{
			Tag:      "socks-in",
			Protocol: "socks",
			Listen:   app.RayHost,
			Port:     app.SocksPort,
			Settings: socksInboundSettings{Auth: "noauth", UDP: ray.SocksUDP},
			Sniffing: &Sniffing{Enabled: ray.SocksSniffing, DestOverride: ray.SniffingDestOverride},
		})
	}
	if ray.HTTPEnable {
		doc.Inbounds = append(doc.Inbounds, Inbound{
			Tag:      "http-in",
			Protocol: "http",
			Listen:   app.RayHost,
			Port:     app.HTTPPort,
		})
	}
	if len(doc.Inbounds) == 0 {
		logger.Log.Warnf("xray: both local inbounds are disabled")
	}
	return doc, nil
}

// VerifyOutbound checks that Xray accepts the outbound.
func VerifyOutbound(o *Outbound) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("xray core panic: %v", r)
		}
	}()

	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	var detour conf.OutboundDetourConfig
	if err := json.Unmarshal(b, &detour); err != nil {
		return fmt.Errorf("decode outbound: %w", err)
	}
	if _, err := detour.Build(); err != nil {
		return fmt.Errorf("build outbound: %w", err)
	}
	return nil
}

// VerifyDocument checks that Xray accepts the whole document. geosite: and
// geoip: matchers are resolved here, so the Xray asset files must be
// reachable (XRAY_LOCATION_ASSET).
func VerifyDocument(doc *Document) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("xray core panic: %v", r)
		}
	}()

	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var c conf.Config
	if err := json.Unmarshal(b, &c); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if _, err := c.Build(); err != nil {
		return fmt.Errorf("build document: %w", err)
	}
	return nil
}
