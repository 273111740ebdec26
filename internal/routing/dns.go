package routing

import "fmt"

// DNSDocument is the dns block of an Xray configuration.
type DNSDocument struct {
	Hosts   map[string][]string `json:"hosts,omitempty"`
	Servers []DNSServer         `json:"servers"`
}

type DNSServer struct {
	Tag                string   `json:"tag,omitempty"`
	Address            string   `json:"address"`
	Port               int      `json:"port,omitempty"`
	Domains            []string `json:"domains,omitempty"`
	ExpectIPs          []string `json:"expectIPs,omitempty"`
	ClientIP           string   `json:"clientIP,omitempty"`
	QueryStrategy      string   `json:"queryStrategy,omitempty"`
	TimeoutMs          int      `json:"timeoutMs"`
	SkipFallback       bool     `json:"skipFallback"`
	AllowUnexpectedIPs bool     `json:"allowUnexpectedIPs"`
}

// CompileDNS builds the dns block of the selected DNS mode. It returns nil
// when DNS is disabled.
func CompileDNS(cfg DnsConfig, modes DnsModeList) (*DNSDocument, error) {
	if !cfg.Enable {
		return nil, nil
	}
	if cfg.Mode < 0 || cfg.Mode >= len(modes) {
		return nil, fmt.Errorf("%w: dns mode %d of %d", ErrInconsistentInput, cfg.Mode, len(modes))
	}
	mode := modes[cfg.Mode]

	doc := &DNSDocument{Servers: []DNSServer{}}
	for _, h := range mode.Hosts {
		addrs := processLines(h.Host)
		name := processLines(h.Domain)
		if len(addrs) == 0 || len(name) == 0 {
			continue
		}
		if doc.Hosts == nil {
			doc.Hosts = map[string][]string{}
		}
		doc.Hosts[name[0]] = addrs
	}

	for i, s := range mode.Servers {
		if s.Address == "" {
			return nil, fmt.Errorf("%w: dns server %d of mode %q has no address", ErrInconsistentInput, i+1, mode.Name)
		}
		timeout := s.TimeoutMs
		if timeout <= 0 {
			timeout = DefaultDnsTimeoutMs
		}
		doc.Servers = append(doc.Servers, DNSServer{
			Tag:                s.Tag,
			Address:            s.Address,
			Port:               s.Port,
			Domains:            processLines(s.Domains),
			ExpectIPs:          processLines(s.ExpectIPs),
			ClientIP:           s.ClientIP,
			QueryStrategy:      s.QueryStrategy,
			TimeoutMs:          timeout,
			SkipFallback:       s.SkipFallback,
			AllowUnexpectedIPs: s.AllowUnexpectedIPs,
		})
	}
	return doc, nil
}
