package routing

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"
)

var pacTemplate = template.Must(template.New("pac").Parse(`var proxy = 'SOCKS5 {{.Proxy}}';

var proxyDomains = {{.ProxyDomains}};

var directDomains = {{.DirectDomains}};

var blockDomains = {{.BlockDomains}};

if (!String.prototype.endsWith) {
	String.prototype.endsWith = function(s) {
		return this.length >= s.length && this.lastIndexOf(s) === this.length - s.length;
	};
}

function isHostMatch(domains, host) {
	for (var i = 0; i < domains.length; i++) {
		if (domains[i] === host || host.endsWith('.' + domains[i])) return true;
	}
	return false;
}

function FindProxyForURL(url, host) {
	if (isHostMatch(proxyDomains, host)) return proxy;
	if (isHostMatch(directDomains, host)) return "DIRECT";
	if (isHostMatch(blockDomains, host)) return "PROXY 0.0.0.0:80";
	return "DIRECT";
}
`))

// pacDomains keeps the entries a browser can match by suffix. Xray-only
// matchers such as geosite: or regexp: are dropped.
func pacDomains(text string) string {
	out := []string{}
	for _, d := range processLines(text) {
		for _, prefix := range []string{"domain:", "full:"} {
			d = strings.TrimPrefix(d, prefix)
		}
		if strings.Contains(d, ":") {
			continue
		}
		out = append(out, strings.ToLower(d))
	}
	b, _ := json.Marshal(out)
	return string(b)
}

// GeneratePAC renders a proxy auto-config script that sends the proxy list
// through the SOCKS endpoint at proxy (host:port), lets the direct list
// through and sinks the block list.
func GeneratePAC(proxy string, domain RuleDomain) (string, error) {
	var buf bytes.Buffer
	err := pacTemplate.Execute(&buf, struct {
		Proxy         string
		ProxyDomains  string
		DirectDomains string
		BlockDomains  string
	}{
		Proxy:         proxy,
		ProxyDomains:  pacDomains(domain.Proxy),
		DirectDomains: pacDomains(domain.Direct),
		BlockDomains:  pacDomains(domain.Block),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
