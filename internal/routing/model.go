// Package routing compiles the rule and DNS documents into the routing and
// dns blocks of an Xray configuration.
package routing

// Outbound tags a rule may route to.
const (
	OutboundProxy  = "proxy"
	OutboundDirect = "direct"
	OutboundBlock  = "block"
)

// Domain strategies accepted by the Xray router.
const (
	StrategyAsIs         = "AsIs"
	StrategyIPIfNonMatch = "IPIfNonMatch"
	StrategyIPOnDemand   = "IPOnDemand"
)

// Rule row matcher shapes.
const (
	RuleTypeDomain = "domain"
	RuleTypeIP     = "ip"
	RuleTypeMulti  = "multi"
)

// RuleConfig selects how the routing block is assembled.
type RuleConfig struct {
	GlobalProxy       bool   `json:"globalProxy"`
	DomainStrategy    string `json:"domainStrategy"`
	UnmatchedStrategy string `json:"unmatchedStrategy"`
	Mode              int    `json:"mode"`
}

// RuleDomain holds the three curated, newline separated domain lists.
type RuleDomain struct {
	Proxy  string `json:"proxy"`
	Direct string `json:"direct"`
	Block  string `json:"block"`
}

// RuleRow is one matcher of a rule mode. Which criteria are read depends
// on RuleType: domain rows read Domain, ip rows read IP, multi rows read
// every non-empty criterion.
type RuleRow struct {
	Name        string `json:"name"`
	Note        string `json:"note"`
	OutboundTag string `json:"outboundTag"`
	RuleType    string `json:"ruleType"`
	Domain      string `json:"domain"`
	IP          string `json:"ip"`
	Port        string `json:"port"`
	SourcePort  string `json:"sourcePort"`
	Network     string `json:"network"`
	Protocol    string `json:"protocol"`
}

// RuleModeRow is a named, ordered set of rules.
type RuleModeRow struct {
	Name  string    `json:"name"`
	Note  string    `json:"note"`
	Hash  string    `json:"hash"`
	Rules []RuleRow `json:"rules"`
}

type RuleModeList []RuleModeRow

// DnsConfig toggles the dns block and picks the active DNS mode.
type DnsConfig struct {
	Enable bool `json:"enable"`
	Mode   int  `json:"mode"`
}

// DnsHostRow maps a domain to one or more newline separated addresses.
type DnsHostRow struct {
	Name   string `json:"name"`
	Note   string `json:"note"`
	Domain string `json:"domain"`
	Host   string `json:"host"`
}

type DnsServerRow struct {
	Name               string `json:"name"`
	Note               string `json:"note"`
	Tag                string `json:"tag"`
	Address            string `json:"address"`
	Port               int    `json:"port,omitempty"`
	Domains            string `json:"domains"`
	ExpectIPs          string `json:"expectIPs"`
	ClientIP           string `json:"clientIP"`
	QueryStrategy      string `json:"queryStrategy"`
	TimeoutMs          int    `json:"timeoutMs"`
	SkipFallback       bool   `json:"skipFallback"`
	AllowUnexpectedIPs bool   `json:"allowUnexpectedIPs"`
}

type DnsModeRow struct {
	Name    string         `json:"name"`
	Note    string         `json:"note"`
	Hash    string         `json:"hash"`
	Hosts   []DnsHostRow   `json:"hosts"`
	Servers []DnsServerRow `json:"servers"`
}

type DnsModeList []DnsModeRow

// DefaultDnsTimeoutMs is used for server rows that leave the timeout unset.
const DefaultDnsTimeoutMs = 4000

func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		DomainStrategy:    StrategyAsIs,
		UnmatchedStrategy: OutboundProxy,
	}
}

// DefaultRuleModeList keeps common destinations of a few regions direct
// and blocks ad domains.
func DefaultRuleModeList() RuleModeList {
	region := func(name, note, site, ip string) RuleModeRow {
		return RuleModeRow{
			Name: name,
			Note: note,
			Rules: []RuleRow{
				{Name: "ads", OutboundTag: OutboundBlock, RuleType: RuleTypeDomain, Domain: "geosite:category-ads-all"},
				{Name: "direct domains", OutboundTag: OutboundDirect, RuleType: RuleTypeDomain, Domain: site},
				{Name: "direct ips", OutboundTag: OutboundDirect, RuleType: RuleTypeIP, IP: ip},
			},
		}
	}
	return RuleModeList{
		region("China", "Mainland China sites go direct", "geosite:cn", "geoip:cn"),
		region("Russia", "Russian sites go direct", "geosite:category-ru", "geoip:ru"),
		region("Iran", "Iranian sites go direct", "geosite:category-ir", "geoip:ir"),
	}.WithHashes()
}

func DefaultDnsModeList() DnsModeList {
	return DnsModeList{
		{
			Name: "Public",
			Note: "Cloudflare and Google over UDP",
			Servers: []DnsServerRow{
				{Name: "cloudflare", Address: "1.1.1.1", TimeoutMs: DefaultDnsTimeoutMs},
				{Name: "google", Address: "8.8.8.8", TimeoutMs: DefaultDnsTimeoutMs},
			},
		},
	}.WithHashes()
}
