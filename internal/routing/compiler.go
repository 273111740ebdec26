package routing

import (
	"errors"
	"fmt"
	"strings"

	"dray/internal/logger"
)

// ErrInconsistentInput is returned when the rule or DNS documents cannot be
// compiled as stored.
var ErrInconsistentInput = errors.New("inconsistent routing input")

// Reserved rule tags.
const (
	TagGlobalProxy  = "dray-global-proxy"
	TagProxyDomain  = "dray-proxy-domain"
	TagDirectDomain = "dray-direct-domain"
	TagBlockDomain  = "dray-block-domain"
	TagUnmatched    = "dray-unmatched"
)

const unmatchedPortRange = "1-65535"

// Document is the routing block of an Xray configuration.
type Document struct {
	DomainStrategy string `json:"domainStrategy"`
	Rules          []Rule `json:"rules"`
}

// Rule is a single "field" rule. Xray matches a rule when every present
// criterion matches.
type Rule struct {
	Type        string   `json:"type"`
	RuleTag     string   `json:"ruleTag"`
	OutboundTag string   `json:"outboundTag"`
	Domain      []string `json:"domain,omitempty"`
	IP          []string `json:"ip,omitempty"`
	Port        string   `json:"port,omitempty"`
	SourcePort  string   `json:"sourcePort,omitempty"`
	Network     string   `json:"network,omitempty"`
	Protocol    []string `json:"protocol,omitempty"`
}

func (r Rule) empty() bool {
	return len(r.Domain) == 0 && len(r.IP) == 0 && r.Port == "" &&
		r.SourcePort == "" && r.Network == "" && len(r.Protocol) == 0
}

func fieldRule(tag, outbound string) Rule {
	return Rule{Type: "field", RuleTag: tag, OutboundTag: outbound}
}

// matchers fill the criteria of a compiled rule from a mode row.
var matchers = map[string]func(row RuleRow, r *Rule){
	RuleTypeDomain: func(row RuleRow, r *Rule) {
		r.Domain = processLines(row.Domain)
	},
	RuleTypeIP: func(row RuleRow, r *Rule) {
		r.IP = processLines(row.IP)
	},
	RuleTypeMulti: func(row RuleRow, r *Rule) {
		r.Domain = processLines(row.Domain)
		r.IP = processLines(row.IP)
		r.Port = strings.Join(processLines(row.Port), ",")
		r.SourcePort = strings.Join(processLines(row.SourcePort), ",")
		r.Network = strings.TrimSpace(row.Network)
		r.Protocol = processList(row.Protocol)
	},
}

func validOutbound(tag string) bool {
	switch tag {
	case OutboundProxy, OutboundDirect, OutboundBlock:
		return true
	}
	return false
}

func normalizeStrategy(s string) (string, error) {
	switch s {
	case "":
		return StrategyAsIs, nil
	case StrategyAsIs, StrategyIPIfNonMatch, StrategyIPOnDemand:
		return s, nil
	}
	return "", fmt.Errorf("%w: domain strategy %q", ErrInconsistentInput, s)
}

// Compile builds the routing block. Rules are emitted in priority order:
// the curated proxy, direct and block lists, then the rules of the
// selected mode, then the catch-all for unmatched traffic. When global
// proxy is on only private destinations bypass the proxy and nothing else
// is consulted.
func Compile(cfg RuleConfig, domain RuleDomain, modes RuleModeList) (*Document, error) {
	strategy, err := normalizeStrategy(cfg.DomainStrategy)
	if err != nil {
		return nil, err
	}
	doc := &Document{DomainStrategy: strategy}

	if cfg.GlobalProxy {
		r := fieldRule(TagGlobalProxy, OutboundDirect)
		r.Domain = []string{"geosite:private"}
		r.IP = []string{"geoip:private"}
		doc.Rules = []Rule{r}
		return doc, nil
	}

	switch cfg.UnmatchedStrategy {
	case "", OutboundDirect, OutboundProxy:
	default:
		return nil, fmt.Errorf("%w: unmatched strategy %q", ErrInconsistentInput, cfg.UnmatchedStrategy)
	}
	if cfg.Mode < 0 || cfg.Mode >= len(modes) {
		return nil, fmt.Errorf("%w: mode %d of %d", ErrInconsistentInput, cfg.Mode, len(modes))
	}

	for _, list := range []struct {
		tag, outbound, text string
	}{
		{TagProxyDomain, OutboundProxy, domain.Proxy},
		{TagDirectDomain, OutboundDirect, domain.Direct},
		{TagBlockDomain, OutboundBlock, domain.Block},
	} {
		if lines := processLines(list.text); len(lines) > 0 {
			r := fieldRule(list.tag, list.outbound)
			r.Domain = lines
			doc.Rules = append(doc.Rules, r)
		}
	}

	mode := modes[cfg.Mode]
	for i, row := range mode.Rules {
		fill, ok := matchers[row.RuleType]
		if !ok {
			return nil, fmt.Errorf("%w: rule %d of mode %q has type %q", ErrInconsistentInput, i+1, mode.Name, row.RuleType)
		}
		if !validOutbound(row.OutboundTag) {
			return nil, fmt.Errorf("%w: rule %d of mode %q routes to %q", ErrInconsistentInput, i+1, mode.Name, row.OutboundTag)
		}
		r := fieldRule(fmt.Sprintf("%d-%s", i+1, row.OutboundTag), row.OutboundTag)
		fill(row, &r)
		if r.empty() {
			// A rule without criteria would match everything.
			logger.Log.Debugf("routing: skipping empty rule %d (%s) of mode %q", i+1, row.Name, mode.Name)
			continue
		}
		doc.Rules = append(doc.Rules, r)
	}

	if cfg.UnmatchedStrategy != "" {
		r := fieldRule(TagUnmatched, cfg.UnmatchedStrategy)
		r.Port = unmatchedPortRange
		doc.Rules = append(doc.Rules, r)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate reports duplicate rule tags.
func (d *Document) Validate() error {
	seen := make(map[string]struct{}, len(d.Rules))
	for _, r := range d.Rules {
		if _, dup := seen[r.RuleTag]; dup {
			return fmt.Errorf("%w: duplicate rule tag %q", ErrInconsistentInput, r.RuleTag)
		}
		seen[r.RuleTag] = struct{}{}
	}
	return nil
}
