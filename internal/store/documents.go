package store

import (
	"fmt"

	"dray/internal/model"
	"dray/internal/routing"
	"dray/internal/xray/parser"
)

// Document keys.
const (
	KeyServers       = "server.json"
	KeyActiveServer  = "active_server.json"
	KeySubscriptions = "subscription.json"
	KeyRuleConfig    = "rule_config.json"
	KeyRuleDomain    = "rule_domain.json"
	KeyRuleModeList  = "rule_mode_list.json"
	KeyDnsConfig     = "dns_config.json"
	KeyDnsModeList   = "dns_mode_list.json"
)

var documentTypes = map[string]func() any{
	KeyServers:       func() any { return &ServerList{} },
	KeyActiveServer:  func() any { return new(string) },
	KeySubscriptions: func() any { return &[]model.SubscriptionRow{} },
	KeyRuleConfig:    func() any { return &routing.RuleConfig{} },
	KeyRuleDomain:    func() any { return &routing.RuleDomain{} },
	KeyRuleModeList:  func() any { return &routing.RuleModeList{} },
	KeyDnsConfig:     func() any { return &routing.DnsConfig{} },
	KeyDnsModeList:   func() any { return &routing.DnsModeList{} },
}

// DocumentKeys lists every document the store knows how to load.
func DocumentKeys() []string {
	return []string{
		KeyServers, KeyActiveServer, KeySubscriptions,
		KeyRuleConfig, KeyRuleDomain, KeyRuleModeList,
		KeyDnsConfig, KeyDnsModeList,
	}
}

// ServerList is the ordered list of known servers, newest first.
type ServerList []*parser.Descriptor

// Find returns the index of the server with the given content hash, or -1.
func (l ServerList) Find(hash string) int {
	for i, d := range l {
		if d.ContentHash == hash {
			return i
		}
	}
	return -1
}

// Hashes returns the set of content hashes in the list.
func (l ServerList) Hashes() map[string]struct{} {
	set := make(map[string]struct{}, len(l))
	for _, d := range l {
		set[d.ContentHash] = struct{}{}
	}
	return set
}

// normalize rebuilds the derived fields of every record.
func (l ServerList) normalize() error {
	for i, d := range l {
		if d == nil || d.Payload == nil {
			return fmt.Errorf("server %d: %w", i+1, parser.ErrUnknownProtocol)
		}
		l[i] = parser.NewDescriptor(d.DisplayName, d.Payload)
	}
	return nil
}

func normalizeDocument(v any) error {
	switch d := v.(type) {
	case *ServerList:
		return d.normalize()
	case *routing.RuleModeList:
		*d = d.WithHashes()
	case *routing.DnsModeList:
		*d = d.WithHashes()
	}
	return nil
}

func readOr[T any](s *Store, key string, def T) (T, error) {
	var v T
	ok, err := s.Read(key, &v)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

func (s *Store) ServerList() (ServerList, error) {
	return readOr(s, KeyServers, ServerList{})
}

func (s *Store) SaveServerList(l ServerList) error {
	return s.Save(KeyServers, l)
}

// ActiveServer returns the selected server, or nil when none is selected or
// the selection no longer exists.
func (s *Store) ActiveServer() (*parser.Descriptor, error) {
	hash, err := readOr(s, KeyActiveServer, "")
	if err != nil || hash == "" {
		return nil, err
	}
	list, err := s.ServerList()
	if err != nil {
		return nil, err
	}
	if i := list.Find(hash); i >= 0 {
		return list[i], nil
	}
	return nil, nil
}

func (s *Store) SetActiveServer(hash string) error {
	return s.Save(KeyActiveServer, hash)
}

func (s *Store) Subscriptions() ([]model.SubscriptionRow, error) {
	return readOr(s, KeySubscriptions, []model.SubscriptionRow{})
}

func (s *Store) SaveSubscriptions(rows []model.SubscriptionRow) error {
	return s.Save(KeySubscriptions, rows)
}

func (s *Store) RuleConfig() (routing.RuleConfig, error) {
	return readOr(s, KeyRuleConfig, routing.DefaultRuleConfig())
}

func (s *Store) RuleDomain() (routing.RuleDomain, error) {
	return readOr(s, KeyRuleDomain, routing.RuleDomain{})
}

func (s *Store) RuleModeList() (routing.RuleModeList, error) {
	return readOr(s, KeyRuleModeList, routing.DefaultRuleModeList())
}

func (s *Store) SaveRuleModeList(l routing.RuleModeList) error {
	return s.Save(KeyRuleModeList, l.WithHashes())
}

func (s *Store) DnsConfig() (routing.DnsConfig, error) {
	return readOr(s, KeyDnsConfig, routing.DnsConfig{})
}

func (s *Store) DnsModeList() (routing.DnsModeList, error) {
	return readOr(s, KeyDnsModeList, routing.DefaultDnsModeList())
}

func (s *Store) SaveDnsModeList(l routing.DnsModeList) error {
	return s.Save(KeyDnsModeList, l.WithHashes())
}
