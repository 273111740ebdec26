package routing

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/zeebo/xxh3"
)

// contentHash is a 128-bit xxh3 of the canonical JSON of v. It only
// detects edits; it is not a security boundary.
func contentHash(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	h128 := xxh3.Hash128(b)
	var h [16]byte
	binary.LittleEndian.PutUint64(h[:8], h128.Lo)
	binary.LittleEndian.PutUint64(h[8:], h128.Hi)
	return hex.EncodeToString(h[:])
}

// ModeHash fingerprints the rules of a rule mode.
func ModeHash(rules []RuleRow) string {
	return contentHash(rules)
}

// DnsModeHash fingerprints the hosts and servers of a DNS mode.
func DnsModeHash(m DnsModeRow) string {
	return contentHash(struct {
		Hosts   []DnsHostRow   `json:"hosts"`
		Servers []DnsServerRow `json:"servers"`
	}{m.Hosts, m.Servers})
}

// WithHashes returns a copy of l with every Hash recomputed.
func (l RuleModeList) WithHashes() RuleModeList {
	out := make(RuleModeList, len(l))
	for i, m := range l {
		m.Hash = ModeHash(m.Rules)
		out[i] = m
	}
	return out
}

func (l DnsModeList) WithHashes() DnsModeList {
	out := make(DnsModeList, len(l))
	for i, m := range l {
		m.Hash = DnsModeHash(m)
		out[i] = m
	}
	return out
}
