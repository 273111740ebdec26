package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// HashPayload generates the identifier used to detect duplicate servers.
//
// The digest covers the protocol tag and the payload encoded with
// encoding/json, so the field order is the struct declaration order and
// does not depend on how the source link ordered its keys. The display
// name lives on the Descriptor and never reaches the hash.
func HashPayload(p Payload) string {
	if p == nil {
		return ""
	}
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}

	h := sha256.New()
	h.Write([]byte(p.Protocol()))
	h.Write([]byte{'\n'})
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content hash of d, recomputed from the payload when
// one is present. Stored records may predate a change of the hash input.
func (d *Descriptor) Hash() string {
	if d.Payload == nil {
		return d.ContentHash
	}
	return HashPayload(d.Payload)
}
