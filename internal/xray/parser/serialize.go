package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"dray/internal/logger"
)

// ToURI renders d in the query-string share-link form. Only fields that
// differ from their protocol default are written to the query.
func ToURI(d *Descriptor) (string, error) {
	p, err := payloadOf(d)
	if err != nil {
		return "", err
	}

	addr, port := p.Endpoint()
	u := url.URL{
		Scheme:   string(p.Protocol()),
		Host:     HostSummary(addr, port),
		Fragment: d.DisplayName,
	}

	var q queryBuilder
	var credential string
	switch v := p.(type) {
	case *VmessPayload:
		credential = v.ID
		if v.Aid != 0 {
			q.Add("aid", strconv.Itoa(v.Aid))
		}
	case *VlessPayload:
		credential = v.ID
	case *TrojanPayload:
		credential = v.Password
	case *ShadowsocksPayload:
		credential = EncodeBase64URL(v.Method + ":" + v.Password)
	}
	if credential != "" {
		u.User = url.User(credential)
	}

	for _, f := range p.fields() {
		if f.query == "" || *f.val == "" || *f.val == f.def {
			continue
		}
		q.Add(f.query, *f.val)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ToBase64URI renders d as scheme://base64({"ps": name, ...payload}).
func ToBase64URI(d *Descriptor) (string, error) {
	p, err := payloadOf(d)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", p.Protocol(), err)
	}
	name, _ := json.Marshal(d.DisplayName)

	var buf bytes.Buffer
	buf.WriteString(`{"ps":`)
	buf.Write(name)
	if p.Protocol() == ProtocolVmess {
		buf.WriteString(`,"v":"2"`)
	}
	buf.WriteByte(',')
	buf.Write(body[1:])

	return string(p.Protocol()) + "://" + EncodeBase64URL(buf.String()), nil
}

// URI is ToURI for call sites that cannot act on an error.
func (d *Descriptor) URI() string {
	s, err := ToURI(d)
	if err != nil {
		logger.Log.Warnf("Cannot serialize server %q: %v", d.DisplayName, err)
		return ""
	}
	return s
}

// Base64URI is ToBase64URI for call sites that cannot act on an error.
func (d *Descriptor) Base64URI() string {
	s, err := ToBase64URI(d)
	if err != nil {
		logger.Log.Warnf("Cannot serialize server %q: %v", d.DisplayName, err)
		return ""
	}
	return s
}

func payloadOf(d *Descriptor) (Payload, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil descriptor", ErrUnknownProtocol)
	}
	if d.Payload == nil || !d.Protocol.Known() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, d.Protocol)
	}
	if d.Payload.Protocol() != d.Protocol {
		return nil, fmt.Errorf("%w: tag %q carries a %s payload", ErrUnknownProtocol, d.Protocol, d.Payload.Protocol())
	}
	return d.Payload, nil
}
