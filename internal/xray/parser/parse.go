package parser

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Parse decodes one share-link into a Descriptor.
//
// Links that carry a userinfo, an explicit port or a query string are read
// in the query form. Anything else is treated as a Base64 wrapped JSON body.
// Fields missing from either form resolve to the protocol defaults.
func Parse(raw string) (d *Descriptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			d = nil
			err = fmt.Errorf("%w: %v", ErrInvalidURI, r)
		}
	}()

	raw = FixIllegalUrl(raw)
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return nil, fmt.Errorf("%w: missing scheme", ErrInvalidURI)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}

	proto := Protocol(strings.ToLower(scheme))
	if !proto.Known() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, scheme)
	}

	if u.User != nil || u.Port() != "" || u.RawQuery != "" || u.ForceQuery {
		return parseQueryForm(proto, u)
	}
	return parseBase64Form(proto, rest)
}

func parseQueryForm(proto Protocol, u *url.URL) (*Descriptor, error) {
	p := newPayload(proto)
	p.setEndpoint(u.Hostname(), parsePort(u.Port()))
	q := u.Query()

	credentialOK := true
	switch v := p.(type) {
	case *VmessPayload:
		v.ID = userinfo(u.User)
		v.Aid, _ = strconv.Atoi(q.Get("aid"))
	case *VlessPayload:
		v.ID = userinfo(u.User)
	case *TrojanPayload:
		v.Password = userinfo(u.User)
	case *ShadowsocksPayload:
		v.Method, v.Password, credentialOK = shadowsocksCredential(u.User)
	}

	for _, f := range p.fields() {
		if f.query != "" {
			*f.val = q.Get(f.query)
		}
	}
	applyDefaults(p)

	if ss, ok := p.(*ShadowsocksPayload); ok && !credentialOK {
		ss.Method, ss.Password = "", ""
	}
	return newDescriptor(u.Fragment, p), nil
}

func parseBase64Form(proto Protocol, rest string) (*Descriptor, error) {
	body, label, _ := strings.Cut(rest, "#")
	label = PercentDecode(label)

	text, err := DecodeBase64(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	m := ParseJSON(text)
	if m == nil {
		if proto == ProtocolShadowsocks {
			if d, ok := parseLegacyShadowsocks(text, label); ok {
				return d, nil
			}
		}
		return nil, fmt.Errorf("%w: %s body is not a JSON object", ErrMalformedPayload, proto)
	}
	f := jsonFields(m)

	p := newPayload(proto)
	for _, fl := range p.fields() {
		*fl.val = f.str(fl.json)
	}
	addr, _ := p.Endpoint()
	p.setEndpoint(addr, parsePort(strings.TrimSpace(f.str("port"))))
	if v, ok := p.(*VmessPayload); ok {
		v.Aid = f.int("aid")
	}
	applyDefaults(p)

	name := f.str("ps")
	if name == "" {
		name = label
	}
	return newDescriptor(name, p), nil
}

// parseLegacyShadowsocks handles the pre-SIP002 form where the whole
// "method:password@host:port" is Base64 encoded.
func parseLegacyShadowsocks(text, label string) (*Descriptor, bool) {
	at := strings.LastIndex(text, "@")
	if at < 0 {
		return nil, false
	}
	method, password, ok := strings.Cut(text[:at], ":")
	if !ok {
		return nil, false
	}
	host, port, err := net.SplitHostPort(strings.TrimSpace(text[at+1:]))
	if err != nil {
		return nil, false
	}
	p := &ShadowsocksPayload{Add: host, Port: parsePort(port), Method: method, Password: password}
	applyDefaults(p)
	return newDescriptor(label, p), true
}

// shadowsocksCredential recovers method and password from a SIP002
// userinfo. ok is false when no "method:password" pair could be found.
func shadowsocksCredential(ui *url.Userinfo) (method, password string, ok bool) {
	raw := userinfo(ui)
	if raw == "" {
		return "", "", false
	}
	text, decoded := decodeText(raw)
	if !decoded || !strings.Contains(text, ":") {
		// AEAD-2022 links may carry the pair unencoded.
		if !strings.Contains(raw, ":") {
			return "", "", false
		}
		text = raw
	}
	method, password, _ = strings.Cut(text, ":")
	return method, password, true
}

func userinfo(ui *url.Userinfo) string {
	if ui == nil {
		return ""
	}
	if pw, set := ui.Password(); set {
		return ui.Username() + ":" + pw
	}
	return ui.Username()
}
