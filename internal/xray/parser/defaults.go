package parser

// Defaults shared by every place that reads or writes a payload.
const (
	DefaultFingerprint       = "chrome"
	DefaultNetwork           = "tcp"
	DefaultVmessSecurity     = "auto"
	DefaultVmessTLS          = "none"
	DefaultVlessSecurity     = "none"
	DefaultVlessEncryption   = "none"
	DefaultShadowsocksMethod = "aes-256-gcm"
	DefaultTrojanSecurity    = "tls"
)

// field binds one optional string field of a payload to its JSON key,
// its query key and its default. An empty query key means the value is
// carried outside the query string (authority or userinfo).
type field struct {
	json  string
	query string
	def   string
	val   *string
}

func (p *VmessPayload) fields() []field {
	return []field{
		{"add", "", "", &p.Add},
		{"id", "", "", &p.ID},
		{"scy", "security", DefaultVmessSecurity, &p.Scy},
		{"net", "net", DefaultNetwork, &p.Net},
		{"type", "type", "", &p.Type},
		{"host", "host", "", &p.Host},
		{"path", "path", "", &p.Path},
		{"seed", "seed", "", &p.Seed},
		{"mode", "mode", "", &p.Mode},
		{"tls", "tls", DefaultVmessTLS, &p.TLS},
		{"sni", "sni", "", &p.SNI},
		{"alpn", "alpn", "", &p.ALPN},
		{"fp", "fp", DefaultFingerprint, &p.FP},
	}
}

func (p *VlessPayload) fields() []field {
	return []field{
		{"add", "", "", &p.Add},
		{"id", "", "", &p.ID},
		{"encryption", "encryption", DefaultVlessEncryption, &p.Encryption},
		{"flow", "flow", "", &p.Flow},
		{"scy", "security", DefaultVlessSecurity, &p.Scy},
		{"net", "type", DefaultNetwork, &p.Net},
		{"headerType", "headerType", "", &p.HeaderType},
		{"host", "host", "", &p.Host},
		{"path", "path", "", &p.Path},
		{"seed", "seed", "", &p.Seed},
		{"mode", "mode", "", &p.Mode},
		{"serviceName", "serviceName", "", &p.ServiceName},
		{"extra", "extra", "", &p.Extra},
		{"sni", "sni", "", &p.SNI},
		{"alpn", "alpn", "", &p.ALPN},
		{"fp", "fp", DefaultFingerprint, &p.FP},
		{"pbk", "pbk", "", &p.PBK},
		{"sid", "sid", "", &p.SID},
		{"spx", "spx", "", &p.SPX},
	}
}

func (p *ShadowsocksPayload) fields() []field {
	return []field{
		{"add", "", "", &p.Add},
		{"scy", "", DefaultShadowsocksMethod, &p.Method},
		{"pwd", "", "", &p.Password},
	}
}

// The trojan SNI defaults to the server address, so the table must be
// built after the address is known.
func (p *TrojanPayload) fields() []field {
	return []field{
		{"add", "", "", &p.Add},
		{"pwd", "", "", &p.Password},
		{"scy", "security", DefaultTrojanSecurity, &p.Scy},
		{"flow", "flow", "", &p.Flow},
		{"net", "type", DefaultNetwork, &p.Net},
		{"host", "host", "", &p.Host},
		{"path", "path", "", &p.Path},
		{"sni", "sni", p.Add, &p.SNI},
		{"alpn", "alpn", "", &p.ALPN},
		{"fp", "fp", DefaultFingerprint, &p.FP},
	}
}

func applyDefaults(p Payload) {
	for _, f := range p.fields() {
		if *f.val == "" {
			*f.val = f.def
		}
	}
}
