package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dray/internal/routing"
	"dray/internal/xray/parser"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "dray.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveReplaces(t *testing.T) {
	s := openTest(t)

	var v map[string]int
	ok, err := s.Read("x", &v)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v, want missing", ok, err)
	}

	if err := s.Save("x", map[string]int{"a": 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save("x", map[string]int{"b": 2}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ok, err = s.Read("x", &v)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if len(v) != 1 || v["b"] != 2 {
		t.Fatalf("v=%v, want the second value only", v)
	}

	docs, err := s.Keys()
	if err != nil || len(docs) != 1 || docs[0].Key != "x" {
		t.Fatalf("docs=%+v err=%v", docs, err)
	}
}

func TestStore_Defaults(t *testing.T) {
	s := openTest(t)

	cfg, err := s.RuleConfig()
	if err != nil || cfg.DomainStrategy != routing.StrategyAsIs {
		t.Fatalf("cfg=%+v err=%v", cfg, err)
	}
	modes, err := s.RuleModeList()
	if err != nil || len(modes) == 0 {
		t.Fatalf("modes=%v err=%v", modes, err)
	}
	list, err := s.ServerList()
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("list=%v err=%v", list, err)
	}
	active, err := s.ActiveServer()
	if err != nil || active != nil {
		t.Fatalf("active=%v err=%v", active, err)
	}
}

func TestStore_ServerListRoundTrip(t *testing.T) {
	s := openTest(t)

	d, err := parser.Parse("vless://id@h.example:443?security=tls#one")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveServerList(ServerList{d}); err != nil {
		t.Fatalf("SaveServerList: %v", err)
	}
	if err := s.SetActiveServer(d.ContentHash); err != nil {
		t.Fatalf("SetActiveServer: %v", err)
	}

	active, err := s.ActiveServer()
	if err != nil || active == nil {
		t.Fatalf("active=%v err=%v", active, err)
	}
	if active.DisplayName != "one" || active.ContentHash != d.ContentHash || active.Hash() != d.ContentHash {
		t.Fatalf("active=%+v", active)
	}
	if active.URI() != d.URI() {
		t.Fatalf("uri=%q, want=%q", active.URI(), d.URI())
	}
}

func TestStore_LoadFile(t *testing.T) {
	s := openTest(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "modes.jsonc")
	body := `[
  // only one mode
  {"name": "custom", "rules": [{"outboundTag": "direct", "ruleType": "domain", "domain": "x.example"}]}
]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.LoadFile(KeyRuleModeList, path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	modes, err := s.RuleModeList()
	if err != nil || len(modes) != 1 || modes[0].Name != "custom" {
		t.Fatalf("modes=%+v err=%v", modes, err)
	}
	if modes[0].Hash != routing.ModeHash(modes[0].Rules) {
		t.Fatalf("hash not refreshed on load")
	}

	if err := s.LoadFile("nope.json", path); !errors.Is(err, ErrUnknownDocument) {
		t.Fatalf("err=%v, want ErrUnknownDocument", err)
	}

	bad := filepath.Join(dir, "servers.json")
	if err := os.WriteFile(bad, []byte(`[{"displayName":"x","protocolTag":"wireguard"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.LoadFile(KeyServers, bad); !errors.Is(err, parser.ErrUnknownProtocol) {
		t.Fatalf("err=%v, want ErrUnknownProtocol", err)
	}
	if raw, err := s.Raw(KeyServers); err != nil || raw != nil {
		t.Fatalf("rejected document was written: %s", raw)
	}
}
