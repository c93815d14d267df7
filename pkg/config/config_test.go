package config

import "testing"

func TestParseYAML(t *testing.T) {
	raw := []byte(`
app:
  name: GridMind
  prompts: ./prompts
providers:
  openai:
    api_key: sk-test
    model: gpt-4o
    enabled: true
gateways:
  http:
    addr: ":8080"
    enabled: true
  telegram:
    token: tg-token
    enabled: false
document:
  mode: bridge
  bridge_url: http://localhost:9090
storage:
  path: /tmp/gridmind.db
engine:
  step_delay_ms: 250
`)
	cfg, err := Parse(raw, ".yaml")
	if err != nil {
		t.Fatal(err)
	}

	name, p := cfg.GetDefaultProvider()
	if name != "openai" || p.Model != "gpt-4o" {
		t.Errorf("Provider lost: %s %+v", name, p)
	}
	if g, ok := cfg.GetGateway("http"); !ok || g.Addr != ":8080" {
		t.Errorf("HTTP gateway lost: %+v", g)
	}
	if _, ok := cfg.GetGateway("telegram"); ok {
		t.Error("Disabled gateway must not be returned")
	}
	if cfg.Document.Mode != "bridge" || cfg.Document.BridgeURL != "http://localhost:9090" {
		t.Errorf("Document config lost: %+v", cfg.Document)
	}
	if cfg.Engine.StepDelayMs != 250 {
		t.Errorf("Step delay lost: %d", cfg.Engine.StepDelayMs)
	}
}

func TestParseJSON(t *testing.T) {
	raw := []byte(`{
		"providers": {"openai": {"api_key": "k", "model": "gpt-4o-mini", "enabled": true}},
		"gateways": {"http": {"addr": ":8080", "enabled": true}}
	}`)
	cfg, err := Parse(raw, ".json")
	if err != nil {
		t.Fatal(err)
	}
	if _, p := cfg.GetDefaultProvider(); p.Model != "gpt-4o-mini" {
		t.Errorf("Provider lost: %+v", p)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"), ".json")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Document.Mode != "memory" {
		t.Errorf("Default document mode should be memory, got %q", cfg.Document.Mode)
	}
	if cfg.Document.Sheet != "Sheet1" {
		t.Errorf("Default sheet should be Sheet1, got %q", cfg.Document.Sheet)
	}
	if cfg.Storage.Path != "gridmind.db" {
		t.Errorf("Default storage path wrong: %q", cfg.Storage.Path)
	}
	if cfg.App.Prompts != "prompts" {
		t.Errorf("Default prompts dir wrong: %q", cfg.App.Prompts)
	}
}

func TestParseBadInput(t *testing.T) {
	if _, err := Parse([]byte("{not json"), ".json"); err == nil {
		t.Error("Malformed JSON should fail")
	}
	if _, err := Parse([]byte(":\n  - ["), ".yaml"); err == nil {
		t.Error("Malformed YAML should fail")
	}
}
