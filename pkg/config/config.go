package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig                 `json:"app" yaml:"app"`
	Gateways  map[string]GatewayConfig  `json:"gateways" yaml:"gateways"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Document  DocumentConfig            `json:"document" yaml:"document"`
	Storage   StorageConfig             `json:"storage" yaml:"storage"`
	Engine    EngineConfig              `json:"engine" yaml:"engine"`
}

type AppConfig struct {
	Name    string `json:"name" yaml:"name"`
	Prompts string `json:"prompts" yaml:"prompts"`
}

type GatewayConfig struct {
	Token   string `json:"token" yaml:"token"`
	Addr    string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// DocumentConfig selects where mutations land: the built-in in-memory
// document ("memory") or a spreadsheet executor webhook ("bridge").
type DocumentConfig struct {
	Mode      string `json:"mode" yaml:"mode"`
	BridgeURL string `json:"bridge_url,omitempty" yaml:"bridge_url,omitempty"`
	Sheet     string `json:"sheet" yaml:"sheet"`
}

type StorageConfig struct {
	Path string `json:"path" yaml:"path"`
}

type EngineConfig struct {
	StepDelayMs int `json:"step_delay_ms" yaml:"step_delay_ms"`
}

func LoadConfig(path string) *Config {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}

	cfg, err := Parse(raw, filepath.Ext(path))
	if err != nil {
		log.Fatalf("failed to decode config file: %v", err)
	}
	return cfg
}

// Parse decodes a config document. YAML is assumed unless the
// extension says JSON.
func Parse(raw []byte, ext string) (*Config, error) {
	var cfg Config
	var err error
	if ext == ".json" {
		err = json.Unmarshal(raw, &cfg)
	} else {
		err = yaml.Unmarshal(raw, &cfg)
	}
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "GridMind"
	}
	if c.App.Prompts == "" {
		c.App.Prompts = "prompts"
	}
	if c.Document.Mode == "" {
		c.Document.Mode = "memory"
	}
	if c.Document.Sheet == "" {
		c.Document.Sheet = "Sheet1"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "gridmind.db"
	}
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetGateway returns the named gateway config if enabled
func (c *Config) GetGateway(name string) (GatewayConfig, bool) {
	g, ok := c.Gateways[name]
	if ok && g.Enabled {
		return g, true
	}
	return GatewayConfig{}, false
}
