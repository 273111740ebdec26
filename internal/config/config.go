package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	App          AppConfig          `yaml:"app"`
	Ray          RayConfig          `yaml:"ray"`
	GeoIP        GeoIPConfig        `yaml:"geoip"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Collectors   []CollectorConfig  `yaml:"collectors"`
	Publishers   []PublisherConfig  `yaml:"publishers"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AppConfig is where the local inbounds listen.
type AppConfig struct {
	RayHost   string `yaml:"ray_host"`
	SocksPort int    `yaml:"socks_port"`
	HTTPPort  int    `yaml:"http_port"`
}

// RayConfig holds the settings shared by every generated Ray document.
type RayConfig struct {
	LogLevel             string   `yaml:"log_level"`
	SocksEnable          bool     `yaml:"socks_enable"`
	HTTPEnable           bool     `yaml:"http_enable"`
	SocksUDP             bool     `yaml:"socks_udp"`
	SocksSniffing        bool     `yaml:"socks_sniffing"`
	SniffingDestOverride []string `yaml:"sniffing_dest_override"`
	OutboundsMux         bool     `yaml:"outbounds_mux"`
	OutboundsConcurrency int      `yaml:"outbounds_concurrency"`
}

type GeoIPConfig struct {
	CountryPath string `yaml:"country_path"`
}

type SubscriptionConfig struct {
	UpdateCron string        `yaml:"update_cron"`
	Timeout    time.Duration `yaml:"timeout"`
}

type CollectorConfig struct {
	Name   string                 `yaml:"name"`
	Type   string                 `yaml:"type"`
	Params map[string]interface{} `yaml:"params"`
}

type PublisherConfig struct {
	Name   string                 `yaml:"name"`
	Type   string                 `yaml:"type"`
	Params map[string]interface{} `yaml:"params"`
}

var logLevels = []string{"debug", "info", "warning", "error", "none"}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "dray.db"},
		App: AppConfig{
			RayHost:   "127.0.0.1",
			SocksPort: 1086,
			HTTPPort:  1089,
		},
		Ray: RayConfig{
			LogLevel:             "warning",
			SocksEnable:          true,
			HTTPEnable:           true,
			SniffingDestOverride: []string{"http", "tls"},
			OutboundsConcurrency: 8,
		},
		GeoIP: GeoIPConfig{CountryPath: "GeoLite2-Country.mmdb"},
		Subscription: SubscriptionConfig{
			UpdateCron: "@every 6h",
			Timeout:    30 * time.Second,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path means
// ./config.yaml, which may be absent.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	def := Default()

	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.App.RayHost == "" {
		c.App.RayHost = def.App.RayHost
	}
	if c.App.SocksPort <= 0 || c.App.SocksPort > 65535 {
		c.App.SocksPort = def.App.SocksPort
	}
	if c.App.HTTPPort <= 0 || c.App.HTTPPort > 65535 {
		c.App.HTTPPort = def.App.HTTPPort
	}

	if !slices.Contains(logLevels, c.Ray.LogLevel) {
		c.Ray.LogLevel = def.Ray.LogLevel
	}
	if len(c.Ray.SniffingDestOverride) == 0 {
		c.Ray.SniffingDestOverride = def.Ray.SniffingDestOverride
	}
	// Xray accepts 1..1024 concurrent mux streams.
	if c.Ray.OutboundsConcurrency <= 0 {
		c.Ray.OutboundsConcurrency = def.Ray.OutboundsConcurrency
	}
	if c.Ray.OutboundsConcurrency > 1024 {
		c.Ray.OutboundsConcurrency = 1024
	}

	if c.Subscription.Timeout <= 0 {
		c.Subscription.Timeout = def.Subscription.Timeout
	}

	for i := range c.Publishers {
		if c.Publishers[i].Params == nil {
			c.Publishers[i].Params = map[string]interface{}{}
		}
	}
}

func (c *Config) FilterCollectors(names []string) {
	if len(names) == 0 {
		return
	}
	c.Collectors = slices.DeleteFunc(c.Collectors, func(item CollectorConfig) bool {
		return !slices.Contains(names, item.Name)
	})
}

func (c *Config) FilterPublishers(names []string) {
	if len(names) == 0 {
		return
	}
	c.Publishers = slices.DeleteFunc(c.Publishers, func(item PublisherConfig) bool {
		return !slices.Contains(names, item.Name)
	})
}

// SocksAddr is the host:port of the local SOCKS inbound.
func (a AppConfig) SocksAddr() string {
	return fmt.Sprintf("%s:%d", a.RayHost, a.SocksPort)
}
