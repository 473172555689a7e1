// Package config loads advisor settings from an optional YAML file and the
// environment. Environment values win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	API      APIConfig      `yaml:"api"`
	HTTP     HTTPConfig     `yaml:"http"`
	Progress ProgressConfig `yaml:"progress"`
	Market   MarketConfig   `yaml:"market"`
	Store    StoreConfig    `yaml:"store"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Influx   InfluxConfig   `yaml:"influx"`
	Browser  BrowserConfig  `yaml:"browser"`
	Log      LogConfig      `yaml:"log"`

	LocalesPath string `yaml:"locales_path"` // empty: embedded table
}

type APIConfig struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutMs       int    `yaml:"timeout_ms"`
	BreakerFailures int    `yaml:"breaker_failures"`
	BreakerOpenMs   int    `yaml:"breaker_open_ms"`
}

type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type ProgressConfig struct {
	StepMs      int     `yaml:"step_ms"`
	Ceiling     float64 `yaml:"ceiling"`
	HideDelayMs int     `yaml:"hide_delay_ms"`
}

type MarketConfig struct {
	RefreshMinutes int    `yaml:"refresh_minutes"`
	CSVURL         string `yaml:"csv_url"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type MQTTConfig struct {
	Host        string `yaml:"host"` // empty disables alert publication
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type InfluxConfig struct {
	URL    string `yaml:"url"` // empty disables market history
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

type BrowserConfig struct {
	DebuggerURL string `yaml:"debugger_url"`
	Headless    bool   `yaml:"headless"`
	PageURL     string `yaml:"page_url"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default is the configuration used when no file or environment overrides apply.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:         "http://127.0.0.1:5000/api",
			TimeoutMs:       10000,
			BreakerFailures: 5,
			BreakerOpenMs:   30000,
		},
		HTTP:     HTTPConfig{ListenAddr: ":8080"},
		Progress: ProgressConfig{StepMs: 120, Ceiling: 90, HideDelayMs: 800},
		Market:   MarketConfig{RefreshMinutes: 30},
		Store:    StoreConfig{Path: "advisor.db"},
		MQTT:     MQTTConfig{Port: 1883, ClientID: "advisor", TopicPrefix: "alerts/weather"},
		Influx:   InfluxConfig{Org: "smartcrop", Bucket: "market"},
		Browser:  BrowserConfig{Headless: true, PageURL: "http://127.0.0.1:5000/"},
		Log:      LogConfig{Level: "info"},
	}
}

// Load applies the YAML file at path (optional) and then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func (c *Config) applyEnvOverrides() {
	c.API.BaseURL = getenv("ADVISOR_API_BASE_URL", c.API.BaseURL)
	c.API.TimeoutMs = getenvInt("ADVISOR_API_TIMEOUT_MS", c.API.TimeoutMs)
	c.HTTP.ListenAddr = getenv("ADVISOR_LISTEN_ADDR", c.HTTP.ListenAddr)
	c.Store.Path = getenv("ADVISOR_STORE_PATH", c.Store.Path)
	c.Market.CSVURL = getenv("ADVISOR_MARKET_CSV_URL", c.Market.CSVURL)
	c.LocalesPath = getenv("ADVISOR_LOCALES_PATH", c.LocalesPath)
	c.Log.Level = getenv("ADVISOR_LOG_LEVEL", c.Log.Level)

	c.MQTT.Host = getenv("RABBITMQ_HOST", c.MQTT.Host)
	c.MQTT.Port = getenvInt("RABBITMQ_PORT", c.MQTT.Port)
	c.MQTT.User = getenv("RABBITMQ_USER", c.MQTT.User)
	c.MQTT.Password = getenv("RABBITMQ_PASSWORD", c.MQTT.Password)

	c.Influx.URL = getenv("INFLUX_URL", c.Influx.URL)
	c.Influx.Token = getenv("INFLUX_TOKEN", c.Influx.Token)
	c.Influx.Org = getenv("INFLUX_ORG", c.Influx.Org)
	c.Influx.Bucket = getenv("INFLUX_BUCKET", c.Influx.Bucket)

	c.Browser.DebuggerURL = getenv("BROWSER_DEBUGGER_URL", c.Browser.DebuggerURL)
	c.Browser.PageURL = getenv("BROWSER_PAGE_URL", c.Browser.PageURL)
}

// Validate rejects settings the components cannot run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.TimeoutMs <= 0 {
		errs = append(errs, errors.New("api.timeout_ms must be positive"))
	}
	if c.Progress.StepMs <= 0 || c.Progress.HideDelayMs < 0 {
		errs = append(errs, errors.New("progress timings must be positive"))
	}
	if c.Progress.Ceiling <= 0 || c.Progress.Ceiling > 100 {
		errs = append(errs, errors.New("progress.ceiling must be in (0,100]"))
	}
	if c.Market.RefreshMinutes <= 0 {
		errs = append(errs, errors.New("market.refresh_minutes must be positive"))
	}
	if c.Influx.URL != "" && c.Influx.Token == "" {
		errs = append(errs, errors.New("influx.token is required when influx.url is set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutMs) * time.Millisecond
}

func (a APIConfig) BreakerOpenFor() time.Duration {
	return time.Duration(a.BreakerOpenMs) * time.Millisecond
}

func (p ProgressConfig) Step() time.Duration {
	return time.Duration(p.StepMs) * time.Millisecond
}

func (p ProgressConfig) HideDelay() time.Duration {
	return time.Duration(p.HideDelayMs) * time.Millisecond
}

func (m MarketConfig) RefreshInterval() time.Duration {
	return time.Duration(m.RefreshMinutes) * time.Minute
}

// MQTTEnabled reports whether alert publication is configured.
func (c Config) MQTTEnabled() bool { return c.MQTT.Host != "" }

// InfluxEnabled reports whether market history is configured.
func (c Config) InfluxEnabled() bool { return c.Influx.URL != "" }
