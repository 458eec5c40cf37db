// Package config loads rdapctl settings: built-in defaults, then an optional
// YAML or JSON file, then RDAPCTL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	rdapclient "github.com/datum-labs/addrdap"
)

var (
	ErrUnsupportedFormat = errors.New("config: unsupported file format")
	ErrLoadFailed        = errors.New("config: load failed")
	ErrParseFailed       = errors.New("config: parse failed")
	ErrInvalid           = errors.New("config: invalid value")
)

// Bootstrap overrides the IANA registry locations.
type Bootstrap struct {
	DNS  string `koanf:"dns"`
	IPv4 string `koanf:"ipv4"`
	IPv6 string `koanf:"ipv6"`
}

// Config is the merged rdapctl configuration.
type Config struct {
	UserAgent  string            `koanf:"user_agent"`
	Timeout    time.Duration     `koanf:"timeout"`
	MaxRetries int               `koanf:"max_retries"`
	Headers    map[string]string `koanf:"headers"`
	Bootstrap  Bootstrap         `koanf:"bootstrap"`
	Output     string            `koanf:"output"`
	Compact    bool              `koanf:"compact"`
	LogLevel   string            `koanf:"log_level"`
}

var defaults = []byte(`
timeout: 10s
max_retries: 0
output: json
compact: false
log_level: warn
bootstrap:
  dns: ` + rdapclient.DefaultDNSBootstrapURL + `
  ipv4: ` + rdapclient.DefaultIPv4BootstrapURL + `
  ipv6: ` + rdapclient.DefaultIPv6BootstrapURL + `
`)

// envKeys maps environment variables to config keys. RDAPCTL_IP_BOOTSTRAP
// points both address registries at the same document.
var envKeys = []struct {
	name string
	keys []string
}{
	{"RDAPCTL_UA", []string{"user_agent"}},
	{"RDAPCTL_TIMEOUT", []string{"timeout"}},
	{"RDAPCTL_MAX_RETRIES", []string{"max_retries"}},
	{"RDAPCTL_OUTPUT", []string{"output"}},
	{"RDAPCTL_LOG_LEVEL", []string{"log_level"}},
	{"RDAPCTL_DNS_BOOTSTRAP", []string{"bootstrap.dns"}},
	{"RDAPCTL_IP_BOOTSTRAP", []string{"bootstrap.ipv4", "bootstrap.ipv6"}},
	{"RDAPCTL_IPV4_BOOTSTRAP", []string{"bootstrap.ipv4"}},
	{"RDAPCTL_IPV6_BOOTSTRAP", []string{"bootstrap.ipv6"}},
}

// Load merges the defaults, the file at path (skipped when empty) and the
// environment read through getenv. Format is chosen by file extension.
func Load(path string, getenv func(string) string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: defaults: %w", ErrParseFailed, err)
	}

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
		}
		if len(data) > 0 {
			if err := k.Load(rawbytes.Provider(data), parser); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrParseFailed, path, err)
			}
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	for _, e := range envKeys {
		v := strings.TrimSpace(getenv(e.name))
		if v == "" {
			continue
		}
		for _, key := range e.keys {
			if err := k.Set(key, v); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, e.name, err)
			}
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Validate checks the values Load cannot coerce.
func (c *Config) Validate() error {
	switch c.Output {
	case "json", "yaml", "text":
	default:
		return fmt.Errorf("%w: output %q (want json, yaml or text)", ErrInvalid, c.Output)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalid, c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalid)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return l, nil
}

// ClientOptions translates the configuration into client options.
func (c *Config) ClientOptions() []rdapclient.Option {
	opts := []rdapclient.Option{
		rdapclient.WithTimeout(c.Timeout),
		rdapclient.WithMaxRetries(c.MaxRetries),
		rdapclient.WithDNSBootstrapURL(c.Bootstrap.DNS),
		rdapclient.WithIPv4BootstrapURL(c.Bootstrap.IPv4),
		rdapclient.WithIPv6BootstrapURL(c.Bootstrap.IPv6),
	}
	if c.UserAgent != "" {
		opts = append(opts, rdapclient.WithUserAgent(c.UserAgent))
	}
	for k, v := range c.Headers {
		opts = append(opts, rdapclient.WithHeader(k, v))
	}
	return opts
}
