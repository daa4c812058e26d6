// Package config defines and loads service configuration from a YAML
// file, environment variables, and command line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mcuadros/go-defaults"

	"github.com/modalsource/postal/internal/domain"
)

// envPrefix is the prefix for environment variable overrides. Nested keys
// use a double underscore, e.g. POSTAL_SERVER__LISTEN.
const envPrefix = "POSTAL_"

// Config holds service configuration.
type Config struct {
	// Server holds the HTTP server settings.
	Server ServerConfig `koanf:"server" json:"server"`
	// DNS holds the system-wide DNS expectations and resolver settings.
	DNS DNSConfig `koanf:"dns" json:"dns"`
	// MTASTS holds the MTA-STS policy fetcher settings.
	MTASTS MTASTSConfig `koanf:"mta_sts" json:"mta_sts"`
	// Webhook holds the webhook delivery settings.
	Webhook WebhookConfig `koanf:"webhook" json:"webhook"`
	// Database holds the storage settings.
	Database DatabaseConfig `koanf:"database" json:"database"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	// Listen is the address the HTTP server binds to.
	Listen string `koanf:"listen" json:"listen" default:":8080"`
	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout time.Duration `koanf:"read_timeout" json:"read_timeout" default:"30s"`
	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration `koanf:"write_timeout" json:"write_timeout" default:"30s"`
	// ShutdownGracePeriod is how long in-flight requests get on shutdown.
	ShutdownGracePeriod time.Duration `koanf:"shutdown_grace_period" json:"shutdown_grace_period" default:"30s"`
	// MaxBodySize caps request body size in bytes.
	MaxBodySize int64 `koanf:"max_body_size" json:"max_body_size" default:"102400"`
	// Debug enables debug logging output.
	Debug bool `koanf:"debug" json:"debug"`
	// Pretty enables human readable logging output.
	Pretty bool `koanf:"pretty" json:"pretty"`
}

// DNSConfig holds the system-wide DNS expectations and resolver settings.
type DNSConfig struct {
	// SPFInclude is the hostname domains must include in their SPF record.
	SPFInclude string `koanf:"spf_include" json:"spf_include" default:"spf.postal.example.com"`
	// MXRecords are the mail server hostnames domains must point MX at.
	MXRecords []string `koanf:"mx_records" json:"mx_records"`
	// ReturnPathPrefix is the label for each domain's custom return path name.
	ReturnPathPrefix string `koanf:"custom_return_path_prefix" json:"custom_return_path_prefix" default:"psrp"`
	// ReturnPathDomain is the canonical CNAME target for return path records.
	ReturnPathDomain string `koanf:"return_path_domain" json:"return_path_domain" default:"rp.postal.example.com"`
	// DKIMIdentifier is the system-wide portion of DKIM selectors.
	DKIMIdentifier string `koanf:"dkim_identifier" json:"dkim_identifier" default:"postal"`
	// DMARCPreferredEntry is the exact DMARC record expected of domains.
	// Leave empty to skip DMARC checking.
	DMARCPreferredEntry string `koanf:"dmarc_preferred_dns_entry" json:"dmarc_preferred_dns_entry"`
	// Resolver is the DNS server queries are sent to.
	Resolver string `koanf:"resolver" json:"resolver" default:"8.8.8.8:53"`
	// QueryTimeout is the per-query DNS timeout.
	QueryTimeout time.Duration `koanf:"query_timeout" json:"query_timeout" default:"5s"`
	// UseLocalNS sends queries to the fixed resolver instead of each
	// domain's authoritative nameservers.
	UseLocalNS bool `koanf:"use_local_ns" json:"use_local_ns" default:"true"`
	// RecheckInterval is how often stale domains are re-checked
	// automatically. Zero disables scheduled checks.
	RecheckInterval time.Duration `koanf:"recheck_interval" json:"recheck_interval" default:"1h"`
}

// MTASTSConfig holds the MTA-STS policy fetcher settings.
type MTASTSConfig struct {
	// FetchTimeout bounds the HTTPS policy fetch, connect and read.
	FetchTimeout time.Duration `koanf:"fetch_timeout" json:"fetch_timeout" default:"10s"`
}

// WebhookConfig holds the webhook delivery settings.
type WebhookConfig struct {
	// RequestTimeout bounds a single webhook delivery request.
	RequestTimeout time.Duration `koanf:"request_timeout" json:"request_timeout" default:"10s"`
}

// DatabaseConfig holds the storage settings.
type DatabaseConfig struct {
	// Path is the sqlite database file. The value ":memory:" selects the
	// in-memory store.
	Path string `koanf:"path" json:"path" default:"postal.db"`
}

// Load reads configuration from the YAML file at path (when it exists)
// and then applies environment overrides on top of struct defaults.
func Load(path *string) (*Config, error) {
	cfg := &Config{}
	defaults.SetDefaults(cfg)

	k := koanf.New(".")

	if path != nil && *path != "" {
		if _, err := os.Stat(*path); err == nil {
			if err := k.Load(file.Provider(*path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrConfigLoad, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigLoad, err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigUnmarshal, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envKey maps POSTAL_SERVER__LISTEN to server.listen.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))

	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks cross-field configuration invariants.
func (c *Config) Validate() error {
	if len(c.DNS.MXRecords) == 0 {
		return ErrNoMXRecords
	}

	return nil
}

// RecordConfig returns the record-generation view of the DNS settings.
func (c *Config) RecordConfig() domain.RecordConfig {
	return domain.RecordConfig{
		SPFInclude:          c.DNS.SPFInclude,
		MXRecords:           c.DNS.MXRecords,
		ReturnPathPrefix:    c.DNS.ReturnPathPrefix,
		ReturnPathDomain:    c.DNS.ReturnPathDomain,
		DKIMIdentifier:      c.DNS.DKIMIdentifier,
		DMARCPreferredEntry: c.DNS.DMARCPreferredEntry,
	}
}
