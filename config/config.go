// Package config binds the command-line flags and validates runtime
// configuration for subdrill.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Defaults applied by Validate when flags are unset or out of range.
const (
	DefaultResolver    = "8.8.8.8"
	DefaultDNSTimeout  = 5 * time.Second
	DefaultHTTPTimeout = 10 * time.Second
	DefaultMaxRetries  = 3
	DefaultUserAgent   = "subdrill/1.0"
	DefaultConcurrency = 100
)

// Config captures all runtime configuration for the CLI.
type Config struct {
	Domain      string
	OutputPath  string
	Resolvers   string
	DNSTimeout  time.Duration
	HTTPTimeout time.Duration
	MaxRetries  int
	UserAgent   string
	Concurrency int

	Verbose  bool
	LogLevel string
	LogFile  string

	ConfigPath string
	Profile    string

	resolverList []string
}

// BindFlags registers the shared command-line flags and returns a Config
// instance whose fields are populated when Cobra parses flag values.
func BindFlags(cmd *cobra.Command) *Config {
	cfg := &Config{}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&cfg.Domain, "domain", "d", "", "Target domain to enumerate")
	flags.StringVarP(&cfg.OutputPath, "output", "o", "", "Output file path (default: <domain>.txt)")
	flags.StringVarP(&cfg.Resolvers, "resolvers", "r", DefaultResolver, "Comma-separated list of DNS resolver addresses")
	flags.DurationVar(&cfg.DNSTimeout, "dns-timeout", DefaultDNSTimeout, "Timeout for individual DNS queries")
	flags.DurationVar(&cfg.HTTPTimeout, "http-timeout", DefaultHTTPTimeout, "Timeout per crt.sh request attempt")
	flags.IntVar(&cfg.MaxRetries, "retries", DefaultMaxRetries, "Number of attempts for crt.sh requests")
	flags.StringVar(&cfg.UserAgent, "user-agent", DefaultUserAgent, "User-Agent header for HTTP requests")
	flags.IntVar(&cfg.Concurrency, "concurrency", DefaultConcurrency, "Maximum concurrent DNS/HTTP operations")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose logging output")
	flags.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&cfg.LogFile, "log-file", "", "Optional file to append log output to")
	flags.StringVar(&cfg.ConfigPath, "config", "", "Path to a configuration file")
	flags.StringVar(&cfg.Profile, "profile", "", "Named profile from the configuration file")

	return cfg
}

// Validate ensures the provided configuration values meet the expected
// constraints and normalises their representation where required.
func (c *Config) Validate() error {
	c.Domain = strings.ToLower(strings.TrimSpace(c.Domain))
	if c.Domain == "" {
		return fmt.Errorf("a target domain is required")
	}

	if strings.TrimSpace(c.OutputPath) == "" {
		c.OutputPath = c.Domain + ".txt"
	}

	c.resolverList = c.resolverList[:0]
	for _, entry := range strings.Split(c.Resolvers, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		c.resolverList = append(c.resolverList, entry)
	}
	if len(c.resolverList) == 0 {
		c.resolverList = []string{DefaultResolver}
	}

	if c.DNSTimeout <= 0 {
		c.DNSTimeout = DefaultDNSTimeout
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = DefaultUserAgent
	}

	return nil
}

// ResolverList returns the parsed resolver addresses. Only meaningful after
// Validate has run.
func (c *Config) ResolverList() []string {
	return c.resolverList
}
