package config

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func newTestConfig(t *testing.T, args ...string) *Config {
	t.Helper()
	cmd := &cobra.Command{Use: "subdrill", RunE: func(*cobra.Command, []string) error { return nil }}
	cfg := BindFlags(cmd)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("flag parsing failed: %v", err)
	}
	return cfg
}

func TestValidateRequiresDomain(t *testing.T) {
	cfg := newTestConfig(t)
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing domain")
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := newTestConfig(t, "--domain", "Example.COM")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Domain != "example.com" {
		t.Fatalf("domain not normalised: %q", cfg.Domain)
	}
	if cfg.OutputPath != "example.com.txt" {
		t.Fatalf("unexpected default output path: %q", cfg.OutputPath)
	}
	if cfg.DNSTimeout != DefaultDNSTimeout || cfg.HTTPTimeout != DefaultHTTPTimeout {
		t.Fatalf("unexpected timeouts: %v %v", cfg.DNSTimeout, cfg.HTTPTimeout)
	}
	if cfg.Concurrency != DefaultConcurrency || cfg.MaxRetries != DefaultMaxRetries {
		t.Fatalf("unexpected defaults: %d %d", cfg.Concurrency, cfg.MaxRetries)
	}

	resolvers := cfg.ResolverList()
	if len(resolvers) != 1 || resolvers[0] != DefaultResolver {
		t.Fatalf("unexpected resolvers: %v", resolvers)
	}
}

func TestValidateParsesResolverList(t *testing.T) {
	cfg := newTestConfig(t, "--domain", "example.com", "--resolvers", " 1.1.1.1 ,8.8.4.4,, ")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	resolvers := cfg.ResolverList()
	if len(resolvers) != 2 || resolvers[0] != "1.1.1.1" || resolvers[1] != "8.8.4.4" {
		t.Fatalf("unexpected resolvers: %v", resolvers)
	}
}

func TestValidateClampsOutOfRangeValues(t *testing.T) {
	cfg := newTestConfig(t, "--domain", "example.com", "--retries", "-1", "--concurrency", "0", "--dns-timeout", "0s")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.MaxRetries != DefaultMaxRetries || cfg.Concurrency != DefaultConcurrency {
		t.Fatalf("out-of-range values not clamped: %d %d", cfg.MaxRetries, cfg.Concurrency)
	}
	if cfg.DNSTimeout != DefaultDNSTimeout {
		t.Fatalf("dns timeout not clamped: %v", cfg.DNSTimeout)
	}
}

func TestValidateKeepsExplicitValues(t *testing.T) {
	cfg := newTestConfig(t,
		"--domain", "example.com",
		"--output", "results/out.txt",
		"--http-timeout", "30s",
		"--user-agent", "custom/2.0",
	)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.OutputPath != "results/out.txt" {
		t.Fatalf("explicit output overridden: %q", cfg.OutputPath)
	}
	if cfg.HTTPTimeout != 30*time.Second || cfg.UserAgent != "custom/2.0" {
		t.Fatalf("explicit values overridden: %v %q", cfg.HTTPTimeout, cfg.UserAgent)
	}
}
