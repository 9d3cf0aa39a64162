package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const defaultConfigFilename = ".subdrill.yaml"

type fileConfig struct {
	Profiles map[string]profileSettings `yaml:"profiles"`
}

type profileSettings struct {
	Domain      *string   `yaml:"domain"`
	OutputPath  *string   `yaml:"output"`
	Resolvers   *string   `yaml:"resolvers"`
	DNSTimeout  *Duration `yaml:"dns_timeout"`
	HTTPTimeout *Duration `yaml:"http_timeout"`
	MaxRetries  *int      `yaml:"retries"`
	UserAgent   *string   `yaml:"user_agent"`
	Concurrency *int      `yaml:"concurrency"`
	Verbose     *bool     `yaml:"verbose"`
	LogLevel    *string   `yaml:"log_level"`
	LogFile     *string   `yaml:"log_file"`
}

// Duration accepts either Go duration strings ("8s") or raw nanosecond
// integers in profile files.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("unsupported YAML value for duration: %s", value.ShortTag())
	}
	raw = strings.TrimSpace(raw)
	if nanos, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(nanos)
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// ApplyProfile loads and applies the requested configuration profile to cfg.
// Command-line flag overrides take precedence over profile values.
func ApplyProfile(cfg *Config, cmd *cobra.Command) error {
	path, err := resolveConfigPath(cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("locating config file: %w", err)
	}

	if path == "" {
		if cfg.Profile != "" {
			return fmt.Errorf("profile %q requested but no %s file was found", cfg.Profile, defaultConfigFilename)
		}
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var parsed fileConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	profileName := strings.TrimSpace(cfg.Profile)
	if profileName == "" {
		profileName = "default"
		if _, ok := parsed.Profiles[profileName]; !ok {
			return nil
		}
	}

	profile, ok := parsed.Profiles[profileName]
	if !ok {
		return fmt.Errorf("profile %q not found in %s", profileName, path)
	}

	flags := cmd.PersistentFlags()
	applyString(flags, "domain", profile.Domain, &cfg.Domain)
	applyString(flags, "output", profile.OutputPath, &cfg.OutputPath)
	applyString(flags, "resolvers", profile.Resolvers, &cfg.Resolvers)
	applyDuration(flags, "dns-timeout", profile.DNSTimeout, &cfg.DNSTimeout)
	applyDuration(flags, "http-timeout", profile.HTTPTimeout, &cfg.HTTPTimeout)
	applyInt(flags, "retries", profile.MaxRetries, &cfg.MaxRetries)
	applyString(flags, "user-agent", profile.UserAgent, &cfg.UserAgent)
	applyInt(flags, "concurrency", profile.Concurrency, &cfg.Concurrency)
	applyBool(flags, "verbose", profile.Verbose, &cfg.Verbose)
	applyString(flags, "log-level", profile.LogLevel, &cfg.LogLevel)
	applyString(flags, "log-file", profile.LogFile, &cfg.LogFile)

	return nil
}

// resolveConfigPath prefers an explicit --config path, then the config file
// in the working directory, then the one in the home directory.
func resolveConfigPath(explicit string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	if _, err := os.Stat(defaultConfigFilename); err == nil {
		return defaultConfigFilename, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	candidate := filepath.Join(home, defaultConfigFilename)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	return "", nil
}

func applyString(flags *pflag.FlagSet, name string, value *string, target *string) {
	if value == nil || flags.Changed(name) {
		return
	}
	*target = *value
}

func applyInt(flags *pflag.FlagSet, name string, value *int, target *int) {
	if value == nil || flags.Changed(name) {
		return
	}
	*target = *value
}

func applyBool(flags *pflag.FlagSet, name string, value *bool, target *bool) {
	if value == nil || flags.Changed(name) {
		return
	}
	*target = *value
}

func applyDuration(flags *pflag.FlagSet, name string, value *Duration, target *time.Duration) {
	if value == nil || flags.Changed(name) {
		return
	}
	*target = time.Duration(*value)
}
