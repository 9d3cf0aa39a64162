package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/volekh/subdrill/config"
	"github.com/volekh/subdrill/discovery"
	"github.com/volekh/subdrill/logging"
	"github.com/volekh/subdrill/output"
	"github.com/volekh/subdrill/stats"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "subdrill",
	Short: "subdrill enumerates subdomains through DNS probing and certificate transparency.",
	Long: `subdrill discovers subdomains of a target domain by combining active DNS
probing (zone transfer attempts, wildcard detection, MX record mining) with
passive reconnaissance against the crt.sh certificate transparency log.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		showVersion, err := cmd.Flags().GetBool("version")
		if err != nil {
			return err
		}
		if showVersion {
			fmt.Fprintf(cmd.OutOrStdout(), "subdrill version: %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "built: %s\n", date)
			return nil
		}

		if err := config.ApplyProfile(cfg, cmd); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		levelName := cfg.LogLevel
		if cfg.Verbose && !cmd.Flags().Changed("log-level") {
			levelName = "debug"
		}
		level, err := logging.ParseLevel(levelName)
		if err != nil {
			return err
		}

		logger, err := logging.New(logging.Options{
			Level:    level,
			Console:  cmd.ErrOrStderr(),
			FilePath: cfg.LogFile,
		})
		if err != nil {
			return err
		}
		defer logger.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg, logger)
	},
}

func init() {
	cfg = config.BindFlags(rootCmd)
	rootCmd.PersistentFlags().BoolP("version", "V", false, "Show subdrill version information and exit")
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	logger.Infof("Starting subdomain discovery for %s", cfg.Domain)
	logger.Infof("Resolvers: %v, concurrency limit: %d", cfg.ResolverList(), cfg.Concurrency)

	tracker := stats.NewTracker()

	orchestrator, err := discovery.New(discovery.Config{
		Domain:      cfg.Domain,
		Resolvers:   cfg.ResolverList(),
		DNSTimeout:  cfg.DNSTimeout,
		HTTPTimeout: cfg.HTTPTimeout,
		MaxAttempts: cfg.MaxRetries,
		UserAgent:   cfg.UserAgent,
		Concurrency: cfg.Concurrency,
		Logger:      logger,
		Tracker:     tracker,
	})
	if err != nil {
		return err
	}

	result := orchestrator.Discover(ctx)

	if ctx.Err() != nil {
		// The output file is only written after a settled run; an
		// interrupted scan leaves no partial artifact behind.
		logger.Infof("Execution interrupted by user")
		return nil
	}

	if err := output.WriteFile(cfg.OutputPath, result.Subdomains); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	printSummary(logger, cfg, tracker.Snapshot(), len(result.Subdomains))
	return nil
}

func printSummary(logger *logging.Logger, cfg *config.Config, snap stats.Snapshot, total int) {
	console := logger.ConsoleWriter()

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	bold.Fprintf(console, "\nDiscovery finished in %s\n", snap.Duration.Round(time.Millisecond))
	for _, source := range snap.SourceNames() {
		cyan.Fprintf(console, "  %-8s %d name(s)\n", source, snap.Sources[source])
	}
	cyan.Fprintf(console, "  probes   %d network operation(s)\n", snap.TotalProbes())
	green.Fprintf(console, "Total unique subdomains: %d\n", total)
	green.Fprintf(console, "Results saved to %s\n", cfg.OutputPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
