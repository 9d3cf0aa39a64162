// Package discovery coordinates the concurrent enumeration run: the active
// DNS pipeline and the certificate transparency retriever execute in parallel
// under one shared admission governor, and their result sets merge into a
// single sorted union.
package discovery

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/volekh/subdrill/active/dnsprobe"
	"github.com/volekh/subdrill/admission"
	"github.com/volekh/subdrill/logging"
	"github.com/volekh/subdrill/names"
	"github.com/volekh/subdrill/netutil"
	"github.com/volekh/subdrill/passive/certtransparency"
	"github.com/volekh/subdrill/resolver"
	"github.com/volekh/subdrill/stats"
)

// Source is one independent provider of subdomain names. Sources fail
// independently; an error from one never cancels the others.
type Source interface {
	Name() string
	Enumerate(ctx context.Context, domain string) ([]string, error)
}

// Result is the merged outcome of a run. Errors holds the per-source failures
// that were contained along the way; a non-empty Errors map with a non-empty
// Subdomains slice is an ordinary partial success.
type Result struct {
	Subdomains []string
	Errors     map[string]error
}

// Config carries everything the orchestrator needs to build its collaborators.
type Config struct {
	Domain      string
	Resolvers   []string
	DNSTimeout  time.Duration
	HTTPTimeout time.Duration
	MaxAttempts int
	UserAgent   string
	Concurrency int
	Logger      *logging.Logger
	Tracker     *stats.Tracker
}

// Orchestrator owns the shared governor and HTTP client and hands them to
// every source it runs.
type Orchestrator struct {
	domain   string
	sources  []Source
	governor *admission.Governor
	logger   *logging.Logger
	tracker  *stats.Tracker
}

// New builds an orchestrator with the two standard sources: the DNS discovery
// pipeline and the crt.sh retriever.
func New(cfg Config) (*Orchestrator, error) {
	domain := names.Clean(cfg.Domain)
	if domain == "" {
		return nil, errors.New("domain is required")
	}

	governor := admission.New(cfg.Concurrency)

	res, err := resolver.New(resolver.Options{Servers: cfg.Resolvers, Timeout: cfg.DNSTimeout})
	if err != nil {
		return nil, err
	}

	httpClient := netutil.NewHTTPClient(cfg.HTTPTimeout)
	certClient := certtransparency.NewClient(
		certtransparency.WithHTTPClient(httpClient),
		certtransparency.WithTimeout(cfg.HTTPTimeout),
		certtransparency.WithMaxAttempts(cfg.MaxAttempts),
		certtransparency.WithUserAgent(cfg.UserAgent),
		certtransparency.WithGovernor(governor),
		certtransparency.WithTracker(cfg.Tracker),
	)

	sources := []Source{
		&dnsSource{resolver: res, governor: governor, logger: cfg.Logger, tracker: cfg.Tracker},
		&certSource{client: certClient},
	}

	return &Orchestrator{
		domain:   domain,
		sources:  sources,
		governor: governor,
		logger:   cfg.Logger,
		tracker:  cfg.Tracker,
	}, nil
}

// Discover runs every source to completion and returns the merged result.
func (o *Orchestrator) Discover(ctx context.Context) Result {
	return Run(ctx, o.domain, o.sources, o.logger, o.tracker)
}

// Run executes the given sources concurrently and unions their results. The
// union is commutative: relative completion order never changes the outcome.
func Run(ctx context.Context, domain string, sources []Source, logger *logging.Logger, tracker *stats.Tracker) Result {
	result := Result{Errors: make(map[string]error)}

	domain = names.Clean(domain)
	if domain == "" || len(sources) == 0 {
		return result
	}
	if ctx == nil {
		ctx = context.Background()
	}

	merged := make(map[string]struct{})
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	for _, source := range sources {
		source := source
		group.Go(func() error {
			found, err := source.Enumerate(groupCtx, domain)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Contained: siblings keep running, the run keeps whatever
				// this source managed to accumulate.
				result.Errors[source.Name()] = err
				logger.Warnf("source %s failed: %v", source.Name(), err)
			}
			tracker.RecordNames(source.Name(), len(found))
			for _, name := range found {
				name = names.Clean(name)
				if name == "" || name == domain {
					continue
				}
				merged[name] = struct{}{}
			}
			return nil
		})
	}
	_ = group.Wait()

	result.Subdomains = make([]string, 0, len(merged))
	for name := range merged {
		result.Subdomains = append(result.Subdomains, name)
	}
	sort.Strings(result.Subdomains)
	return result
}

type dnsSource struct {
	resolver *resolver.Resolver
	governor *admission.Governor
	logger   *logging.Logger
	tracker  *stats.Tracker
}

func (s *dnsSource) Name() string { return "dns" }

func (s *dnsSource) Enumerate(ctx context.Context, domain string) ([]string, error) {
	return dnsprobe.Enumerate(ctx, dnsprobe.Options{
		Domain:   domain,
		Resolver: s.resolver,
		Governor: s.governor,
		Logger:   s.logger,
		Tracker:  s.tracker,
	})
}

type certSource struct {
	client *certtransparency.Client
}

func (s *certSource) Name() string { return "crt.sh" }

func (s *certSource) Enumerate(ctx context.Context, domain string) ([]string, error) {
	return s.client.Enumerate(ctx, domain)
}
