// Package dnsprobe drives the active DNS discovery pipeline: nameserver
// resolution, a concurrent zone transfer attempt against every authoritative
// server, and wildcard/MX fallbacks when no transfer yields anything.
package dnsprobe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/volekh/subdrill/active/zonetransfer"
	"github.com/volekh/subdrill/admission"
	"github.com/volekh/subdrill/logging"
	"github.com/volekh/subdrill/names"
	"github.com/volekh/subdrill/resolver"
	"github.com/volekh/subdrill/stats"
)

// ProbeFunc matches the signature of zonetransfer.Probe.
type ProbeFunc func(ctx context.Context, domain, nameserver string, timeout time.Duration) zonetransfer.Outcome

// Options configures a pipeline run.
type Options struct {
	Domain string
	// Resolver performs the NS, TXT, and MX lookups.
	Resolver *resolver.Resolver
	// AXFRTimeout bounds each zone transfer attempt. Defaults to twice the
	// resolver's query timeout.
	AXFRTimeout time.Duration
	Governor    *admission.Governor
	Logger      *logging.Logger
	Tracker     *stats.Tracker
	// Probe overrides the zone transfer implementation; nil means
	// zonetransfer.Probe.
	Probe ProbeFunc
}

// Enumerate runs the pipeline to completion and returns the discovered
// subdomains, sorted. A failed nameserver lookup is a hard stop: the error is
// returned and no fallback runs, since without nameservers no DNS-only step is
// meaningful. Fallback-stage errors are swallowed after logging.
func Enumerate(ctx context.Context, opts Options) ([]string, error) {
	domain := names.Clean(opts.Domain)
	if domain == "" {
		return nil, errors.New("domain is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	axfrTimeout := opts.AXFRTimeout
	if axfrTimeout <= 0 {
		axfrTimeout = 2 * opts.Resolver.Timeout()
	}

	nameservers, err := lookupNameservers(ctx, opts, domain)
	if err != nil {
		return nil, fmt.Errorf("resolving nameservers for %s: %w", domain, err)
	}
	opts.Logger.Debugf("dns: %d nameserver(s) for %s", len(nameservers), domain)

	found := transferFanout(ctx, opts, domain, nameservers, axfrTimeout)
	if len(found) > 0 {
		opts.Logger.Infof("dns: zone transfer enumerated %d name(s) for %s", len(found), domain)
		return sortedSet(found), nil
	}

	opts.Logger.Debugf("dns: zone transfers yielded nothing for %s, trying fallbacks", domain)
	checkWildcard(ctx, opts, domain)
	mergeMailExchangers(ctx, opts, domain, found)

	return sortedSet(found), nil
}

func lookupNameservers(ctx context.Context, opts Options, domain string) ([]string, error) {
	if err := opts.Governor.Acquire(ctx); err != nil {
		return nil, err
	}
	defer opts.Governor.Release()

	opts.Tracker.RecordProbe("ns")
	return opts.Resolver.LookupNS(ctx, domain)
}

// transferFanout probes every nameserver concurrently, each attempt gated by
// its own admission slot, and unions whatever the attempts return. Arrival
// order does not matter; a failed probe contributes nothing.
func transferFanout(ctx context.Context, opts Options, domain string, nameservers []string, timeout time.Duration) map[string]struct{} {
	probe := opts.Probe
	if probe == nil {
		probe = zonetransfer.Probe
	}

	outcomes := make(chan zonetransfer.Outcome, len(nameservers))
	var wg sync.WaitGroup

	for _, ns := range nameservers {
		ns := ns
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := opts.Governor.Acquire(ctx); err != nil {
				outcomes <- zonetransfer.Outcome{Nameserver: ns, Status: zonetransfer.StatusError, Err: err}
				return
			}
			defer opts.Governor.Release()

			opts.Tracker.RecordProbe("axfr")
			outcomes <- probe(ctx, domain, ns, timeout)
		}()
	}

	wg.Wait()
	close(outcomes)

	found := make(map[string]struct{})
	for outcome := range outcomes {
		switch outcome.Status {
		case zonetransfer.StatusOK:
			opts.Logger.Infof("dns: zone transfer from %s returned %d record(s)", outcome.Nameserver, len(outcome.Names))
			for _, name := range outcome.Names {
				found[name] = struct{}{}
			}
		case zonetransfer.StatusRefused:
			opts.Logger.Debugf("dns: zone transfer refused by %s", outcome.Nameserver)
		case zonetransfer.StatusTimeout:
			opts.Logger.Debugf("dns: zone transfer from %s timed out", outcome.Nameserver)
		default:
			opts.Logger.Warnf("dns: zone transfer from %s failed: %v", outcome.Nameserver, outcome.Err)
		}
	}
	return found
}

// checkWildcard queries a TXT record for a randomized label under the domain.
// An answer means the zone responds to anything; that is logged as a signal
// and contributes no entry, since it carries no enumerable name.
func checkWildcard(ctx context.Context, opts Options, domain string) {
	if err := opts.Governor.Acquire(ctx); err != nil {
		return
	}
	defer opts.Governor.Release()

	probe := names.RandomLabel() + "." + domain
	opts.Tracker.RecordProbe("wildcard")
	_, err := opts.Resolver.LookupTXT(ctx, probe)
	switch {
	case err == nil:
		opts.Logger.Warnf("dns: wildcard detected for %s (TXT answer for %s)", domain, probe)
	case errors.Is(err, resolver.ErrNoRecords):
		opts.Logger.Debugf("dns: no wildcard TXT behaviour for %s", domain)
	default:
		opts.Logger.Debugf("dns: wildcard check inconclusive for %s: %v", domain, err)
	}
}

// mergeMailExchangers adds MX hosts that live under the target domain. Mail
// routed to third-party providers is excluded.
func mergeMailExchangers(ctx context.Context, opts Options, domain string, found map[string]struct{}) {
	if err := opts.Governor.Acquire(ctx); err != nil {
		return
	}
	defer opts.Governor.Release()

	opts.Tracker.RecordProbe("mx")
	hosts, err := opts.Resolver.LookupMX(ctx, domain)
	if err != nil {
		opts.Logger.Debugf("dns: mx lookup for %s: %v", domain, err)
		return
	}

	added := 0
	for _, host := range hosts {
		host = names.Clean(host)
		if !names.InScope(domain, host) {
			continue
		}
		if _, ok := found[host]; !ok {
			found[host] = struct{}{}
			added++
		}
	}
	if added > 0 {
		opts.Logger.Infof("dns: %d subdomain(s) recovered from MX records for %s", added, domain)
	}
}

func sortedSet(set map[string]struct{}) []string {
	result := make([]string, 0, len(set))
	for name := range set {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}
