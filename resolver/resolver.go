// Package resolver performs DNS lookups against an explicitly configured list
// of recursive resolvers. No state from the system resolver leaks in; the
// server list and query timeout are fixed at construction.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// ErrNoRecords indicates the query succeeded but returned no usable answers
// (including NXDOMAIN responses).
var ErrNoRecords = errors.New("no records found")

// Options controls Resolver instantiation.
type Options struct {
	Servers []string
	Timeout time.Duration
}

// Resolver issues queries to every configured server concurrently and keeps
// the first successful answer.
type Resolver struct {
	client  *dns.Client
	servers []string
	timeout time.Duration
}

// New instantiates a Resolver. At least one server address is required;
// addresses without a port default to :53.
func New(opts Options) (*Resolver, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	servers := make([]string, 0, len(opts.Servers))
	for _, server := range opts.Servers {
		server = strings.TrimSpace(server)
		if server == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(server); err != nil {
			server = net.JoinHostPort(server, "53")
		}
		servers = append(servers, server)
	}
	if len(servers) == 0 {
		return nil, errors.New("at least one DNS resolver must be configured")
	}

	client := &dns.Client{
		Net:          "udp",
		Timeout:      timeout,
		Dialer:       &net.Dialer{Timeout: timeout},
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	return &Resolver{client: client, servers: servers, timeout: timeout}, nil
}

// Timeout reports the per-query timeout the resolver was built with.
func (r *Resolver) Timeout() time.Duration {
	return r.timeout
}

// LookupNS returns the nameserver hostnames for domain, deduplicated and
// stripped of trailing dots.
func (r *Resolver) LookupNS(ctx context.Context, domain string) ([]string, error) {
	records, err := r.query(ctx, domain, dns.TypeNS)
	if err != nil {
		return nil, err
	}

	hosts := make([]string, 0, len(records))
	for _, rr := range records {
		if ns, ok := rr.(*dns.NS); ok {
			if host := trimName(ns.Ns); host != "" {
				hosts = append(hosts, host)
			}
		}
	}
	if len(hosts) == 0 {
		return nil, ErrNoRecords
	}
	return dedupe(hosts), nil
}

// LookupMX returns the mail exchanger hostnames for domain.
func (r *Resolver) LookupMX(ctx context.Context, domain string) ([]string, error) {
	records, err := r.query(ctx, domain, dns.TypeMX)
	if err != nil {
		return nil, err
	}

	hosts := make([]string, 0, len(records))
	for _, rr := range records {
		if mx, ok := rr.(*dns.MX); ok {
			if host := trimName(mx.Mx); host != "" {
				hosts = append(hosts, host)
			}
		}
	}
	if len(hosts) == 0 {
		return nil, ErrNoRecords
	}
	return dedupe(hosts), nil
}

// LookupTXT returns the TXT values for name. NXDOMAIN surfaces as
// ErrNoRecords so callers can treat "name does not exist" as an ordinary
// outcome.
func (r *Resolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	records, err := r.query(ctx, name, dns.TypeTXT)
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(records))
	for _, rr := range records {
		if txt, ok := rr.(*dns.TXT); ok {
			values = append(values, strings.Join(txt.Txt, ""))
		}
	}
	if len(values) == 0 {
		return nil, ErrNoRecords
	}
	return values, nil
}

// query races the configured servers and returns the first successful answer
// section, cancelling the stragglers.
func (r *Resolver) query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("empty query name")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type answer struct {
		records []dns.RR
		err     error
	}

	responses := make(chan answer, len(r.servers))
	var wg sync.WaitGroup

	for _, server := range r.servers {
		server := server
		wg.Add(1)
		go func() {
			defer wg.Done()
			records, err := r.queryServer(ctx, server, name, qtype)
			select {
			case responses <- answer{records: records, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	go func() {
		wg.Wait()
		close(responses)
	}()

	var lastErr error
	for res := range responses {
		if res.err == nil {
			cancel()
			return res.records, nil
		}
		lastErr = res.err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no dns response for %s: %w", name, ErrNoRecords)
	}
	return nil, lastErr
}

func (r *Resolver) queryServer(ctx context.Context, server, name string, qtype uint16) ([]dns.RR, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	response, _, err := r.client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", server, err)
	}

	switch response.Rcode {
	case dns.RcodeSuccess:
		return response.Answer, nil
	case dns.RcodeNameError:
		return nil, fmt.Errorf("%s: %w", name, ErrNoRecords)
	default:
		return nil, fmt.Errorf("query for %s failed with rcode %s", name, dns.RcodeToString[response.Rcode])
	}
}

func trimName(name string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}
