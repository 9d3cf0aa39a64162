// Package zonetransfer attempts full zone transfers (AXFR) against single
// authoritative nameservers. Refused transfers are the common case in
// production and are reported as a status, not an error.
package zonetransfer

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/volekh/subdrill/names"
)

// Status classifies the outcome of a single transfer attempt.
type Status int

const (
	// StatusOK means the nameserver answered the transfer. The zone may
	// still have contained no in-scope names.
	StatusOK Status = iota
	// StatusRefused means the nameserver declined the transfer at the
	// protocol level. Expected for almost every production nameserver.
	StatusRefused
	// StatusTimeout means the attempt exceeded its deadline.
	StatusTimeout
	// StatusError covers any other transport failure.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRefused:
		return "refused"
	case StatusTimeout:
		return "timeout"
	default:
		return "error"
	}
}

// Outcome is the result of one transfer attempt against one nameserver.
// Names holds the proper subdomains enumerated from the zone; the apex's own
// records are filtered at insertion. Err is only set for StatusTimeout and
// StatusError and is informational — a failed probe never aborts siblings.
type Outcome struct {
	Nameserver string
	Names      []string
	Status     Status
	Err        error
}

// Probe requests a full zone transfer for domain from the given nameserver.
// The call blocks for the duration of the transfer; callers are expected to
// hold an admission slot for exactly that duration and to run concurrent
// probes on their own goroutines.
func Probe(ctx context.Context, domain, nameserver string, timeout time.Duration) Outcome {
	outcome := Outcome{Nameserver: nameserver}

	domain = names.Clean(domain)
	nameserver = strings.TrimSpace(nameserver)
	if domain == "" || nameserver == "" {
		outcome.Status = StatusError
		outcome.Err = errors.New("domain and nameserver are required")
		return outcome
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	addr := nameserver
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "53")
	}

	transfer := &dns.Transfer{
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	request := new(dns.Msg)
	request.SetAxfr(dns.Fqdn(domain))

	found, err := collectTransfer(ctx, transfer, request, addr, domain)
	if err != nil {
		outcome.Status = classify(err)
		if outcome.Status != StatusRefused {
			outcome.Err = err
		}
		return outcome
	}

	outcome.Status = StatusOK
	outcome.Names = found
	return outcome
}

// collectTransfer drains the transfer envelopes and accumulates every record
// owner name that is a proper subdomain of domain.
func collectTransfer(ctx context.Context, transfer *dns.Transfer, msg *dns.Msg, addr, domain string) ([]string, error) {
	envelopes, err := transfer.In(msg, addr)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for envelope := range envelopes {
		if envelope.Error != nil {
			return nil, envelope.Error
		}
		for _, rr := range envelope.RR {
			if rr == nil {
				continue
			}
			name := names.Clean(rr.Header().Name)
			if !names.InScope(domain, name) {
				continue
			}
			seen[name] = struct{}{}
		}
		if ctx != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	found := make([]string, 0, len(seen))
	for name := range seen {
		found = append(found, name)
	}
	sort.Strings(found)
	return found, nil
}

func classify(err error) Status {
	if err == nil {
		return StatusOK
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return StatusTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}

	// miekg/dns signals a declined transfer either through the transfer
	// rcode or a first envelope that does not begin with a SOA record.
	if errors.Is(err, dns.ErrSoa) {
		return StatusRefused
	}
	msg := err.Error()
	if strings.Contains(msg, "bad xfr rcode") || strings.Contains(msg, "unexpected SOA") {
		return StatusRefused
	}

	return StatusError
}
