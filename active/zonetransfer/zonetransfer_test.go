package zonetransfer

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
)

func startAXFRServer(t *testing.T, handler dns.HandlerFunc) (string, func()) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start axfr server: %v", err)
	}
	server := &dns.Server{Listener: listener, Handler: handler}
	go func() {
		_ = server.ActivateAndServe()
	}()
	return listener.Addr().String(), func() {
		server.Shutdown()
		listener.Close()
	}
}

func axfrHandler(t *testing.T, zone []string) dns.HandlerFunc {
	t.Helper()
	return func(w dns.ResponseWriter, r *dns.Msg) {
		records := make([]dns.RR, 0, len(zone))
		for _, raw := range zone {
			rr, err := dns.NewRR(raw)
			if err != nil {
				t.Errorf("failed to parse rr %q: %v", raw, err)
				return
			}
			records = append(records, rr)
		}

		transfer := new(dns.Transfer)
		ch := make(chan *dns.Envelope, 1)
		ch <- &dns.Envelope{RR: records}
		close(ch)
		if err := transfer.Out(w, r, ch); err != nil {
			t.Errorf("transfer out failed: %v", err)
		}
		w.Hijack()
	}
}

func refusingHandler() dns.HandlerFunc {
	return func(w dns.ResponseWriter, r *dns.Msg) {
		msg := new(dns.Msg)
		msg.SetRcode(r, dns.RcodeRefused)
		_ = w.WriteMsg(msg)
	}
}

func TestProbeEnumeratesZone(t *testing.T) {
	zone := []string{
		"example.com. 60 IN SOA ns1.example.com. hostmaster.example.com. 1 7200 3600 1209600 3600",
		"example.com. 60 IN NS ns1.example.com.",
		"ns1.example.com. 60 IN A 192.0.2.53",
		"www.example.com. 60 IN A 192.0.2.1",
		"Mail.Example.COM. 60 IN A 192.0.2.2",
		"api.example.com. 60 IN CNAME www.example.com.",
		"example.com. 60 IN SOA ns1.example.com. hostmaster.example.com. 1 7200 3600 1209600 3600",
	}
	addr, cleanup := startAXFRServer(t, axfrHandler(t, zone))
	defer cleanup()

	outcome := Probe(context.Background(), "example.com", addr, 2*time.Second)
	if outcome.Status != StatusOK {
		t.Fatalf("expected StatusOK, got %s (err=%v)", outcome.Status, outcome.Err)
	}

	want := []string{"api.example.com", "mail.example.com", "ns1.example.com", "www.example.com"}
	if len(outcome.Names) != len(want) {
		t.Fatalf("expected %d names, got %v", len(want), outcome.Names)
	}
	for i, name := range outcome.Names {
		if name != want[i] {
			t.Fatalf("expected %s at index %d, got %s", want[i], i, name)
		}
	}
}

func TestProbeFiltersApexRecords(t *testing.T) {
	zone := []string{
		"example.com. 60 IN SOA ns1.example.com. hostmaster.example.com. 1 7200 3600 1209600 3600",
		"example.com. 60 IN NS ns1.example.com.",
		"example.com. 60 IN TXT \"v=spf1 -all\"",
		"example.com. 60 IN SOA ns1.example.com. hostmaster.example.com. 1 7200 3600 1209600 3600",
	}
	addr, cleanup := startAXFRServer(t, axfrHandler(t, zone))
	defer cleanup()

	outcome := Probe(context.Background(), "example.com", addr, 2*time.Second)
	if outcome.Status != StatusOK {
		t.Fatalf("expected StatusOK, got %s (err=%v)", outcome.Status, outcome.Err)
	}
	for _, name := range outcome.Names {
		if name == "example.com" {
			t.Fatalf("apex leaked into results: %v", outcome.Names)
		}
	}
}

func TestProbeRefusedIsBenign(t *testing.T) {
	addr, cleanup := startAXFRServer(t, refusingHandler())
	defer cleanup()

	outcome := Probe(context.Background(), "example.com", addr, 2*time.Second)
	if outcome.Status != StatusRefused {
		t.Fatalf("expected StatusRefused, got %s (err=%v)", outcome.Status, outcome.Err)
	}
	if len(outcome.Names) != 0 {
		t.Fatalf("refused transfer yielded names: %v", outcome.Names)
	}
	if outcome.Err != nil {
		t.Fatalf("refusal should not carry an error, got %v", outcome.Err)
	}
}

func TestProbeUnreachableServer(t *testing.T) {
	// Reserved TEST-NET address, nothing listens there.
	outcome := Probe(context.Background(), "example.com", "192.0.2.1:53", 200*time.Millisecond)
	if outcome.Status != StatusTimeout && outcome.Status != StatusError {
		t.Fatalf("expected timeout or error, got %s", outcome.Status)
	}
	if len(outcome.Names) != 0 {
		t.Fatalf("failed transfer yielded names: %v", outcome.Names)
	}
}

func TestProbeValidatesInput(t *testing.T) {
	outcome := Probe(context.Background(), "", "ns1.example.com", time.Second)
	if outcome.Status != StatusError || outcome.Err == nil {
		t.Fatalf("expected validation error, got %+v", outcome)
	}
}

func TestClassify(t *testing.T) {
	if got := classify(dns.ErrSoa); got != StatusRefused {
		t.Fatalf("classify(ErrSoa) = %s, want refused", got)
	}
	if got := classify(errors.New("dns: bad xfr rcode: 5")); got != StatusRefused {
		t.Fatalf("classify(bad xfr rcode) = %s, want refused", got)
	}
	if got := classify(context.DeadlineExceeded); got != StatusTimeout {
		t.Fatalf("classify(deadline) = %s, want timeout", got)
	}
	if got := classify(errors.New("connection reset")); got != StatusError {
		t.Fatalf("classify(reset) = %s, want error", got)
	}
}
