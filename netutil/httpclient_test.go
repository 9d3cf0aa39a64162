package netutil

import (
	"net/http"
	"testing"
	"time"
)

func TestNewHTTPClientDefaults(t *testing.T) {
	client := NewHTTPClient(0)
	if client.Timeout != 0 {
		t.Fatalf("client timeout should be unset (contexts bound attempts), got %v", client.Timeout)
	}

	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if transport.MaxIdleConnsPerHost != 32 {
		t.Fatalf("unexpected MaxIdleConnsPerHost: %d", transport.MaxIdleConnsPerHost)
	}
	if !transport.ForceAttemptHTTP2 {
		t.Fatalf("expected HTTP2 enabled")
	}
}

func TestNewHTTPClientAppliesTimeoutToTransport(t *testing.T) {
	client := NewHTTPClient(3 * time.Second)
	transport := client.Transport.(*http.Transport)
	if transport.TLSHandshakeTimeout != 3*time.Second {
		t.Fatalf("unexpected TLS handshake timeout: %v", transport.TLSHandshakeTimeout)
	}
}
