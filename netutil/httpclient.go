// Package netutil builds the shared HTTP client used by every passive
// retriever attempt in a run.
package netutil

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient returns a connection-reusing client safe for concurrent
// request issuance. Per-attempt deadlines are handled by request contexts, so
// the client itself carries no overall timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{Transport: transport}
}
