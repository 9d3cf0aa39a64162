// Package names canonicalizes discovered hostnames and decides whether they
// belong to the target domain.
package names

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"golang.org/x/net/idna"
)

// Clean normalizes a raw discovered name: the leading wildcard marker is
// stripped, surrounding whitespace and trailing dots removed, and the result
// lowercased through IDNA mapping so unicode labels compare consistently.
// Returns "" when nothing usable remains.
func Clean(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.TrimPrefix(name, "*.")
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return ""
	}

	mapped, err := idna.Lookup.ToASCII(strings.ToLower(name))
	if err != nil {
		// Names AXFR hands back (underscored service labels, for one) are not
		// always valid lookup names. Fall back to plain lowercasing.
		return strings.ToLower(name)
	}
	return mapped
}

// InScope reports whether name is a proper subdomain of domain. The apex
// itself is never in scope.
func InScope(domain, name string) bool {
	domain = Clean(domain)
	name = Clean(name)
	if domain == "" || name == "" {
		return false
	}
	return name != domain && strings.HasSuffix(name, "."+domain)
}

// RandomLabel returns an unpredictable DNS label suitable for wildcard
// probing without colliding with a real host.
func RandomLabel() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unreachable; a fixed label still
		// keeps the probe functional.
		return "subdrill-wildcard-probe"
	}
	return hex.EncodeToString(buf)
}
