package enrich

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// NormalizeDomain reduces a URL or bare hostname to its lowercase
// registrable domain (sub.example.co.uk -> example.co.uk). This is the
// single place domains are normalized; everything downstream compares
// the returned form verbatim.
func NormalizeDomain(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty domain")
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parse domain %q: %w", raw, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("no hostname in %q", raw)
	}
	reg, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", fmt.Errorf("registrable domain for %q: %w", host, err)
	}
	return strings.ToLower(reg), nil
}

// SameDomain reports whether rawURL belongs to the given registrable
// domain. Subdomains count; everything else does not.
func SameDomain(domain, rawURL string) bool {
	got, err := NormalizeDomain(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(got, domain)
}
