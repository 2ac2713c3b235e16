package cookies

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// RegistrableDomain returns the last two dot-separated labels of host,
// lowercased and IDNA-encoded, without leading dots or a port.
// Cookies are shared across sibling subdomains of this domain.
//
//	RegistrableDomain("www.example.com") == "example.com"
//	RegistrableDomain(".a.b.example.com:8443") == "example.com"
func RegistrableDomain(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, ".")
	if host == "" {
		return ""
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	host = strings.ToLower(host)
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// NormalizeDomain prefixes the registrable domain with "." so the cookie
// applies to every subdomain. An empty domain stays empty.
func NormalizeDomain(domain string) string {
	rd := RegistrableDomain(domain)
	if rd == "" {
		return ""
	}
	return "." + rd
}

// MatchesHost reports whether a cookie domain belongs to host's registrable
// domain: exact match, dot-prefix, or any subdomain.
func MatchesHost(cookieDomain, host string) bool {
	rd := RegistrableDomain(host)
	if rd == "" {
		return false
	}
	d := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cookieDomain), "."))
	return d == rd || strings.HasSuffix(d, "."+rd)
}

// SourceURL is the origin a bundle captured on host is attributed to.
func SourceURL(host string) string {
	return "https://" + RegistrableDomain(host)
}
