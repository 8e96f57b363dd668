package domainutil

import (
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Normalize returns the canonical form of a domain name: trimmed, without a
// trailing dot, lowercased, with internationalized labels converted to ASCII.
// Invalid IDNA input falls back to the lowercased original so that callers
// always get a usable key.
func Normalize(name string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".")
	name = strings.ToLower(name)

	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return name
	}
	return ascii
}

// Registrable returns the registrable domain (eTLD+1) for a host, e.g.
// "example.co.uk" for "sub.example.co.uk". Wildcard prefixes are stripped
// before parsing. Returns an empty string when the host has no registrable
// domain (bare TLDs, IP addresses, garbage).
func Registrable(host string) string {
	host = Normalize(strings.ReplaceAll(host, "*.", ""))
	if host == "" {
		return ""
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return domain
}

// Subdomain returns the labels left of the registrable domain, e.g. "sub"
// for "sub.example.co.uk". Returns an empty string when the host is the
// registrable domain itself or cannot be parsed.
func Subdomain(host string) string {
	host = Normalize(strings.ReplaceAll(host, "*.", ""))

	registrable := Registrable(host)
	if registrable == "" || registrable == host {
		return ""
	}
	return strings.TrimSuffix(strings.TrimSuffix(host, registrable), ".")
}

// TLD returns the public suffix of a host, e.g. "co.uk" for
// "sub.example.co.uk".
func TLD(host string) string {
	host = Normalize(host)
	if host == "" {
		return ""
	}

	suffix, _ := publicsuffix.PublicSuffix(host)
	return suffix
}
