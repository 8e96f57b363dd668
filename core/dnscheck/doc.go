// Package dnscheck resolves the authoritative nameservers for a domain and
// verifies DNS challenge propagation against them.
//
// The Resolver walks zone cuts downward from the public suffix (com ->
// example.com -> sub.example.com), querying NS records through a configurable
// default resolver set and caching each zone's discovered nameserver set for
// the lifetime of the resolver. Any failure during the walk falls back to the
// default resolver set for that name, and the fallback itself is cached so a
// broken delegation is not re-walked on every lookup. The cache has no TTL;
// Invalidate and InvalidateAll exist for callers that need to force a
// re-walk in long-running processes.
//
// The Verifier polls every authoritative nameserver for an expected TXT value
// before ACME validation is requested. It is advisory: exhausting the retry
// budget logs the failure and reports it to the caller, who proceeds to ACME
// validation anyway since the ACME server's own check is authoritative.
package dnscheck
