// Package domainutil provides domain name normalization and public-suffix
// helpers shared by the scanner, the DNS resolver and the ACME orchestrator.
//
// All domain comparisons in this repository (SAN deduplication, scan lock
// keys, authoritative nameserver cache keys) go through Normalize, which
// lowercases the name and converts internationalized labels to their ASCII
// (punycode) form. This is the single case-folding policy for the module.
package domainutil
