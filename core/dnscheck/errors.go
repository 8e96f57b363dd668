package dnscheck

import "errors"

var (
	// ErrNoNameservers is returned when a zone walk produces no usable
	// nameserver addresses.
	ErrNoNameservers = errors.New("no authoritative nameservers found")

	// ErrCNAMEChainTooDeep is returned when TXT resolution follows more
	// chained CNAME targets than the depth budget allows.
	ErrCNAMEChainTooDeep = errors.New("cname chain too deep")

	// errNotPropagated marks a failed propagation poll attempt.
	errNotPropagated = errors.New("expected TXT value not present on all nameservers")
)
