package dnscheck

import "time"

// Config holds configuration for the resolver and verifier. Designed for
// environment-based configuration using the core/config loader.
type Config struct {
	// Resolvers are the default recursive resolvers used to discover
	// authoritative nameservers and as the fallback when discovery fails.
	Resolvers []string `env:"DNS_RESOLVERS" envDefault:"1.1.1.1,8.8.8.8,4.4.4.4" envSeparator:","`

	// QueryTimeout bounds a single DNS exchange.
	QueryTimeout time.Duration `env:"DNS_QUERY_TIMEOUT" envDefault:"5s"`

	// PropagationAttempts is the number of pre-validation polls before
	// giving up.
	PropagationAttempts int `env:"DNS_PROPAGATION_ATTEMPTS" envDefault:"5"`

	// PropagationInterval is the fixed delay between pre-validation polls.
	PropagationInterval time.Duration `env:"DNS_PROPAGATION_INTERVAL" envDefault:"30s"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Resolvers:           []string{"1.1.1.1", "8.8.8.8", "4.4.4.4"},
		QueryTimeout:        5 * time.Second,
		PropagationAttempts: 5,
		PropagationInterval: 30 * time.Second,
	}
}
