package dnscheck

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/miekg/dns"

	"github.com/dmitrymomot/certkit/core/logger"
	"github.com/dmitrymomot/certkit/pkg/domainutil"
)

const maxCNAMEDepth = 10

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger configures structured logging for the resolver.
func WithResolverLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.logger = log
		}
	}
}

// WithServerPort overrides the DNS port (default 53). Primarily useful for
// tests running a local nameserver on an ephemeral port.
func WithServerPort(port int) ResolverOption {
	return func(r *Resolver) {
		if port > 0 {
			r.port = strconv.Itoa(port)
		}
	}
}

// Resolver discovers authoritative nameservers by walking zone cuts and
// answers TXT queries against specific servers. It keeps a process-lifetime
// cache of each zone's nameserver set; construct one resolver per process and
// inject it where needed rather than relying on package-level state.
type Resolver struct {
	defaults []string
	client   *dns.Client
	port     string
	logger   *slog.Logger

	mu    sync.Mutex
	zones map[string][]string
}

// NewResolver creates a resolver using the configured default resolver set.
// Entries that do not parse as IP addresses are dropped; an empty result
// falls back to the built-in defaults.
func NewResolver(cfg Config, opts ...ResolverOption) *Resolver {
	var defaults []string
	for _, raw := range cfg.Resolvers {
		if ip := net.ParseIP(strings.TrimSpace(raw)); ip != nil {
			defaults = append(defaults, ip.String())
		}
	}
	if len(defaults) == 0 {
		defaults = DefaultConfig().Resolvers
	}

	r := &Resolver{
		defaults: defaults,
		client:   &dns.Client{Timeout: cfg.QueryTimeout},
		port:     "53",
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		zones:    make(map[string][]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultServers returns the configured default resolver set.
func (r *Resolver) DefaultServers() []string {
	out := make([]string, len(r.defaults))
	copy(out, r.defaults)
	return out
}

// defaultServer picks a default resolver by round-robin index.
func (r *Resolver) defaultServer(round int) string {
	if round < 0 {
		round = -round
	}
	return r.defaults[round%len(r.defaults)]
}

// AuthoritativeServers returns the nameserver IPs authoritative for name.
// Results are cached for the resolver's lifetime. Discovery failures fall
// back to the default resolver set, and the fallback is cached too.
func (r *Resolver) AuthoritativeServers(ctx context.Context, name string) []string {
	key := domainutil.Normalize(name)

	r.mu.Lock()
	cached, ok := r.zones[key]
	r.mu.Unlock()
	if ok {
		return cached
	}

	servers, err := r.walk(ctx, key)
	if err != nil || len(servers) == 0 {
		r.logger.WarnContext(ctx, "authoritative nameserver discovery failed, using default resolvers",
			logger.Domain(key), logger.Error(err))
		servers = r.DefaultServers()
	}

	r.mu.Lock()
	r.zones[key] = servers
	r.mu.Unlock()
	return servers
}

// Invalidate drops the cached nameserver set for a zone or name.
func (r *Resolver) Invalidate(zone string) {
	r.mu.Lock()
	delete(r.zones, domainutil.Normalize(zone))
	r.mu.Unlock()
}

// InvalidateAll drops every cached nameserver set.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.zones = make(map[string][]string)
	r.mu.Unlock()
}

// walk queries NS records at progressively deeper zone cuts, starting at the
// public suffix and adding one label at a time until the full name is
// reached. Each intermediate zone's nameserver set is cached.
func (r *Resolver) walk(ctx context.Context, name string) ([]string, error) {
	suffix := domainutil.TLD(name)
	if suffix == "" {
		return nil, ErrNoNameservers
	}

	// Labels between the suffix and the full name, outermost first:
	// for _acme-challenge.sub.example.com the walk visits
	// com, example.com, sub.example.com, _acme-challenge.sub.example.com.
	rest := strings.TrimSuffix(strings.TrimSuffix(name, suffix), ".")
	var labels []string
	if rest != "" {
		parts := strings.Split(rest, ".")
		labels = make([]string, 0, len(parts))
		for i := len(parts) - 1; i >= 0; i-- {
			labels = append(labels, parts[i])
		}
	}

	zone := suffix
	server := r.defaultServer(0)
	var current []string

	for {
		r.mu.Lock()
		cached, ok := r.zones[zone]
		r.mu.Unlock()

		if !ok {
			r.logger.DebugContext(ctx, "querying nameserver", logger.Nameserver(server), logger.Zone(zone))
			found, err := r.queryNS(ctx, server, zone)
			if err != nil {
				return nil, err
			}
			if len(found) == 0 {
				// No delegation at this cut; the parent zone's servers
				// stay authoritative.
				found = current
				if len(found) == 0 {
					found = r.DefaultServers()
				}
			}
			r.mu.Lock()
			r.zones[zone] = found
			r.mu.Unlock()
			cached = found
		}

		current = cached
		server = current[0]

		if len(labels) == 0 {
			return current, nil
		}
		zone = labels[0] + "." + zone
		labels = labels[1:]
	}
}

// queryNS asks server for NS records of zone and resolves each nameserver
// name to an IP address via the default resolvers.
func (r *Resolver) queryNS(ctx context.Context, server, zone string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(zone), dns.TypeNS)
	msg.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, msg, net.JoinHostPort(server, r.port))
	if err != nil {
		return nil, err
	}

	var names []string
	for _, rr := range in.Answer {
		if ns, ok := rr.(*dns.NS); ok {
			names = append(names, ns.Ns)
		}
	}
	if len(names) == 0 {
		// Non-recursive servers put the delegation in the authority section.
		for _, rr := range in.Ns {
			if ns, ok := rr.(*dns.NS); ok {
				names = append(names, ns.Ns)
			}
		}
	}

	var ips []string
	for i, nsName := range names {
		ip, err := r.queryA(ctx, r.defaultServer(i), nsName)
		if err != nil {
			r.logger.DebugContext(ctx, "nameserver address lookup failed",
				logger.Nameserver(nsName), logger.Error(err))
			continue
		}
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips, nil
}

// queryA resolves the first A record for name at server.
func (r *Resolver) queryA(ctx context.Context, server, name string) (string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeA)
	msg.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, msg, net.JoinHostPort(server, r.port))
	if err != nil {
		return "", err
	}

	for _, rr := range in.Answer {
		if a, ok := rr.(*dns.A); ok {
			return a.A.String(), nil
		}
	}
	return "", nil
}

// TextRecords queries TXT records for name at a specific server, following
// CNAME chains by resolving the canonical name's authoritative servers and
// re-querying there. The attempt index round-robins across the target's
// servers; chain depth is bounded rather than cycle-detected.
func (r *Resolver) TextRecords(ctx context.Context, server, name string, attempt int) ([]string, error) {
	return r.textRecords(ctx, server, name, attempt, 0)
}

func (r *Resolver) textRecords(ctx context.Context, server, name string, attempt, depth int) ([]string, error) {
	if depth > maxCNAMEDepth {
		return nil, ErrCNAMEChainTooDeep
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeTXT)
	msg.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, msg, net.JoinHostPort(server, r.port))
	if err != nil {
		return nil, err
	}

	for _, rr := range in.Answer {
		cname, ok := rr.(*dns.CNAME)
		if !ok {
			continue
		}
		target := domainutil.Normalize(cname.Target)
		servers := r.AuthoritativeServers(ctx, target)
		next := servers[attempt%len(servers)]
		return r.textRecords(ctx, next, target, attempt, depth+1)
	}

	var values []string
	for _, rr := range in.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			values = append(values, strings.Join(txt.Txt, ""))
		}
	}
	return values, nil
}
