package enrich

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const defaultDNSTimeout = 1 * time.Second

// Resolver performs reverse DNS lookups against the system resolvers.
type Resolver struct {
	servers []string
	timeout time.Duration
}

// NewResolver creates a resolver from /etc/resolv.conf. When no
// resolver configuration can be read, lookups simply fail and
// enrichment carries on without hostnames.
func NewResolver(timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = defaultDNSTimeout
	}
	r := &Resolver{timeout: timeout}
	if cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil {
		for _, server := range cfg.Servers {
			r.servers = append(r.servers, net.JoinHostPort(server, cfg.Port))
		}
	}
	return r
}

// Servers returns the resolver addresses in use.
func (r *Resolver) Servers() []string {
	return append([]string(nil), r.servers...)
}

// Reverse resolves the PTR name for an IP address. The trailing root
// dot is stripped from the result.
func (r *Resolver) Reverse(ctx context.Context, ip string) (string, error) {
	if len(r.servers) == 0 {
		return "", fmt.Errorf("no DNS servers configured")
	}

	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", ip, err)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)
	client := &dns.Client{Timeout: r.timeout}

	var lastErr error
	for _, server := range r.servers {
		reply, _, err := client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		for _, answer := range reply.Answer {
			if ptr, ok := answer.(*dns.PTR); ok {
				return strings.TrimSuffix(ptr.Ptr, "."), nil
			}
		}
		return "", fmt.Errorf("no PTR record for %s", ip)
	}
	return "", fmt.Errorf("reverse lookup for %s failed: %w", ip, lastErr)
}
