package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/Ullaakut/nmap/v3"
)

const defaultSweepTimeout = 120 * time.Second

// PingStrategy confirms reachable hosts with an nmap ping scan. It sees
// hosts beyond the local segment that ARP cannot, but learns no
// link-layer identity about them.
type PingStrategy struct {
	timeout time.Duration
}

// NewPingStrategy creates the reachability sweep strategy.
func NewPingStrategy(timeout time.Duration) *PingStrategy {
	if timeout <= 0 {
		timeout = defaultSweepTimeout
	}
	return &PingStrategy{timeout: timeout}
}

// Name implements Strategy.
func (s *PingStrategy) Name() string { return StrategyPing }

// Sweep implements Strategy.
func (s *PingStrategy) Sweep(ctx context.Context, network string) ([]Result, error) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	scanner, err := nmap.NewScanner(
		sweepCtx,
		nmap.WithTargets(network),
		nmap.WithPingScan(),
		nmap.WithDisabledDNSResolution(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create nmap scanner: %w", err)
	}

	result, _, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("nmap ping sweep failed: %w", err)
	}

	results := make([]Result, 0, len(result.Hosts))
	for i := range result.Hosts {
		host := &result.Hosts[i]
		if len(host.Addresses) == 0 || host.Status.State != "up" {
			continue
		}
		r := Result{IP: host.Addresses[0].Addr}
		if len(host.Hostnames) > 0 {
			r.Hostname = host.Hostnames[0].Name
		}
		results = append(results, r)
	}
	return results, nil
}
