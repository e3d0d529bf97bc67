// Package probe implements the sweep strategies that find live hosts on
// a network. Two strategies exist: a resolution sweep built on the ARP
// table utilities, which yields MAC and vendor identity, and a
// reachability sweep built on nmap ping scanning, which confirms hosts
// that answer at the IP layer. A full discovery pass runs both and
// merges their results.
package probe

import (
	"context"
	"sort"
)

// Strategy names used in logs and metrics.
const (
	StrategyARP  = "arp"
	StrategyPing = "ping"
)

// Result is one live host reported by a sweep strategy.
type Result struct {
	IP       string
	MAC      string
	Hostname string
	Vendor   string
}

// Strategy discovers live hosts on a network.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// Sweep probes the given CIDR network and returns the hosts that
	// responded.
	Sweep(ctx context.Context, network string) ([]Result, error)
}

// Merge unions two sweeps keyed by IP, ordered by IP string. When both
// strategies saw the same host, the resolution record wins because it
// carries link-layer identity the reachability sweep cannot observe;
// its blank fields are filled from the reachability record.
func Merge(resolution, reachability []Result) []Result {
	byIP := make(map[string]Result, len(resolution)+len(reachability))
	for _, r := range reachability {
		byIP[r.IP] = r
	}
	for _, r := range resolution {
		if prev, seen := byIP[r.IP]; seen {
			if r.MAC == "" {
				r.MAC = prev.MAC
			}
			if r.Hostname == "" {
				r.Hostname = prev.Hostname
			}
			if r.Vendor == "" {
				r.Vendor = prev.Vendor
			}
		}
		byIP[r.IP] = r
	}

	merged := make([]Result, 0, len(byIP))
	for _, r := range byIP {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].IP < merged[j].IP
	})
	return merged
}
