package enrich

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/inventory"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/logging"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/probe"
)

const defaultProbeTimeout = 1 * time.Second

// Well-known ports probed on every discovered device.
var DefaultProbePorts = []int{22, 23, 53, 80, 135, 139, 443, 445, 993, 995}

// HostnameResolver resolves an IP address to a hostname.
type HostnameResolver interface {
	Reverse(ctx context.Context, ip string) (string, error)
}

// Enricher turns a bare sweep result into a full device observation by
// resolving its hostname, probing well-known ports, and classifying the
// device type.
type Enricher struct {
	ports    []int
	timeout  time.Duration
	resolver HostnameResolver
	dial     func(ctx context.Context, network, addr string) (net.Conn, error)
	logger   *logging.Logger
}

// New creates an enricher. A nil resolver disables hostname lookups.
func New(ports []int, timeout time.Duration, resolver HostnameResolver, logger *logging.Logger) *Enricher {
	if len(ports) == 0 {
		ports = DefaultProbePorts
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	dialer := &net.Dialer{}
	return &Enricher{
		ports:    ports,
		timeout:  timeout,
		resolver: resolver,
		dial:     dialer.DialContext,
		logger:   logger.WithComponent("enrich"),
	}
}

// Enrich builds a full observation for one swept host. Hostname lookup
// failures are swallowed; a device without a name is still a device.
func (e *Enricher) Enrich(ctx context.Context, r probe.Result) inventory.Observation {
	obs := inventory.Observation{
		IP:       r.IP,
		MAC:      r.MAC,
		Hostname: r.Hostname,
		Vendor:   r.Vendor,
	}

	if obs.Hostname == "" && e.resolver != nil {
		if name, err := e.resolver.Reverse(ctx, r.IP); err == nil {
			obs.Hostname = name
		}
	}

	obs.OpenPorts = e.OpenPorts(ctx, r.IP)
	obs.DeviceType = Classify(obs.IP, obs.Hostname, obs.OpenPorts)
	return obs
}

// OpenPorts probes the configured port list concurrently with direct
// TCP connect attempts and returns the ports that accepted, sorted.
func (e *Enricher) OpenPorts(ctx context.Context, ip string) []int {
	var mu sync.Mutex
	var open []int

	g, probeCtx := errgroup.WithContext(ctx)
	for _, port := range e.ports {
		port := port
		g.Go(func() error {
			dialCtx, cancel := context.WithTimeout(probeCtx, e.timeout)
			defer cancel()

			conn, err := e.dial(dialCtx, "tcp", net.JoinHostPort(ip, fmt.Sprintf("%d", port)))
			if err != nil {
				// Closed or filtered, either way not open.
				return nil
			}
			conn.Close()

			mu.Lock()
			open = append(open, port)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Ints(open)
	return open
}
