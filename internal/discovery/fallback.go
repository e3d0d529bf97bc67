package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/inventory"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/logging"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/netmap"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/probe"
)

const fallbackSweepTimeout = 90 * time.Second

// GatewayLocator knows the primary local range and the default
// gateway. netinfo.Enumerator satisfies it.
type GatewayLocator interface {
	PrimaryCIDR() string
	DefaultGateway(ctx context.Context) string
}

// MapCache serves a network map when the discovery service has no
// inventory yet, typically right after a cold start. It sweeps the
// primary local range directly and builds a gateway-centered graph.
//
// The first call blocks on a live sweep. Later calls return the
// cached map immediately and trigger at most one background refresh
// at a time, so a burst of readers cannot stack up sweeps.
type MapCache struct {
	sweeper probe.Strategy
	locator GatewayLocator
	logger  *logging.Logger

	mu         sync.Mutex
	cached     *netmap.Map
	refreshing bool
}

// NewMapCache creates an empty cache backed by the given reachability
// sweeper.
func NewMapCache(sweeper probe.Strategy, locator GatewayLocator, logger *logging.Logger) *MapCache {
	if logger == nil {
		logger = logging.Default()
	}
	return &MapCache{
		sweeper: sweeper,
		locator: locator,
		logger:  logger.WithComponent("mapcache"),
	}
}

// Get returns the fallback map. The first call performs the sweep
// synchronously; afterwards the cached map is returned and refreshed
// in the background.
func (c *MapCache) Get(ctx context.Context) netmap.Map {
	c.mu.Lock()
	if c.cached != nil {
		cached := *c.cached
		if !c.refreshing {
			c.refreshing = true
			go c.refresh()
		}
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	m := c.build(ctx)
	c.mu.Lock()
	c.cached = &m
	c.mu.Unlock()
	return m
}

// refresh rebuilds the cache off the caller's request path.
func (c *MapCache) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), fallbackSweepTimeout)
	defer cancel()

	m := c.build(ctx)
	c.mu.Lock()
	// Keep the last good map if the refresh sweep failed outright.
	if m.Error == "" || c.cached == nil {
		c.cached = &m
	}
	c.refreshing = false
	c.mu.Unlock()
}

// build sweeps the primary range and assembles the gateway graph. A
// failed sweep still yields a usable map with the error recorded in
// it rather than an error return, so callers always render something.
func (c *MapCache) build(ctx context.Context) netmap.Map {
	network := c.locator.PrimaryCIDR()
	gateway := c.locator.DefaultGateway(ctx)

	start := time.Now()
	results, err := c.sweeper.Sweep(ctx, network)
	if err != nil {
		c.logger.ErrorDiscovery("fallback sweep failed", network, err)
		m := netmap.BuildGateway(nil, gateway)
		m.Error = err.Error()
		return m
	}
	c.logger.InfoDiscovery("fallback sweep finished", network,
		"hosts", len(results),
		"duration", time.Since(start))

	devices := make([]inventory.NetworkDevice, 0, len(results))
	for _, r := range results {
		devices = append(devices, inventory.NetworkDevice{
			IP:         r.IP,
			MAC:        r.MAC,
			Hostname:   r.Hostname,
			Vendor:     r.Vendor,
			DeviceType: inventory.TypeHost,
			Status:     inventory.StatusOnline,
		})
	}
	return netmap.BuildGateway(devices, gateway)
}
