// Package discovery runs the continuous host discovery service. It
// owns two long-running loops: a full discovery cycle that sweeps the
// local networks, enriches every responding host, and reconciles the
// inventory, and a quick liveness loop that pings known devices to
// keep their online status honest. A degraded-mode map cache covers
// callers while the service has no data yet.
package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/config"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/inventory"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/logging"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/metrics"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/netmap"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/probe"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/store"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/workers"
)

// Cycle kinds used in logs and metrics.
const (
	cycleFull  = "full"
	cycleQuick = "quick"
)

// RangeEnumerator yields the CIDR ranges a full cycle should sweep.
type RangeEnumerator interface {
	LocalNetworks() []string
}

// DeviceEnricher fills in hostname, ports, and type for a swept host.
type DeviceEnricher interface {
	Enrich(ctx context.Context, r probe.Result) inventory.Observation
}

// Deps bundles the collaborators a Service needs. Tests substitute
// fakes; production wiring lives in the daemon command.
type Deps struct {
	Store        store.DeviceStore
	Resolution   probe.Strategy
	Reachability probe.Strategy
	Pinger       probe.Pinger
	Enricher     DeviceEnricher
	Ranges       RangeEnumerator
	Logger       *logging.Logger
}

// Status is a point-in-time summary of the service.
type Status struct {
	Running       bool          `json:"running"`
	DeviceCount   int           `json:"device_count"`
	OnlineCount   int           `json:"online_count"`
	OfflineCount  int           `json:"offline_count"`
	FullInterval  time.Duration `json:"full_interval"`
	QuickInterval time.Duration `json:"quick_interval"`
}

// Service is the discovery orchestrator.
type Service struct {
	cfg       config.DiscoveryConfig
	enrichCfg config.EnrichmentConfig
	deps      Deps
	inv       *inventory.Inventory
	logger    *logging.Logger
	now       func() time.Time

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	enrichPool *workers.Pool
	checkPool  *workers.Pool
}

// NewService creates a discovery service. The inventory starts empty
// until Start seeds it from the durable store.
func NewService(cfg *config.Config, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		cfg:       cfg.Discovery,
		enrichCfg: cfg.Enrichment,
		deps:      deps,
		inv:       inventory.New(),
		logger:    logger.WithComponent("discovery"),
		now:       time.Now,
	}
}

// Inventory exposes the live inventory for read access.
func (s *Service) Inventory() *inventory.Inventory {
	return s.inv
}

// Start launches both discovery loops. It is idempotent; calling Start
// on a running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	// Warm start: restore the last known inventory so callers see
	// data before the first cycle completes.
	if persisted, err := s.deps.Store.GetAll(ctx); err != nil {
		s.logger.ErrorStore("failed to restore persisted inventory", err)
	} else if len(persisted) > 0 {
		s.inv.Seed(persisted)
		s.logger.InfoDaemon("restored persisted inventory", "devices", len(persisted))
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	s.enrichPool = workers.New(workers.Config{
		Size:            s.enrichCfg.WorkerPoolSize,
		QueueSize:       1024,
		ShutdownTimeout: 30 * time.Second,
	})
	s.enrichPool.Start()

	s.checkPool = workers.New(workers.Config{
		Size:            s.cfg.QuickBatchSize,
		QueueSize:       1024,
		ShutdownTimeout: 30 * time.Second,
	})
	s.checkPool.Start()

	s.wg.Add(2)
	go s.runFullLoop(loopCtx)
	go s.runQuickLoop(loopCtx)

	s.logger.InfoDaemon("discovery service started",
		"full_interval", s.cfg.FullInterval,
		"quick_interval", s.cfg.QuickInterval)
	return nil
}

// Stop signals both loops and waits for them to exit. In-flight probes
// finish or time out naturally; nothing is forcibly killed.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	enrichPool := s.enrichPool
	checkPool := s.checkPool
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	if enrichPool != nil {
		_ = enrichPool.Shutdown()
	}
	if checkPool != nil {
		_ = checkPool.Shutdown()
	}
	s.logger.InfoDaemon("discovery service stopped")
}

// IsRunning reports whether the loops are active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Devices returns the current inventory snapshot ordered by IP. It
// remains valid after Stop.
func (s *Service) Devices() []inventory.NetworkDevice {
	return s.inv.Snapshot()
}

// NetworkMap derives the visualization graph from the inventory.
func (s *Service) NetworkMap() netmap.Map {
	return netmap.Build(s.inv.Snapshot())
}

// Status summarizes the service state.
func (s *Service) Status() Status {
	online, offline := s.inv.Counts()
	return Status{
		Running:       s.IsRunning(),
		DeviceCount:   online + offline,
		OnlineCount:   online,
		OfflineCount:  offline,
		FullInterval:  s.cfg.FullInterval,
		QuickInterval: s.cfg.QuickInterval,
	}
}

// runFullLoop drives full discovery cycles. A failed cycle backs off
// for a shorter interval instead of killing the loop.
func (s *Service) runFullLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		delay := s.cfg.FullInterval
		if err := s.runFullCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.ErrorDaemon("full discovery cycle failed", err)
			metrics.GetGlobalMetrics().IncrementCyclesTotal(cycleFull, "error")
			delay = s.cfg.FullBackoff
		} else {
			metrics.GetGlobalMetrics().IncrementCyclesTotal(cycleFull, "success")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// runQuickLoop drives quick liveness rounds over known devices.
func (s *Service) runQuickLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		delay := s.cfg.QuickInterval
		if err := s.runQuickRound(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.ErrorDaemon("quick check round failed", err)
			metrics.GetGlobalMetrics().IncrementCyclesTotal(cycleQuick, "error")
			delay = s.cfg.QuickBackoff
		} else {
			metrics.GetGlobalMetrics().IncrementCyclesTotal(cycleQuick, "success")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// networks returns the configured sweep ranges, falling back to the
// host's own interface networks.
func (s *Service) networks() []string {
	if len(s.cfg.Networks) > 0 {
		return s.cfg.Networks
	}
	return s.deps.Ranges.LocalNetworks()
}

// runFullCycle runs one complete discovery pass: sweep every range
// with both strategies, enrich each responding host, reconcile the
// inventory, and finish with the eviction sweep.
func (s *Service) runFullCycle(ctx context.Context) error {
	cycleID := uuid.New().String()
	log := s.logger.WithCycleID(cycleID)
	m := metrics.GetGlobalMetrics()

	start := s.now()
	m.SetActiveCycles(1)
	defer func() {
		m.SetActiveCycles(0)
		m.RecordCycleDuration(cycleFull, time.Since(start))
	}()

	var firstErr error
	for _, network := range s.networks() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.sweepNetwork(ctx, log, network); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			log.ErrorDiscovery("network sweep failed", network, err)
		}
	}

	s.evict(ctx, log)

	online, offline := s.inv.Counts()
	m.SetDeviceCounts(online, offline)
	log.InfoDaemon("discovery cycle finished",
		"duration", time.Since(start),
		"devices_online", online,
		"devices_offline", offline)
	return firstErr
}

// sweepNetwork runs both probe strategies against one range and
// enriches the merged result set concurrently.
func (s *Service) sweepNetwork(ctx context.Context, log *logging.Logger, network string) error {
	m := metrics.GetGlobalMetrics()

	resStart := s.now()
	resolution, resErr := s.deps.Resolution.Sweep(ctx, network)
	metrics.RecordProbeSweep(s.deps.Resolution.Name(), network, time.Since(resStart), len(resolution), resErr)
	if resErr != nil {
		log.ErrorDiscovery("resolution sweep failed", network, resErr)
	}

	reachStart := s.now()
	reachability, reachErr := s.deps.Reachability.Sweep(ctx, network)
	metrics.RecordProbeSweep(s.deps.Reachability.Name(), network, time.Since(reachStart), len(reachability), reachErr)
	if reachErr != nil {
		log.ErrorDiscovery("reachability sweep failed", network, reachErr)
	}

	if resErr != nil && reachErr != nil {
		return fmt.Errorf("both sweep strategies failed: %w", reachErr)
	}

	merged := probe.Merge(resolution, reachability)
	m.IncrementDevicesFound(cycleFull, network, len(merged))
	log.InfoDiscovery("sweep finished", network, "hosts", len(merged))

	var pending sync.WaitGroup
	for _, result := range merged {
		result := result
		pending.Add(1)
		job := workers.NewEnrichJob(uuid.New().String(), result.IP, func(jobCtx context.Context, _ string) error {
			defer pending.Done()
			return s.enrichAndReconcile(jobCtx, result)
		})
		if err := s.enrichPool.Submit(job); err != nil {
			pending.Done()
			log.ErrorProbe("enrichment job rejected", result.IP, err)
		}
	}
	pending.Wait()
	return nil
}

// enrichAndReconcile enriches one host and writes it through to the
// inventory and the durable store. A failed durable write does not
// undo the in-memory update; the store catches up on a later cycle.
func (s *Service) enrichAndReconcile(ctx context.Context, result probe.Result) error {
	obs := s.deps.Enricher.Enrich(ctx, result)
	dev := s.inv.Upsert(obs)

	if err := s.deps.Store.Upsert(ctx, dev); err != nil {
		s.logger.ErrorStore("failed to persist device", err, "device", dev.IP)
		return err
	}
	return nil
}

// runQuickRound probes every known device once, in batches bounded by
// the check pool size, applying the liveness demotion rule.
func (s *Service) runQuickRound(ctx context.Context) error {
	devices := s.inv.Snapshot()
	if len(devices) == 0 {
		return nil
	}

	var pending sync.WaitGroup
	for _, dev := range devices {
		ip := dev.IP
		pending.Add(1)
		job := workers.NewLivenessJob(uuid.New().String(), ip, func(jobCtx context.Context, _ string) error {
			defer pending.Done()
			s.checkDevice(jobCtx, ip)
			return nil
		})
		if err := s.checkPool.Submit(job); err != nil {
			pending.Done()
			s.logger.ErrorProbe("liveness job rejected", ip, err)
		}
	}
	pending.Wait()

	online, offline := s.inv.Counts()
	metrics.GetGlobalMetrics().SetDeviceCounts(online, offline)
	return ctx.Err()
}

// checkDevice applies one liveness probe. A response promotes the
// device and advances last_seen; silence only demotes once the device
// has been quiet past the grace period.
func (s *Service) checkDevice(ctx context.Context, ip string) {
	if s.deps.Pinger.Ping(ctx, ip) {
		s.inv.MarkAlive(ip)
		if err := s.deps.Store.UpdateLiveness(ctx, ip, true, s.now()); err != nil {
			s.logger.ErrorStore("failed to persist liveness", err, "device", ip)
		}
		return
	}

	if s.inv.MarkUnreachable(ip, s.cfg.OfflineGrace) {
		s.logger.InfoProbe("device went offline", ip)
		if err := s.deps.Store.UpdateLiveness(ctx, ip, false, s.now()); err != nil {
			s.logger.ErrorStore("failed to persist liveness", err, "device", ip)
		}
	}
}

// evict removes devices unseen for longer than the retention horizon
// from memory and the durable store.
func (s *Service) evict(ctx context.Context, log *logging.Logger) {
	evicted := s.inv.EvictOlderThan(s.cfg.EvictAfter)
	if len(evicted) > 0 {
		metrics.GetGlobalMetrics().IncrementDevicesEvicted("stale", len(evicted))
		log.InfoDaemon("evicted stale devices", "count", len(evicted))
	}

	cutoff := s.now().Add(-s.cfg.EvictAfter)
	if _, err := s.deps.Store.DeleteLastSeenBefore(ctx, cutoff); err != nil {
		s.logger.ErrorStore("failed to delete stale devices", err)
	}
}
