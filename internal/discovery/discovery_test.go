package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Ullaakut/nmap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/config"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/enrich"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/inventory"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/probe"
)

type fakeStrategy struct {
	name    string
	results []probe.Result
	err     error

	mu     sync.Mutex
	sweeps int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Sweep(_ context.Context, _ string) ([]probe.Result, error) {
	f.mu.Lock()
	f.sweeps++
	f.mu.Unlock()
	return f.results, f.err
}

func (f *fakeStrategy) sweepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps
}

type fakePinger struct {
	mu    sync.Mutex
	alive map[string]bool
}

func (f *fakePinger) Ping(_ context.Context, ip string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[ip]
}

type fakeEnricher struct{}

func (fakeEnricher) Enrich(_ context.Context, r probe.Result) inventory.Observation {
	return inventory.Observation{
		IP:         r.IP,
		MAC:        r.MAC,
		Hostname:   r.Hostname,
		Vendor:     r.Vendor,
		DeviceType: enrich.Classify(r.IP, r.Hostname, nil),
	}
}

type fakeRanges struct {
	networks []string
}

func (f *fakeRanges) LocalNetworks() []string { return f.networks }

type fakeStore struct {
	mu        sync.Mutex
	persisted []inventory.NetworkDevice
	upserts   map[string]int
	liveness  map[string]bool
	deletes   int
}

func newFakeStore(persisted ...inventory.NetworkDevice) *fakeStore {
	return &fakeStore{
		persisted: persisted,
		upserts:   make(map[string]int),
		liveness:  make(map[string]bool),
	}
}

func (f *fakeStore) Upsert(_ context.Context, dev *inventory.NetworkDevice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts[dev.IP]++
	return nil
}

func (f *fakeStore) UpdateLiveness(_ context.Context, ip string, online bool, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liveness[ip] = online
	return nil
}

func (f *fakeStore) GetAll(_ context.Context) ([]inventory.NetworkDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]inventory.NetworkDevice(nil), f.persisted...), nil
}

func (f *fakeStore) DeleteLastSeenBefore(_ context.Context, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return 0, nil
}

func (f *fakeStore) upsertCount(ip string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts[ip]
}

func (f *fakeStore) livenessFor(ip string) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	online, ok := f.liveness[ip]
	return online, ok
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Discovery.Networks = []string{"192.168.1.0/24"}
	cfg.Discovery.FullInterval = time.Hour
	cfg.Discovery.QuickInterval = time.Hour
	cfg.Discovery.OfflineGrace = 10 * time.Minute
	return cfg
}

func newTestService(cfg *config.Config, st *fakeStore, res, reach *fakeStrategy, pinger *fakePinger) *Service {
	return NewService(cfg, Deps{
		Store:        st,
		Resolution:   res,
		Reachability: reach,
		Pinger:       pinger,
		Enricher:     fakeEnricher{},
		Ranges:       &fakeRanges{networks: []string{"192.168.1.0/24"}},
	})
}

func TestServiceStartIdempotent(t *testing.T) {
	st := newFakeStore()
	res := &fakeStrategy{name: probe.StrategyARP}
	reach := &fakeStrategy{name: probe.StrategyPing}
	svc := newTestService(testConfig(), st, res, reach, &fakePinger{alive: map[string]bool{}})

	require.NoError(t, svc.Start(context.Background()))
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	assert.True(t, svc.IsRunning())

	// One immediate cycle each, not one per Start call.
	require.Eventually(t, func() bool {
		return res.sweepCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, res.sweepCount())
	assert.Equal(t, 1, reach.sweepCount())
}

func TestServiceStopIsCleanAndRepeatable(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(testConfig(), st,
		&fakeStrategy{name: probe.StrategyARP},
		&fakeStrategy{name: probe.StrategyPing},
		&fakePinger{alive: map[string]bool{}})

	require.NoError(t, svc.Start(context.Background()))
	svc.Stop()
	svc.Stop()

	assert.False(t, svc.IsRunning())
	// Reads still work after shutdown.
	assert.NotNil(t, svc.Devices())
}

func TestFullCycleReconcilesInventory(t *testing.T) {
	st := newFakeStore()
	res := &fakeStrategy{
		name: probe.StrategyARP,
		results: []probe.Result{
			{IP: "192.168.1.1", MAC: "aa:bb:cc:dd:ee:01", Vendor: "Ubiquiti"},
			{IP: "192.168.1.10", MAC: "aa:bb:cc:dd:ee:02"},
		},
	}
	reach := &fakeStrategy{
		name: probe.StrategyPing,
		results: []probe.Result{
			{IP: "192.168.1.10", Hostname: "files.lan"},
			{IP: "192.168.1.20"},
		},
	}
	svc := newTestService(testConfig(), st, res, reach, &fakePinger{alive: map[string]bool{}})

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	require.Eventually(t, func() bool {
		return svc.Inventory().Len() == 3
	}, 2*time.Second, 10*time.Millisecond)

	devices := svc.Devices()
	require.Len(t, devices, 3)
	assert.Equal(t, "192.168.1.1", devices[0].IP)
	assert.Equal(t, "aa:bb:cc:dd:ee:01", devices[0].MAC)

	// Resolution results win; reachability blank-fills.
	assert.Equal(t, "192.168.1.10", devices[1].IP)
	assert.Equal(t, "aa:bb:cc:dd:ee:02", devices[1].MAC)
	assert.Equal(t, "files.lan", devices[1].Hostname)

	require.Eventually(t, func() bool {
		return st.upsertCount("192.168.1.20") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFullCycleSurvivesOneFailedStrategy(t *testing.T) {
	st := newFakeStore()
	res := &fakeStrategy{name: probe.StrategyARP, err: errors.New("arp-scan not installed")}
	reach := &fakeStrategy{
		name:    probe.StrategyPing,
		results: []probe.Result{{IP: "10.0.0.7"}},
	}
	svc := newTestService(testConfig(), st, res, reach, &fakePinger{alive: map[string]bool{}})

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	require.Eventually(t, func() bool {
		return svc.Inventory().Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWarmStartSeedsFromStore(t *testing.T) {
	persisted := inventory.NetworkDevice{
		IP:         "192.168.1.50",
		Hostname:   "printer.lan",
		DeviceType: inventory.TypePrinter,
		Status:     inventory.StatusOnline,
		FirstSeen:  time.Now().Add(-time.Hour),
		LastSeen:   time.Now().Add(-time.Minute),
	}
	st := newFakeStore(persisted)
	svc := newTestService(testConfig(), st,
		&fakeStrategy{name: probe.StrategyARP},
		&fakeStrategy{name: probe.StrategyPing},
		&fakePinger{alive: map[string]bool{}})

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	devices := svc.Devices()
	require.Len(t, devices, 1)
	assert.Equal(t, "printer.lan", devices[0].Hostname)
}

func TestQuickRoundLiveness(t *testing.T) {
	now := time.Now()
	st := newFakeStore(
		inventory.NetworkDevice{
			IP:        "192.168.1.5",
			Status:    inventory.StatusOnline,
			FirstSeen: now.Add(-time.Hour),
			LastSeen:  now.Add(-time.Minute),
		},
		inventory.NetworkDevice{
			IP:        "192.168.1.6",
			Status:    inventory.StatusOnline,
			FirstSeen: now.Add(-time.Hour),
			LastSeen:  now.Add(-30 * time.Minute),
		},
	)
	pinger := &fakePinger{alive: map[string]bool{"192.168.1.5": true}}

	cfg := testConfig()
	cfg.Discovery.Networks = nil
	svc := newTestService(cfg, st,
		&fakeStrategy{name: probe.StrategyARP},
		&fakeStrategy{name: probe.StrategyPing},
		pinger)
	// No sweep targets, so only the quick loop mutates state.
	svc.deps.Ranges = &fakeRanges{}

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	require.Eventually(t, func() bool {
		_, ok := st.livenessFor("192.168.1.5")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	online, ok := st.livenessFor("192.168.1.5")
	require.True(t, ok)
	assert.True(t, online)

	// Quiet past the grace period: demoted and persisted offline.
	require.Eventually(t, func() bool {
		online, ok := st.livenessFor("192.168.1.6")
		return ok && !online
	}, 2*time.Second, 10*time.Millisecond)

	dev, ok := svc.Inventory().Get("192.168.1.6")
	require.True(t, ok)
	assert.Equal(t, inventory.StatusOffline, dev.Status)
}

func TestStatusSummary(t *testing.T) {
	st := newFakeStore(inventory.NetworkDevice{
		IP:       "10.0.0.1",
		Status:   inventory.StatusOnline,
		LastSeen: time.Now(),
	})
	svc := newTestService(testConfig(), st,
		&fakeStrategy{name: probe.StrategyARP},
		&fakeStrategy{name: probe.StrategyPing},
		&fakePinger{alive: map[string]bool{"10.0.0.1": true}})

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	status := svc.Status()
	assert.True(t, status.Running)
	assert.Equal(t, 1, status.DeviceCount)
	assert.Equal(t, time.Hour, status.FullInterval)
}

type fakeLocator struct {
	cidr    string
	gateway string
}

func (f *fakeLocator) PrimaryCIDR() string                     { return f.cidr }
func (f *fakeLocator) DefaultGateway(_ context.Context) string { return f.gateway }

func TestMapCacheFirstCallSweeps(t *testing.T) {
	sweeper := &fakeStrategy{
		name:    probe.StrategyPing,
		results: []probe.Result{{IP: "192.168.1.1"}, {IP: "192.168.1.9"}},
	}
	cache := NewMapCache(sweeper, &fakeLocator{cidr: "192.168.1.0/24", gateway: "192.168.1.1"}, nil)

	m := cache.Get(context.Background())
	require.Empty(t, m.Error)
	assert.Len(t, m.Nodes, 2)
	require.Len(t, m.Connections, 1)
	assert.Equal(t, "192.168.1.1", m.Connections[0].Source)
	assert.Equal(t, "192.168.1.9", m.Connections[0].Target)
	assert.Equal(t, 1, sweeper.sweepCount())
}

func TestMapCacheServesCachedAndRefreshesOnce(t *testing.T) {
	sweeper := &fakeStrategy{
		name:    probe.StrategyPing,
		results: []probe.Result{{IP: "10.0.0.2"}},
	}
	cache := NewMapCache(sweeper, &fakeLocator{cidr: "10.0.0.0/24", gateway: "10.0.0.1"}, nil)

	cache.Get(context.Background())
	require.Equal(t, 1, sweeper.sweepCount())

	// Cached reads return immediately; one background refresh runs.
	for i := 0; i < 5; i++ {
		m := cache.Get(context.Background())
		assert.NotEmpty(t, m.Nodes)
	}
	require.Eventually(t, func() bool {
		return sweeper.sweepCount() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMapCacheSweepFailureEmbedsError(t *testing.T) {
	sweeper := &fakeStrategy{name: probe.StrategyPing, err: errors.New("nmap exited with code 1")}
	cache := NewMapCache(sweeper, &fakeLocator{cidr: "10.0.0.0/24", gateway: "10.0.0.1"}, nil)

	m := cache.Get(context.Background())
	assert.Contains(t, m.Error, "nmap exited")
	// The synthetic gateway node still renders.
	require.Len(t, m.Nodes, 1)
	assert.Equal(t, "Gateway", m.Nodes[0].Name)
	assert.Empty(t, m.Connections)
}

type fakeNeighbors struct {
	macs map[string]string
}

func (f *fakeNeighbors) NeighborMAC(_ context.Context, ip string) string {
	return f.macs[ip]
}

func TestDetailScannerProjectsServices(t *testing.T) {
	scanner := NewDetailScanner(&fakeNeighbors{macs: map[string]string{"192.168.1.30": "de:ad:be:ef:00:30"}}, nil)
	scanner.scan = func(_ context.Context, _ string) (*nmap.Run, error) {
		return &nmap.Run{
			Hosts: []nmap.Host{{
				Status:    nmap.Status{State: "up"},
				Hostnames: []nmap.Hostname{{Name: "nas.lan"}},
				Ports: []nmap.Port{
					{
						ID:       22,
						Protocol: "tcp",
						State:    nmap.State{State: "open"},
						Service:  nmap.Service{Name: "ssh", Product: "OpenSSH", Version: "9.6"},
					},
					{
						ID:       80,
						Protocol: "tcp",
						State:    nmap.State{State: "closed"},
						Service:  nmap.Service{Name: "http"},
					},
				},
			}},
		}, nil
	}

	details := scanner.Scan(context.Background(), "192.168.1.30")
	assert.Equal(t, "de:ad:be:ef:00:30", details.MAC)
	assert.Equal(t, "up", details.State)
	assert.Equal(t, "nas.lan", details.Hostname)
	require.Len(t, details.Services, 1)
	assert.Equal(t, 22, details.Services[0].Port)
	assert.Equal(t, "ssh", details.Services[0].Name)
	assert.Equal(t, "OpenSSH 9.6", details.Services[0].Version)
}

func TestDetailScannerSurvivesScanFailure(t *testing.T) {
	scanner := NewDetailScanner(&fakeNeighbors{macs: map[string]string{"192.168.1.31": "de:ad:be:ef:00:31"}}, nil)
	scanner.scan = func(_ context.Context, _ string) (*nmap.Run, error) {
		return nil, errors.New("nmap binary not found")
	}

	details := scanner.Scan(context.Background(), "192.168.1.31")
	assert.Equal(t, "de:ad:be:ef:00:31", details.MAC)
	assert.Equal(t, "unknown", details.State)
	assert.Contains(t, details.ScanError, "not found")
	assert.Empty(t, details.Services)
}
