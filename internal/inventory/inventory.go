package inventory

import (
	"sort"
	"sync"
	"time"
)

// Observation is what a discovery pass learned about one device. Empty
// string fields mean the pass had nothing to report for that attribute.
type Observation struct {
	IP         string
	MAC        string
	Hostname   string
	Vendor     string
	DeviceType DeviceType
	OpenPorts  []int
}

// Inventory is a concurrency-safe map of devices keyed by IP address.
type Inventory struct {
	mu      sync.RWMutex
	devices map[string]*NetworkDevice
	now     func() time.Time
}

// New creates an empty inventory.
func New() *Inventory {
	return &Inventory{
		devices: make(map[string]*NetworkDevice),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (inv *Inventory) SetClock(now func() time.Time) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.now = now
}

// Upsert merges an observation into the inventory. Identity attributes
// already on record (mac, hostname, vendor) are kept and only filled
// when blank, since a later sweep may see less than an earlier one.
// Open ports and the classified type are replaced wholesale because
// they reflect current state, not identity. The device is marked online
// and its last_seen advances; first_seen is set only on insert.
func (inv *Inventory) Upsert(obs Observation) *NetworkDevice {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	now := inv.now()
	dev, exists := inv.devices[obs.IP]
	if !exists {
		dev = &NetworkDevice{
			IP:        obs.IP,
			FirstSeen: now,
		}
		inv.devices[obs.IP] = dev
	}

	if dev.MAC == "" {
		dev.MAC = obs.MAC
	}
	if dev.Hostname == "" {
		dev.Hostname = obs.Hostname
	}
	if dev.Vendor == "" {
		dev.Vendor = obs.Vendor
	}
	if obs.DeviceType != "" {
		dev.DeviceType = obs.DeviceType
	} else if dev.DeviceType == "" {
		dev.DeviceType = TypeUnknown
	}
	dev.OpenPorts = append([]int(nil), obs.OpenPorts...)
	dev.Status = StatusOnline
	dev.LastSeen = now

	copied := *dev
	return &copied
}

// Seed loads previously persisted devices into the inventory without
// touching their timestamps or status. Existing entries win over seeds.
func (inv *Inventory) Seed(devices []NetworkDevice) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	for i := range devices {
		dev := devices[i]
		if _, exists := inv.devices[dev.IP]; exists {
			continue
		}
		copied := dev
		inv.devices[dev.IP] = &copied
	}
}

// Get returns a copy of the device with the given IP.
func (inv *Inventory) Get(ip string) (NetworkDevice, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	dev, ok := inv.devices[ip]
	if !ok {
		return NetworkDevice{}, false
	}
	return *dev, true
}

// MarkAlive records a successful liveness probe for a device. It is a
// no-op for unknown IPs.
func (inv *Inventory) MarkAlive(ip string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	dev, ok := inv.devices[ip]
	if !ok {
		return
	}
	dev.Status = StatusOnline
	dev.LastSeen = inv.now()
}

// MarkUnreachable records a failed liveness probe. The device is only
// demoted to offline when it has also been silent for longer than the
// grace period; a single missed ping does not flap the status.
func (inv *Inventory) MarkUnreachable(ip string, grace time.Duration) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	dev, ok := inv.devices[ip]
	if !ok {
		return false
	}
	if inv.now().Sub(dev.LastSeen) > grace {
		dev.Status = StatusOffline
		return true
	}
	return false
}

// EvictOlderThan removes devices whose last_seen is older than maxAge
// and returns the IPs that were removed.
func (inv *Inventory) EvictOlderThan(maxAge time.Duration) []string {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	cutoff := inv.now().Add(-maxAge)
	var evicted []string
	for ip, dev := range inv.devices {
		if dev.LastSeen.Before(cutoff) {
			delete(inv.devices, ip)
			evicted = append(evicted, ip)
		}
	}
	return evicted
}

// Snapshot returns copies of all devices ordered by IP address.
func (inv *Inventory) Snapshot() []NetworkDevice {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	result := make([]NetworkDevice, 0, len(inv.devices))
	for _, dev := range inv.devices {
		result = append(result, *dev)
	}
	sort.Slice(result, func(i, j int) bool {
		return ipOrder(result[i].IP) < ipOrder(result[j].IP)
	})
	return result
}

// Online returns copies of devices currently marked online, ordered by IP.
func (inv *Inventory) Online() []NetworkDevice {
	all := inv.Snapshot()
	online := all[:0]
	for _, dev := range all {
		if dev.Status == StatusOnline {
			online = append(online, dev)
		}
	}
	return online
}

// Counts returns the number of online and offline devices.
func (inv *Inventory) Counts() (online, offline int) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	for _, dev := range inv.devices {
		if dev.Status == StatusOnline {
			online++
		} else {
			offline++
		}
	}
	return online, offline
}

// Len returns the total number of devices tracked.
func (inv *Inventory) Len() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return len(inv.devices)
}
