// Package inventory maintains the in-memory view of every device known
// on the monitored networks. It merges probe observations into device
// records, tracks liveness, and ages out devices that have not been
// seen for a long time.
package inventory

import (
	"encoding/binary"
	"net"
	"time"
)

// DeviceStatus represents the liveness state of a device.
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
)

// DeviceType is the classified role of a device on the network.
type DeviceType string

const (
	TypeRouter      DeviceType = "router"
	TypeServer      DeviceType = "server"
	TypeWindowsHost DeviceType = "windows_host"
	TypeDNSServer   DeviceType = "dns_server"
	TypePrinter     DeviceType = "printer"
	TypeHost        DeviceType = "host"
	TypeUnknown     DeviceType = "unknown"
)

// NetworkDevice is a single device record in the inventory.
type NetworkDevice struct {
	IP         string       `json:"ip"`
	MAC        string       `json:"mac,omitempty"`
	Hostname   string       `json:"hostname,omitempty"`
	Vendor     string       `json:"vendor,omitempty"`
	DeviceType DeviceType   `json:"device_type"`
	OpenPorts  []int        `json:"open_ports"`
	Status     DeviceStatus `json:"status"`
	FirstSeen  time.Time    `json:"first_seen"`
	LastSeen   time.Time    `json:"last_seen"`
}

// IsOnline reports whether the device is currently marked online.
func (d *NetworkDevice) IsOnline() bool {
	return d.Status == StatusOnline
}

// ipOrder returns a sortable key for an IPv4 address string. Unparseable
// addresses sort last.
func ipOrder(ip string) uint64 {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ^uint64(0)
	}
	if v4 := parsed.To4(); v4 != nil {
		return uint64(binary.BigEndian.Uint32(v4))
	}
	return ^uint64(0) - 1
}
