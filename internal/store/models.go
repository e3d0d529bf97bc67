// Package store persists the device inventory to PostgreSQL. It is the
// durable mirror of the in-memory inventory: upserts carry the same
// sticky-fill merge semantics, and the cleanup sweep deletes the same
// rows the in-memory eviction removes.
package store

import (
	"database/sql/driver"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/inventory"
)

// IPAddr wraps net.IP to implement PostgreSQL INET type.
type IPAddr struct {
	net.IP
}

// Scan implements sql.Scanner for PostgreSQL INET type.
func (ip *IPAddr) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case string:
		parsed := net.ParseIP(v)
		if parsed == nil {
			return fmt.Errorf("failed to parse IP address: %s", v)
		}
		ip.IP = parsed
		return nil
	case []byte:
		parsed := net.ParseIP(string(v))
		if parsed == nil {
			return fmt.Errorf("failed to parse IP address: %s", string(v))
		}
		ip.IP = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into IPAddr", value)
	}
}

// Value implements driver.Valuer for PostgreSQL INET type.
func (ip IPAddr) Value() (driver.Value, error) {
	if ip.IP == nil {
		return nil, nil
	}
	return ip.IP.String(), nil
}

// String returns the IP address string.
func (ip IPAddr) String() string {
	if ip.IP == nil {
		return ""
	}
	return ip.IP.String()
}

// MACAddr wraps net.HardwareAddr to implement PostgreSQL MACADDR type.
type MACAddr struct {
	net.HardwareAddr
}

// Scan implements sql.Scanner for PostgreSQL MACADDR type.
func (mac *MACAddr) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case string:
		hw, err := net.ParseMAC(v)
		if err != nil {
			return fmt.Errorf("failed to parse MAC address: %w", err)
		}
		mac.HardwareAddr = hw
		return nil
	case []byte:
		hw, err := net.ParseMAC(string(v))
		if err != nil {
			return fmt.Errorf("failed to parse MAC address: %w", err)
		}
		mac.HardwareAddr = hw
		return nil
	default:
		return fmt.Errorf("cannot scan %T into MACAddr", value)
	}
}

// Value implements driver.Valuer for PostgreSQL MACADDR type.
func (mac MACAddr) Value() (driver.Value, error) {
	if mac.HardwareAddr == nil {
		return nil, nil
	}
	return mac.HardwareAddr.String(), nil
}

// String returns the MAC address string.
func (mac MACAddr) String() string {
	if mac.HardwareAddr == nil {
		return ""
	}
	return mac.HardwareAddr.String()
}

// DeviceRow is the devices table representation of a NetworkDevice.
type DeviceRow struct {
	ID         uuid.UUID     `db:"id"`
	IP         IPAddr        `db:"ip"`
	MAC        *MACAddr      `db:"mac"`
	Hostname   *string       `db:"hostname"`
	Vendor     *string       `db:"vendor"`
	DeviceType string        `db:"device_type"`
	OpenPorts  pq.Int64Array `db:"open_ports"`
	Status     string        `db:"status"`
	FirstSeen  time.Time     `db:"first_seen"`
	LastSeen   time.Time     `db:"last_seen"`
}

// ToDevice converts a row to the inventory representation.
func (r *DeviceRow) ToDevice() inventory.NetworkDevice {
	dev := inventory.NetworkDevice{
		IP:         r.IP.String(),
		DeviceType: inventory.DeviceType(r.DeviceType),
		Status:     inventory.DeviceStatus(r.Status),
		FirstSeen:  r.FirstSeen,
		LastSeen:   r.LastSeen,
	}
	if r.MAC != nil {
		dev.MAC = r.MAC.String()
	}
	if r.Hostname != nil {
		dev.Hostname = *r.Hostname
	}
	if r.Vendor != nil {
		dev.Vendor = *r.Vendor
	}
	dev.OpenPorts = make([]int, 0, len(r.OpenPorts))
	for _, p := range r.OpenPorts {
		dev.OpenPorts = append(dev.OpenPorts, int(p))
	}
	return dev
}

// rowFromDevice converts an inventory record to its table form. Invalid
// addresses become NULL rather than failing the write.
func rowFromDevice(dev *inventory.NetworkDevice) (*DeviceRow, error) {
	parsed := net.ParseIP(dev.IP)
	if parsed == nil {
		return nil, fmt.Errorf("invalid device IP: %q", dev.IP)
	}

	row := &DeviceRow{
		ID:         uuid.New(),
		IP:         IPAddr{IP: parsed},
		DeviceType: string(dev.DeviceType),
		Status:     string(dev.Status),
		FirstSeen:  dev.FirstSeen,
		LastSeen:   dev.LastSeen,
	}
	if dev.MAC != "" {
		if hw, err := net.ParseMAC(dev.MAC); err == nil {
			row.MAC = &MACAddr{HardwareAddr: hw}
		}
	}
	if dev.Hostname != "" {
		hostname := dev.Hostname
		row.Hostname = &hostname
	}
	if dev.Vendor != "" {
		vendor := dev.Vendor
		row.Vendor = &vendor
	}
	row.OpenPorts = make(pq.Int64Array, 0, len(dev.OpenPorts))
	for _, p := range dev.OpenPorts {
		row.OpenPorts = append(row.OpenPorts, int64(p))
	}
	return row, nil
}
