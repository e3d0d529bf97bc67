// Package netmap derives a visualization graph from the device
// inventory. The graph is recomputed on demand and never persisted.
package netmap

import (
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/inventory"
)

// Edge type used for all derived connections.
const connectionDirect = "direct"

// Node is one device in the visualization graph.
type Node struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	IP        string `json:"ip"`
	MAC       string `json:"mac,omitempty"`
	Vendor    string `json:"vendor,omitempty"`
	OpenPorts []int  `json:"open_ports"`
}

// Connection is a directed edge between two nodes.
type Connection struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Map is the complete visualization graph. Error carries the failure
// description when the degraded-mode path could not produce data.
type Map struct {
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
	Error       string       `json:"error,omitempty"`
}

// Build derives the graph from an inventory snapshot. Topology is a
// simplified star: every non-router device hangs off the first
// router-typed device in snapshot order, and no edges exist without a
// router. This is a deliberate approximation; real link-layer topology
// detection is out of reach for a connect-probe scanner.
func Build(devices []inventory.NetworkDevice) Map {
	m := Map{
		Nodes:       make([]Node, 0, len(devices)),
		Connections: []Connection{},
	}

	var router string
	for i := range devices {
		dev := &devices[i]
		m.Nodes = append(m.Nodes, nodeFromDevice(dev))
		if router == "" && dev.DeviceType == inventory.TypeRouter {
			router = dev.IP
		}
	}

	if router == "" {
		return m
	}
	for i := range devices {
		if devices[i].DeviceType == inventory.TypeRouter {
			continue
		}
		m.Connections = append(m.Connections, Connection{
			Source: router,
			Target: devices[i].IP,
			Type:   connectionDirect,
		})
	}
	return m
}

// BuildGateway derives a trivial graph for the degraded-mode path: all
// swept devices hang off the default gateway. When the gateway is not
// among the devices, a synthetic node is prepended for it. An empty
// gateway yields nodes without edges.
func BuildGateway(devices []inventory.NetworkDevice, gateway string) Map {
	m := Map{
		Nodes:       make([]Node, 0, len(devices)+1),
		Connections: []Connection{},
	}

	gatewaySeen := false
	for i := range devices {
		dev := &devices[i]
		m.Nodes = append(m.Nodes, nodeFromDevice(dev))
		if dev.IP == gateway {
			gatewaySeen = true
		}
	}

	if gateway == "" {
		return m
	}
	if !gatewaySeen {
		m.Nodes = append([]Node{{
			ID:        gateway,
			Name:      "Gateway",
			Type:      string(inventory.TypeRouter),
			Status:    string(inventory.StatusOnline),
			IP:        gateway,
			OpenPorts: []int{},
		}}, m.Nodes...)
	}
	for _, node := range m.Nodes {
		if node.IP == gateway {
			continue
		}
		m.Connections = append(m.Connections, Connection{
			Source: gateway,
			Target: node.IP,
			Type:   connectionDirect,
		})
	}
	return m
}

func nodeFromDevice(dev *inventory.NetworkDevice) Node {
	name := dev.Hostname
	if name == "" {
		name = dev.IP
	}
	ports := dev.OpenPorts
	if ports == nil {
		ports = []int{}
	}
	return Node{
		ID:        dev.IP,
		Name:      name,
		Type:      string(dev.DeviceType),
		Status:    string(dev.Status),
		IP:        dev.IP,
		MAC:       dev.MAC,
		Vendor:    dev.Vendor,
		OpenPorts: ports,
	}
}
