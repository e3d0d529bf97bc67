// Package netinfo enumerates the local IPv4 networks and answers small
// questions about the host's network environment: the default gateway,
// the configured DNS server, and the kernel neighbor table.
package netinfo

import (
	"context"
	"net"
	"os"
	"os/exec"
	"strings"
)

// Fallback ranges used when interface enumeration yields nothing
// usable, typically inside a container without host networking.
var fallbackNetworks = []string{"192.168.1.0/24", "192.168.0.0/24", "10.0.0.0/24"}

const lastResortCIDR = "192.168.1.0/24"

// NeighborEntry is one row of the kernel neighbor table.
type NeighborEntry struct {
	IP    string `json:"ip"`
	MAC   string `json:"mac,omitempty"`
	State string `json:"state"`
}

// Info is a summary of the host's network environment.
type Info struct {
	Gateway string `json:"gateway,omitempty"`
	DNS     string `json:"dns,omitempty"`
}

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Enumerator inspects host interfaces and system utilities.
type Enumerator struct {
	interfaceAddrs func() ([]net.Addr, error)
	run            commandRunner
	resolvConfPath string
}

// New creates an enumerator backed by the real host interfaces.
func New() *Enumerator {
	return &Enumerator{
		interfaceAddrs: net.InterfaceAddrs,
		run:            runCommand,
		resolvConfPath: "/etc/resolv.conf",
	}
}

// LocalNetworks returns the IPv4 CIDR ranges assigned to the host's
// interfaces, loopback excluded. When nothing usable is found, a small
// set of common private ranges is returned so discovery still has
// something to sweep.
func (e *Enumerator) LocalNetworks() []string {
	addrs, err := e.interfaceAddrs()
	if err != nil {
		return append([]string(nil), fallbackNetworks...)
	}

	var networks []string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		v4 := ipNet.IP.To4()
		if v4 == nil || v4.IsLoopback() {
			continue
		}
		masked := &net.IPNet{IP: v4.Mask(ipNet.Mask), Mask: ipNet.Mask}
		networks = append(networks, masked.String())
	}

	if len(networks) == 0 {
		return append([]string(nil), fallbackNetworks...)
	}
	return networks
}

// PrimaryCIDR picks the single best local range for a one-shot sweep.
// Private ranges are preferred over anything else; with no candidates
// at all a conventional home range is assumed.
func (e *Enumerator) PrimaryCIDR() string {
	networks := e.LocalNetworks()

	for _, cidr := range networks {
		ip, _, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if ip.IsPrivate() {
			return cidr
		}
	}
	if len(networks) > 0 {
		return networks[0]
	}
	return lastResortCIDR
}

// DefaultGateway returns the IP of the default route's next hop, or ""
// when no default route exists.
func (e *Enumerator) DefaultGateway(ctx context.Context) string {
	output, err := e.run(ctx, "ip", "route")
	if err != nil {
		return ""
	}
	return parseDefaultGateway(string(output))
}

// NeighborTable lists the kernel neighbor table via "ip neigh show".
func (e *Enumerator) NeighborTable(ctx context.Context) ([]NeighborEntry, error) {
	output, err := e.run(ctx, "ip", "neigh", "show")
	if err != nil {
		return nil, err
	}
	return parseNeighborTable(string(output)), nil
}

// NeighborMAC returns the MAC the kernel has cached for a single IP, or
// "" when the entry is missing or incomplete.
func (e *Enumerator) NeighborMAC(ctx context.Context, ip string) string {
	output, err := e.run(ctx, "ip", "neigh", "show", ip)
	if err != nil {
		return ""
	}
	entries := parseNeighborTable(string(output))
	if len(entries) == 0 {
		return ""
	}
	return entries[0].MAC
}

// NetworkInfo collects the default gateway and the first configured
// nameserver. Missing pieces are left blank rather than failing.
func (e *Enumerator) NetworkInfo(ctx context.Context) Info {
	info := Info{Gateway: e.DefaultGateway(ctx)}
	if data, err := os.ReadFile(e.resolvConfPath); err == nil {
		info.DNS = parseFirstNameserver(string(data))
	}
	return info
}

// parseDefaultGateway extracts the next hop from "ip route" output.
// The default route line reads "default via <gw> dev <if> ...".
func parseDefaultGateway(output string) string {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 3 && fields[0] == "default" && fields[1] == "via" {
			return fields[2]
		}
	}
	return ""
}

// parseNeighborTable extracts entries from "ip neigh" output. Rows read
// "<ip> dev <if> lladdr <mac> <state>"; rows without a cached MAC carry
// no lladdr column and are reported with an empty MAC.
func parseNeighborTable(output string) []NeighborEntry {
	var entries []NeighborEntry
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		entry := NeighborEntry{IP: fields[0], State: fields[len(fields)-1]}
		for i := 0; i < len(fields)-1; i++ {
			if fields[i] == "lladdr" {
				entry.MAC = fields[i+1]
				break
			}
		}
		if strings.EqualFold(entry.State, "INCOMPLETE") || strings.EqualFold(entry.State, "FAILED") {
			entry.MAC = ""
		}
		entries = append(entries, entry)
	}
	return entries
}

// parseFirstNameserver returns the first nameserver in resolv.conf
// syntax, or "".
func parseFirstNameserver(data string) string {
	for _, line := range strings.Split(data, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) >= 2 && fields[0] == "nameserver" {
			return fields[1]
		}
	}
	return ""
}
