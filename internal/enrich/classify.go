// Package enrich fills in what a bare sweep result does not tell us
// about a device: its reverse-resolved hostname, which well-known TCP
// ports it answers on, and a coarse device type classified from that
// evidence.
package enrich

import (
	"strings"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/inventory"
)

// Classify derives a device type from probe evidence. The checks form a
// priority chain; the first match wins. Port evidence outranks hostname
// evidence because an open service is observed fact while a hostname is
// whatever the owner typed into DHCP.
func Classify(ip, hostname string, openPorts []int) inventory.DeviceType {
	ports := make(map[int]bool, len(openPorts))
	for _, p := range openPorts {
		ports[p] = true
	}

	if (ports[80] || ports[443]) && isGatewayAddress(ip) {
		return inventory.TypeRouter
	}
	if ports[22] {
		return inventory.TypeServer
	}
	if ports[135] || ports[445] {
		return inventory.TypeWindowsHost
	}
	if ports[53] {
		return inventory.TypeDNSServer
	}

	if hostname != "" {
		name := strings.ToLower(hostname)
		switch {
		case containsAny(name, "router", "gateway", "fw"):
			return inventory.TypeRouter
		case containsAny(name, "server", "srv"):
			return inventory.TypeServer
		case containsAny(name, "printer", "print"):
			return inventory.TypePrinter
		}
	}

	if len(openPorts) > 0 {
		return inventory.TypeHost
	}
	return inventory.TypeUnknown
}

// isGatewayAddress reports whether the IP sits at a conventional
// gateway position in its subnet.
func isGatewayAddress(ip string) bool {
	return strings.HasSuffix(ip, ".1") || strings.HasSuffix(ip, ".254")
}

func containsAny(s string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
