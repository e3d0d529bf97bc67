package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/Ullaakut/nmap/v3"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/logging"
)

const detailScanTimeout = 60 * time.Second

// HostService is one detected service on a host.
type HostService struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	State    string `json:"state"`
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
}

// HostDetails is the result of an on-demand deep scan of one host.
// ScanError carries a failure description when the service scan could
// not run; the MAC lookup is independent and may still succeed.
type HostDetails struct {
	IP        string        `json:"ip"`
	MAC       string        `json:"mac,omitempty"`
	Hostname  string        `json:"hostname,omitempty"`
	State     string        `json:"state"`
	Services  []HostService `json:"services"`
	ScanError string        `json:"scan_error,omitempty"`
}

// NeighborResolver looks up a link-layer address for an IP. The
// netinfo enumerator satisfies it.
type NeighborResolver interface {
	NeighborMAC(ctx context.Context, ip string) string
}

// DetailScanner performs targeted service scans of single hosts.
type DetailScanner struct {
	neighbors NeighborResolver
	logger    *logging.Logger
	scan      func(ctx context.Context, ip string) (*nmap.Run, error)
}

// NewDetailScanner creates a scanner backed by nmap version detection
// over the 100 most common ports.
func NewDetailScanner(neighbors NeighborResolver, logger *logging.Logger) *DetailScanner {
	if logger == nil {
		logger = logging.Default()
	}
	return &DetailScanner{
		neighbors: neighbors,
		logger:    logger.WithComponent("hostdetails"),
		scan:      runServiceScan,
	}
}

// Scan probes one host in depth. It always returns details; a failed
// nmap run degrades to the neighbor-table MAC and an error note.
func (d *DetailScanner) Scan(ctx context.Context, ip string) HostDetails {
	details := HostDetails{
		IP:       ip,
		State:    "unknown",
		Services: []HostService{},
	}
	details.MAC = d.neighbors.NeighborMAC(ctx, ip)

	result, err := d.scan(ctx, ip)
	if err != nil {
		d.logger.ErrorProbe("host detail scan failed", ip, err)
		details.ScanError = err.Error()
		return details
	}

	for i := range result.Hosts {
		host := &result.Hosts[i]
		details.State = host.Status.State
		if len(host.Hostnames) > 0 {
			details.Hostname = host.Hostnames[0].Name
		}
		for _, port := range host.Ports {
			if port.State.State != "open" {
				continue
			}
			svc := HostService{
				Port:     int(port.ID),
				Protocol: port.Protocol,
				State:    port.State.State,
				Name:     port.Service.Name,
				Version:  serviceVersion(&port.Service),
			}
			details.Services = append(details.Services, svc)
		}
	}
	return details
}

func runServiceScan(ctx context.Context, ip string) (*nmap.Run, error) {
	scanCtx, cancel := context.WithTimeout(ctx, detailScanTimeout)
	defer cancel()

	scanner, err := nmap.NewScanner(
		scanCtx,
		nmap.WithTargets(ip),
		nmap.WithMostCommonPorts(100),
		nmap.WithServiceInfo(),
		nmap.WithSkipHostDiscovery(),
		nmap.WithDisabledDNSResolution(),
	)
	if err != nil {
		return nil, err
	}
	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, err
	}
	if warnings != nil && len(*warnings) > 0 {
		logging.Debug("nmap warnings during detail scan", "warnings", *warnings)
	}
	return result, nil
}

// serviceVersion joins product and version the way nmap presents them
// in its own output.
func serviceVersion(svc *nmap.Service) string {
	parts := make([]string, 0, 2)
	if svc.Product != "" {
		parts = append(parts, svc.Product)
	}
	if svc.Version != "" {
		parts = append(parts, svc.Version)
	}
	return strings.Join(parts, " ")
}
