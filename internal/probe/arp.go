package probe

import (
	"context"
	"os/exec"
	"regexp"
	"strings"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/errors"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/logging"
)

// arpScanLine matches arp-scan output rows, which start with the IPv4
// address of a responding host.
var arpScanLine = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+`)

// arpTableEntry matches "? (192.168.1.1) at aa:bb:cc:dd:ee:ff ..." rows
// from the arp table listing.
var arpTableEntry = regexp.MustCompile(`\((\d+\.\d+\.\d+\.\d+)\) at ([a-fA-F0-9:]{17})`)

// commandRunner executes an external command and returns its stdout.
// Swapped out in tests.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ARPStrategy resolves live hosts through the link layer. It prefers an
// active arp-scan sweep and degrades to reading the kernel ARP table
// when arp-scan is not installed or fails, usually because the daemon
// lacks raw socket privileges.
type ARPStrategy struct {
	lookPath func(file string) (string, error)
	run      commandRunner
	logger   *logging.Logger
}

// NewARPStrategy creates the resolution sweep strategy.
func NewARPStrategy(logger *logging.Logger) *ARPStrategy {
	if logger == nil {
		logger = logging.Default()
	}
	return &ARPStrategy{
		lookPath: exec.LookPath,
		run:      runCommand,
		logger:   logger.WithComponent("probe.arp"),
	}
}

// Name implements Strategy.
func (s *ARPStrategy) Name() string { return StrategyARP }

// Sweep implements Strategy. The active sweep always covers the local
// segment; ARP does not cross routers, so the network argument only
// scopes logging.
func (s *ARPStrategy) Sweep(ctx context.Context, network string) ([]Result, error) {
	if _, err := s.lookPath("arp-scan"); err == nil {
		output, err := s.run(ctx, "arp-scan", "-l", "-g")
		if err == nil {
			return parseARPScan(string(output)), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.ErrorProbe("arp-scan failed, falling back to arp table", network, err)
	}

	if _, err := s.lookPath("arp"); err != nil {
		return nil, errors.ErrToolUnavailable("arp-scan").WithNetwork(network).WithStrategy(StrategyARP)
	}

	output, err := s.run(ctx, "arp", "-a")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.ErrToolFailed("arp", err).WithNetwork(network).WithStrategy(StrategyARP)
	}
	return parseARPTable(string(output)), nil
}

// parseARPScan extracts results from arp-scan output. Each host row is
// "<ip>\t<mac>\t<vendor words...>"; header and summary lines do not
// start with an address and are skipped.
func parseARPScan(output string) []Result {
	var results []Result
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !arpScanLine.MatchString(line) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		r := Result{IP: fields[0], MAC: strings.ToLower(fields[1])}
		if len(fields) > 2 {
			r.Vendor = strings.Join(fields[2:], " ")
		}
		results = append(results, r)
	}
	return results
}

// parseARPTable extracts results from "arp -a" output. Entries without
// a complete MAC address are incomplete neighbors and are skipped.
func parseARPTable(output string) []Result {
	var results []Result
	for _, match := range arpTableEntry.FindAllStringSubmatch(output, -1) {
		results = append(results, Result{
			IP:  match[1],
			MAC: strings.ToLower(match[2]),
		})
	}
	return results
}
