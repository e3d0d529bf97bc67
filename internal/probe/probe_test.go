package probe

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arpScanOutput = `Interface: eth0, type: EN10MB, MAC: 02:42:ac:11:00:02, IPv4: 192.168.1.50
Starting arp-scan 1.10.0 with 256 hosts
192.168.1.1	AA:BB:CC:00:11:22	Ubiquiti Networks Inc.
192.168.1.15	de:ad:be:ef:00:01	Raspberry Pi Foundation
192.168.1.23	00:11:22:33:44:55	(Unknown)

5 packets received by filter, 0 packets dropped by kernel
Ending arp-scan 1.10.0: 256 hosts scanned in 1.972 seconds
`

const arpTableOutput = `gateway (192.168.1.1) at aa:bb:cc:00:11:22 [ether] on eth0
? (192.168.1.15) at de:ad:be:ef:00:01 [ether] on eth0
? (192.168.1.99) at <incomplete> on eth0
`

func TestParseARPScan(t *testing.T) {
	results := parseARPScan(arpScanOutput)
	require.Len(t, results, 3)

	assert.Equal(t, Result{IP: "192.168.1.1", MAC: "aa:bb:cc:00:11:22", Vendor: "Ubiquiti Networks Inc."}, results[0])
	assert.Equal(t, Result{IP: "192.168.1.15", MAC: "de:ad:be:ef:00:01", Vendor: "Raspberry Pi Foundation"}, results[1])
	assert.Equal(t, "(Unknown)", results[2].Vendor)
}

func TestParseARPScanEmptyOutput(t *testing.T) {
	assert.Empty(t, parseARPScan(""))
	assert.Empty(t, parseARPScan("Starting arp-scan\nEnding arp-scan\n"))
}

func TestParseARPTable(t *testing.T) {
	results := parseARPTable(arpTableOutput)
	require.Len(t, results, 2)

	assert.Equal(t, Result{IP: "192.168.1.1", MAC: "aa:bb:cc:00:11:22"}, results[0])
	assert.Equal(t, Result{IP: "192.168.1.15", MAC: "de:ad:be:ef:00:01"}, results[1])
}

func TestARPSweepPrefersArpScan(t *testing.T) {
	strategy := NewARPStrategy(nil)
	strategy.lookPath = func(file string) (string, error) {
		return "/usr/sbin/" + file, nil
	}

	var ran []string
	strategy.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		ran = append(ran, name)
		require.Equal(t, "arp-scan", name)
		assert.Equal(t, []string{"-l", "-g"}, args)
		return []byte(arpScanOutput), nil
	}

	results, err := strategy.Sweep(context.Background(), "192.168.1.0/24")
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, []string{"arp-scan"}, ran)
}

func TestARPSweepFallsBackToTable(t *testing.T) {
	tests := []struct {
		name     string
		lookPath func(file string) (string, error)
		runFail  bool
	}{
		{
			name: "arp-scan not installed",
			lookPath: func(file string) (string, error) {
				if file == "arp-scan" {
					return "", fmt.Errorf("not found")
				}
				return "/usr/sbin/arp", nil
			},
		},
		{
			name:     "arp-scan exits non-zero",
			lookPath: func(file string) (string, error) { return "/usr/sbin/" + file, nil },
			runFail:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := NewARPStrategy(nil)
			strategy.lookPath = tt.lookPath
			strategy.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
				if name == "arp-scan" && tt.runFail {
					return nil, fmt.Errorf("exit status 1")
				}
				require.Equal(t, "arp", name)
				assert.Equal(t, []string{"-a"}, args)
				return []byte(arpTableOutput), nil
			}

			results, err := strategy.Sweep(context.Background(), "192.168.1.0/24")
			require.NoError(t, err)
			assert.Len(t, results, 2)
		})
	}
}

func TestARPSweepNoToolsAvailable(t *testing.T) {
	strategy := NewARPStrategy(nil)
	strategy.lookPath = func(string) (string, error) { return "", fmt.Errorf("not found") }

	_, err := strategy.Sweep(context.Background(), "192.168.1.0/24")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOOL_UNAVAILABLE")
}

func TestMerge(t *testing.T) {
	resolution := []Result{
		{IP: "192.168.1.1", MAC: "aa:bb:cc:00:11:22", Vendor: "Ubiquiti Networks Inc."},
		{IP: "192.168.1.15", MAC: "de:ad:be:ef:00:01"},
	}
	reachability := []Result{
		{IP: "192.168.1.15", Hostname: "pi.local"},
		{IP: "192.168.1.40"},
	}

	merged := Merge(resolution, reachability)
	require.Len(t, merged, 3)

	assert.Equal(t, "192.168.1.1", merged[0].IP)
	assert.Equal(t, "aa:bb:cc:00:11:22", merged[0].MAC)

	// Overlapping host keeps link-layer identity and picks up the
	// hostname only the reachability sweep observed.
	assert.Equal(t, "192.168.1.15", merged[1].IP)
	assert.Equal(t, "de:ad:be:ef:00:01", merged[1].MAC)
	assert.Equal(t, "pi.local", merged[1].Hostname)

	assert.Equal(t, "192.168.1.40", merged[2].IP)
	assert.Empty(t, merged[2].MAC)
}

func TestMergeEmptyInputs(t *testing.T) {
	assert.Empty(t, Merge(nil, nil))

	only := Merge(nil, []Result{{IP: "10.0.0.1"}})
	require.Len(t, only, 1)
	assert.Equal(t, "10.0.0.1", only[0].IP)
}
