package netinfo

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustIPNet(t *testing.T, cidr string) *net.IPNet {
	t.Helper()
	ip, ipNet, err := net.ParseCIDR(cidr)
	require.NoError(t, err)
	ipNet.IP = ip
	return ipNet
}

func TestLocalNetworks(t *testing.T) {
	t.Run("masks host bits and skips loopback", func(t *testing.T) {
		e := New()
		e.interfaceAddrs = func() ([]net.Addr, error) {
			return []net.Addr{
				mustIPNet(t, "127.0.0.1/8"),
				mustIPNet(t, "192.168.1.42/24"),
				mustIPNet(t, "10.5.7.9/16"),
			}, nil
		}

		networks := e.LocalNetworks()
		assert.Equal(t, []string{"192.168.1.0/24", "10.5.0.0/16"}, networks)
	})

	t.Run("falls back when only loopback exists", func(t *testing.T) {
		e := New()
		e.interfaceAddrs = func() ([]net.Addr, error) {
			return []net.Addr{mustIPNet(t, "127.0.0.1/8")}, nil
		}

		assert.Equal(t, fallbackNetworks, e.LocalNetworks())
	})

	t.Run("falls back on enumeration error", func(t *testing.T) {
		e := New()
		e.interfaceAddrs = func() ([]net.Addr, error) {
			return nil, fmt.Errorf("no interfaces")
		}

		assert.Equal(t, fallbackNetworks, e.LocalNetworks())
	})
}

func TestPrimaryCIDRPrefersPrivate(t *testing.T) {
	e := New()
	e.interfaceAddrs = func() ([]net.Addr, error) {
		return []net.Addr{
			mustIPNet(t, "203.0.113.5/24"),
			mustIPNet(t, "172.20.3.8/24"),
		}, nil
	}

	assert.Equal(t, "172.20.3.0/24", e.PrimaryCIDR())
}

func TestPrimaryCIDRFallsBackToFirst(t *testing.T) {
	e := New()
	e.interfaceAddrs = func() ([]net.Addr, error) {
		return []net.Addr{mustIPNet(t, "203.0.113.5/24")}, nil
	}

	assert.Equal(t, "203.0.113.0/24", e.PrimaryCIDR())
}

func TestParseDefaultGateway(t *testing.T) {
	output := `default via 192.168.1.1 dev eth0 proto dhcp metric 100
192.168.1.0/24 dev eth0 proto kernel scope link src 192.168.1.50
`
	assert.Equal(t, "192.168.1.1", parseDefaultGateway(output))
	assert.Equal(t, "", parseDefaultGateway("192.168.1.0/24 dev eth0 scope link\n"))
	assert.Equal(t, "", parseDefaultGateway(""))
}

func TestParseNeighborTable(t *testing.T) {
	output := `192.168.1.1 dev eth0 lladdr aa:bb:cc:00:11:22 REACHABLE
192.168.1.15 dev eth0 lladdr de:ad:be:ef:00:01 STALE
192.168.1.99 dev eth0 INCOMPLETE
`
	entries := parseNeighborTable(output)
	require.Len(t, entries, 3)

	assert.Equal(t, NeighborEntry{IP: "192.168.1.1", MAC: "aa:bb:cc:00:11:22", State: "REACHABLE"}, entries[0])
	assert.Equal(t, NeighborEntry{IP: "192.168.1.15", MAC: "de:ad:be:ef:00:01", State: "STALE"}, entries[1])
	assert.Equal(t, NeighborEntry{IP: "192.168.1.99", MAC: "", State: "INCOMPLETE"}, entries[2])
}

func TestNeighborMAC(t *testing.T) {
	e := New()
	e.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "ip", name)
		assert.Equal(t, []string{"neigh", "show", "192.168.1.1"}, args)
		return []byte("192.168.1.1 dev eth0 lladdr aa:bb:cc:00:11:22 REACHABLE\n"), nil
	}

	assert.Equal(t, "aa:bb:cc:00:11:22", e.NeighborMAC(context.Background(), "192.168.1.1"))
}

func TestNeighborMACIncomplete(t *testing.T) {
	e := New()
	e.run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("192.168.1.99 dev eth0 INCOMPLETE\n"), nil
	}

	assert.Equal(t, "", e.NeighborMAC(context.Background(), "192.168.1.99"))
}

func TestNetworkInfo(t *testing.T) {
	resolvPath := filepath.Join(t.TempDir(), "resolv.conf")
	require.NoError(t, os.WriteFile(resolvPath, []byte("# generated\nnameserver 1.1.1.1\nnameserver 8.8.8.8\n"), 0600))

	e := New()
	e.resolvConfPath = resolvPath
	e.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		return []byte("default via 192.168.1.1 dev eth0\n"), nil
	}

	info := e.NetworkInfo(context.Background())
	assert.Equal(t, "192.168.1.1", info.Gateway)
	assert.Equal(t, "1.1.1.1", info.DNS)
}

func TestParseFirstNameserverEmpty(t *testing.T) {
	assert.Equal(t, "", parseFirstNameserver("# nothing here\n"))
}
