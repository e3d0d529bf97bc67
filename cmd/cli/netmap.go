package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/discovery"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/logging"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/netinfo"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/netmap"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/probe"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/store"
)

var netmapLive bool

// netmapCmd prints the network visualization graph as JSON.
var netmapCmd = &cobra.Command{
	Use:   "netmap",
	Short: "Print the network map",
	Long: `Print the network visualization graph derived from the device
inventory as JSON. With --live, or when the inventory is empty, the
primary local network is swept directly and the map is built around
the default gateway instead.`,
	Example: `  nexasec netmap
  nexasec netmap --live`,
	RunE: runNetmap,
}

func init() {
	rootCmd.AddCommand(netmapCmd)
	netmapCmd.Flags().BoolVar(&netmapLive, "live", false, "sweep the network instead of reading the inventory")
}

func runNetmap(_ *cobra.Command, _ []string) error {
	if netmapLive {
		return printJSON(liveNetworkMap(context.Background()))
	}

	return withStore(func(ctx context.Context, db *store.DB) error {
		devices, err := db.GetAll(ctx)
		if err != nil {
			return fmt.Errorf("error listing devices: %w", err)
		}
		if len(devices) == 0 {
			return printJSON(liveNetworkMap(ctx))
		}
		return printJSON(netmap.Build(devices))
	})
}

// liveNetworkMap sweeps the primary local range and builds the
// gateway-centered fallback graph.
func liveNetworkMap(ctx context.Context) netmap.Map {
	cache := discovery.NewMapCache(probe.NewPingStrategy(0), netinfo.New(), logging.Default())
	return cache.Get(ctx)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
