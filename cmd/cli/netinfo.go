package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/discovery"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/logging"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/netinfo"
)

// netinfoCmd prints local network facts.
var netinfoCmd = &cobra.Command{
	Use:   "netinfo",
	Short: "Show local network information",
	Long: `Show the local network facts the discovery daemon works from:
interface networks, the primary range, the default gateway, the
configured DNS server, and the kernel neighbor table.`,
	Example: `  nexasec netinfo`,
	RunE:    runNetinfo,
}

// hostCmd deep-scans one host on demand.
var hostCmd = &cobra.Command{
	Use:   "host <ip>",
	Short: "Scan one host in depth",
	Long: `Run an on-demand service scan of a single host: nmap version
detection over the 100 most common ports, plus a neighbor-table MAC
lookup. The result is printed as JSON.`,
	Example: `  nexasec host 192.168.1.10`,
	Args:    cobra.ExactArgs(1),
	RunE:    runHost,
}

func init() {
	rootCmd.AddCommand(netinfoCmd)
	rootCmd.AddCommand(hostCmd)
}

func runNetinfo(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	enum := netinfo.New()

	info := enum.NetworkInfo(ctx)
	fmt.Printf("Networks:   %s\n", strings.Join(enum.LocalNetworks(), ", "))
	fmt.Printf("Primary:    %s\n", enum.PrimaryCIDR())
	fmt.Printf("Gateway:    %s\n", valueOrDash(info.Gateway))
	fmt.Printf("DNS:        %s\n", valueOrDash(info.DNS))

	neighbors, err := enum.NeighborTable(ctx)
	if err != nil {
		return fmt.Errorf("error reading neighbor table: %w", err)
	}
	if len(neighbors) == 0 {
		return nil
	}

	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("IP", "MAC", "State")
	for _, n := range neighbors {
		_ = table.Append([]string{n.IP, valueOrDash(n.MAC), n.State})
	}
	_ = table.Render()
	return nil
}

func runHost(_ *cobra.Command, args []string) error {
	scanner := discovery.NewDetailScanner(netinfo.New(), logging.Default())
	return printJSON(scanner.Scan(context.Background(), args[0]))
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
