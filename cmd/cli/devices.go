package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/config"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/inventory"
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/store"
)

var devicesJSON bool

// devicesCmd lists the persisted device inventory.
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List discovered devices",
	Long: `List the devices currently held in the inventory, with their
addresses, classification, open ports, and liveness status.`,
	Example: `  nexasec devices
  nexasec devices --json`,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.Flags().BoolVar(&devicesJSON, "json", false, "output as JSON")
}

// withStore loads configuration, connects to the device store, runs
// the operation, and closes the connection.
func withStore(operation func(ctx context.Context, db *store.DB) error) error {
	cfg, err := config.Load(getConfigFilePath())
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	ctx := context.Background()
	storeCfg := cfg.GetStoreConfig()
	database, err := store.Connect(ctx, &storeCfg)
	if err != nil {
		return fmt.Errorf("error connecting to device store: %w", err)
	}
	defer func() { _ = database.Close() }()

	return operation(ctx, database)
}

func runDevices(_ *cobra.Command, _ []string) error {
	return withStore(func(ctx context.Context, db *store.DB) error {
		devices, err := db.GetAll(ctx)
		if err != nil {
			return fmt.Errorf("error listing devices: %w", err)
		}

		if devicesJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(devices)
		}

		displayDevicesTable(devices)
		return nil
	})
}

// displayDevicesTable displays devices in a table format.
func displayDevicesTable(devices []inventory.NetworkDevice) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("IP", "MAC", "Hostname", "Vendor", "Type", "Open Ports", "Status", "Last Seen")

	online := 0
	for i := range devices {
		dev := &devices[i]
		if dev.IsOnline() {
			online++
		}
		_ = table.Append([]string{
			dev.IP,
			dev.MAC,
			dev.Hostname,
			dev.Vendor,
			string(dev.DeviceType),
			formatPorts(dev.OpenPorts),
			string(dev.Status),
			dev.LastSeen.Format("2006-01-02 15:04"),
		})
	}
	_ = table.Render()

	fmt.Printf("\n%d devices (%d online, %d offline)\n", len(devices), online, len(devices)-online)
}

func formatPorts(ports []int) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
