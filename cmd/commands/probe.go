package commands

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/exec/portscope/internal/core"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Manage custom UDP probes",
	Long:  `Manage custom UDP probes for the UDP scanner.`,
}

var addProbeCmd = &cobra.Command{
	Use:   "add PORT HEX_DATA",
	Short: "Add a custom UDP probe for a specific port",
	Long: `Add a custom UDP probe for a specific port.

The HEX_DATA should be provided as a hex string without spaces or prefixes.
For example: portscan probe add 1234 000102030405

The probe is persisted to the probe store and used by every subsequent
'portscan scan --protocol udp' invocation, overriding the built-in
per-service probe for that port.`,
	Args: cobra.ExactArgs(2),
	RunE: runAddProbe,
}

var statsProbeCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show UDP probe statistics",
	Long:  `Show send/response/success counts recorded by the most recent UDP scan.`,
	RunE:  runProbeStats,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.AddCommand(addProbeCmd)
	probeCmd.AddCommand(statsProbeCmd)
}

func runAddProbe(cmd *cobra.Command, args []string) error {
	portStr := args[0]
	hexData := args[1]

	port64, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return fmt.Errorf("invalid port: %s", portStr)
	}
	port := uint16(port64)

	data, err := hex.DecodeString(hexData)
	if err != nil {
		return fmt.Errorf("invalid hex data: %s", hexData)
	}

	path := core.DefaultProbeStorePath()
	store := core.LoadProbeStore(path)
	store.SetProbe(port, data)
	if err := store.Save(); err != nil {
		return fmt.Errorf("failed to save probe store at %s: %w", path, err)
	}

	fmt.Printf("Custom probe added for port %d (%d bytes): %s\n", port, len(data), hexData)
	return nil
}

func runProbeStats(cmd *cobra.Command, args []string) error {
	store := core.LoadProbeStore(core.DefaultProbeStorePath())
	if len(store.Stats) == 0 {
		fmt.Println("No probe statistics recorded yet. Run a UDP scan first:")
		fmt.Println("  portscan scan <target> --protocol udp")
		return nil
	}

	fmt.Println("Probe statistics from the most recent UDP scan:")
	fmt.Printf("%-8s %-8s %-10s %-10s\n", "PORT", "SENT", "RESPONSES", "SUCCESSES")
	for _, stat := range store.Stats {
		fmt.Printf("%-8d %-8d %-10d %-10d\n", stat.Port, stat.Sent, stat.Responses, stat.Successes)
	}
	return nil
}
