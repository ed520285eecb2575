package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scanCmd = &cobra.Command{
	Use:   "scan [targets...]",
	Short: "Scan one or more targets for open ports",
	Long: `Scan scans hosts, IP ranges, or CIDR blocks for open ports using
concurrent TCP connect/stealth techniques or UDP probing, with optional
service banner fingerprinting and adaptive parameter tuning.

Targets may be given as positional arguments, read from stdin with
--stdin, or both combined.`,
	Example: `  portscan scan localhost --ports 22,80,443
  portscan scan 192.168.1.0/24 --profile web --banners
  portscan scan 10.0.0.1 --protocol udp --ports 53,123,161
  echo "host1 host2" | portscan scan --stdin --ports top100`,
	Args: cobra.ArbitraryArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	flags := scanCmd.Flags()
	flags.StringP("ports", "p", "1-1024,3306,6379", "ports to scan: ranges, lists, 'top100', or '-' for 1-65535")
	flags.StringP("profile", "P", "", "named port profile: quick, web, database, full")
	flags.String("protocol", "tcp", "scan protocol: tcp, udp, or both")
	flags.String("technique", "connect", "scan technique: connect, syn, fin, xmas, null (syn/fin/xmas/null require raw-socket privileges)")
	flags.Int("rate", 7500, "packets per second rate limit")
	flags.Int("timeout", 200, "per-port connection timeout in milliseconds")
	flags.Int("workers", 0, "concurrent worker count (0 = auto-detect)")
	flags.Float64("udp-worker-ratio", -1.0, "fraction of workers reserved for UDP (-1 = default)")
	flags.Bool("banners", false, "grab and fingerprint service banners on open ports")
	flags.StringP("output", "o", "", "output format: json, csv, xml, or empty for plain text")
	flags.Bool("stdin", false, "read additional targets from stdin")
	flags.Bool("json", false, "shorthand for --output json (NDJSON)")
	flags.Bool("json-array", false, "emit JSON as a single array instead of NDJSON")
	flags.Bool("json-object", false, "emit JSON as a single object with scan_info metadata")
	flags.Bool("xml", false, "shorthand for --output xml (Nmap-compatible)")
	flags.Bool("only-open", false, "show/report only open ports")
	flags.String("ui.theme", "default", "color theme for text output: default, dracula, monokai")
	flags.Bool("dry-run", false, "print the resolved scan plan without scanning")
	flags.Bool("examples", false, "print extended usage examples and exit")
	flags.Bool("verbose", false, "enable verbose diagnostic output")

	_ = viper.BindPFlag("ports", flags.Lookup("ports"))
	_ = viper.BindPFlag("profile", flags.Lookup("profile"))
	_ = viper.BindPFlag("protocol", flags.Lookup("protocol"))
	_ = viper.BindPFlag("technique", flags.Lookup("technique"))
	_ = viper.BindPFlag("rate", flags.Lookup("rate"))
	_ = viper.BindPFlag("timeout_ms", flags.Lookup("timeout"))
	_ = viper.BindPFlag("workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("udp_worker_ratio", flags.Lookup("udp-worker-ratio"))
	_ = viper.BindPFlag("banners", flags.Lookup("banners"))
	_ = viper.BindPFlag("output", flags.Lookup("output"))
	_ = viper.BindPFlag("stdin", flags.Lookup("stdin"))
	_ = viper.BindPFlag("json", flags.Lookup("json"))
	_ = viper.BindPFlag("json_array", flags.Lookup("json-array"))
	_ = viper.BindPFlag("json_object", flags.Lookup("json-object"))
	_ = viper.BindPFlag("xml", flags.Lookup("xml"))
	_ = viper.BindPFlag("only_open", flags.Lookup("only-open"))
	_ = viper.BindPFlag("ui.theme", flags.Lookup("ui.theme"))
	_ = viper.BindPFlag("dry_run", flags.Lookup("dry-run"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
}
