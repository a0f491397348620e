package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"telly/internal/config"
	"telly/internal/device"
	"telly/internal/discovery"
)

var (
	scanPrefixes []string
	scanHosts    []string
	scanStart    int
	scanEnd      int
	scanWorkers  int
	scanNoMDNS   bool
	scanNoSSDP   bool
	scanSave     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find TVs on the local network",
	Long: `Scan /24 subnets for TVs by fingerprinting each host against every supported
protocol. Without --prefix the configured prefixes are used, then the subnets of
the local interfaces. Explicit --host addresses also get the slower port checks.
mDNS and SSDP browsing run alongside the sweep unless disabled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		opts, err := buildScanOptions(a.cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BRAND\tHOST\tSOURCE\tID")
		var found []device.DiscoveredDevice
		for d := range a.scanner.Scan(ctx, opts) {
			found = append(found, d)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Brand.Title(), hostLabel(d), d.Source, d.ID)
			w.Flush()
		}
		if ctx.Err() == context.Canceled {
			fmt.Println("scan interrupted")
		}
		fmt.Printf("%d TV(s) found\n", len(found))

		if scanSave && len(found) > 0 {
			added := mergeDiscovered(a.cfg, found)
			if err := config.SaveConfig(a.cfg, configPath); err != nil {
				return err
			}
			fmt.Printf("saved %d new TV(s) to %s\n", added, configPath)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanPrefixes, "prefix", nil, "subnet prefix such as 192.168.1 (repeatable)")
	scanCmd.Flags().StringSliceVar(&scanHosts, "host", nil, "explicit host to probe (repeatable)")
	scanCmd.Flags().IntVar(&scanStart, "start", 1, "first host number in each subnet")
	scanCmd.Flags().IntVar(&scanEnd, "end", 254, "last host number in each subnet")
	scanCmd.Flags().IntVarP(&scanWorkers, "workers", "w", 0, "concurrent probes (default from config)")
	scanCmd.Flags().BoolVar(&scanNoMDNS, "no-mdns", false, "skip mDNS browsing")
	scanCmd.Flags().BoolVar(&scanNoSSDP, "no-ssdp", false, "skip SSDP search")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "add discovered TVs to the configuration file")
}

func buildScanOptions(cfg *config.Config) (discovery.Options, error) {
	opts := discovery.Options{
		Prefixes:       cfg.Scan.Prefixes,
		HostRangeStart: scanStart,
		HostRangeEnd:   scanEnd,
		MaxConcurrency: cfg.Scan.Workers,
		ProbeTimeout:   config.Duration(cfg.Scan.ProbeTimeout, discovery.DefaultProbeTimeout),
		MDNS:           cfg.Scan.MDNS && !scanNoMDNS,
		SSDP:           cfg.Scan.SSDP && !scanNoSSDP,
	}
	if scanWorkers > 0 {
		opts.MaxConcurrency = scanWorkers
	}

	for _, p := range scanPrefixes {
		if !discovery.ValidPrefix(p) {
			return opts, fmt.Errorf("invalid prefix: %s", p)
		}
	}
	for _, h := range scanHosts {
		if !discovery.ValidHost(h) {
			return opts, fmt.Errorf("invalid host: %s", h)
		}
	}

	switch {
	case len(scanPrefixes) > 0:
		opts.Prefixes = scanPrefixes
	case len(scanHosts) > 0:
		opts.Prefixes = nil
	}
	opts.Hosts = scanHosts
	return opts, nil
}

func hostLabel(d device.DiscoveredDevice) string {
	if d.Port > 0 {
		return fmt.Sprintf("%s:%d", d.Host, d.Port)
	}
	return d.Host
}

// mergeDiscovered appends devices whose host is not configured yet
func mergeDiscovered(cfg *config.Config, found []device.DiscoveredDevice) int {
	known := make(map[string]bool, len(cfg.TVs))
	for _, tv := range cfg.TVs {
		known[strings.ToLower(tv.Host)] = true
	}

	added := 0
	for _, d := range found {
		if known[strings.ToLower(d.Host)] {
			continue
		}
		known[strings.ToLower(d.Host)] = true
		cfg.TVs = append(cfg.TVs, d.Profile())
		added++
	}
	return added
}
