package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"dray/internal/geoip"
	"dray/internal/logger"
	"dray/internal/xray/parser"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store statistics and the current selection",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, s := mustLoad()
		defer s.Close()

		if err := geoip.Init(cfg.GeoIP.CountryPath); err == nil {
			defer geoip.Close()
		}

		list, err := s.ServerList()
		if err != nil {
			logger.Log.Fatalf("Error reading servers: %v", err)
		}
		active, _ := s.ActiveServer()
		ruleCfg, _ := s.RuleConfig()
		modes, _ := s.RuleModeList()
		dnsCfg, _ := s.DnsConfig()
		subs, _ := s.Subscriptions()

		protoCounts := lo.CountValuesBy(list, func(d *parser.Descriptor) string { return string(d.Protocol) })
		countryCounts := lo.CountValuesBy(list, func(d *parser.Descriptor) string {
			return serverCountry(context.Background(), d)
		})
		delete(countryCounts, "")

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

		fmt.Println("\n📊 \033[1mDRAY STATUS\033[0m")
		fmt.Println("────────────────────────────────────────")

		fmt.Fprintln(w, "\033[1;36m[ SYSTEM ]\033[0m\t")
		fmt.Fprintf(w, "  Database Path:\t%s\n", cfg.Database.Path)
		fmt.Fprintf(w, "  DB Size:\t%s\n", formatBytes(fileSize(cfg.Database.Path)))
		fmt.Fprintf(w, "  SOCKS:\t%s\n", cfg.App.SocksAddr())
		fmt.Fprintf(w, "  Subscriptions:\t%d\n", len(subs))
		fmt.Fprintln(w, "\t")

		fmt.Fprintln(w, "\033[1;36m[ SERVERS ]\033[0m\t")
		fmt.Fprintf(w, "  Total:\t%d\n", len(list))
		if active != nil {
			fmt.Fprintf(w, "  Active:\t%s (%s)\n", active.DisplayName, active.HostSummary)
		} else {
			fmt.Fprintln(w, "  Active:\t(none)")
		}
		for _, p := range sortedKeys(protoCounts) {
			fmt.Fprintf(w, "  %s:\t%d\n", p, protoCounts[p])
		}
		fmt.Fprintln(w, "\t")

		fmt.Fprintln(w, "\033[1;36m[ ROUTING ]\033[0m\t")
		if ruleCfg.GlobalProxy {
			fmt.Fprintln(w, "  Mode:\tglobal proxy")
		} else if ruleCfg.Mode >= 0 && ruleCfg.Mode < len(modes) {
			fmt.Fprintf(w, "  Mode:\t%s\n", modes[ruleCfg.Mode].Name)
		}
		fmt.Fprintf(w, "  Domain Strategy:\t%s\n", ruleCfg.DomainStrategy)
		fmt.Fprintf(w, "  DNS:\t%v\n", dnsCfg.Enable)
		fmt.Fprintln(w, "\t")

		if len(countryCounts) > 0 {
			fmt.Fprintln(w, "\033[1;36m[ LOCATIONS ]\033[0m\t")
			for _, c := range sortedKeys(countryCounts) {
				fmt.Fprintf(w, "  %s %s:\t%d\n", flagEmoji(c), c, countryCounts[c])
			}
		}

		w.Flush()
		fmt.Println("")
	},
}

func sortedKeys(m map[string]int) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func flagEmoji(code string) string {
	if len(code) != 2 {
		return "🌐"
	}
	code = strings.ToUpper(code)
	return string(rune(code[0])+0x1F1A5) + string(rune(code[1])+0x1F1A5)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
