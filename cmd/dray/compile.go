package main

import (
	"encoding/json"
	"fmt"
	"os"

	"dray/internal/logger"
	"dray/internal/routing"
	"dray/internal/store"
	"dray/internal/xray"
	"dray/internal/xray/parser"

	"github.com/spf13/cobra"
)

var (
	flagServer string
	flagOut    string
	flagVerify bool
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Write the Xray document for the active server",
	Long: `Builds the outbound for the active server (or --server), compiles the
routing rules and DNS block from the stored documents and prints the result.
--verify runs the document through Xray's own config loader first.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, s := mustLoad()
		defer s.Close()

		server, err := pickServer(s, flagServer)
		if err != nil {
			logger.Log.Fatal(err)
		}

		ruleCfg, err := s.RuleConfig()
		if err != nil {
			logger.Log.Fatalf("Error reading rule config: %v", err)
		}
		ruleDomain, err := s.RuleDomain()
		if err != nil {
			logger.Log.Fatalf("Error reading rule domains: %v", err)
		}
		modes, err := s.RuleModeList()
		if err != nil {
			logger.Log.Fatalf("Error reading rule modes: %v", err)
		}
		dnsCfg, err := s.DnsConfig()
		if err != nil {
			logger.Log.Fatalf("Error reading DNS config: %v", err)
		}
		dnsModes, err := s.DnsModeList()
		if err != nil {
			logger.Log.Fatalf("Error reading DNS modes: %v", err)
		}

		rules, err := routing.Compile(ruleCfg, ruleDomain, modes)
		if err != nil {
			logger.Log.Fatalf("Routing: %v", err)
		}
		dns, err := routing.CompileDNS(dnsCfg, dnsModes)
		if err != nil {
			logger.Log.Fatalf("DNS: %v", err)
		}

		doc, err := xray.Assemble(server, cfg.App, cfg.Ray, rules, dns)
		if err != nil {
			logger.Log.Fatalf("Assemble: %v", err)
		}
		if flagVerify {
			if err := xray.VerifyDocument(doc); err != nil {
				logger.Log.Fatalf("Xray rejected the document: %v", err)
			}
			logger.Log.Info("✅ Document accepted by Xray.")
		}

		b, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			logger.Log.Fatalf("Encode: %v", err)
		}
		if err := writeOutput(flagOut, b); err != nil {
			logger.Log.Fatalf("Write: %v", err)
		}
	},
}

// pickServer resolves --server, falling back to the active selection.
func pickServer(s *store.Store, arg string) (*parser.Descriptor, error) {
	if arg == "" {
		d, err := s.ActiveServer()
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, xray.ErrNoActiveServer
		}
		return d, nil
	}
	list, err := s.ServerList()
	if err != nil {
		return nil, err
	}
	i, err := resolveServer(list, arg)
	if err != nil {
		return nil, err
	}
	return list[i], nil
}

func writeOutput(path string, b []byte) error {
	if path == "" || path == "-" {
		_, err := fmt.Println(string(b))
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0644)
}

var pacCmd = &cobra.Command{
	Use:   "pac",
	Short: "Write a proxy auto-config script for the domain lists",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, s := mustLoad()
		defer s.Close()

		domain, err := s.RuleDomain()
		if err != nil {
			logger.Log.Fatalf("Error reading rule domains: %v", err)
		}
		script, err := routing.GeneratePAC(cfg.App.SocksAddr(), domain)
		if err != nil {
			logger.Log.Fatalf("PAC: %v", err)
		}
		if err := writeOutput(flagOut, []byte(script)); err != nil {
			logger.Log.Fatalf("Write: %v", err)
		}
	},
}

func init() {
	compileCmd.Flags().StringVarP(&flagServer, "server", "s", "", "Server index or hash (default is the active server)")
	compileCmd.Flags().BoolVar(&flagVerify, "verify", false, "Check the document with Xray's config loader")
	for _, c := range []*cobra.Command{compileCmd, pacCmd} {
		c.Flags().StringVarP(&flagOut, "out", "o", "", "Output file (default is stdout)")
		rootCmd.AddCommand(c)
	}
}
