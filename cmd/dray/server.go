package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"dray/internal/geoip"
	"dray/internal/logger"
	"dray/internal/store"
	"dray/internal/xray/parser"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "List, inspect and edit stored servers",
}

var flagResolve bool

var serverListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored servers",
	Args:  cobra.NoArgs,
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

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\t\tNAME\tPROTOCOL\tHOST\tSECURITY\tCOUNTRY\tHASH")
		for i, d := range list {
			mark := ""
			if active != nil && active.ContentHash == d.ContentHash {
				mark = "*"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				i+1, mark, d.DisplayName, d.Protocol, d.HostSummary, d.SecurityLabel,
				serverCountry(cmd.Context(), d), shortHash(d.ContentHash))
		}
		w.Flush()
	},
}

var serverShowCmd = &cobra.Command{
	Use:   "show <index|hash>",
	Short: "Print a server's share-link and stored record",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, s := mustLoad()
		defer s.Close()

		list, err := s.ServerList()
		if err != nil {
			logger.Log.Fatalf("Error reading servers: %v", err)
		}
		i, err := resolveServer(list, args[0])
		if err != nil {
			logger.Log.Fatal(err)
		}
		d := list[i]
		b, _ := json.MarshalIndent(d, "", "  ")
		fmt.Println(d.URI())
		fmt.Println(string(b))
		if err := parser.Validate(d); err != nil {
			logger.Log.Warnf("Server is not usable: %v", err)
		}
	},
}

var (
	addProtocol string
	addName     string
	addAddress  string
	addPort     int
	addSecret   string
	addMethod   string
)

var serverAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a server by hand",
	Long: `Creates a server from flags. For vmess and vless an id is generated when
--secret is empty; trojan and ss need a password.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		_, s := mustLoad()
		defer s.Close()

		d, err := manualServer()
		if err != nil {
			logger.Log.Fatal(err)
		}
		if err := parser.Validate(d); err != nil {
			logger.Log.Fatalf("Invalid server: %v", err)
		}

		list, err := s.ServerList()
		if err != nil {
			logger.Log.Fatalf("Error reading servers: %v", err)
		}
		if list.Find(d.ContentHash) >= 0 {
			logger.Log.Warn("An identical server already exists.")
			return
		}
		if err := s.SaveServerList(append(store.ServerList{d}, list...)); err != nil {
			logger.Log.Fatalf("Error saving servers: %v", err)
		}
		logger.Log.Infof("✅ Added %s", d.URI())
	},
}

func manualServer() (*parser.Descriptor, error) {
	var p parser.Payload
	switch parser.Protocol(strings.ToLower(addProtocol)) {
	case parser.ProtocolVmess:
		p = &parser.VmessPayload{Add: addAddress, Port: addPort, ID: orNewID(addSecret)}
	case parser.ProtocolVless:
		p = &parser.VlessPayload{Add: addAddress, Port: addPort, ID: orNewID(addSecret)}
	case parser.ProtocolTrojan:
		p = &parser.TrojanPayload{Add: addAddress, Port: addPort, Password: addSecret}
	case parser.ProtocolShadowsocks:
		p = &parser.ShadowsocksPayload{Add: addAddress, Port: addPort, Method: addMethod, Password: addSecret}
	default:
		return nil, fmt.Errorf("%w: %q", parser.ErrUnsupportedProtocol, addProtocol)
	}
	return parser.NewDescriptor(addName, p), nil
}

func orNewID(id string) string {
	if id == "" {
		return parser.NewID()
	}
	return id
}

var serverRemoveCmd = &cobra.Command{
	Use:   "remove <index|hash>...",
	Short: "Delete servers",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, s := mustLoad()
		defer s.Close()

		list, err := s.ServerList()
		if err != nil {
			logger.Log.Fatalf("Error reading servers: %v", err)
		}
		drop := make(map[string]bool)
		for _, arg := range args {
			i, err := resolveServer(list, arg)
			if err != nil {
				logger.Log.Fatal(err)
			}
			drop[list[i].ContentHash] = true
		}

		kept := make(store.ServerList, 0, len(list))
		for _, d := range list {
			if !drop[d.ContentHash] {
				kept = append(kept, d)
			}
		}
		if err := s.SaveServerList(kept); err != nil {
			logger.Log.Fatalf("Error saving servers: %v", err)
		}
		if active, _ := s.ActiveServer(); active == nil {
			s.SetActiveServer("")
		}
		logger.Log.Infof("🗑️  Removed %d servers.", len(list)-len(kept))
	},
}

var serverUseCmd = &cobra.Command{
	Use:   "use <index|hash>",
	Short: "Select the server compiled documents go through",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, s := mustLoad()
		defer s.Close()

		list, err := s.ServerList()
		if err != nil {
			logger.Log.Fatalf("Error reading servers: %v", err)
		}
		i, err := resolveServer(list, args[0])
		if err != nil {
			logger.Log.Fatal(err)
		}
		if err := parser.Validate(list[i]); err != nil {
			logger.Log.Fatalf("Server cannot be activated: %v", err)
		}
		if err := s.SetActiveServer(list[i].ContentHash); err != nil {
			logger.Log.Fatalf("Error saving selection: %v", err)
		}
		logger.Log.Infof("🚀 Active server: %s (%s)", list[i].DisplayName, list[i].HostSummary)
	},
}

// resolveServer accepts a 1-based index or a unique hash prefix.
func resolveServer(list store.ServerList, arg string) (int, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(list) {
			return -1, fmt.Errorf("server index %d out of range (1-%d)", n, len(list))
		}
		return n - 1, nil
	}
	found := -1
	for i, d := range list {
		if strings.HasPrefix(d.ContentHash, arg) {
			if found >= 0 {
				return -1, fmt.Errorf("hash prefix %q is ambiguous", arg)
			}
			found = i
		}
	}
	if found < 0 {
		return -1, fmt.Errorf("no server matches %q", arg)
	}
	return found, nil
}

func serverCountry(ctx context.Context, d *parser.Descriptor) string {
	if d.Payload == nil {
		return ""
	}
	host, _ := d.Payload.Endpoint()
	if !flagResolve {
		return geoip.Country(host)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return geoip.ResolveCountry(ctx, host)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func init() {
	serverListCmd.Flags().BoolVar(&flagResolve, "resolve", false, "Resolve domain names for the country column")

	serverAddCmd.Flags().StringVar(&addProtocol, "protocol", "vless", "vmess, vless, trojan or ss")
	serverAddCmd.Flags().StringVar(&addName, "name", "", "Display name")
	serverAddCmd.Flags().StringVar(&addAddress, "address", "", "Server address")
	serverAddCmd.Flags().IntVar(&addPort, "port", 443, "Server port")
	serverAddCmd.Flags().StringVar(&addSecret, "secret", "", "User id or password")
	serverAddCmd.Flags().StringVar(&addMethod, "method", parser.DefaultShadowsocksMethod, "Shadowsocks cipher")

	serverCmd.AddCommand(serverListCmd, serverShowCmd, serverAddCmd, serverRemoveCmd, serverUseCmd)
	rootCmd.AddCommand(serverCmd)
}
