package main

import (
	"fmt"
	"os"
	"strconv"

	"dray/internal/config"
	"dray/internal/logger"
	"dray/internal/store"

	"github.com/spf13/cobra"
)

var cfgFile string
var verbose bool
var logFile string

var rootCmd = &cobra.Command{
	Use:   "dray",
	Short: "Share-link manager and Xray document compiler",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(verbose, logFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr (overwrites file)")
}

// mustLoad loads the config and opens the document store, or exits.
func mustLoad() (*config.Config, *store.Store) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.Log.Fatalf("Error loading config: %v", err)
	}
	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Log.Fatalf("Error connecting to DB: %v", err)
	}
	return cfg, s
}

// applyParams merges --param overrides into a plugin's params. Integers and
// booleans are converted so plugins see the same types YAML would give them.
func applyParams(params map[string]interface{}, overrides map[string]string) map[string]interface{} {
	if params == nil {
		params = make(map[string]interface{})
	}
	for k, v := range overrides {
		if intVal, err := strconv.Atoi(v); err == nil {
			params[k] = intVal
		} else if boolVal, err := strconv.ParseBool(v); err == nil {
			params[k] = boolVal
		} else {
			params[k] = v
		}
	}
	return params
}
