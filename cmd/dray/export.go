package main

import (
	"dray/internal/geoip"
	"dray/internal/logger"
	"dray/internal/publishers"

	"github.com/spf13/cobra"
)

var exportParams map[string]string

var exportCmd = &cobra.Command{
	Use:   "export [publisher_names...]",
	Short: "Publish the stored servers as a subscription",
	Long:  `Run all publishers or specific ones. Use --param to override publisher configuration.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, s := mustLoad()
		defer s.Close()

		if len(args) > 0 {
			cfg.FilterPublishers(args)
		}
		if len(cfg.Publishers) == 0 {
			logger.Log.Warn("No publishers matched.")
			return
		}

		list, err := s.ServerList()
		if err != nil {
			logger.Log.Fatalf("Error reading servers: %v", err)
		}
		if len(list) == 0 {
			logger.Log.Warn("No servers stored, nothing to publish.")
			return
		}

		var country publishers.CountryFunc
		if err := geoip.Init(cfg.GeoIP.CountryPath); err == nil && geoip.Ready() {
			defer geoip.Close()
			country = geoip.Country
		}

		for _, pubCfg := range cfg.Publishers {
			logger.Log.Infof("📨 Running Publisher: %s (%s)...", pubCfg.Name, pubCfg.Type)

			plugin, err := publishers.Get(pubCfg.Type)
			if err != nil {
				logger.Log.Warnf("Plugin not found: %v", err)
				continue
			}

			params := applyParams(pubCfg.Params, exportParams)
			params["_timeout"] = cfg.Subscription.Timeout
			if country != nil {
				params["_country"] = country
			}

			if err := plugin.Publish(cmd.Context(), list, params); err != nil {
				logger.Log.Errorf("Publish failed: %v", err)
			} else {
				logger.Log.Info("✅ Published successfully.")
			}
		}
	},
}

func init() {
	exportCmd.Flags().StringToStringVarP(&exportParams, "param", "p", nil, "Override publisher params (e.g. -p path=sub.txt)")
	rootCmd.AddCommand(exportCmd)
}
