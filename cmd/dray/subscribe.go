package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"dray/internal/collectors"
	"dray/internal/config"
	"dray/internal/importer"
	"dray/internal/logger"
	"dray/internal/metrics"
	"dray/internal/model"
	"dray/internal/store"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var (
	subscribeParams map[string]string
	flagWatch       bool
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe [source_names...]",
	Short: "Fetch subscriptions and collectors, then import their links",
	Long: `Runs every stored subscription and every collector defined in config, or
only the named ones. With --watch the update repeats on subscription.update_cron
until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, s := mustLoad()
		defer s.Close()

		if !flagWatch {
			runSubscriptions(cmd.Context(), cfg, s, args)
			return
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := logger.Named("cron")
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		if _, err := c.AddFunc(cfg.Subscription.UpdateCron, func() {
			log.Info("⏰ Scheduled subscription update")
			runSubscriptions(ctx, cfg, s, args)
		}); err != nil {
			logger.Log.Fatalf("Invalid update_cron %q: %v", cfg.Subscription.UpdateCron, err)
		}

		runSubscriptions(ctx, cfg, s, args)
		c.Start()
		log.Infof("Watching, schedule %q. Press Ctrl+C to stop.", cfg.Subscription.UpdateCron)
		<-ctx.Done()
		<-c.Stop().Done()
	},
}

// sources merges stored subscriptions, as "http" collectors, with the
// collectors from config. Names filter both when given.
func sources(cfg *config.Config, subs []model.SubscriptionRow, names []string) []config.CollectorConfig {
	var out []config.CollectorConfig
	for _, sub := range subs {
		if len(names) > 0 && !slices.Contains(names, sub.Name) {
			continue
		}
		params := map[string]interface{}{
			"url":     sub.URL,
			"is_html": sub.IsHtml,
			"timeout": int(cfg.Subscription.Timeout.Seconds()),
		}
		if sub.IsProxy {
			params["_proxy_url"] = "socks5://" + cfg.App.SocksAddr()
		}
		out = append(out, config.CollectorConfig{Name: sub.Name, Type: "http", Params: params})
	}

	if len(names) > 0 {
		cfg.FilterCollectors(names)
	}
	for _, c := range cfg.Collectors {
		c.Params = applyParams(c.Params, subscribeParams)
		out = append(out, c)
	}
	return out
}

func runSubscriptions(ctx context.Context, cfg *config.Config, s *store.Store, names []string) {
	if ctx == nil {
		ctx = context.Background()
	}
	subs, err := s.Subscriptions()
	if err != nil {
		logger.Log.Errorf("Error reading subscriptions: %v", err)
		return
	}
	list := sources(cfg, subs, names)
	if len(list) == 0 {
		logger.Log.Warn("No subscriptions or collectors matched.")
		return
	}

	m := metrics.New()
	im := importer.New(s, m)
	for _, src := range list {
		logger.Log.Infof("🏃 Running source: %s (%s)...", src.Name, src.Type)

		collector, err := collectors.Get(src.Type)
		if err != nil {
			logger.Log.Warnf("Skipping: %v", err)
			continue
		}

		// Telegram may wait on an interactive login; only plain fetches get the deadline.
		cctx, cancel := ctx, context.CancelFunc(func() {})
		if src.Type == "http" {
			cctx, cancel = context.WithTimeout(ctx, cfg.Subscription.Timeout)
		}
		links, err := collector.Collect(cctx, src.Params)
		cancel()
		if err != nil {
			logger.Log.Errorf("Error running source %s: %v", src.Name, err)
			continue
		}
		m.RecordSource(src.Name, len(links))

		res, err := im.ImportLines(links)
		if err != nil {
			logger.Log.Errorf("Error saving servers from %s: %v", src.Name, err)
			continue
		}
		logger.Log.Infof("✅ Source %s finished: %d new, %d duplicates, %d errors.", src.Name, res.New, res.Duplicates, res.Errors)
	}
	m.PrintReport(os.Stdout)
}

func init() {
	subscribeCmd.Flags().StringToStringVarP(&subscribeParams, "param", "p", nil, "Override collector params")
	subscribeCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "Keep running and update on subscription.update_cron")
	rootCmd.AddCommand(subscribeCmd)
}
