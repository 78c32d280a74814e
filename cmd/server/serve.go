package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/spf13/cobra"

	"tickrx/internal/api"
	"tickrx/internal/push/dingtalk"
	"tickrx/internal/store"
	"tickrx/internal/subscribe"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the dashboard API.

Endpoints:
  GET  /healthz
  GET  /api/crypto
  POST /api/crypto-by-symbol
  GET  /api/stocks/top
  POST /api/ask-stock
  POST /api/stock-analysis
  POST /api/subscribe`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	comps, err := buildComponents(context.Background(), cfg, log)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store.Sqlite.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.WithError(err).Warn("store close error")
		}
	}()

	var notifier subscribe.Notifier
	dt := dingtalk.NewClient(
		cfg.Push.Dingtalk.Webhook,
		cfg.Push.Dingtalk.Secret,
		time.Duration(cfg.Push.Dingtalk.TimeoutMs)*time.Millisecond,
	)
	if dt.Enabled() {
		notifier = dt
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	h := server.New(
		server.WithHostPorts(addr),
		server.WithExitWaitTime(5*time.Second),
	)
	api.RegisterRoutes(h, api.Deps{
		Dashboard: comps.dashboard,
		Analyst:   comps.narrator,
		Signups:   subscribe.New(st, notifier, log),
		Log:       log,
	})

	log.WithFields(map[string]any{
		"addr":      addr,
		"narrative": comps.narrator.Enabled(),
		"stocks":    cfg.Market.Yahoo.Enabled,
		"notify":    notifier != nil,
	}).Info("server starting")
	h.Spin()
	log.Info("server stopped")
	return nil
}
