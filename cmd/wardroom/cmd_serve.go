package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wardroom/internal/appstate"
	"wardroom/internal/assistant"
	"wardroom/internal/escalate"
	"wardroom/internal/export"
	"wardroom/internal/httpx"
	"wardroom/internal/proactive"
	"wardroom/internal/server"
	"wardroom/internal/store"
	"wardroom/internal/workflow"
)

// serveCmd hosts the assistant for the dashboard
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the assistant HTTP API and map-command stream",
	Long: `Runs the session host the dashboard connects to.

Endpoints:
  POST /api/assistant/message   submit a user turn
  POST /api/assistant/action    invoke a suggested action
  POST /api/assistant/workflow  start a guided workflow
  POST /api/assistant/reset     clear the session
  GET  /api/assistant/state     session state
  GET  /api/assistant/messages  conversation history
  POST /api/events              cross-tool events (selection, filters)
  GET  /api/stream              map commands and state over websocket
  GET  /health                  liveness`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	registry, err := workflow.NewRegistry(resolvePath(cfg.Workflows.DefinitionsPath))
	if err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}
	if cfg.Workflows.HotReload {
		watcher, werr := workflow.NewWatcher(registry)
		if werr != nil {
			logger.Warn("workflow hot reload unavailable", zap.Error(werr))
		} else if werr := watcher.Start(ctx); werr != nil {
			logger.Warn("workflow hot reload unavailable", zap.Error(werr))
		} else {
			defer watcher.Stop()
		}
	}

	reports, err := store.NewReportStore(resolvePath(cfg.Store.DatabasePath))
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}
	defer reports.Close()

	policy := httpx.Policy{MaxRetries: cfg.Retry.MaxRetries, BaseDelay: cfg.BaseDelay()}
	channel := escalate.NewChannel(cfg.Escalation, policy, &http.Client{Timeout: cfg.EscalationTimeout()})

	var provider export.DataProvider = export.LocalProvider{}
	if cfg.Export.DataEndpoint != "" {
		provider = &export.RESTProvider{Endpoint: cfg.Export.DataEndpoint, Policy: policy}
	}

	app := appstate.NewMemory(cfg.Campaign.DefaultYear)
	hub := server.NewHub(logger)

	orch := assistant.New(assistant.Deps{
		Config:   cfg,
		State:    app,
		Registry: registry,
		Reports:  reports,
		Exporter: export.NewBuilder(provider),
		Channel:  channel,
		MapSink:  hub.BroadcastCommand,
	})

	engine := proactive.NewEngine(proactive.Options{
		Enabled:        cfg.Proactive.Enabled,
		PollInterval:   cfg.PollInterval(),
		Cooldown:       cfg.Cooldown(),
		MinUserTurns:   cfg.Proactive.MinUserTurns,
		DepthThreshold: cfg.Proactive.DepthThreshold,
	}, proactive.InsightSource{}, orch)
	engine.Start(ctx)
	defer engine.Stop()

	srv := server.New(cfg, server.Deps{
		Orchestrator: orch,
		State:        app,
		Hub:          hub,
		Logger:       logger,
	})
	defer srv.Close()

	logger.Info("wardroom host starting",
		zap.String("addr", cfg.Server.Addr),
		zap.String("campaign", cfg.Campaign.Name),
		zap.Int("defaultYear", cfg.Campaign.DefaultYear))

	return srv.Run(ctx)
}
