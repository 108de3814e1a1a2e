package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/app"
	"github.com/rovshanmuradov/solana-amm/internal/config"
	"github.com/rovshanmuradov/solana-amm/internal/logger"
	"github.com/rovshanmuradov/solana-amm/internal/ui"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (defaults are used when empty)")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadConfig(*configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Консоль отключена: логи идут в файл и в панель дашборда.
	logs := logger.NewLogBuffer(1000)
	appLogger, err := app.NewLogger(cfg, false, logs)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	appLogger.Info("Starting AMM dashboard")

	a, err := app.New(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	mode := "localnet"
	if !cfg.UseLocalnet() {
		mode = "rpc"
	}
	services := &ui.Services{
		ProgramID: cfg.ProgramKey(),
		Mode:      mode,
		Monitor:   a.Monitor(),
		History:   a.History(),
		Logs:      logs,
		Refresh:   cfg.RefreshInterval(),
	}
	feed := ui.NewFeed(256, appLogger.Logger)
	throttler := ui.NewSnapshotThrottler(cfg.RefreshInterval(), services.Snapshot, feed, appLogger.Logger)
	feed.Attach(a.Bus(), throttler)

	ctx, cancel := context.WithCancel(rootCtx)
	go func() {
		report, err := a.Simulate(ctx)
		if err != nil {
			appLogger.LogError("Simulation failed", err)
		}
		feed.Send(ui.SimulationDoneMsg{Report: report, Err: err})
	}()

	err = ui.RunWithRecovery(rootCtx, appLogger.Logger, 3, func() *tea.Program {
		return tea.NewProgram(
			ui.NewSafeModel(ui.NewDashboard(services, feed, throttler), appLogger.Logger),
			tea.WithAltScreen(),
		)
	})
	if err != nil {
		appLogger.Error("Dashboard failed", zap.Error(err))
	}

	appLogger.Info("Shutting down dashboard")
	cancel()
	feed.Close()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := a.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown finished with errors: %v", err)
	}
}
