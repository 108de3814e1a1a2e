// ====================================
// File: cmd/amm/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/app"
	"github.com/rovshanmuradov/solana-amm/internal/config"
	"github.com/rovshanmuradov/solana-amm/internal/export"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (defaults are used when empty)")
	mode := flag.String("mode", "demo", "demo | simulate | inspect")
	mintX := flag.String("mint-x", "", "Mint X of the market to inspect")
	mintY := flag.String("mint-y", "", "Mint Y of the market to inspect")
	amount := flag.Uint64("amount", 0, "Amount to quote in both directions (inspect)")
	exportDir := flag.String("export-dir", "", "Export swap history to this directory after the run")
	exportFormat := flag.String("export-format", "csv", "csv | json")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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

	appLogger, err := app.NewLogger(cfg, true, nil)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	a, err := app.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize", zap.Error(err))
	}

	runErr := run(ctx, a, *mode, *mintX, *mintY, *amount)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("Shutdown finished with errors", zap.Error(err))
	}
	// после Shutdown шина событий уже доставила все свапы в историю
	if runErr == nil && *exportDir != "" {
		path, err := a.ExportHistory(*exportDir, export.Format(*exportFormat), false)
		if err != nil {
			fmt.Fprintln(os.Stderr, "export failed:", err)
		} else {
			fmt.Println("history exported to", path)
		}
	}
	if runErr != nil {
		appLogger.LogError("Execution failed", runErr, zap.String("mode", *mode))
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, mode, mintX, mintY string, amount uint64) error {
	switch mode {
	case "demo":
		_, err := a.Demo(ctx, os.Stdout)
		return err

	case "simulate":
		report, err := a.Simulate(ctx)
		if err != nil {
			return err
		}
		fmt.Println(report)
		for _, code := range report.FailureCodes() {
			fmt.Printf("  %s: %d\n", code, report.Failures[code])
		}
		fmt.Println(report.Audit)
		if !report.ProductHeld() {
			return fmt.Errorf("product rose from %s to %s", report.StartProduct, report.EndProduct)
		}
		return nil

	case "inspect":
		x, err := solana.PublicKeyFromBase58(mintX)
		if err != nil {
			return fmt.Errorf("invalid -mint-x: %w", err)
		}
		y, err := solana.PublicKeyFromBase58(mintY)
		if err != nil {
			return fmt.Errorf("invalid -mint-y: %w", err)
		}
		_, err = a.Inspect(ctx, os.Stdout, x, y, amount)
		return err
	}
	return fmt.Errorf("unknown mode %q", mode)
}
