// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-amm/internal/amm"
	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
	"github.com/rovshanmuradov/solana-amm/internal/blockchain/localnet"
	"github.com/rovshanmuradov/solana-amm/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-amm/internal/config"
	"github.com/rovshanmuradov/solana-amm/internal/events"
	"github.com/rovshanmuradov/solana-amm/internal/export"
	"github.com/rovshanmuradov/solana-amm/internal/logger"
	"github.com/rovshanmuradov/solana-amm/internal/market"
	"github.com/rovshanmuradov/solana-amm/internal/monitor"
	"github.com/rovshanmuradov/solana-amm/internal/simulation"
	"github.com/rovshanmuradov/solana-amm/internal/wallet"
)

// ErrLocalnetOnly возвращается режимами, которым нужен локальный леджер.
var ErrLocalnetOnly = errors.New("mode requires the local ledger: remove rpc_list from config")

// NewLogger строит логгер процесса по конфигурации. Для TUI console=false,
// а buffer передаёт записи в панель логов.
func NewLogger(cfg *config.Config, console bool, buffer *logger.LogBuffer) (*logger.Logger, error) {
	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	logCfg.Console = console
	return logger.New(logCfg, buffer)
}

// App собирает сервисы процесса: хост, клиент рынка, шину событий и монитор.
type App struct {
	cfg      *config.Config
	logger   *logger.Logger
	chain    blockchain.Client
	bank     *localnet.Bank
	rpc      *solbc.Client
	bus      *events.Bus
	history  *monitor.History
	monitor  *monitor.InvariantMonitor
	client   *market.Client
	shutdown *ShutdownHandler
}

// New wires the services described by cfg. With an empty rpc_list the
// program runs inside an in-process ledger.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{
		cfg:      cfg,
		logger:   log,
		shutdown: NewShutdownHandler(log.Logger),
	}

	if cfg.UseLocalnet() {
		a.bank = localnet.NewBank(log.Logger)
		a.bank.RegisterProgram(cfg.ProgramKey(), amm.NewProcessor(log.Logger))
		a.chain = a.bank
		log.Info("Using in-process ledger", zap.String("program_id", cfg.ProgramID))
	} else {
		rpcClient, err := solbc.NewClient(cfg.RPCList, log.Logger)
		if err != nil {
			return nil, err
		}
		a.rpc, a.chain = rpcClient, rpcClient
		log.Info("Using RPC cluster", zap.Strings("rpc_list", cfg.RPCList))
	}

	a.bus = events.NewBus(log.Logger, cfg.EventBuffer)
	history, err := monitor.NewHistory(1000, cfg.HistoryCSV, log.Logger)
	if err != nil {
		return nil, err
	}
	a.history = history
	a.monitor = monitor.NewInvariantMonitor(a.bus, history, log.Logger)
	a.monitor.Start()

	a.client = market.New(a.chain, cfg.ProgramKey(), log.Logger, a.bus,
		market.WithRetries(cfg.Retries),
		market.WithRetryInterval(cfg.RetryInterval()))

	// LIFO: шина закрывается раньше истории, чтобы доставить события в CSV.
	a.shutdown.AddFunc("logger", log.Sync)
	a.shutdown.Add("history", history)
	a.shutdown.AddFunc("monitor", func() error {
		a.monitor.Stop()
		return nil
	})
	a.shutdown.AddFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.bus.Shutdown(ctx)
	})
	return a, nil
}

// Client returns the market client.
func (a *App) Client() *market.Client { return a.client }

// Bus returns the event bus.
func (a *App) Bus() *events.Bus { return a.bus }

// Monitor returns the invariant monitor.
func (a *App) Monitor() *monitor.InvariantMonitor { return a.monitor }

// History returns the swap history.
func (a *App) History() *monitor.History { return a.history }

// Bank returns the in-process ledger, nil when running against RPC.
func (a *App) Bank() *localnet.Bank { return a.bank }

// Shutdown closes the services.
func (a *App) Shutdown(ctx context.Context) error {
	if a.rpc != nil {
		for _, s := range a.rpc.NodeStats() {
			a.logger.Debug("RPC node stats",
				zap.String("url", s.URL),
				zap.Bool("active", s.Active),
				zap.Uint64("success", s.SuccessCount),
				zap.Uint64("errors", s.ErrorCount))
		}
	}
	return a.shutdown.Shutdown(ctx)
}

// DemoResult итог демонстрационного сценария.
type DemoResult struct {
	MintX   solana.PublicKey
	MintY   solana.PublicKey
	Receipt *market.SwapReceipt
	Audit   *market.AuditReport
}

// Demo создаёт рынок 1000/1000, меняет 100 X на Y и проверяет хранилище.
// Сгенерированные кошельки сохраняются в wallets_file, если он задан.
func (a *App) Demo(ctx context.Context, out io.Writer) (*DemoResult, error) {
	if a.bank == nil {
		return nil, ErrLocalnetOnly
	}
	end := a.logger.TrackPerformance("demo")
	defer end()

	provider, trader := wallet.NewRandom(), wallet.NewRandom()
	a.bank.Airdrop(provider.PublicKey, 10_000_000_000)
	a.bank.Airdrop(trader.PublicKey, 1_000_000_000)

	mintX, err := a.bank.CreateMint(provider.PublicKey, 6)
	if err != nil {
		return nil, err
	}
	mintY, err := a.bank.CreateMint(provider.PublicKey, 6)
	if err != nil {
		return nil, err
	}
	for _, mint := range []solana.PublicKey{mintX, mintY} {
		if _, err := a.bank.MintTo(mint, provider.PublicKey, 1000); err != nil {
			return nil, err
		}
	}
	if _, err := a.bank.MintTo(mintX, trader.PublicKey, 100); err != nil {
		return nil, err
	}

	if a.cfg.WalletsFile != "" {
		if err := wallet.SaveWallets(a.cfg.WalletsFile, map[string]*wallet.Wallet{
			"provider": provider,
			"trader":   trader,
		}); err != nil {
			return nil, err
		}
	}

	addrs, err := a.client.Addresses(mintX, mintY)
	if err != nil {
		return nil, err
	}
	a.logger.WithMarket(addrs.Vault, mintX, mintY).Info("Demo market addresses")

	if _, err := a.client.InitMarket(ctx, provider, provider, provider, mintX, mintY, 1000, 1000); err != nil {
		return nil, err
	}
	vault, err := a.client.FetchVault(ctx, mintX, mintY)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "market %s initialized: %s\n", addrs.Vault, vault)

	receipt, err := a.client.Swap(ctx, trader, mintX, mintY, mintX, 100, 0)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "swap 100 X -> %d Y (%s), vault %s\n", receipt.AmountOut, receipt.Signature, receipt.Vault)

	report, err := a.client.Audit(ctx, mintX, mintY)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "audit: %s\n", report)

	return &DemoResult{MintX: mintX, MintY: mintY, Receipt: receipt, Audit: report}, nil
}

// Simulate runs the configured trader simulation on the local ledger.
func (a *App) Simulate(ctx context.Context) (*simulation.Report, error) {
	if a.bank == nil {
		return nil, ErrLocalnetOnly
	}
	runner := simulation.NewRunner(a.bank, a.client, a.cfg.Simulation, a.logger.Logger)
	return runner.Run(ctx)
}

// Inspect читает хранилище существующего рынка, котирует amount в обе
// стороны и проводит аудит. Работает и поверх RPC.
func (a *App) Inspect(ctx context.Context, out io.Writer, mintX, mintY solana.PublicKey, amount uint64) (*market.AuditReport, error) {
	report, err := a.client.Audit(ctx, mintX, mintY)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "vault %s: %s\n", report.Addresses.Vault, report)

	if amount == 0 {
		return report, nil
	}
	for _, in := range []solana.PublicKey{mintX, mintY} {
		quote, err := a.client.Quote(ctx, mintX, mintY, in, amount)
		if err != nil {
			fmt.Fprintf(out, "quote %d of %s: %v\n", amount, in, err)
			continue
		}
		fmt.Fprintf(out, "quote %d of %s -> %d\n", amount, in, quote.AmountOut)
	}
	return report, nil
}

// ExportHistory выгружает историю свапов процесса в dir.
func (a *App) ExportHistory(dir string, format export.Format, onlySuccess bool) (string, error) {
	exporter := export.NewSwapExporter(a.logger.Logger)
	return exporter.ExportSwaps(a.history.All(), export.Options{
		Format:      format,
		OnlySuccess: onlySuccess,
		OutputDir:   dir,
	})
}
