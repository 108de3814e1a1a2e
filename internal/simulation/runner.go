// =============================
// File: internal/simulation/runner.go
// =============================
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-amm/internal/amm"
	"github.com/rovshanmuradov/solana-amm/internal/blockchain"
	"github.com/rovshanmuradov/solana-amm/internal/blockchain/localnet"
	"github.com/rovshanmuradov/solana-amm/internal/config"
	"github.com/rovshanmuradov/solana-amm/internal/market"
	"github.com/rovshanmuradov/solana-amm/internal/wallet"
)

const traderLamports = 1_000_000_000

// Market рынок, созданный раннером.
type Market struct {
	MintX     solana.PublicKey
	MintY     solana.PublicKey
	Addresses *market.Addresses
	Provider  *wallet.Wallet
}

// Report итог прогона симуляции.
type Report struct {
	RunID        string
	Market       *Market
	Swaps        int
	Failed       int
	Failures     map[string]int
	StartVault   amm.Vault
	EndVault     amm.Vault
	StartProduct *big.Int
	EndProduct   *big.Int
	Audit        *market.AuditReport
	Duration     time.Duration
}

// ProductHeld reports whether K did not rise over the run.
func (r *Report) ProductHeld() bool {
	return r.EndProduct.Cmp(r.StartProduct) <= 0
}

// FailureCodes returns failure codes sorted by name.
func (r *Report) FailureCodes() []string {
	codes := make([]string, 0, len(r.Failures))
	for code := range r.Failures {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (r *Report) String() string {
	return fmt.Sprintf("run %s: swaps=%d failed=%d vault %s -> %s k %s -> %s",
		r.RunID, r.Swaps, r.Failed, r.StartVault, r.EndVault, r.StartProduct, r.EndProduct)
}

// Runner засевает рынок на локальном леджере и гоняет по нему трейдеров.
type Runner struct {
	bank   *localnet.Bank
	client *market.Client
	cfg    config.SimulationConfig
	logger *zap.Logger
}

// NewRunner создаёт раннер. client должен работать поверх bank.
func NewRunner(bank *localnet.Bank, client *market.Client, cfg config.SimulationConfig, logger *zap.Logger) *Runner {
	return &Runner{
		bank:   bank,
		client: client,
		cfg:    cfg,
		logger: logger.Named("simulation"),
	}
}

// Setup creates both mints, funds a liquidity provider and initializes the
// market with the configured seed reserves.
func (r *Runner) Setup(ctx context.Context) (*Market, error) {
	provider := wallet.NewRandom()
	r.bank.Airdrop(provider.PublicKey, 10*traderLamports)

	mintX, err := r.bank.CreateMint(provider.PublicKey, 6)
	if err != nil {
		return nil, fmt.Errorf("create mint X: %w", err)
	}
	mintY, err := r.bank.CreateMint(provider.PublicKey, 6)
	if err != nil {
		return nil, fmt.Errorf("create mint Y: %w", err)
	}
	if _, err := r.bank.MintTo(mintX, provider.PublicKey, r.cfg.SeedX); err != nil {
		return nil, err
	}
	if _, err := r.bank.MintTo(mintY, provider.PublicKey, r.cfg.SeedY); err != nil {
		return nil, err
	}

	if _, err := r.client.InitMarket(ctx, provider, provider, provider, mintX, mintY, r.cfg.SeedX, r.cfg.SeedY); err != nil {
		return nil, err
	}
	addrs, err := r.client.Addresses(mintX, mintY)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Market seeded", append(addrs.Fields(),
		zap.Uint64("seed_x", r.cfg.SeedX),
		zap.Uint64("seed_y", r.cfg.SeedY))...)
	return &Market{MintX: mintX, MintY: mintY, Addresses: addrs, Provider: provider}, nil
}

// Run засевает рынок и запускает трейдеров параллельно. Отказы программы
// считаются по кодам, ошибки хоста кроме нехватки средств прерывают прогон.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	runID := uuid.New().String()
	r.logger.Info("Simulation started",
		zap.String("run_id", runID),
		zap.Int("traders", r.cfg.Traders),
		zap.Int("swaps_per_trader", r.cfg.SwapsPerTrader))

	m, err := r.Setup(ctx)
	if err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	startVault, err := r.client.FetchVault(ctx, m.MintX, m.MintY)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:        runID,
		Market:       m,
		Failures:     make(map[string]int),
		StartVault:   startVault,
		StartProduct: startVault.Product(),
	}
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Traders; i++ {
		trader, err := r.fundTrader(m)
		if err != nil {
			return nil, err
		}
		rng := rand.New(rand.NewSource(r.cfg.RandomSeed + int64(i)))
		g.Go(func() error {
			return r.trade(gCtx, m, trader, rng, func(code string) {
				mu.Lock()
				defer mu.Unlock()
				report.Swaps++
				if code != "" {
					report.Failed++
					report.Failures[code]++
				}
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if report.EndVault, err = r.client.FetchVault(ctx, m.MintX, m.MintY); err != nil {
		return nil, err
	}
	report.EndProduct = report.EndVault.Product()
	if report.Audit, err = r.client.Audit(ctx, m.MintX, m.MintY); err != nil {
		return nil, err
	}
	report.Duration = time.Since(start)

	r.logger.Info("Simulation finished",
		zap.String("run_id", runID),
		zap.Int("swaps", report.Swaps),
		zap.Int("failed", report.Failed),
		zap.Bool("product_held", report.ProductHeld()),
		zap.Bool("balanced", report.Audit.Balanced()),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (r *Runner) fundTrader(m *Market) (*wallet.Wallet, error) {
	trader := wallet.NewRandom()
	r.bank.Airdrop(trader.PublicKey, traderLamports)
	if _, err := r.bank.MintTo(m.MintX, trader.PublicKey, r.cfg.TraderBalance); err != nil {
		return nil, fmt.Errorf("fund trader: %w", err)
	}
	if _, err := r.bank.MintTo(m.MintY, trader.PublicKey, r.cfg.TraderBalance); err != nil {
		return nil, fmt.Errorf("fund trader: %w", err)
	}
	return trader, nil
}

func (r *Runner) trade(ctx context.Context, m *Market, trader *wallet.Wallet, rng *rand.Rand, record func(code string)) error {
	for n := 0; n < r.cfg.SwapsPerTrader; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		mintIn := m.MintX
		if rng.Intn(2) == 1 {
			mintIn = m.MintY
		}
		amount := uint64(rng.Int63n(int64(r.cfg.MaxSwap))) + 1

		_, err := r.client.Swap(ctx, trader, m.MintX, m.MintY, mintIn, amount, 0)
		code, fatal := classify(err)
		if fatal != nil {
			return fmt.Errorf("trader %s: %w", trader, fatal)
		}
		record(code)
	}
	return nil
}

// classify возвращает код отказа свапа или ошибку, прерывающую прогон.
func classify(err error) (string, error) {
	if err == nil {
		return "", nil
	}
	if code := market.ErrorCode(err); code != "" {
		return code, nil
	}
	if errors.Is(err, blockchain.ErrInsufficientFunds) {
		return "InsufficientFunds", nil
	}
	return "", err
}
