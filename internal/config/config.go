// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/solana-amm/internal/amm"
)

const envPrefix = "SOLANA_AMM"

type Config struct {
	ProgramID    string           `mapstructure:"program_id"`
	RPCList      []string         `mapstructure:"rpc_list"`
	DebugLogging bool             `mapstructure:"debug_logging"`
	LogFile      string           `mapstructure:"log_file"`
	Retries      int              `mapstructure:"retries"`
	RetryDelay   int              `mapstructure:"retry_delay"`
	EventBuffer  int              `mapstructure:"event_buffer"`
	WalletsFile  string           `mapstructure:"wallets_file"`
	HistoryCSV   string           `mapstructure:"history_csv"`
	UIRefresh    int              `mapstructure:"ui_refresh"`
	Simulation   SimulationConfig `mapstructure:"simulation"`
}

// SimulationConfig параметры локальной симуляции.
type SimulationConfig struct {
	Traders        int    `mapstructure:"traders"`
	SwapsPerTrader int    `mapstructure:"swaps_per_trader"`
	SeedX          uint64 `mapstructure:"seed_x"`
	SeedY          uint64 `mapstructure:"seed_y"`
	TraderBalance  uint64 `mapstructure:"trader_balance"`
	MaxSwap        uint64 `mapstructure:"max_swap"`
	RandomSeed     int64  `mapstructure:"random_seed"`
}

const (
	DefaultRetries     = 3
	DefaultRetryDelay  = 50
	DefaultEventBuffer = 1024
	DefaultUIRefresh   = 250
	DefaultLogFile     = "logs/amm.log"
)

func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"program_id":                  amm.ProgramID.String(),
		"log_file":                    DefaultLogFile,
		"retries":                     DefaultRetries,
		"retry_delay":                 DefaultRetryDelay,
		"event_buffer":                DefaultEventBuffer,
		"ui_refresh":                  DefaultUIRefresh,
		"simulation.traders":          4,
		"simulation.swaps_per_trader": 25,
		"simulation.seed_x":           1_000_000,
		"simulation.seed_y":           1_000_000,
		"simulation.trader_balance":   100_000,
		"simulation.max_swap":         5_000,
		"simulation.random_seed":      1,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// LoadConfig читает файл конфигурации, применяет значения по умолчанию и
// переменные окружения SOLANA_AMM_*.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return load(v)
}

// LoadDefault строит конфигурацию без файла.
func LoadDefault() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	loadEnvironmentVariables(v, &cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ProgramKey returns the parsed program id.
func (c *Config) ProgramKey() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.ProgramID)
}

// RetryInterval начальный интервал повтора.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.RetryDelay) * time.Millisecond
}

// RefreshInterval период обновления TUI.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.UIRefresh) * time.Millisecond
}

// UseLocalnet reports whether no RPC endpoint is configured.
func (c *Config) UseLocalnet() bool {
	return len(c.RPCList) == 0
}

func validateConfig(cfg *Config) error {
	if _, err := solana.PublicKeyFromBase58(cfg.ProgramID); err != nil {
		return fmt.Errorf("invalid program_id: %w", err)
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if cfg.RetryDelay <= 0 {
		return errors.New("invalid retry_delay")
	}
	if cfg.EventBuffer <= 0 {
		return errors.New("invalid event_buffer")
	}
	if cfg.UIRefresh <= 0 {
		return errors.New("invalid ui_refresh")
	}
	sim := cfg.Simulation
	if sim.Traders <= 0 || sim.SwapsPerTrader < 0 {
		return errors.New("invalid simulation traders")
	}
	if sim.SeedX == 0 || sim.SeedY == 0 {
		return errors.New("simulation seed amounts must be positive")
	}
	if sim.MaxSwap == 0 {
		return errors.New("invalid simulation max_swap")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// loadEnvironmentVariables разбирает список RPC из SOLANA_AMM_RPC_LIST.
func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	envRPCList := v.GetString("RPC_LIST")
	if envRPCList == "" {
		return
	}
	var cleanRPCs []string
	for _, rpc := range strings.Split(envRPCList, ",") {
		if clean := strings.TrimSpace(rpc); clean != "" {
			cleanRPCs = append(cleanRPCs, clean)
		}
	}
	if len(cleanRPCs) > 0 {
		cfg.RPCList = cleanRPCs
	}
}
