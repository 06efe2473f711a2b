package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr    string     `env:"HTTP_ADDR" envDefault:":3001"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	DBPath      string     `env:"DB_PATH" envDefault:"data/journal.db"`
	RedisURL    string     `env:"REDIS_URL"`
	RedisChan   string     `env:"REDIS_CHANNEL" envDefault:"crossguess:events"`
	SPADir      string     `env:"SPA_DIR" envDefault:"../web/dist"`
	CORSOrigins []string   `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://127.0.0.1:5173"`

	RoundDuration     time.Duration   `env:"ROUND_DURATION" envDefault:"120s"`
	Stake             decimal.Decimal `env:"STAKE_AMOUNT" envDefault:"0.00001"`
	MaxParticipants   int             `env:"MAX_PARTICIPANTS" envDefault:"5"`
	GuessMax          int             `env:"GUESS_MAX" envDefault:"5"`
	Rollover          bool            `env:"POOL_ROLLOVER" envDefault:"false"`
	SettlementTimeout time.Duration   `env:"SETTLEMENT_TIMEOUT" envDefault:"2m"`
	PayoutTimeout     time.Duration   `env:"PAYOUT_TIMEOUT" envDefault:"2m"`
	SourceChain       string          `env:"SOURCE_CHAIN" envDefault:"Ethereum"`
	DestChain         string          `env:"DEST_CHAIN" envDefault:"Solana"`

	DemoLatency  time.Duration `env:"DEMO_LATENCY" envDefault:"1s"`
	BridgeURL    string        `env:"BRIDGE_URL"`
	BridgeAPIKey string        `env:"BRIDGE_API_KEY"`
	PrivateKey   string        `env:"MAINNET_ETH_PRIVATE_KEY"`
	HouseAddress string        `env:"HOUSE_ADDRESS"`
}

// Load reads the given .env files (".env" when none are named) into the
// process environment, then parses it. Missing files are skipped; variables
// already set win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.RoundDuration <= 0 {
		errs = append(errs, fmt.Errorf("ROUND_DURATION must be positive, got %s", c.RoundDuration))
	}
	if c.MaxParticipants < 1 {
		errs = append(errs, fmt.Errorf("MAX_PARTICIPANTS must be at least 1, got %d", c.MaxParticipants))
	}
	if c.GuessMax < 1 {
		errs = append(errs, fmt.Errorf("GUESS_MAX must be at least 1, got %d", c.GuessMax))
	}
	if c.Stake.IsNegative() {
		errs = append(errs, fmt.Errorf("STAKE_AMOUNT must not be negative, got %s", c.Stake))
	}
	if c.SettlementTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SETTLEMENT_TIMEOUT must be positive, got %s", c.SettlementTimeout))
	}
	if c.PayoutTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PAYOUT_TIMEOUT must be positive, got %s", c.PayoutTimeout))
	}
	if c.DemoLatency < 0 {
		errs = append(errs, fmt.Errorf("DEMO_LATENCY must not be negative, got %s", c.DemoLatency))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
