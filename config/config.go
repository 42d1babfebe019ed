// config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the full process configuration, read from the environment.
type Config struct {
	ListenAddr     string `env:"LISTEN_ADDR" envDefault:":5000"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`
	DatabaseURL    string `env:"DATABASE_URL"`
	LogFile        string `env:"LOG_FILE"`

	// Session + gateway auth
	JWTSecret            string        `env:"JWT_SECRET"`
	ServiceToken         string        `env:"SERVICE_TOKEN"`
	LoginNonceTTL        time.Duration `env:"LOGIN_NONCE_TTL" envDefault:"5m"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	LoginAttemptsPerHour int           `env:"LOGIN_ATTEMPTS_PER_HOUR" envDefault:"5"`

	// Reward engine
	MinHoldTime      time.Duration   `env:"MIN_HOLD_TIME" envDefault:"96h"`
	DailyCooldown    time.Duration   `env:"DAILY_COOLDOWN" envDefault:"24h"`
	MaxReward        decimal.Decimal `env:"MAX_REWARD" envDefault:"1"`
	MinReward        decimal.Decimal `env:"MIN_REWARD" envDefault:"0.00002"`
	DecayRate        decimal.Decimal `env:"DECAY_RATE" envDefault:"0.8"`
	DailyPayoutCap   decimal.Decimal `env:"DAILY_PAYOUT_CAP" envDefault:"1000"`
	LockTTL          time.Duration   `env:"LOCK_TTL" envDefault:"60s"`
	ClaimsDisabled   bool            `env:"CLAIMS_DISABLED" envDefault:"false"`
	ClaimRateWindow  time.Duration   `env:"CLAIM_RATE_LIMIT_WINDOW" envDefault:"10m"`
	HistoryLimit     int             `env:"HISTORY_LIMIT" envDefault:"100"`
	PayoutTimeout    time.Duration   `env:"PAYOUT_TIMEOUT" envDefault:"50s"`
	OwnershipRPS     float64         `env:"OWNERSHIP_RPC_RPS" envDefault:"10"`
	OwnershipWorkers int             `env:"OWNERSHIP_CONCURRENCY" envDefault:"8"`

	// Chain
	PolygonRPC        string `env:"POLYGON_RPC"`
	PolygonPrivateKey string `env:"POLYGON_PRIVATE_KEY"`
	PolygonChainID    int64  `env:"POLYGON_CHAIN_ID" envDefault:"137"`
	USDTAddress       string `env:"USDT_ADDRESS"`
	USDTDecimals      int32  `env:"USDT_DECIMALS" envDefault:"6"`

	// Marketplace index
	MarketplaceURL       string        `env:"MARKETPLACE_URL" envDefault:"https://api.rarible.org/v0.1"`
	MarketplaceAPIKey    string        `env:"MARKETPLACE_API_KEY"`
	MarketplaceCreator   string        `env:"MARKETPLACE_CREATOR"`
	HoldingsPollInterval time.Duration `env:"HOLDINGS_POLL_INTERVAL" envDefault:"10m"`

	// Ledger export (Cloudflare R2)
	CloudflareAccountID string `env:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID       string `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret   string `env:"R2_ACCESS_KEY_SECRET"`
	R2Bucket            string `env:"R2_BUCKET_NAME"`
	LedgerExportPrefix  string `env:"LEDGER_EXPORT_PREFIX" envDefault:"holder rewards"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	return Parse()
}

// Parse reads the current environment without touching .env files.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects reward and timing parameters that would break the engine's invariants.
func (c *Config) Validate() error {
	var errs []error
	if c.DecayRate.Sign() <= 0 || c.DecayRate.GreaterThan(decimal.NewFromInt(1)) {
		errs = append(errs, fmt.Errorf("DECAY_RATE must be in (0, 1], got %s", c.DecayRate))
	}
	if c.MinReward.IsNegative() {
		errs = append(errs, fmt.Errorf("MIN_REWARD must not be negative"))
	}
	if c.MinReward.GreaterThan(c.MaxReward) {
		errs = append(errs, fmt.Errorf("MIN_REWARD %s exceeds MAX_REWARD %s", c.MinReward, c.MaxReward))
	}
	if c.DailyPayoutCap.Sign() <= 0 {
		errs = append(errs, fmt.Errorf("DAILY_PAYOUT_CAP must be positive"))
	}
	if c.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("LOCK_TTL must be positive"))
	}
	if c.PayoutTimeout <= 0 || c.PayoutTimeout >= c.LockTTL {
		errs = append(errs, fmt.Errorf("PAYOUT_TIMEOUT (%s) must be positive and below LOCK_TTL (%s)", c.PayoutTimeout, c.LockTTL))
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("HISTORY_LIMIT must be positive"))
	}
	if c.LoginNonceTTL <= 0 || c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("LOGIN_NONCE_TTL and SESSION_TTL must be positive"))
	}
	if c.OwnershipWorkers <= 0 {
		errs = append(errs, fmt.Errorf("OWNERSHIP_CONCURRENCY must be positive"))
	}
	return errors.Join(errs...)
}

// AllowedOriginList splits ALLOWED_ORIGINS on commas and trims each entry.
func (c *Config) AllowedOriginList() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// R2Enabled reports whether ledger exports can be uploaded.
func (c *Config) R2Enabled() bool {
	return c.CloudflareAccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != "" && c.R2Bucket != ""
}

// ChainEnabled reports whether on-chain ownership checks and payouts are configured.
func (c *Config) ChainEnabled() bool {
	return c.PolygonRPC != "" && c.PolygonPrivateKey != "" && c.USDTAddress != ""
}
