package config

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/shopspring/decimal"

	"github.com/simaogato/transferflow/internal/domain"
	"github.com/simaogato/transferflow/internal/usecase/poller"
)

// Config holds the transferd settings loaded from the environment
type Config struct {
	TransferAPIURL      string        `env:"TRANSFER_API_URL,default=http://localhost:8000/api/v1"`
	TransferAPIToken    string        `env:"TRANSFER_API_TOKEN"`
	TransferAPITimeout  time.Duration `env:"TRANSFER_API_TIMEOUT,default=30s"`
	PollMaxAttempts     int           `env:"POLL_MAX_ATTEMPTS,default=30"`
	PollInterval        time.Duration `env:"POLL_INTERVAL,default=2s"`
	PerTransactionLimit int64         `env:"PER_TRANSACTION_LIMIT,default=1000000"`
	GRPCAddr            string        `env:"GRPC_ADDR,default=:8080"`
	GatewayToken        string        `env:"GATEWAY_TOKEN,default=dev-token"`
	JournalDSN          string        `env:"JOURNAL_DSN"`
	OTelEnabled         bool          `env:"OTEL_ENABLED,default=false"`
}

// Load reads the configuration from the process environment
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, nil)
}

// load reads the configuration through lookuper; nil means the process environment
func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	var err error
	if lookuper == nil {
		err = envconfig.Process(ctx, &cfg)
	} else {
		err = envconfig.ProcessWith(ctx, &cfg, lookuper)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the workflow cannot run with
func (c *Config) Validate() error {
	u, err := url.Parse(c.TransferAPIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("TRANSFER_API_URL must be an absolute URL, got %q", c.TransferAPIURL)
	}
	if c.TransferAPITimeout <= 0 {
		return fmt.Errorf("TRANSFER_API_TIMEOUT must be positive")
	}
	if c.PollMaxAttempts <= 0 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be positive: %w", domain.ErrInvalidPollBudget)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("POLL_INTERVAL must not be negative")
	}
	if c.PerTransactionLimit <= 0 {
		return fmt.Errorf("PER_TRANSACTION_LIMIT must be positive")
	}
	if c.GatewayToken == "" {
		return fmt.Errorf("GATEWAY_TOKEN must not be empty")
	}
	return nil
}

// PollPolicy is the tracking budget for submitted transfers
func (c *Config) PollPolicy() poller.Policy {
	return poller.Policy{MaxAttempts: c.PollMaxAttempts, Interval: c.PollInterval}
}

// Limits is the client-side validation ceiling
func (c *Config) Limits() domain.Limits {
	limits := domain.DefaultLimits
	limits.PerTransaction = decimal.NewFromInt(c.PerTransactionLimit)
	return limits
}
