package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/transferflow/internal/domain"
	"github.com/simaogato/transferflow/internal/usecase/poller"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api/v1", cfg.TransferAPIURL)
	assert.Equal(t, 30*time.Second, cfg.TransferAPITimeout)
	assert.Equal(t, ":8080", cfg.GRPCAddr)
	assert.Equal(t, "dev-token", cfg.GatewayToken)
	assert.Empty(t, cfg.JournalDSN)
	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, poller.Policy{MaxAttempts: 30, Interval: 2000 * time.Millisecond}, cfg.PollPolicy())
	assert.True(t, decimal.NewFromInt(1_000_000).Equal(cfg.Limits().PerTransaction))
	assert.Equal(t, 500, cfg.Limits().DescriptionMaxLen)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"TRANSFER_API_URL":      "https://bank.example.com/api/v1",
		"TRANSFER_API_TOKEN":    "service-token",
		"POLL_MAX_ATTEMPTS":     "5",
		"POLL_INTERVAL":         "500ms",
		"PER_TRANSACTION_LIMIT": "250000",
		"JOURNAL_DSN":           "postgres://localhost/transferflow",
		"OTEL_ENABLED":          "true",
	}))

	require.NoError(t, err)
	assert.Equal(t, "https://bank.example.com/api/v1", cfg.TransferAPIURL)
	assert.Equal(t, "service-token", cfg.TransferAPIToken)
	assert.Equal(t, poller.Policy{MaxAttempts: 5, Interval: 500 * time.Millisecond}, cfg.PollPolicy())
	assert.True(t, decimal.NewFromInt(250_000).Equal(cfg.Limits().PerTransaction))
	assert.Equal(t, "postgres://localhost/transferflow", cfg.JournalDSN)
	assert.True(t, cfg.OTelEnabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"relative api url", map[string]string{"TRANSFER_API_URL": "/api/v1"}},
		{"zero poll budget", map[string]string{"POLL_MAX_ATTEMPTS": "0"}},
		{"negative limit", map[string]string{"PER_TRANSACTION_LIMIT": "-1"}},
		{"malformed interval", map[string]string{"POLL_INTERVAL": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := load(context.Background(), envconfig.MapLookuper(tt.env))
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestValidate_ZeroBudgetWrapsSentinel(t *testing.T) {
	cfg := &Config{
		TransferAPIURL:      "http://localhost:8000/api/v1",
		TransferAPITimeout:  time.Second,
		PerTransactionLimit: 1,
		GatewayToken:        "t",
	}

	assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidPollBudget)
}
