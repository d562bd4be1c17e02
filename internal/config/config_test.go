package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gfvledger/internal/config"
	"gfvledger/internal/ledger"
	"gfvledger/internal/ledger/ledgertest"
)

func setAddresses(t *testing.T) {
	t.Helper()
	for i, key := range []string{"OWNER_ADDRESS", "PAYMENT_ADDRESS", "REWARD_ADDRESS", "ASSET_ADDRESS", "FUNDRAISER_ADDRESS", "STAKING_ADDRESS"} {
		t.Setenv(key, ledger.FormatAddress(ledgertest.Address(byte(i+1))))
	}
}

func missingEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	setAddresses(t)

	cfg, err := config.Load(missingEnv(t))
	require.NoError(t, err)

	assert.Equal(t, uint64(200), cfg.MaxTickets)
	assert.Equal(t, "500", cfg.TicketPrice)
	assert.Equal(t, "257201", cfg.RewardsRatePerSecond)
	assert.Equal(t, config.SourceFile, cfg.Source)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "gfvledger", cfg.Logger.Instance)
	assert.False(t, cfg.Logger.JSON)
	assert.True(t, cfg.Logger.Console)
	assert.False(t, cfg.PublishNotices())

	params, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, ledgertest.Address(1), params.Owner)
	assert.Equal(t, ledgertest.Address(6), params.StakingAddress)
	assert.Equal(t, uint64(500), params.TicketPrice.Uint64())
	assert.Equal(t, uint64(257201), params.RewardsRatePerSecond.Uint64())
	assert.True(t, params.Genesis.IsZero())
}

func TestLoadDotEnv(t *testing.T) {
	setAddresses(t)
	t.Setenv("MAX_TICKETS", "")
	os.Unsetenv("MAX_TICKETS")
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")

	path := filepath.Join(t.TempDir(), ".env")
	content := "MAX_TICKETS=10\nLOG_LEVEL=debug\nGENESIS_TIME=2024-01-01T00:00:00Z\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("GENESIS_TIME")
	})

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), cfg.MaxTickets)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, ledgertest.Genesis, cfg.GenesisTime.UTC())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown source", env: map[string]string{"SOURCE": "kafka"}},
		{name: "chain without mailbox", env: map[string]string{"SOURCE": "chain"}},
		{name: "malformed count", env: map[string]string{"MAX_TICKETS": "many"}},
		{name: "mnemonic without notice address", env: map[string]string{"WALLET_MNEMONIC": "word"}},
		{name: "non-positive poll interval", env: map[string]string{"POLL_INTERVAL": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setAddresses(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			_, err := config.Load(missingEnv(t))
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresAddresses(t *testing.T) {
	setAddresses(t)
	t.Setenv("OWNER_ADDRESS", "")
	os.Unsetenv("OWNER_ADDRESS")

	_, err := config.Load(missingEnv(t))
	assert.ErrorContains(t, err, "parse env:")
}

func TestParamsRejectsMalformedValues(t *testing.T) {
	setAddresses(t)
	t.Setenv("TICKET_PRICE", "five hundred")

	cfg, err := config.Load(missingEnv(t))
	require.NoError(t, err)

	_, err = cfg.Params()
	assert.Error(t, err)

	cfg.TicketPrice = "500"
	cfg.FundraiserAddress = "nowhere"
	_, err = cfg.Params()
	assert.Error(t, err)
}
