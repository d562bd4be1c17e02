package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"gfvledger/internal/ledger"
	"gfvledger/internal/logger"
	"gfvledger/internal/sequencer"
)

const (
	SourceFile  = "file"
	SourceChain = "chain"
)

type Configuration struct {
	OwnerAddress      string `env:"OWNER_ADDRESS,required"`
	PaymentAddress    string `env:"PAYMENT_ADDRESS,required"`
	RewardAddress     string `env:"REWARD_ADDRESS,required"`
	AssetAddress      string `env:"ASSET_ADDRESS,required"`
	FundraiserAddress string `env:"FUNDRAISER_ADDRESS,required"`
	StakingAddress    string `env:"STAKING_ADDRESS,required"`

	MaxTickets       uint64 `env:"MAX_TICKETS" envDefault:"200"`
	TicketPrice      string `env:"TICKET_PRICE" envDefault:"500"`
	CampaignUnitID   uint64 `env:"CAMPAIGN_UNIT_ID" envDefault:"1"`
	CampaignUnitName string `env:"CAMPAIGN_UNIT_NAME" envDefault:"Campaign"`

	StakingUnitID        uint64 `env:"STAKING_UNIT_ID" envDefault:"1"`
	StakingUnitName      string `env:"STAKING_UNIT_NAME" envDefault:"Campaign"`
	RewardsRatePerSecond string `env:"REWARDS_RATE_PER_SECOND" envDefault:"257201"`

	GenesisTime time.Time `env:"GENESIS_TIME"`

	DatabasePath   string        `env:"DATABASE_PATH" envDefault:"persistent.db"`
	Source         string        `env:"SOURCE" envDefault:"file"`
	TransactionLog string        `env:"TRANSACTION_LOG" envDefault:"transactions.yaml"`
	PollInterval   time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`

	TonapiToken    string `env:"TONAPI_TOKEN"`
	MailboxAddress string `env:"MAILBOX_ADDRESS"`

	WalletMnemonic string `env:"WALLET_MNEMONIC"`
	WalletVersion  string `env:"WALLET_VERSION" envDefault:"V4R2"`
	NoticeAddress  string `env:"NOTICE_ADDRESS"`

	Logger logger.Configuration `envPrefix:"LOG_"`
}

// Load reads the given .env files, or ./.env when none is given, then
// parses the environment. Missing .env files are not an error.
func Load(paths ...string) (*Configuration, error) {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var configuration Configuration
	if err := env.Parse(&configuration); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := configuration.Validate(); err != nil {
		return nil, err
	}

	return &configuration, nil
}

func (c *Configuration) Validate() error {
	switch c.Source {
	case SourceFile:
		if c.TransactionLog == "" {
			return errors.New("config: TRANSACTION_LOG is required for the file source")
		}
	case SourceChain:
		if c.MailboxAddress == "" {
			return errors.New("config: MAILBOX_ADDRESS is required for the chain source")
		}
	default:
		return fmt.Errorf("config: unknown SOURCE %q", c.Source)
	}

	if c.PollInterval <= 0 {
		return errors.New("config: POLL_INTERVAL must be positive")
	}

	if c.WalletMnemonic != "" && c.NoticeAddress == "" {
		return errors.New("config: NOTICE_ADDRESS is required when WALLET_MNEMONIC is set")
	}

	return nil
}

// PublishNotices reports whether phase notices should be sent on chain.
func (c *Configuration) PublishNotices() bool {
	return c.WalletMnemonic != ""
}

func (c *Configuration) Params() (sequencer.Params, error) {
	var params sequencer.Params

	addresses := []struct {
		name   string
		value  string
		target *ledger.Address
	}{
		{"OWNER_ADDRESS", c.OwnerAddress, &params.Owner},
		{"PAYMENT_ADDRESS", c.PaymentAddress, &params.PaymentAddress},
		{"REWARD_ADDRESS", c.RewardAddress, &params.RewardAddress},
		{"ASSET_ADDRESS", c.AssetAddress, &params.AssetAddress},
		{"FUNDRAISER_ADDRESS", c.FundraiserAddress, &params.FundraiserAddress},
		{"STAKING_ADDRESS", c.StakingAddress, &params.StakingAddress},
	}

	for _, address := range addresses {
		parsed, err := ledger.ParseAddress(address.value)
		if err != nil {
			return sequencer.Params{}, fmt.Errorf("config: %s: %w", address.name, err)
		}
		*address.target = parsed
	}

	ticketPrice, err := ledger.ParseAmount(c.TicketPrice)
	if err != nil {
		return sequencer.Params{}, fmt.Errorf("config: TICKET_PRICE: %w", err)
	}

	rate, err := ledger.ParseAmount(c.RewardsRatePerSecond)
	if err != nil {
		return sequencer.Params{}, fmt.Errorf("config: REWARDS_RATE_PER_SECOND: %w", err)
	}

	params.CampaignUnitID = c.CampaignUnitID
	params.CampaignUnitName = c.CampaignUnitName
	params.MaxTickets = c.MaxTickets
	params.TicketPrice = ticketPrice
	params.StakingUnitID = c.StakingUnitID
	params.StakingUnitName = c.StakingUnitName
	params.RewardsRatePerSecond = rate
	params.Genesis = c.GenesisTime

	return params, nil
}
