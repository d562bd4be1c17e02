package blockchain

import (
	"context"
	"fmt"
	"time"

	"github.com/tonkeeper/tongo/liteapi"
	"github.com/tonkeeper/tongo/wallet"
	"go.uber.org/zap"

	"gfvledger/internal/fundraiser"
	"gfvledger/internal/ledger"
	"gfvledger/internal/logger"
)

var WalletMap = map[string]int{
	"V1R1":         0,
	"V1R2":         1,
	"V1R3":         2,
	"V2R1":         3,
	"V2R2":         4,
	"V3R1":         5,
	"V3R2":         6,
	"V3R2Lockup":   7,
	"V4R1":         8,
	"V4R2":         9,
	"V5Beta":       10,
	"V5R1":         11,
	"HighLoadV1R1": 12,
	"HighLoadV1R2": 13,
	"HighLoadV2":   14,
	"HighLoadV2R1": 15,
	"HighLoadV2R2": 16,
}

const (
	noticeAmount       = 5_000_000_0
	confirmationWindow = 60 * time.Second
)

// Sender delivers one internal message from the ledger's wallet.
type Sender interface {
	Send(ctx context.Context, message wallet.Message) error
}

type walletSender struct {
	wallet *wallet.Wallet
}

func (s walletSender) Send(ctx context.Context, message wallet.Message) error {
	_, err := s.wallet.SendV2(ctx, confirmationWindow, message)
	return err
}

// Publisher sends a phase notice to the notice address whenever the
// campaign changes phase.
type Publisher struct {
	sender Sender
	target ledger.Address
}

func NewPublisher(sender Sender, target ledger.Address) *Publisher {
	return &Publisher{sender: sender, target: target}
}

// NewWalletPublisher opens a mainnet lite client and the wallet derived from
// mnemonic.
func NewWalletPublisher(mnemonic, version string, target ledger.Address) (*Publisher, error) {
	logger.Debug("publisher initialization: wallet...", zap.String("wallet version", version), zap.Bool("wallet mnemonic", mnemonic != ""))

	index, ok := WalletMap[version]
	if !ok {
		return nil, fmt.Errorf("publisher: unknown wallet version %q", version)
	}

	client, err := liteapi.NewClientWithDefaultMainnet()
	if err != nil {
		return nil, fmt.Errorf("publisher: lite client: %w", err)
	}

	pk, err := wallet.SeedToPrivateKey(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("publisher: private key: %w", err)
	}

	w, err := wallet.New(pk, wallet.Version(index), client)
	if err != nil {
		return nil, fmt.Errorf("publisher: wallet: %w", err)
	}

	logger.Debug("publisher initialization: wallet... done", zap.String("target", ledger.FormatAddress(target)))
	return NewPublisher(walletSender{wallet: &w}, target), nil
}

func (p *Publisher) PublishPhase(ctx context.Context, queryID uint64, campaign fundraiser.Campaign) error {
	logger.Debug("sending phase notice to blockchain...", zap.Stringer("phase", campaign.Phase))

	body, err := EncodePhaseNotice(PhaseNotice{
		QueryID:     queryID,
		Phase:       campaign.Phase,
		TicketsSold: campaign.TicketsSold,
	})
	if err != nil {
		return err
	}

	message := wallet.Message{
		Amount:  noticeAmount,
		Address: p.target,
		Bounce:  true,
		Mode:    wallet.DefaultMessageMode,
		Body:    body,
	}

	if err := p.sender.Send(ctx, message); err != nil {
		return fmt.Errorf("send phase notice: %w", err)
	}

	logger.Debug("sending phase notice to blockchain... done")
	return nil
}
