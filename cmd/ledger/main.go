package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gfvledger/internal/blockchain"
	"gfvledger/internal/config"
	"gfvledger/internal/ledger"
	"gfvledger/internal/logger"
	"gfvledger/internal/sequencer"
	"gfvledger/internal/storage"
	"gfvledger/internal/tracker"
	"gfvledger/internal/txlog"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)

	go func() {
		errCh <- run(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "stopped due to error: %v\n", err)
			os.Exit(1)
		}
	case <-waitForInterrupt():
		logger.Info("interrupt received")
		cancel()
		if err := <-errCh; err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}

	logger.Sync()
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		return err
	}

	params, err := cfg.Params()
	if err != nil {
		return err
	}

	seq, err := sequencer.New(params)
	if err != nil {
		return err
	}

	sqliteStorage, err := storage.NewSqliteStorage(cfg.DatabasePath)
	if err != nil {
		return err
	}

	source, err := newSource(cfg)
	if err != nil {
		return err
	}

	var publisher tracker.Publisher
	if cfg.PublishNotices() {
		target, err := ledger.ParseAddress(cfg.NoticeAddress)
		if err != nil {
			return fmt.Errorf("NOTICE_ADDRESS: %w", err)
		}

		walletPublisher, err := blockchain.NewWalletPublisher(cfg.WalletMnemonic, cfg.WalletVersion, target)
		if err != nil {
			return err
		}
		publisher = walletPublisher
	}

	trackerInstance := tracker.NewTracker(ctx, sqliteStorage, seq, source, publisher)
	defer trackerInstance.Finalize()

	if _, err := trackerInstance.Replay(); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := trackerInstance.Run(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("tracker iteration failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func newSource(cfg *config.Configuration) (tracker.Source, error) {
	if cfg.Source == config.SourceChain {
		mailbox, err := ledger.ParseAddress(cfg.MailboxAddress)
		if err != nil {
			return nil, fmt.Errorf("MAILBOX_ADDRESS: %w", err)
		}

		return tracker.NewChainSource(cfg.TonapiToken, mailbox)
	}

	return txlog.NewFileSource(cfg.TransactionLog), nil
}

func waitForInterrupt() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	return sigCh
}
