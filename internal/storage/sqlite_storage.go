package storage

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"gfvledger/internal/ledger"
	"gfvledger/internal/logger"
	"gfvledger/internal/sequencer"
)

type SqliteStorage struct {
	db *gorm.DB
}

func NewSqliteStorage(path string) (*SqliteStorage, error) {
	logger.Debug("initializing database...", zap.String("path", path))

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.AutoMigrate(
		&AppliedTransaction{},
		&LedgerEvent{},
		&Cursor{},
		&TicketPosition{},
		&StakePosition{},
		&CampaignState{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logger.Debug("initializing database... done")
	return &SqliteStorage{
		db: db,
	}, nil
}

// SaveReceipt stores the transaction, its events, the cursor and the
// position snapshots in one database transaction. Saving the same
// source and lt twice keeps the first copy.
func (s *SqliteStorage) SaveReceipt(source string, receipt sequencer.Receipt) error {
	tx := receipt.Transaction
	logger.Debug("saving receipt...", zap.String("source", source), zap.Uint64("lt", tx.Lt))

	args, err := encodeFields(tx.Args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}

	var unixNano int64
	if !tx.Time.IsZero() {
		unixNano = tx.Time.UnixNano()
	}

	applied := &AppliedTransaction{
		Source:        source,
		TransactionLt: tx.Lt,
		Hash:          tx.Hash,
		UnixNano:      unixNano,
		Caller:        ledger.FormatAddress(tx.Caller),
		Contract:      tx.Contract,
		Method:        tx.Method,
		Args:          args,
		ErrorCode:     receipt.ErrorCode(),
	}

	events := make([]*LedgerEvent, 0, len(receipt.Events))
	for i, event := range receipt.Events {
		fields, err := encodeFields(event.Fields)
		if err != nil {
			return fmt.Errorf("encode event fields: %w", err)
		}

		events = append(events, &LedgerEvent{
			Source:        source,
			TransactionLt: tx.Lt,
			Position:      i,
			Contract:      event.Contract,
			Name:          event.Name,
			Fields:        fields,
		})
	}

	err = s.db.Transaction(func(db *gorm.DB) error {
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(applied)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			logger.Debug("receipt already stored, skip", zap.String("source", source), zap.Uint64("lt", tx.Lt))
			return nil
		}

		if len(events) > 0 {
			if err := db.CreateInBatches(events, 100).Error; err != nil {
				return err
			}
		}

		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source"}},
			DoUpdates: clause.AssignmentColumns([]string{"transaction_lt"}),
		}).Create(&Cursor{Source: source, TransactionLt: tx.Lt}).Error
		if err != nil {
			return err
		}

		if !receipt.Succeeded() {
			return nil
		}

		return s.saveSnapshots(db, receipt)
	})
	if err != nil {
		return err
	}

	logger.Debug("saving receipt... done")
	return nil
}

func (s *SqliteStorage) saveSnapshots(db *gorm.DB, receipt sequencer.Receipt) error {
	lt := receipt.Transaction.Lt
	campaign := receipt.Campaign

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"phase", "tickets_sold", "tickets_redeemed", "max_tickets", "ticket_price", "updated_lt"}),
	}).Create(&CampaignState{
		ID:              campaignStateID,
		Phase:           campaign.Phase.String(),
		TicketsSold:     campaign.TicketsSold,
		TicketsRedeemed: campaign.TicketsRedeemed,
		MaxTickets:      campaign.MaxTickets,
		TicketPrice:     campaign.TicketPrice.Dec(),
		UpdatedLt:       lt,
	}).Error
	if err != nil {
		return err
	}

	tickets := make([]*TicketPosition, 0, len(receipt.Tickets))
	for address, count := range receipt.Tickets {
		tickets = append(tickets, &TicketPosition{Address: ledger.FormatAddress(address), Tickets: count, UpdatedLt: lt})
	}

	if len(tickets) > 0 {
		err = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"tickets", "updated_lt"}),
		}).CreateInBatches(tickets, 100).Error
		if err != nil {
			return err
		}
	}

	stakes := make([]*StakePosition, 0, len(receipt.Stakes))
	for address, position := range receipt.Stakes {
		var start int64
		if !position.StakingStartTime.IsZero() {
			start = position.StakingStartTime.Unix()
		}

		stakes = append(stakes, &StakePosition{
			Address:          ledger.FormatAddress(address),
			StakedAmount:     position.StakedAmount,
			StakingStartTime: start,
			UpdatedLt:        lt,
		})
	}

	if len(stakes) > 0 {
		err = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"staked_amount", "staking_start_time", "updated_lt"}),
		}).CreateInBatches(stakes, 100).Error
		if err != nil {
			return err
		}
	}

	return nil
}

// GetAppliedTransactions returns every stored transaction in apply order.
func (s *SqliteStorage) GetAppliedTransactions() ([]*AppliedTransaction, error) {
	logger.Debug("getting applied transactions...")

	var transactions []*AppliedTransaction
	if err := s.db.Order("id").Find(&transactions).Error; err != nil {
		return nil, err
	}

	logger.Debug("getting applied transactions... done", zap.Int("count", len(transactions)))
	return transactions, nil
}

func (s *SqliteStorage) GetEvents(source string, transactionLt uint64) ([]*LedgerEvent, error) {
	var events []*LedgerEvent
	err := s.db.
		Where("source = ? and transaction_lt = ?", source, transactionLt).
		Order("position").
		Find(&events).Error
	if err != nil {
		return nil, err
	}

	return events, nil
}

func (s *SqliteStorage) GetCursor(source string) (uint64, error) {
	logger.Debug("getting cursor...", zap.String("source", source))

	var transactionLt uint64
	err := s.db.Raw(`
		select coalesce(max(transaction_lt), 0) as transaction_lt
		from cursors
		where source = ?
	`, source).Scan(&transactionLt).Error
	if err != nil {
		return 0, err
	}

	logger.Debug("getting cursor... done", zap.Uint64("transactionLt", transactionLt))
	return transactionLt, nil
}

func (s *SqliteStorage) GetCampaignState() (*CampaignState, error) {
	var state CampaignState
	err := s.db.Where("id = ?", campaignStateID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &state, nil
}

func (s *SqliteStorage) GetTicketPosition(address string) (*TicketPosition, error) {
	var position TicketPosition
	err := s.db.Where("address = ?", address).First(&position).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &TicketPosition{Address: address}, nil
	}
	if err != nil {
		return nil, err
	}

	return &position, nil
}

func (s *SqliteStorage) GetStakePosition(address string) (*StakePosition, error) {
	var position StakePosition
	err := s.db.Where("address = ?", address).First(&position).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &StakePosition{Address: address}, nil
	}
	if err != nil {
		return nil, err
	}

	return &position, nil
}

func (s *SqliteStorage) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
