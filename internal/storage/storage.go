package storage

import "gfvledger/internal/sequencer"

type Storage interface {
	// receipts
	SaveReceipt(source string, receipt sequencer.Receipt) error
	GetAppliedTransactions() ([]*AppliedTransaction, error)
	GetEvents(source string, transactionLt uint64) ([]*LedgerEvent, error)

	// cursor
	GetCursor(source string) (uint64, error)

	// snapshots
	GetCampaignState() (*CampaignState, error)
	GetTicketPosition(address string) (*TicketPosition, error)
	GetStakePosition(address string) (*StakePosition, error)

	Close() error
}

const campaignStateID = 1
