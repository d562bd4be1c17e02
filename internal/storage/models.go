package storage

import (
	"fmt"
	"time"

	"gfvledger/internal/ledger"
	"gfvledger/internal/sequencer"
)

// AppliedTransaction is one transaction taken from a source, successful or
// not, in the order it was applied.
type AppliedTransaction struct {
	ID            int64  `gorm:"primaryKey"`
	Source        string `gorm:"uniqueIndex:idx_source_lt"`
	TransactionLt uint64 `gorm:"uniqueIndex:idx_source_lt"`
	Hash          string
	UnixNano      int64  `gorm:"default:0"`
	Caller        string `gorm:"not null"`
	Contract      string `gorm:"not null"`
	Method        string `gorm:"not null"`
	Args          []byte
	ErrorCode     string `gorm:"default:''"`
}

// Transaction rebuilds the sequencer transaction this row was saved from.
func (a *AppliedTransaction) Transaction() (sequencer.Transaction, error) {
	caller, err := ledger.ParseAddress(a.Caller)
	if err != nil {
		return sequencer.Transaction{}, err
	}

	args, err := decodeFields(a.Args)
	if err != nil {
		return sequencer.Transaction{}, fmt.Errorf("decode args of lt %d: %w", a.TransactionLt, err)
	}

	var at time.Time
	if a.UnixNano != 0 {
		at = time.Unix(0, a.UnixNano).UTC()
	}

	return sequencer.Transaction{
		Lt:       a.TransactionLt,
		Hash:     a.Hash,
		Time:     at,
		Caller:   caller,
		Contract: a.Contract,
		Method:   a.Method,
		Args:     args,
	}, nil
}

type LedgerEvent struct {
	ID            int64  `gorm:"primaryKey"`
	Source        string `gorm:"index:idx_event_source_lt"`
	TransactionLt uint64 `gorm:"index:idx_event_source_lt"`
	Position      int    `gorm:"not null"`
	Contract      string `gorm:"not null"`
	Name          string `gorm:"index"`
	Fields        []byte
}

func (e *LedgerEvent) Event() (ledger.Event, error) {
	fields, err := decodeFields(e.Fields)
	if err != nil {
		return ledger.Event{}, err
	}

	return ledger.Event{Contract: e.Contract, Name: e.Name, Fields: fields}, nil
}

// Cursor is the highest logical time applied from a source.
type Cursor struct {
	Source        string `gorm:"primaryKey"`
	TransactionLt uint64 `gorm:"not null"`
}

type TicketPosition struct {
	Address   string `gorm:"primaryKey"`
	Tickets   uint64 `gorm:"default:0"`
	UpdatedLt uint64 `gorm:"default:0"`
}

type StakePosition struct {
	Address          string `gorm:"primaryKey"`
	StakedAmount     uint64 `gorm:"default:0"`
	StakingStartTime int64  `gorm:"default:0"`
	UpdatedLt        uint64 `gorm:"default:0"`
}

// CampaignState is a single-row snapshot of the campaign counters.
type CampaignState struct {
	ID              int64  `gorm:"primaryKey"`
	Phase           string `gorm:"not null"`
	TicketsSold     uint64 `gorm:"default:0"`
	TicketsRedeemed uint64 `gorm:"default:0"`
	MaxTickets      uint64 `gorm:"not null"`
	TicketPrice     string `gorm:"not null"`
	UpdatedLt       uint64 `gorm:"default:0"`
}
