package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tonkeeper/tonapi-go"
	"go.uber.org/zap"

	"gfvledger/internal/fundraiser"
	"gfvledger/internal/ledger"
	"gfvledger/internal/logger"
	"gfvledger/internal/sequencer"
	"gfvledger/internal/storage"
)

// Source yields ordered transactions with a logical time above afterLt.
type Source interface {
	Name() string
	Fetch(ctx context.Context, afterLt uint64) ([]sequencer.Transaction, error)
}

// Publisher announces campaign phase changes outside the ledger.
type Publisher interface {
	PublishPhase(ctx context.Context, queryID uint64, campaign fundraiser.Campaign) error
}

type Tracker struct {
	ctx       context.Context
	storage   storage.Storage
	sequencer *sequencer.Sequencer
	source    Source
	publisher Publisher

	// unsaved holds receipts already applied in memory whose save failed.
	unsaved []sequencer.Receipt
}

type Func[T any] func() (T, error)

var rateLimitDelay = 500 * time.Millisecond

func infinityRateLimitRetry[T any](
	ctx context.Context,
	fn Func[T],
) (T, error) {
	for {
		result, err := fn()
		if err != nil {
			var e *tonapi.ErrorStatusCode
			if errors.As(err, &e) && e.StatusCode == http.StatusTooManyRequests {
				select {
				case <-ctx.Done():
					return result, ctx.Err()
				case <-time.After(rateLimitDelay):
				}
				continue
			}
		}

		return result, err
	}
}

// NewTracker wires a tracker. publisher may be nil.
func NewTracker(ctx context.Context, storage storage.Storage, sequencer *sequencer.Sequencer, source Source, publisher Publisher) *Tracker {
	return &Tracker{
		ctx:       ctx,
		storage:   storage,
		sequencer: sequencer,
		source:    source,
		publisher: publisher,
	}
}

// Replay re-applies every stored transaction to the sequencer so the ledger
// state matches what was persisted.
func (t *Tracker) Replay() (int, error) {
	logger.Info("replaying stored transactions...")

	applied, err := t.storage.GetAppliedTransactions()
	if err != nil {
		return 0, fmt.Errorf("replay: %w", err)
	}

	for _, row := range applied {
		tx, err := row.Transaction()
		if err != nil {
			return 0, fmt.Errorf("replay lt %d: %w", row.TransactionLt, err)
		}

		receipt := t.sequencer.Apply(tx)
		if receipt.ErrorCode() != row.ErrorCode {
			logger.Warn("replay: outcome differs from stored receipt",
				zap.String("source", row.Source),
				zap.Uint64("lt", row.TransactionLt),
				zap.String("stored", row.ErrorCode),
				zap.String("replayed", receipt.ErrorCode()),
			)
		}
	}

	logger.Info("replaying stored transactions... done", zap.Int("count", len(applied)))
	return len(applied), nil
}

// Run saves any receipts left over from a failed save, then fetches the
// transactions the source has past the cursor, applies them in order and
// persists every receipt. It returns the number of receipts saved.
func (t *Tracker) Run() (int, error) {
	name := t.source.Name()

	count, err := t.flush(name)
	if err != nil {
		return count, err
	}

	cursor, err := t.storage.GetCursor(name)
	if err != nil {
		return count, err
	}

	// the sequencer may be ahead of storage; never apply a transaction twice
	cursor = max(cursor, t.sequencer.LastLt())

	logger.Debug("collecting transactions...", zap.String("source", name), zap.Uint64("after lt", cursor))
	transactions, err := t.source.Fetch(t.ctx, cursor)
	if err != nil {
		return count, fmt.Errorf("fetch %s: %w", name, err)
	}

	for _, tx := range transactions {
		if tx.Lt <= cursor {
			logger.Debug("transaction already applied, skip", zap.Uint64("lt", tx.Lt))
			continue
		}

		receipt := t.sequencer.Apply(tx)
		cursor = tx.Lt

		if receipt.Succeeded() {
			logger.Info("transaction applied",
				zap.Uint64("lt", tx.Lt),
				zap.String("caller", ledger.FormatAddress(tx.Caller)),
				zap.String("call", tx.Contract+"."+tx.Method),
				zap.Int("events", len(receipt.Events)),
			)
		}

		t.unsaved = append(t.unsaved, receipt)
		saved, err := t.flush(name)
		count += saved
		if err != nil {
			return count, err
		}
	}

	logger.Debug("collecting transactions... done", zap.Int("saved", count))
	return count, nil
}

// flush saves pending receipts in order and announces each one once it is
// stored. On error the failed receipt and the ones after it stay pending.
func (t *Tracker) flush(name string) (int, error) {
	saved := 0
	for len(t.unsaved) > 0 {
		receipt := t.unsaved[0]
		if err := t.storage.SaveReceipt(name, receipt); err != nil {
			logger.Warn("receipt kept in memory until it can be saved", zap.Uint64("lt", receipt.Transaction.Lt), zap.Error(err))
			return saved, fmt.Errorf("save receipt lt %d: %w", receipt.Transaction.Lt, err)
		}

		t.unsaved = t.unsaved[1:]
		saved++

		t.announce(receipt)
	}

	return saved, nil
}

func (t *Tracker) announce(receipt sequencer.Receipt) {
	if t.publisher == nil {
		return
	}

	if _, changed := receipt.PhaseChanged(); !changed {
		return
	}

	err := t.publisher.PublishPhase(t.ctx, receipt.Transaction.Lt, receipt.Campaign)
	if err != nil {
		logger.Error("cannot publish phase notice", zap.Stringer("phase", receipt.Campaign.Phase), zap.Error(err))
	}
}

func (t *Tracker) Finalize() {
	logger.Info("tracker stopped")

	if len(t.unsaved) > 0 {
		logger.Warn("dropping unsaved receipts, they are fetched again on restart", zap.Int("count", len(t.unsaved)))
	}

	if err := t.storage.Close(); err != nil {
		logger.Warn("cannot close storage", zap.Error(err))
	}
}
