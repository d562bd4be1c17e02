package tracker

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/tonkeeper/tonapi-go"
	"go.uber.org/zap"

	"gfvledger/internal/blockchain"
	"gfvledger/internal/ledger"
	"gfvledger/internal/logger"
	"gfvledger/internal/sequencer"
)

const GlobalLimitWindowSize = 50

// ChainSource reads ledger calls sent as internal messages to the mailbox
// account.
type ChainSource struct {
	client  *tonapi.Client
	mailbox ledger.Address
}

func NewChainSource(token string, mailbox ledger.Address) (*ChainSource, error) {
	logger.Debug("chain source initialization: tonapi client...")

	client, err := tonapi.NewClient(tonapi.TonApiURL, tonapi.WithToken(token))
	if err != nil {
		return nil, err
	}

	logger.Debug("chain source initialization: tonapi client... done", zap.String("mailbox", ledger.FormatAddress(mailbox)))
	return &ChainSource{client: client, mailbox: mailbox}, nil
}

func (c *ChainSource) Name() string {
	return "chain:" + ledger.FormatAddress(c.mailbox)
}

// Fetch pages mailbox traces newest first until it reaches afterLt and
// returns the decoded calls oldest first.
func (c *ChainSource) Fetch(ctx context.Context, afterLt uint64) ([]sequencer.Transaction, error) {
	var transactions []sequencer.Transaction
	var beforeLt int64

	for {
		logger.Debug("chain source: collect traces... iteration", zap.Int64("current beforeLt", beforeLt))
		accountTracesResult, err := infinityRateLimitRetry(ctx,
			func() (*tonapi.TraceIDs, error) {
				return c.client.GetAccountTraces(ctx, tonapi.GetAccountTracesParams{
					AccountID: c.mailbox.ToRaw(),
					Limit:     tonapi.NewOptInt(GlobalLimitWindowSize),
					BeforeLt: tonapi.OptInt64{
						Value: beforeLt,
						Set:   beforeLt > 0,
					},
				})
			},
		)
		if err != nil {
			return nil, err
		}

		reached := false
		for _, traceID := range accountTracesResult.GetTraces() {
			trace, err := infinityRateLimitRetry(ctx,
				func() (*tonapi.Trace, error) {
					return c.client.GetTrace(ctx, tonapi.GetTraceParams{TraceID: traceID.GetID()})
				},
			)
			if err != nil {
				return nil, err
			}

			rootLt := trace.Transaction.GetLt()
			if rootLt <= int64(afterLt) {
				logger.Debug("chain source: last applied transaction reached")
				reached = true
				break
			}

			transactions = append(transactions, collectCalls(trace, c.mailbox, afterLt)...)
			beforeLt = rootLt
		}

		if reached || len(accountTracesResult.GetTraces()) < GlobalLimitWindowSize {
			break
		}
	}

	return orderByLt(transactions), nil
}

// collectCalls walks a trace and decodes every successful call delivered
// to the mailbox after afterLt.
func collectCalls(trace *tonapi.Trace, mailbox ledger.Address, afterLt uint64) []sequencer.Transaction {
	var transactions []sequencer.Transaction

	walkTraces(trace, func(inner *tonapi.Trace) {
		tx, ok := decodeTrace(inner, mailbox)
		if ok && tx.Lt > afterLt {
			transactions = append(transactions, tx)
		}
	})

	return transactions
}

func walkTraces(trace *tonapi.Trace, callback func(*tonapi.Trace)) {
	if trace == nil {
		return
	}

	callback(trace)

	for i := range trace.Children {
		walkTraces(&trace.Children[i], callback)
	}
}

func decodeTrace(trace *tonapi.Trace, mailbox ledger.Address) (sequencer.Transaction, bool) {
	message, ok := trace.Transaction.GetInMsg().Get()
	if !ok {
		return sequencer.Transaction{}, false
	}

	if !trace.Transaction.Success {
		logger.Debug("chain source: ignore unsuccessful incoming messages... skip")
		return sequencer.Transaction{}, false
	}

	destination, ok := message.Destination.Get()
	if !ok {
		return sequencer.Transaction{}, false
	}

	destinationAccountID, err := ledger.ParseAddress(destination.Address)
	if err != nil || destinationAccountID != mailbox {
		return sequencer.Transaction{}, false
	}

	source, ok := message.Source.Get()
	if !ok {
		logger.Debug("chain source: cannot get message source address... skip")
		return sequencer.Transaction{}, false
	}

	caller, err := ledger.ParseAddress(source.Address)
	if err != nil {
		logger.Debug("chain source: failed to parse source address... skip", zap.Error(err))
		return sequencer.Transaction{}, false
	}

	if message.Bounced {
		return sequencer.Transaction{}, false
	}

	call, err := messageCall(message)
	if err != nil {
		logger.Debug("chain source: malformed call body... skip", zap.String("hash", trace.Transaction.Hash), zap.Error(err))
		return sequencer.Transaction{}, false
	}

	return sequencer.Transaction{
		Lt:       uint64(trace.Transaction.Lt),
		Hash:     trace.Transaction.Hash,
		Time:     time.Unix(trace.Transaction.Utime, 0).UTC(),
		Caller:   caller,
		Contract: call.Contract,
		Method:   call.Method,
		Args:     call.Args,
	}, true
}

// messageCall decodes the ledger call carried by message. Bodies without a
// known op code are plain value transfers.
func messageCall(message tonapi.Message) (*blockchain.Call, error) {
	body, ok := message.RawBody.Get()
	if !ok || body == "" {
		return blockchain.TransferCall(uint64(message.Value)), nil
	}

	call, err := blockchain.DecodeCallHex(body)
	if errors.Is(err, blockchain.ErrNoOpCode) || errors.Is(err, blockchain.ErrUnknownOpCode) {
		return blockchain.TransferCall(uint64(message.Value)), nil
	}

	return call, err
}

func orderByLt(transactions []sequencer.Transaction) []sequencer.Transaction {
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].Lt < transactions[j].Lt
	})

	ordered := make([]sequencer.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if len(ordered) > 0 && ordered[len(ordered)-1].Lt == tx.Lt {
			continue
		}
		ordered = append(ordered, tx)
	}

	return ordered
}
