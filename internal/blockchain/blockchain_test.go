package blockchain_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/wallet"

	"gfvledger/internal/blockchain"
	"gfvledger/internal/fundraiser"
	"gfvledger/internal/ledger"
	"gfvledger/internal/ledger/ledgertest"
	"gfvledger/internal/sequencer"
)

func TestCallRoundTrip(t *testing.T) {
	alice := ledger.FormatAddress(ledgertest.Address(2))
	bob := ledger.FormatAddress(ledgertest.Address(3))

	tests := []struct {
		contract string
		method   string
		args     sequencer.Args
	}{
		{contract: sequencer.ContractFundraiser, method: "startFundraising", args: sequencer.Args{}},
		{contract: sequencer.ContractFundraiser, method: "buyTicket", args: sequencer.Args{"count": "200"}},
		{contract: sequencer.ContractFundraiser, method: "addToWhitelist", args: sequencer.Args{"address": alice}},
		{contract: sequencer.ContractStaking, method: "unstake", args: sequencer.Args{"amount": "18446744073709551615"}},
		{contract: sequencer.ContractAsset, method: "setApprovalForAll", args: sequencer.Args{"operator": alice, "approved": "true"}},
		{contract: sequencer.ContractAsset, method: "mintEmergency", args: sequencer.Args{"to": alice, "unitId": "1", "amount": "5"}},
		{contract: sequencer.ContractPayment, method: "approve", args: sequencer.Args{"spender": alice, "amount": "100000"}},
		{contract: sequencer.ContractReward, method: "revokeAdminRights", args: sequencer.Args{"address": alice}},
		{contract: sequencer.ContractReward, method: "mint", args: sequencer.Args{"to": alice, "amount": "926180801"}},
		{contract: sequencer.ContractPayment, method: "transferFrom", args: sequencer.Args{"from": alice, "to": bob, "amount": "115792089237316195423570985008687907853269984665640564039457584007913129639935"}},
		{contract: sequencer.ContractStaking, method: "updateRewardsRatePerSecond", args: sequencer.Args{"rate": "257201"}},
		{contract: sequencer.ContractAsset, method: "init", args: sequencer.Args{}},
		{contract: sequencer.ContractAsset, method: "registerUnit", args: sequencer.Args{"unitId": "2", "sharePrice": "500", "name": "Château Morgon"}},
		{contract: sequencer.ContractAsset, method: "registerUnit", args: sequencer.Args{"unitId": "3", "sharePrice": "0", "name": ""}},
		{contract: sequencer.ContractAsset, method: "updateSharePrice", args: sequencer.Args{"unitId": "2", "sharePrice": "750"}},
		{contract: sequencer.ContractAsset, method: "mint", args: sequencer.Args{"to": alice, "unitId": "1", "amount": "200"}},
		{contract: sequencer.ContractAsset, method: "safeTransferFrom", args: sequencer.Args{"from": alice, "to": bob, "unitId": "1", "amount": "7"}},
	}

	for _, tt := range tests {
		t.Run(tt.contract+"."+tt.method, func(t *testing.T) {
			body, err := blockchain.EncodeCallHex(tt.contract, tt.method, 42, tt.args)
			require.NoError(t, err)

			call, err := blockchain.DecodeCallHex(body)
			require.NoError(t, err)
			assert.True(t, blockchain.Known(call.OpCode))
			assert.Equal(t, uint64(42), call.QueryID)
			assert.Equal(t, tt.contract, call.Contract)
			assert.Equal(t, tt.method, call.Method)
			assert.Equal(t, tt.args, call.Args)
		})
	}
}

func TestEncodeCallErrors(t *testing.T) {
	_, err := blockchain.EncodeCall(sequencer.ContractFundraiser, "receive", 0, nil)
	assert.ErrorIs(t, err, blockchain.ErrUnknownOpCode)

	_, err = blockchain.EncodeCall(sequencer.ContractAsset, "registerUnit", 0, sequencer.Args{
		"unitId":     "2",
		"sharePrice": "500",
		"name":       strings.Repeat("x", 127),
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	_, err = blockchain.EncodeCall(sequencer.ContractFundraiser, "buyTicket", 0, sequencer.Args{})
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)

	_, err = blockchain.EncodeCall(sequencer.ContractStaking, "stake", 0, sequencer.Args{"amount": "18446744073709551616"})
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}

func TestDecodeCallRejectsUnknownOpCode(t *testing.T) {
	cell := boc.NewCell()
	require.NoError(t, cell.WriteUint(0x5fcc3d14, 32))
	require.NoError(t, cell.WriteUint(0, 64))

	_, err := blockchain.DecodeCall(cell)
	assert.ErrorIs(t, err, blockchain.ErrUnknownOpCode)
	assert.False(t, blockchain.Known(0x5fcc3d14))
}

func TestDecodeCallPlainTransfer(t *testing.T) {
	_, err := blockchain.DecodeCall(boc.NewCell())
	assert.ErrorIs(t, err, blockchain.ErrNoOpCode)

	comment := boc.NewCell()
	require.NoError(t, comment.WriteUint(0, 32))
	require.NoError(t, comment.WriteBytes([]byte("for the harvest")))

	_, err = blockchain.DecodeCall(comment)
	assert.ErrorIs(t, err, blockchain.ErrNoOpCode)

	call := blockchain.TransferCall(1_000_000_000)
	assert.Equal(t, sequencer.ContractFundraiser, call.Contract)
	assert.Equal(t, "receive", call.Method)
	assert.Equal(t, sequencer.Args{"amount": "1000000000"}, call.Args)
}

func TestDecodeCallTruncatedBody(t *testing.T) {
	cell := boc.NewCell()
	require.NoError(t, cell.WriteUint(uint64(blockchain.OpBuyTicket), 32))
	require.NoError(t, cell.WriteUint(1, 64))

	_, err := blockchain.DecodeCall(cell)
	assert.Error(t, err)
}

func TestPhaseNoticeRoundTrip(t *testing.T) {
	cell, err := blockchain.EncodePhaseNotice(blockchain.PhaseNotice{QueryID: 9, Phase: fundraiser.MintingLive, TicketsSold: 200})
	require.NoError(t, err)

	notice, err := blockchain.DecodePhaseNotice(cell)
	require.NoError(t, err)
	assert.Equal(t, blockchain.PhaseNotice{QueryID: 9, Phase: fundraiser.MintingLive, TicketsSold: 200}, notice)
}

type recordingSender struct {
	messages []wallet.Message
	err      error
}

func (s *recordingSender) Send(_ context.Context, message wallet.Message) error {
	s.messages = append(s.messages, message)
	return s.err
}

func TestPublishPhase(t *testing.T) {
	target := ledgertest.Address(50)
	sender := &recordingSender{}
	publisher := blockchain.NewPublisher(sender, target)

	campaign := fundraiser.Campaign{Phase: fundraiser.FundraisingComplete, TicketsSold: 200, MaxTickets: 200, TicketPrice: *uint256.NewInt(500)}
	require.NoError(t, publisher.PublishPhase(context.Background(), 3, campaign))

	require.Len(t, sender.messages, 1)
	message := sender.messages[0]
	assert.Equal(t, target, message.Address)
	assert.True(t, message.Bounce)

	notice, err := blockchain.DecodePhaseNotice(message.Body)
	require.NoError(t, err)
	assert.Equal(t, fundraiser.FundraisingComplete, notice.Phase)
	assert.Equal(t, uint64(3), notice.QueryID)

	sender.err = errors.New("lite server unavailable")
	assert.Error(t, publisher.PublishPhase(context.Background(), 4, campaign))
}

func TestNewWalletPublisherRejectsUnknownVersion(t *testing.T) {
	_, err := blockchain.NewWalletPublisher("", "V9R9", ledgertest.Address(50))
	assert.Error(t, err)
}
