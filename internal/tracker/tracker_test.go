package tracker_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gfvledger/internal/fundraiser"
	"gfvledger/internal/ledger"
	"gfvledger/internal/ledger/ledgertest"
	"gfvledger/internal/sequencer"
	"gfvledger/internal/staking"
	"gfvledger/internal/storage"
	"gfvledger/internal/tracker"
)

var (
	owner             = ledgertest.Address(1)
	alice             = ledgertest.Address(2)
	fundraiserAddress = ledgertest.Address(103)
)

func newSequencer(t *testing.T) *sequencer.Sequencer {
	t.Helper()
	seq, err := sequencer.New(sequencer.Params{
		Owner:                owner,
		PaymentAddress:       ledgertest.Address(100),
		RewardAddress:        ledgertest.Address(101),
		AssetAddress:         ledgertest.Address(102),
		FundraiserAddress:    fundraiserAddress,
		StakingAddress:       ledgertest.Address(104),
		CampaignUnitID:       1,
		CampaignUnitName:     "Morgon",
		MaxTickets:           2,
		TicketPrice:          uint256.NewInt(500),
		StakingUnitID:        1,
		StakingUnitName:      "Morgon",
		RewardsRatePerSecond: uint256.NewInt(staking.DefaultRewardsRatePerSecond),
		Genesis:              ledgertest.Genesis,
	})
	require.NoError(t, err)
	return seq
}

type fakeSource struct {
	transactions []sequencer.Transaction
	err          error
	fetched      []uint64
}

func (s *fakeSource) Name() string {
	return "fake"
}

func (s *fakeSource) Fetch(_ context.Context, afterLt uint64) ([]sequencer.Transaction, error) {
	s.fetched = append(s.fetched, afterLt)
	if s.err != nil {
		return nil, s.err
	}

	var pending []sequencer.Transaction
	for _, tx := range s.transactions {
		if tx.Lt > afterLt {
			pending = append(pending, tx)
		}
	}

	return pending, nil
}

type fakePublisher struct {
	phases []fundraiser.Phase
	err    error
}

func (p *fakePublisher) PublishPhase(_ context.Context, _ uint64, campaign fundraiser.Campaign) error {
	p.phases = append(p.phases, campaign.Phase)
	return p.err
}

func call(lt uint64, caller ledger.Address, contract, method string, args sequencer.Args) sequencer.Transaction {
	return sequencer.Transaction{
		Lt:       lt,
		Time:     ledgertest.Genesis,
		Caller:   caller,
		Contract: contract,
		Method:   method,
		Args:     args,
	}
}

func campaignScript() []sequencer.Transaction {
	alias := ledger.FormatAddress(alice)
	return []sequencer.Transaction{
		call(10, owner, sequencer.ContractPayment, "mint", sequencer.Args{"to": alias, "amount": "1000"}),
		call(20, alice, sequencer.ContractPayment, "approve", sequencer.Args{"spender": ledger.FormatAddress(fundraiserAddress), "amount": "1000"}),
		call(30, owner, sequencer.ContractFundraiser, "addToWhitelist", sequencer.Args{"address": alias}),
		call(40, owner, sequencer.ContractFundraiser, "startFundraising", nil),
		call(50, alice, sequencer.ContractFundraiser, "buyTicket", sequencer.Args{"count": "3"}),
		call(60, alice, sequencer.ContractFundraiser, "buyTicket", sequencer.Args{"count": "2"}),
		call(70, owner, sequencer.ContractFundraiser, "endFundraiser", nil),
	}
}

func openStorage(t *testing.T, path string) *storage.SqliteStorage {
	t.Helper()
	s, err := storage.NewSqliteStorage(path)
	require.NoError(t, err)
	return s
}

func TestRunAppliesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s := openStorage(t, path)
	source := &fakeSource{transactions: campaignScript()}
	publisher := &fakePublisher{}
	seq := newSequencer(t)

	trackerInstance := tracker.NewTracker(context.Background(), s, seq, source, publisher)

	count, err := trackerInstance.Run()
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.Equal(t, []fundraiser.Phase{fundraiser.FundraisingLive, fundraiser.FundraisingComplete}, publisher.phases)

	cursor, err := s.GetCursor("fake")
	require.NoError(t, err)
	assert.Equal(t, uint64(70), cursor)

	applied, err := s.GetAppliedTransactions()
	require.NoError(t, err)
	require.Len(t, applied, 7)
	assert.Equal(t, "NotEnoughTicketsAvailable", applied[4].ErrorCode)

	state, err := s.GetCampaignState()
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "FundraisingComplete", state.Phase)

	count, err = trackerInstance.Run()
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, []uint64{0, 70}, source.fetched)

	trackerInstance.Finalize()
}

func TestReplayRebuildsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	first := tracker.NewTracker(context.Background(), openStorage(t, path), newSequencer(t), &fakeSource{transactions: campaignScript()}, nil)
	_, err := first.Run()
	require.NoError(t, err)
	first.Finalize()

	seq := newSequencer(t)
	second := tracker.NewTracker(context.Background(), openStorage(t, path), seq, &fakeSource{}, nil)
	t.Cleanup(second.Finalize)

	count, err := second.Replay()
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	seq.View(func(d *sequencer.Deployment) {
		campaign := d.Fundraiser.Campaign()
		assert.Equal(t, fundraiser.FundraisingComplete, campaign.Phase)
		assert.Equal(t, uint64(2), campaign.TicketsSold)
		assert.Equal(t, uint64(1000), d.Payment.BalanceOf(owner).Uint64())
	})
	assert.Equal(t, uint64(70), seq.LastLt())
}

// flakyStorage fails the first save of the receipt at failLt.
type flakyStorage struct {
	*storage.SqliteStorage
	failLt uint64
	failed bool
}

func (s *flakyStorage) SaveReceipt(source string, receipt sequencer.Receipt) error {
	if receipt.Transaction.Lt == s.failLt && !s.failed {
		s.failed = true
		return errors.New("database is locked")
	}

	return s.SqliteStorage.SaveReceipt(source, receipt)
}

func TestRunDoesNotReapplyAfterFailedSave(t *testing.T) {
	s := &flakyStorage{SqliteStorage: openStorage(t, filepath.Join(t.TempDir(), "ledger.db")), failLt: 60}
	source := &fakeSource{transactions: campaignScript()}
	publisher := &fakePublisher{}
	seq := newSequencer(t)

	trackerInstance := tracker.NewTracker(context.Background(), s, seq, source, publisher)
	t.Cleanup(trackerInstance.Finalize)

	count, err := trackerInstance.Run()
	assert.ErrorContains(t, err, "database is locked")
	assert.Equal(t, 5, count)

	cursor, err := s.GetCursor("fake")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), cursor)

	count, err = trackerInstance.Run()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []uint64{0, 60}, source.fetched)

	seq.View(func(d *sequencer.Deployment) {
		campaign := d.Fundraiser.Campaign()
		assert.Equal(t, uint64(2), campaign.TicketsSold)
		assert.Equal(t, uint64(2), d.Fundraiser.Tickets(alice))
		assert.Equal(t, fundraiser.FundraisingComplete, campaign.Phase)
		assert.Equal(t, uint64(1000), d.Payment.BalanceOf(owner).Uint64())
	})

	applied, err := s.GetAppliedTransactions()
	require.NoError(t, err)
	require.Len(t, applied, 7)
	for i, row := range applied {
		assert.Equal(t, campaignScript()[i].Lt, row.TransactionLt)
	}

	position, err := s.GetTicketPosition(ledger.FormatAddress(alice))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), position.Tickets)

	assert.Equal(t, []fundraiser.Phase{fundraiser.FundraisingLive, fundraiser.FundraisingComplete}, publisher.phases)
}

func TestRunReportsSourceErrors(t *testing.T) {
	s := openStorage(t, filepath.Join(t.TempDir(), "ledger.db"))
	source := &fakeSource{err: errors.New("tonapi unavailable")}
	trackerInstance := tracker.NewTracker(context.Background(), s, newSequencer(t), source, nil)
	t.Cleanup(trackerInstance.Finalize)

	_, err := trackerInstance.Run()
	assert.ErrorContains(t, err, "tonapi unavailable")
}

func TestPublishFailureDoesNotStopTracker(t *testing.T) {
	s := openStorage(t, filepath.Join(t.TempDir(), "ledger.db"))
	publisher := &fakePublisher{err: errors.New("wallet out of funds")}
	trackerInstance := tracker.NewTracker(context.Background(), s, newSequencer(t), &fakeSource{transactions: campaignScript()}, publisher)
	t.Cleanup(trackerInstance.Finalize)

	count, err := trackerInstance.Run()
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.Len(t, publisher.phases, 2)
}
