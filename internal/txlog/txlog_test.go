package txlog_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gfvledger/internal/ledger"
	"gfvledger/internal/ledger/ledgertest"
	"gfvledger/internal/sequencer"
	"gfvledger/internal/staking"
	"gfvledger/internal/txlog"
)

var (
	owner = ledgertest.Address(1)
	alice = ledgertest.Address(2)
)

func script() string {
	return fmt.Sprintf(`
genesis: 2024-01-01T00:00:00Z
accounts:
  owner: "%s"
  alice: "%s"
  fundraiser: "%s"
  staking: "%s"
transactions:
  - caller: owner
    contract: payment
    method: mint
    args: {to: alice, amount: 100000}
  - caller: alice
    contract: payment
    method: approve
    args: {spender: fundraiser, amount: 100000}
  - caller: owner
    contract: fundraiser
    method: addToWhitelist
    args: {address: alice}
  - caller: owner
    advance: 1m
    contract: fundraiser
    method: startFundraising
  - caller: alice
    contract: fundraiser
    method: buyTicket
    args: {count: 200}
  - caller: owner
    contract: fundraiser
    method: endFundraiser
  - caller: owner
    contract: fundraiser
    method: startMinting
  - caller: alice
    contract: fundraiser
    method: claimTokens
  - caller: alice
    contract: asset
    method: setApprovalForAll
    args: {operator: staking, approved: true}
  - caller: alice
    time: 2024-01-02T00:00:00Z
    contract: staking
    method: stake
    args: {amount: 1}
  - caller: alice
    advance: 1h
    contract: staking
    method: claimRewards
`,
		ledger.FormatAddress(owner),
		ledger.FormatAddress(alice),
		ledger.FormatAddress(ledgertest.Address(103)),
		ledger.FormatAddress(ledgertest.Address(104)),
	)
}

func TestTransactions(t *testing.T) {
	log, err := txlog.Parse([]byte(script()))
	require.NoError(t, err)

	transactions, err := log.Transactions()
	require.NoError(t, err)
	require.Len(t, transactions, 11)

	first := transactions[0]
	assert.Equal(t, uint64(1), first.Lt)
	assert.Equal(t, owner, first.Caller)
	assert.True(t, first.Time.IsZero())
	assert.Equal(t, sequencer.Args{"to": ledger.FormatAddress(alice), "amount": "100000"}, first.Args)

	assert.Equal(t, ledgertest.Genesis.Add(time.Minute), transactions[3].Time)
	assert.Equal(t, "true", transactions[8].Args["approved"])
	assert.Equal(t, time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC), transactions[10].Time)
}

func TestTransactionsErrors(t *testing.T) {
	_, err := txlog.Parse([]byte("transactions: {"))
	assert.Error(t, err)

	log, err := txlog.Parse([]byte("transactions:\n  - caller: nobody\n    contract: fundraiser\n    method: claimTokens\n"))
	require.NoError(t, err)
	_, err = log.Transactions()
	assert.Error(t, err)

	log, err = txlog.Parse([]byte(fmt.Sprintf("transactions:\n  - caller: \"%s\"\n    advance: soon\n", ledger.FormatAddress(owner))))
	require.NoError(t, err)
	_, err = log.Transactions()
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(script()), 0o600))

	source := txlog.NewFileSource(path)
	assert.Equal(t, "file:scenario.yaml", source.Name())

	all, err := source.Fetch(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 11)

	rest, err := source.Fetch(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, uint64(10), rest[0].Lt)

	none, err := source.Fetch(context.Background(), 11)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = txlog.NewFileSource(filepath.Join(t.TempDir(), "missing.yaml")).Fetch(context.Background(), 0)
	assert.Error(t, err)
}

func TestScenarioAppliesCleanly(t *testing.T) {
	seq, err := sequencer.New(sequencer.Params{
		Owner:                owner,
		PaymentAddress:       ledgertest.Address(100),
		RewardAddress:        ledgertest.Address(101),
		AssetAddress:         ledgertest.Address(102),
		FundraiserAddress:    ledgertest.Address(103),
		StakingAddress:       ledgertest.Address(104),
		CampaignUnitID:       1,
		CampaignUnitName:     "Morgon",
		MaxTickets:           200,
		TicketPrice:          uint256.NewInt(500),
		StakingUnitID:        1,
		StakingUnitName:      "Morgon",
		RewardsRatePerSecond: uint256.NewInt(staking.DefaultRewardsRatePerSecond),
		Genesis:              ledgertest.Genesis,
	})
	require.NoError(t, err)

	log, err := txlog.Parse([]byte(script()))
	require.NoError(t, err)
	transactions, err := log.Transactions()
	require.NoError(t, err)

	for _, tx := range transactions {
		receipt := seq.Apply(tx)
		require.NoError(t, receipt.Err, "lt %d %s.%s", tx.Lt, tx.Contract, tx.Method)
	}

	seq.View(func(d *sequencer.Deployment) {
		assert.Equal(t, uint64(199), d.Asset.BalanceOf(alice, 1))
		assert.Equal(t, uint64(1), d.Staking.StakedAmount(alice))
		assert.Equal(t, uint64(staking.DefaultRewardsRatePerSecond*3600), d.Reward.BalanceOf(alice).Uint64())
		assert.Equal(t, uint64(100000), d.Payment.BalanceOf(owner).Uint64())
	})
}
