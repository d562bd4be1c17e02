package sequencer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"gfvledger/internal/fundraiser"
	"gfvledger/internal/ledger"
	"gfvledger/internal/logger"
	"gfvledger/internal/registry"
	"gfvledger/internal/staking"
	"gfvledger/internal/token"
)

const (
	ContractPayment    = "payment"
	ContractReward     = "reward"
	ContractAsset      = "asset"
	ContractFundraiser = "fundraiser"
	ContractStaking    = "staking"
)

// Params describes one deployment: who owns it, where each contract lives
// and how the campaign and the staking pool are configured.
type Params struct {
	Owner ledger.Address

	PaymentAddress    ledger.Address
	RewardAddress     ledger.Address
	AssetAddress      ledger.Address
	FundraiserAddress ledger.Address
	StakingAddress    ledger.Address

	CampaignUnitID   uint64
	CampaignUnitName string
	MaxTickets       uint64
	TicketPrice      *uint256.Int

	StakingUnitID        uint64
	StakingUnitName      string
	RewardsRatePerSecond *uint256.Int

	Genesis time.Time
}

func (p Params) Validate() error {
	addresses := map[string]ledger.Address{
		ContractPayment:    p.PaymentAddress,
		ContractReward:     p.RewardAddress,
		ContractAsset:      p.AssetAddress,
		ContractFundraiser: p.FundraiserAddress,
		ContractStaking:    p.StakingAddress,
	}

	seen := make(map[ledger.Address]string, len(addresses))
	for name, address := range addresses {
		if other, ok := seen[address]; ok {
			return fmt.Errorf("sequencer: %s and %s share address %s", name, other, ledger.FormatAddress(address))
		}
		seen[address] = name
	}

	if p.CampaignUnitID == token.GenesisUnitID || p.StakingUnitID == token.GenesisUnitID {
		return errors.New("sequencer: unit 0 is reserved for the genesis unit")
	}

	return nil
}

// Deployment is the set of contracts sharing one journal and one Roles.
type Deployment struct {
	Roles      *registry.Roles
	Payment    *token.Fungible
	Reward     *token.Fungible
	Asset      *token.AssetLedger
	Fundraiser *fundraiser.Fundraiser
	Staking    *staking.Staking
}

// Sequencer applies ordered transactions to a deployment one at a time.
// Views may run concurrently with each other but never with Apply.
type Sequencer struct {
	mu         sync.RWMutex
	journal    *ledger.Journal
	clock      *ledger.ManualClock
	deployment *Deployment
	handlers   map[string]map[string]handler
	lastLt     uint64
}

func New(params Params) (*Sequencer, error) {
	logger.Debug("deploying contracts...")

	if err := params.Validate(); err != nil {
		return nil, err
	}

	journal := ledger.NewJournal()
	clock := ledger.NewManualClock(params.Genesis)
	roles := registry.NewRoles(journal, params.Owner)

	payment := token.NewFungible(ContractPayment, params.PaymentAddress, token.OwnerMint, roles, journal)
	reward := token.NewFungible(ContractReward, params.RewardAddress, token.AdminMint, roles, journal)
	asset := token.NewAssetLedger(ContractAsset, params.AssetAddress, roles, journal)

	campaign, err := fundraiser.New(fundraiser.Config{
		Address:     params.FundraiserAddress,
		UnitID:      params.CampaignUnitID,
		MaxTickets:  params.MaxTickets,
		TicketPrice: params.TicketPrice,
	}, roles, journal, payment, asset)
	if err != nil {
		return nil, err
	}

	pool, err := staking.New(staking.Config{
		Address:              params.StakingAddress,
		UnitID:               params.StakingUnitID,
		RewardsRatePerSecond: params.RewardsRatePerSecond,
	}, roles, journal, clock, asset, reward)
	if err != nil {
		return nil, err
	}

	s := &Sequencer{
		journal: journal,
		clock:   clock,
		deployment: &Deployment{
			Roles:      roles,
			Payment:    payment,
			Reward:     reward,
			Asset:      asset,
			Fundraiser: campaign,
			Staking:    pool,
		},
	}
	s.handlers = s.routes()

	if _, err := journal.Atomic(func() error { return s.genesis(params) }); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	logger.Debug("deploying contracts... done",
		zap.String("fundraiser", ledger.FormatAddress(params.FundraiserAddress)),
		zap.String("staking", ledger.FormatAddress(params.StakingAddress)),
	)
	return s, nil
}

func (s *Sequencer) genesis(params Params) error {
	d := s.deployment
	owner := params.Owner

	if err := d.Asset.Init(owner); err != nil {
		return err
	}

	if err := d.Asset.RegisterUnit(owner, params.CampaignUnitID, params.TicketPrice, params.CampaignUnitName); err != nil {
		return err
	}

	if params.StakingUnitID != params.CampaignUnitID {
		if err := d.Asset.RegisterUnit(owner, params.StakingUnitID, new(uint256.Int), params.StakingUnitName); err != nil {
			return err
		}
	}

	if err := d.Asset.Authorize(owner, params.FundraiserAddress); err != nil {
		return err
	}

	return d.Reward.AddAdmin(owner, params.StakingAddress)
}

// Apply executes tx as a single all-or-nothing operation. The ledger clock
// moves to the transaction time first; a time earlier than the ledger clock
// is rejected. A zero time keeps the clock where it is.
func (s *Sequencer) Apply(tx Transaction) Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.journal.Atomic(func() error {
		if !tx.Time.IsZero() {
			if tx.Time.Before(s.clock.Now()) {
				return ledger.ErrClockRegression
			}
			s.clock.Set(tx.Time)
		}

		return s.dispatch(tx)
	})

	if tx.Lt > s.lastLt {
		s.lastLt = tx.Lt
	}

	if err != nil {
		logger.Debug("transaction rejected",
			zap.Uint64("lt", tx.Lt),
			zap.String("contract", tx.Contract),
			zap.String("method", tx.Method),
			zap.String("code", ledger.Code(err)),
		)
	}

	return s.receipt(tx, events, err)
}

// View runs fn while no transaction is being applied. fn must not mutate
// the deployment.
func (s *Sequencer) View(fn func(d *Deployment)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fn(s.deployment)
}

func (s *Sequencer) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.clock.Now()
}

// LastLt is the highest logical time applied so far.
func (s *Sequencer) LastLt() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastLt
}

func (s *Sequencer) dispatch(tx Transaction) error {
	methods, ok := s.handlers[tx.Contract]
	if !ok {
		return fmt.Errorf("%w: contract %q", ledger.ErrUnknownMethod, tx.Contract)
	}

	h, ok := methods[tx.Method]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ledger.ErrUnknownMethod, tx.Contract, tx.Method)
	}

	return h(tx.Caller, tx.Args)
}

func (s *Sequencer) receipt(tx Transaction, events []ledger.Event, err error) Receipt {
	d := s.deployment
	receipt := Receipt{
		Transaction: tx,
		Events:      events,
		Err:         err,
		Campaign:    d.Fundraiser.Campaign(),
		Tickets:     make(map[ledger.Address]uint64),
		Stakes:      make(map[ledger.Address]staking.Position),
	}

	if err != nil {
		return receipt
	}

	for _, address := range touched(tx) {
		receipt.Tickets[address] = d.Fundraiser.Tickets(address)
		receipt.Stakes[address] = d.Staking.Position(address)
	}

	return receipt
}

// touched lists the caller and every argument that names an address.
func touched(tx Transaction) []ledger.Address {
	addresses := []ledger.Address{tx.Caller}
	for key := range tx.Args {
		if address, err := tx.Args.Address(key); err == nil && address != tx.Caller {
			addresses = append(addresses, address)
		}
	}

	return addresses
}
