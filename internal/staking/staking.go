package staking

import (
	"errors"
	"strconv"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"gfvledger/internal/ledger"
	"gfvledger/internal/logger"
	"gfvledger/internal/registry"
)

const contractName = "staking"

// DefaultRewardsRatePerSecond is the emission rate a fresh deployment starts with.
const DefaultRewardsRatePerSecond = 257201

// AssetLedger holds the units being staked.
type AssetLedger interface {
	SafeTransferFrom(operator, from, to ledger.Address, unit, amount uint64) error
}

// RewardMinter issues reward tokens. The staking contract must be one of
// its admins.
type RewardMinter interface {
	Mint(caller, to ledger.Address, amount *uint256.Int) error
}

type Config struct {
	Address              ledger.Address
	UnitID               uint64
	RewardsRatePerSecond *uint256.Int
}

func (c Config) Validate() error {
	if c.RewardsRatePerSecond == nil {
		return errors.New("staking: rewards rate is required")
	}

	return nil
}

type Position struct {
	StakedAmount     uint64
	StakingStartTime time.Time
}

// Staking accrues reward tokens for asset units deposited by holders.
// Every stake, unstake or claim is a checkpoint: pending rewards are paid out
// and the position's clock restarts.
type Staking struct {
	config    Config
	journal   *ledger.Journal
	roles     *registry.Roles
	clock     ledger.Clock
	assets    AssetLedger
	rewards   RewardMinter
	rate      uint256.Int
	positions map[ledger.Address]Position
}

func New(config Config, roles *registry.Roles, journal *ledger.Journal, clock ledger.Clock, assets AssetLedger, rewards RewardMinter) (*Staking, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Staking{
		config:    config,
		journal:   journal,
		roles:     roles,
		clock:     clock,
		assets:    assets,
		rewards:   rewards,
		rate:      *config.RewardsRatePerSecond,
		positions: make(map[ledger.Address]Position),
	}, nil
}

func (s *Staking) Address() ledger.Address {
	return s.config.Address
}

func (s *Staking) UnitID() uint64 {
	return s.config.UnitID
}

func (s *Staking) RewardsRatePerSecond() *uint256.Int {
	rate := s.rate
	return &rate
}

func (s *Staking) Position(address ledger.Address) Position {
	return s.positions[address]
}

func (s *Staking) StakedAmount(address ledger.Address) uint64 {
	return s.positions[address].StakedAmount
}

// Positions returns a copy of every position ever opened, including the ones
// fully unstaked.
func (s *Staking) Positions() map[ledger.Address]Position {
	positions := make(map[ledger.Address]Position, len(s.positions))
	for address, position := range s.positions {
		positions[address] = position
	}

	return positions
}

// PendingRewards is the reward the address would receive if it claimed now.
func (s *Staking) PendingRewards(address ledger.Address) (*uint256.Int, error) {
	position := s.positions[address]
	if position.StakedAmount == 0 {
		return nil, ledger.ErrNoTokenStaked
	}

	return s.accrued(position)
}

func (s *Staking) Stake(caller ledger.Address, amount uint64) error {
	if amount == 0 {
		return ledger.ErrInvalidAmount
	}

	position := s.positions[caller]
	if err := s.flush(caller, position); err != nil {
		return err
	}

	staked := position.StakedAmount + amount
	if staked < amount {
		return ledger.ErrOverflow
	}

	if err := s.assets.SafeTransferFrom(s.config.Address, caller, s.config.Address, s.config.UnitID, amount); err != nil {
		return err
	}

	ledger.Put(s.journal, s.positions, caller, Position{StakedAmount: staked, StakingStartTime: s.clock.Now()})

	s.journal.Emit(ledger.NewEvent(contractName, "Staked",
		"user", ledger.FormatAddress(caller),
		"unitId", strconv.FormatUint(s.config.UnitID, 10),
		"amount", strconv.FormatUint(amount, 10),
	))
	return nil
}

func (s *Staking) Unstake(caller ledger.Address, amount uint64) error {
	if amount == 0 {
		return ledger.ErrInvalidAmount
	}

	position := s.positions[caller]
	if amount > position.StakedAmount {
		return ledger.ErrInsufficientStaked
	}

	if err := s.flush(caller, position); err != nil {
		return err
	}

	ledger.Put(s.journal, s.positions, caller, Position{
		StakedAmount:     position.StakedAmount - amount,
		StakingStartTime: s.clock.Now(),
	})

	if err := s.assets.SafeTransferFrom(s.config.Address, s.config.Address, caller, s.config.UnitID, amount); err != nil {
		return err
	}

	s.journal.Emit(ledger.NewEvent(contractName, "Unstaked",
		"user", ledger.FormatAddress(caller),
		"unitId", strconv.FormatUint(s.config.UnitID, 10),
		"amount", strconv.FormatUint(amount, 10),
	))
	return nil
}

func (s *Staking) ClaimRewards(caller ledger.Address) error {
	position := s.positions[caller]
	if position.StakedAmount == 0 {
		return ledger.ErrNoTokenStaked
	}

	reward, err := s.accrued(position)
	if err != nil {
		return err
	}

	position.StakingStartTime = s.clock.Now()
	ledger.Put(s.journal, s.positions, caller, position)

	return s.payout(caller, reward)
}

func (s *Staking) UpdateRewardsRatePerSecond(caller ledger.Address, rate *uint256.Int) error {
	if err := s.roles.RequireOwner(caller); err != nil {
		return err
	}

	ledger.Assign(s.journal, &s.rate, *rate)

	s.journal.Emit(ledger.NewEvent(contractName, "RewardsRateUpdated", "rate", rate.Dec()))
	return nil
}

// Receive rejects value sent to the staking contract.
func (s *Staking) Receive(caller ledger.Address, amount *uint256.Int) error {
	return ledger.ErrPaymentRejected
}

// flush pays out whatever the position accrued so far. A position with
// nothing staked has nothing to flush.
func (s *Staking) flush(caller ledger.Address, position Position) error {
	if position.StakedAmount == 0 {
		return nil
	}

	reward, err := s.accrued(position)
	if err != nil {
		return err
	}

	return s.payout(caller, reward)
}

func (s *Staking) payout(caller ledger.Address, reward *uint256.Int) error {
	if !reward.IsZero() {
		logger.Debug("paying rewards...", zap.String("user", ledger.FormatAddress(caller)), zap.String("amount", reward.Dec()))
		if err := s.rewards.Mint(s.config.Address, caller, reward); err != nil {
			return err
		}
	}

	s.journal.Emit(ledger.NewEvent(contractName, "Claimed",
		"user", ledger.FormatAddress(caller),
		"amount", reward.Dec(),
	))
	return nil
}

// accrued computes stakedAmount * rate * elapsedSeconds. Elapsed time is
// truncated to whole seconds and never negative.
func (s *Staking) accrued(position Position) (*uint256.Int, error) {
	elapsed := s.clock.Now().Unix() - position.StakingStartTime.Unix()
	if elapsed <= 0 || position.StakedAmount == 0 {
		return new(uint256.Int), nil
	}

	perSecond, err := ledger.Mul(uint256.NewInt(position.StakedAmount), &s.rate)
	if err != nil {
		return nil, err
	}

	return ledger.Mul(perSecond, uint256.NewInt(uint64(elapsed)))
}
