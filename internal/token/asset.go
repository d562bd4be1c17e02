package token

import (
	"strconv"

	"github.com/holiman/uint256"

	"gfvledger/internal/ledger"
	"gfvledger/internal/registry"
)

const (
	GenesisUnitID   uint64 = 0
	GenesisUnitName        = "GENESIS"
)

// Unit describes one kind of asset unit tracked by the asset ledger.
type Unit struct {
	ID          uint64
	Name        string
	SharePrice  uint256.Int
	TotalSupply uint64
}

type holding struct {
	owner ledger.Address
	unit  uint64
}

type approval struct {
	owner    ledger.Address
	operator ledger.Address
}

// AssetLedger keeps multi-unit balances of the tracked asset. New units are
// created only by the owner or by contracts registered in Roles.Minters.
type AssetLedger struct {
	contract    string
	address     ledger.Address
	journal     *ledger.Journal
	roles       *registry.Roles
	initialized bool
	units       map[uint64]Unit
	balances    map[holding]uint64
	approvals   map[approval]bool
}

func NewAssetLedger(contract string, address ledger.Address, roles *registry.Roles, journal *ledger.Journal) *AssetLedger {
	return &AssetLedger{
		contract:  contract,
		address:   address,
		journal:   journal,
		roles:     roles,
		units:     make(map[uint64]Unit),
		balances:  make(map[holding]uint64),
		approvals: make(map[approval]bool),
	}
}

func (a *AssetLedger) Address() ledger.Address {
	return a.address
}

// Init registers the GENESIS unit and mints its single unit to the owner.
// It can run only once.
func (a *AssetLedger) Init(caller ledger.Address) error {
	if err := a.roles.RequireOwner(caller); err != nil {
		return err
	}

	if a.initialized {
		return ledger.ErrAlreadyInitialized
	}

	ledger.Assign(a.journal, &a.initialized, true)

	if err := a.RegisterUnit(caller, GenesisUnitID, uint256.NewInt(0), GenesisUnitName); err != nil {
		return err
	}

	return a.mint(a.roles.Owner, GenesisUnitID, 1)
}

func (a *AssetLedger) RegisterUnit(caller ledger.Address, id uint64, sharePrice *uint256.Int, name string) error {
	if err := a.roles.RequireOwner(caller); err != nil {
		return err
	}

	if _, ok := a.units[id]; ok {
		return ledger.ErrUnitAlreadyRegistered
	}

	ledger.Put(a.journal, a.units, id, Unit{ID: id, Name: name, SharePrice: *sharePrice})

	a.journal.Emit(ledger.NewEvent(a.contract, "UnitRegistered",
		"unitId", strconv.FormatUint(id, 10),
		"name", name,
		"sharePrice", sharePrice.Dec(),
	))
	return nil
}

func (a *AssetLedger) UpdateSharePrice(caller ledger.Address, id uint64, sharePrice *uint256.Int) error {
	if err := a.roles.RequireOwner(caller); err != nil {
		return err
	}

	unit, ok := a.units[id]
	if !ok {
		return ledger.ErrUnitNotFound
	}

	unit.SharePrice = *sharePrice
	ledger.Put(a.journal, a.units, id, unit)

	a.journal.Emit(ledger.NewEvent(a.contract, "SharePriceUpdated",
		"unitId", strconv.FormatUint(id, 10),
		"sharePrice", sharePrice.Dec(),
	))
	return nil
}

func (a *AssetLedger) Unit(id uint64) (Unit, bool) {
	unit, ok := a.units[id]
	return unit, ok
}

func (a *AssetLedger) BalanceOf(owner ledger.Address, unit uint64) uint64 {
	return a.balances[holding{owner: owner, unit: unit}]
}

func (a *AssetLedger) IsApprovedForAll(owner, operator ledger.Address) bool {
	return a.approvals[approval{owner: owner, operator: operator}]
}

func (a *AssetLedger) SetApprovalForAll(owner, operator ledger.Address, approved bool) error {
	ledger.Put(a.journal, a.approvals, approval{owner: owner, operator: operator}, approved)

	a.journal.Emit(ledger.NewEvent(a.contract, "ApprovalForAll",
		"owner", ledger.FormatAddress(owner),
		"operator", ledger.FormatAddress(operator),
		"approved", strconv.FormatBool(approved),
	))
	return nil
}

// SafeTransferFrom moves amount units of unit from one holder to another.
// The operator must be the holder or approved by it.
func (a *AssetLedger) SafeTransferFrom(operator, from, to ledger.Address, unit, amount uint64) error {
	if operator != from && !a.IsApprovedForAll(from, operator) {
		return ledger.ErrNotApproved
	}

	source := holding{owner: from, unit: unit}
	balance := a.balances[source]
	if balance < amount {
		return ledger.ErrInsufficientBalance
	}

	ledger.Put(a.journal, a.balances, source, balance-amount)

	destination := holding{owner: to, unit: unit}
	credited := a.balances[destination] + amount
	if credited < amount {
		return ledger.ErrOverflow
	}

	ledger.Put(a.journal, a.balances, destination, credited)

	a.journal.Emit(ledger.NewEvent(a.contract, "TransferSingle",
		"operator", ledger.FormatAddress(operator),
		"from", ledger.FormatAddress(from),
		"to", ledger.FormatAddress(to),
		"unitId", strconv.FormatUint(unit, 10),
		"amount", strconv.FormatUint(amount, 10),
	))
	return nil
}

// Mint creates units on behalf of an authorized contract.
func (a *AssetLedger) Mint(caller, to ledger.Address, unit, amount uint64) error {
	if err := a.roles.RequireMinter(caller); err != nil {
		return err
	}

	return a.mint(to, unit, amount)
}

// MintEmergency lets the owner create units directly.
func (a *AssetLedger) MintEmergency(caller, to ledger.Address, unit, amount uint64) error {
	if err := a.roles.RequireOwner(caller); err != nil {
		return err
	}

	return a.mint(to, unit, amount)
}

func (a *AssetLedger) Authorize(caller, contract ledger.Address) error {
	if err := a.roles.RequireOwner(caller); err != nil {
		return err
	}

	if err := a.roles.Minters.Add(contract); err != nil {
		return err
	}

	a.journal.Emit(ledger.NewEvent(a.contract, "ContractAuthorized", "contract", ledger.FormatAddress(contract)))
	return nil
}

func (a *AssetLedger) Revoke(caller, contract ledger.Address) error {
	if err := a.roles.RequireOwner(caller); err != nil {
		return err
	}

	if err := a.roles.Minters.Remove(contract); err != nil {
		return err
	}

	a.journal.Emit(ledger.NewEvent(a.contract, "ContractRevoked", "contract", ledger.FormatAddress(contract)))
	return nil
}

func (a *AssetLedger) IsAuthorized(contract ledger.Address) bool {
	return a.roles.Minters.Contains(contract)
}

func (a *AssetLedger) mint(to ledger.Address, id, amount uint64) error {
	if amount == 0 {
		return ledger.ErrInvalidAmount
	}

	unit, ok := a.units[id]
	if !ok {
		return ledger.ErrUnitNotFound
	}

	key := holding{owner: to, unit: id}
	balance := a.balances[key] + amount
	supply := unit.TotalSupply + amount
	if balance < amount || supply < amount {
		return ledger.ErrOverflow
	}

	unit.TotalSupply = supply
	ledger.Put(a.journal, a.units, id, unit)
	ledger.Put(a.journal, a.balances, key, balance)

	a.journal.Emit(ledger.NewEvent(a.contract, "TokenMinted",
		"to", ledger.FormatAddress(to),
		"unitId", strconv.FormatUint(id, 10),
		"amount", strconv.FormatUint(amount, 10),
	))
	return nil
}
